package sqlinline

const QSelectProviderCredential = `--sql 52f1f771-15ec-439c-a8e1-d2004191606a
select token, properties
from integration_tokens
where provider = $1::text
limit 1;
`

// An empty token keeps the stored one; properties merge key by key.
const QUpsertProviderCredential = `--sql 31eecc7c-63c8-443c-8adb-3f8de28d6950
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = coalesce(nullif(excluded.token, ''), integration_tokens.token),
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
