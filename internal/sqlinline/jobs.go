package sqlinline

const QInsertJob = `--sql 42281a26-74ab-4221-a0b9-91a3a190958b
insert into generation_jobs (
    user_id,
    prompt,
    model,
    media_type,
    status,
    cost,
    aspect_ratio,
    resolution,
    input_images,
    parent_id,
    contest_entry_id
)
values (
    $1::text,
    $2::text,
    $3::text,
    $4::text,
    $5::text,
    $6::int,
    $7::text,
    $8::text,
    coalesce($9::jsonb, '[]'::jsonb),
    nullif($10::text, ''),
    nullif($11::text, '')
)
returning id, created_at;
`

const QSelectJob = `--sql f271f9ce-25a8-47ff-b31d-2e5e5771084b
select
    id,
    user_id,
    prompt,
    model,
    media_type,
    status,
    cost,
    aspect_ratio,
    resolution,
    input_images,
    coalesce(parent_id, ''),
    coalesce(contest_entry_id, ''),
    coalesce(task_id, ''),
    coalesce(result_url, ''),
    coalesce(error_message, ''),
    remix_count,
    created_at,
    completed_at
from generation_jobs
where id = $1::text;
`

const QListJobs = `--sql 65aa1c14-8828-49b4-9101-b8fbb4dc400e
select
    id,
    user_id,
    prompt,
    model,
    media_type,
    status,
    cost,
    aspect_ratio,
    resolution,
    input_images,
    coalesce(parent_id, ''),
    coalesce(contest_entry_id, ''),
    coalesce(task_id, ''),
    coalesce(result_url, ''),
    coalesce(error_message, ''),
    remix_count,
    created_at,
    completed_at
from generation_jobs
where ($1::text = '' or user_id = $1::text)
  and ($2::text = '' or status = $2::text)
  and ($3::timestamptz is null or created_at < $3::timestamptz)
  and ($5::timestamptz is null or (created_at, id) > ($5::timestamptz, $6::text))
order by created_at asc, id asc
limit $4::int;
`

// QUpdateJob applies a partial patch; null parameters keep the stored value.
const QUpdateJob = `--sql 6b85cf18-03cd-4bf8-8985-ae11a4681285
update generation_jobs
set status        = coalesce($2::text, status),
    task_id       = coalesce($3::text, task_id),
    result_url    = coalesce($4::text, result_url),
    error_message = coalesce($5::text, error_message),
    remix_count   = coalesce($6::int, remix_count),
    completed_at  = coalesce($7::timestamptz, completed_at)
where id = $1::text;
`

// QTransitionJob is QUpdateJob guarded by the current status, so only one
// writer can move a job out of a given state.
const QTransitionJob = `--sql 58495289-4dbb-457d-847d-5b722621bf57
update generation_jobs
set status        = coalesce($2::text, status),
    task_id       = coalesce($3::text, task_id),
    result_url    = coalesce($4::text, result_url),
    error_message = coalesce($5::text, error_message),
    remix_count   = coalesce($6::int, remix_count),
    completed_at  = coalesce($7::timestamptz, completed_at)
where id = $1::text
  and status = $8::text;
`

const QSelectPendingUserIDs = `--sql cc858161-2f68-4ec9-8fa4-29cbcdffe215
select user_id
from generation_jobs
where status = 'pending'
  and ($1::timestamptz is null or created_at < $1::timestamptz)
  and user_id > $3::text
group by user_id
order by user_id asc
limit $2::int;
`
