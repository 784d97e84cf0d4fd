package sqlinline

const QSelectUser = `--sql 38281127-45db-4375-829d-1a25c32cb145
select id, balance, remix_count
from users
where id = $1::text;
`

const QUpdateUser = `--sql 74374ab2-bbea-463e-aaa9-058cf25c4861
update users
set balance     = coalesce($2::int, balance),
    remix_count = coalesce($3::int, remix_count),
    updated_at  = now()
where id = $1::text;
`

const QSelectContestEntry = `--sql 00f94da5-f77f-4da4-9293-7815ce499542
select id, remix_count
from contest_entries
where id = $1::text;
`

const QUpdateContestEntryRemixCount = `--sql 9c1472e0-6a3d-48a7-baf7-c7ca687977a2
update contest_entries
set remix_count = $2::int
where id = $1::text;
`

const QInsertRemixReward = `--sql 4e154bdd-4e84-45a7-85ed-d915db20c77c
insert into remix_rewards (user_id, source_job_id, remix_job_id, amount)
values ($1::text, $2::text, $3::text, $4::int)
returning id, created_at;
`

const QSelectRemixRewardsByRemixJob = `--sql 83cf9984-8b3b-494c-8bef-9b40f81f4cd3
select id, user_id, source_job_id, remix_job_id, amount, created_at
from remix_rewards
where remix_job_id = $1::text
order by created_at asc;
`
