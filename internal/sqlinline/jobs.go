package sqlinline

const QInsertJob = `--sql 5d9b3e7a-8c1f-4a2d-b6e9-3c0f7a5d1e84
insert into generation_jobs (id, order_id, provider, model, status, result_ref, error_kind, error_detail, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, now(), now());
`

const QUpdateJob = `--sql 0f6a2c8e-7d4b-4e1a-9c5f-8b3d6e0a2f17
update generation_jobs
set status = $3, result_ref = $4, error_kind = $5, error_detail = $6, updated_at = now()
where id = $1 and provider = $2;
`

const QListJobsByOrder = `--sql c8e1f4b7-9a3d-4c6e-8f2b-5d7a0c3e9b46
select id, order_id, provider, model, status, result_ref, error_kind, error_detail, created_at, updated_at
from generation_jobs
where order_id = $1
order by created_at asc, id asc;
`
