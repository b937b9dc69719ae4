package sqlinline

const QGetOrder = `--sql 3f1c2b8e-9a41-4d6b-8c2f-71d5a0e4b9c3
select id, owner_id, status, kind, photo_ref, second_photo_ref, prompt, result_refs, created_at, updated_at
from orders
where id = $1;
`

const QUpdateOrderStatus = `--sql 7e9d4a12-5b3c-4f8e-a1d7-2c6b9e0f4a85
update orders
set status = $2, updated_at = now()
where id = $1
  and status <> 'completed'
  and status <> 'failed'
  and status <> 'cancelled';
`

const QCompleteOrder = `--sql b4a81f6d-0c2e-47d9-9b3a-8e5f1c7d2a64
update orders
set status = 'completed', result_refs = $2, updated_at = now()
where id = $1 and status = 'processing';
`

const QFailOrder = `--sql 9c5e2d71-3a8b-4c6f-b0d9-4f7a1e8c3b52
update orders
set status = 'failed', failure_reason = $2, updated_at = now()
where id = $1 and status = 'processing';
`

const QCountOrdersByStatus = `--sql 1d8f3c9a-6e2b-4a7d-8f1c-5b9e0a4d7c26
select count(*)
from orders
where status = $1;
`

const QListOrdersByStatus = `--sql 6b2a9e4f-1d7c-4b3e-9a8d-0c5f2e7b1a94
select id, owner_id, status, kind, photo_ref, second_photo_ref, prompt, result_refs, created_at, updated_at
from orders
where status = $1
order by created_at asc
limit $2;
`

const QListStaleProcessingOrders = `--sql e7c4b1d8-2f9a-4e6c-b3d1-7a0e5c8f4b27
select id, owner_id, status, kind, photo_ref, second_photo_ref, prompt, result_refs, created_at, updated_at
from orders
where status = 'processing' and updated_at < $1
order by updated_at asc
limit $2;
`

const QOrderHasPayment = `--sql a2e8d5c1-4b7f-4d9e-8c3a-1f6b0d4e9a73
select exists (
    select 1 from payments where order_id = $1
);
`
