package sqlinline

const QLedgerBalance = `--sql 4a7d1e9c-3b8f-4d2a-a6c4-9e0b5f8d3c71
select balance
from credit_ledger
where owner_id = $1;
`

// Guarded decrement: affects zero rows when the balance is insufficient.
const QLedgerDebit = `--sql 8b3f6d2a-1e9c-4f7b-8a5d-0c4e7b1f6a93
update credit_ledger
set balance = balance - $2, updated_at = now()
where owner_id = $1 and balance >= $2;
`

const QLedgerCredit = `--sql 2c9e5a1f-7b4d-4a8e-9f3c-6d1b8e4a0c57
insert into credit_ledger (owner_id, balance, updated_at)
values ($1, $2, now())
on conflict (owner_id) do update set
    balance = credit_ledger.balance + excluded.balance,
    updated_at = now();
`
