package remote

// Schema creates the memories table, its row-level security policies and the
// trigger feeding DefaultChannel. Apply it once in the project's SQL editor.
const Schema = `
create table if not exists public.memories (
    "id"           text primary key,
    "lat"          double precision not null,
    "lng"          double precision not null,
    "locationName" text not null default 'Unnamed place',
    "description"  text not null default '',
    "photos"       jsonb not null default '[]'::jsonb,
    "date"         bigint not null,
    "createdAt"    bigint not null
);

alter table public.memories enable row level security;

drop policy if exists "memories are public" on public.memories;
create policy "memories are public"
    on public.memories for select
    using (true);

drop policy if exists "owner can insert" on public.memories;
create policy "owner can insert"
    on public.memories for insert
    to authenticated
    with check (true);

drop policy if exists "owner can update" on public.memories;
create policy "owner can update"
    on public.memories for update
    to authenticated
    using (true)
    with check (true);

drop policy if exists "owner can delete" on public.memories;
create policy "owner can delete"
    on public.memories for delete
    to authenticated
    using (true);

create or replace function public.notify_memories_changed()
returns trigger
language plpgsql
as $$
begin
    perform pg_notify('memories_changed', tg_op);
    return null;
end;
$$;

drop trigger if exists memories_changed on public.memories;
create trigger memories_changed
    after insert or update or delete on public.memories
    for each statement
    execute function public.notify_memories_changed();
`
