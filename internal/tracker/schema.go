package tracker

// ledgerTable is the name of the migrations ledger. The leading underscore
// keeps it clear of user tables and sorts it first in catalog listings.
const ledgerTable = "_schema_migrations"

// createLedgerSQL is the DDL for the ledger. A record is pending while
// finished_at and rolled_back_at are both NULL, applied once finished_at is
// set, and failed when it never gets set.
const createLedgerSQL = `CREATE TABLE IF NOT EXISTS _schema_migrations (
    id                   VARCHAR(36) PRIMARY KEY NOT NULL,
    checksum             VARCHAR(64) NOT NULL,
    finished_at          TIMESTAMPTZ,
    migration_name       VARCHAR(250) NOT NULL,
    logs                 TEXT,
    rolled_back_at       TIMESTAMPTZ,
    started_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    applied_steps_count  INTEGER NOT NULL DEFAULT 0
)`
