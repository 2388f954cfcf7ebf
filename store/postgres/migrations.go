package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token journal.
var Migrations = migrate.NewGroup("token")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_token_notifications",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS token_notifications (
    id         TEXT PRIMARY KEY,
    ledger_id  TEXT NOT NULL,
    seq        BIGINT NOT NULL,
    kind       TEXT NOT NULL,
    from_addr  TEXT NOT NULL DEFAULT '',
    to_addr    TEXT NOT NULL DEFAULT '',
    value      TEXT NOT NULL DEFAULT '0',
    target     TEXT NOT NULL DEFAULT '',
    frozen     BOOLEAN NOT NULL DEFAULT FALSE,
    timestamp  TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_token_notifications_ledger_seq ON token_notifications (ledger_id, seq);
CREATE INDEX IF NOT EXISTS idx_token_notifications_kind ON token_notifications (ledger_id, kind, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS token_notifications`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_token_notifications_parties",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_token_notifications_from ON token_notifications (from_addr);
CREATE INDEX IF NOT EXISTS idx_token_notifications_to ON token_notifications (to_addr);
CREATE INDEX IF NOT EXISTS idx_token_notifications_target ON token_notifications (target);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP INDEX IF EXISTS idx_token_notifications_from;
DROP INDEX IF EXISTS idx_token_notifications_to;
DROP INDEX IF EXISTS idx_token_notifications_target;
`)
				return err
			},
		},
	)
}
