package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`ALTER TABLE jobs ADD COLUMN attempts INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE jobs ADD COLUMN last_error TEXT`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`ALTER TABLE jobs DROP COLUMN last_error`,
			`ALTER TABLE jobs DROP COLUMN attempts`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
