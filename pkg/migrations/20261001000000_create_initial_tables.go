package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		pk := primaryKey(db)
		err := execAll(ctx, db,
			`CREATE TABLE roles (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX ux_roles_name ON roles (name)`,
			`INSERT INTO roles (name) VALUES ('user')`,
			`CREATE TABLE users (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role_id INTEGER REFERENCES roles (id) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				account_locked BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			// Emails are lowercased before they're stored.
			`CREATE UNIQUE INDEX ux_users_email ON users (email)`,
			`CREATE TABLE tokens (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER REFERENCES users (id) NOT NULL,
				token TEXT NOT NULL,
				expires_at TIMESTAMPTZ NOT NULL,
				validated_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX ux_tokens_token ON tokens (token)`,
			`CREATE INDEX ix_tokens_user_id ON tokens (user_id)`,
			`CREATE TABLE books (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				owner_id INTEGER REFERENCES users (id) NOT NULL,
				title TEXT NOT NULL,
				author_name TEXT NOT NULL,
				isbn TEXT NOT NULL,
				synopsis TEXT NOT NULL DEFAULT '',
				cover_filename TEXT,
				archived BOOLEAN NOT NULL DEFAULT FALSE,
				shareable BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX ix_books_owner_id ON books (owner_id)`,
			`CREATE TABLE loans (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				user_id INTEGER REFERENCES users (id) NOT NULL,
				returned BOOLEAN NOT NULL DEFAULT FALSE,
				return_approved BOOLEAN NOT NULL DEFAULT FALSE,
				CHECK (returned OR NOT return_approved)
			)`,
			// At most one unapproved loan per (book, borrower).
			`CREATE UNIQUE INDEX ux_loans_open ON loans (book_id, user_id) WHERE return_approved = FALSE`,
			`CREATE INDEX ix_loans_user_id ON loans (user_id)`,
			`CREATE TABLE feedbacks (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				note REAL NOT NULL,
				comment TEXT NOT NULL,
				created_by INTEGER REFERENCES users (id) NOT NULL
			)`,
			`CREATE INDEX ix_feedbacks_book_id ON feedbacks (book_id)`,
			`CREATE TABLE jobs (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				data TEXT NOT NULL,
				process_id TEXT
			)`,
			`CREATE INDEX ix_jobs_status ON jobs (status)`,
		)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		err := execAll(ctx, db,
			`DROP TABLE IF EXISTS jobs`,
			`DROP TABLE IF EXISTS feedbacks`,
			`DROP TABLE IF EXISTS loans`,
			`DROP TABLE IF EXISTS books`,
			`DROP TABLE IF EXISTS tokens`,
			`DROP TABLE IF EXISTS users`,
			`DROP TABLE IF EXISTS roles`,
		)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
