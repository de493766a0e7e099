package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/booknetwork/booknet/pkg/config"
	"github.com/booknetwork/booknet/pkg/database"
	"github.com/booknetwork/booknet/pkg/migrations"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	var db *bun.DB

	app := &cli.App{
		Name:        "manage",
		Usage:       "booknet maintenance commands",
		Description: "Run migrations and manage user accounts against the configured database.",
		Before: func(_ *cli.Context) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			db, err = database.New(cfg)
			return err
		},
		After: func(_ *cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Commands: []*cli.Command{
			{
				Name:  "migrations",
				Usage: "interact with migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "create migration tables",
						Action: func(c *cli.Context) error {
							return migrate.NewMigrator(db, migrations.Migrations).Init(c.Context)
						},
					},
					{
						Name:  "migrate",
						Usage: "migrate database",
						Action: func(c *cli.Context) error {
							group, err := migrations.BringUpToDate(c.Context, db)
							if err != nil {
								return err
							}

							if group.ID == 0 {
								fmt.Printf("There are no new migrations to run\n")
								return nil
							}

							fmt.Printf("Migrated to %s\n", group)
							return nil
						},
					},
					{
						Name:  "rollback",
						Usage: "rollback the last migration group",
						Action: func(c *cli.Context) error {
							group, err := migrate.NewMigrator(db, migrations.Migrations).Rollback(c.Context)
							if err != nil {
								return err
							}

							if group.ID == 0 {
								fmt.Printf("There are no groups to roll back\n")
								return nil
							}

							fmt.Printf("Rolled back %s\n", group)
							return nil
						},
					},
					{
						Name:      "create",
						Usage:     "create Go migration",
						ArgsUsage: "<name words>",
						Action: func(c *cli.Context) error {
							name := strings.Join(c.Args().Slice(), "_")
							if name == "" {
								return errors.New("a migration name is required")
							}

							mf, err := migrate.NewMigrator(db, migrations.Migrations).CreateGoMigration(
								c.Context,
								name,
								migrate.WithGoTemplate(migrationTemplate),
							)
							if err != nil {
								return err
							}
							fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
							return nil
						},
					},
					{
						Name:  "status",
						Usage: "print migrations status",
						Action: func(c *cli.Context) error {
							ms, err := migrate.NewMigrator(db, migrations.Migrations).MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations: %s\n", ms)
							fmt.Printf("Unapplied migrations: %s\n", ms.Unapplied())
							fmt.Printf("Last migration group: %s\n", ms.LastGroup())
							return nil
						},
					},
				},
			},
			{
				Name:  "users",
				Usage: "manage user accounts",
				Subcommands: []*cli.Command{
					{
						Name:      "lock",
						Usage:     "lock an account so it can no longer sign in",
						ArgsUsage: "<email>",
						Action: func(c *cli.Context) error {
							return setLocked(c.Context, db, c.Args().First(), true)
						},
					},
					{
						Name:      "unlock",
						Usage:     "unlock a locked account",
						ArgsUsage: "<email>",
						Action: func(c *cli.Context) error {
							return setLocked(c.Context, db, c.Args().First(), false)
						},
					},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func setLocked(ctx context.Context, db *bun.DB, email string, locked bool) error {
	if email == "" {
		return errors.New("an email is required")
	}

	svc := users.NewService(db)
	email = users.NormalizeEmail(email)
	user, err := svc.Retrieve(ctx, users.RetrieveUserOptions{Email: &email})
	if err != nil {
		return err
	}
	if err := svc.SetLocked(ctx, user.ID, locked); err != nil {
		return err
	}

	fmt.Printf("User %s locked=%t\n", user.Email, locked)
	return nil
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db)
	}

	Migrations.MustRegister(up, down)
}
`
