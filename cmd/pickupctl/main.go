package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"PickupStatsApi/internal/career"
	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/metrics"
	"PickupStatsApi/internal/reconcile"
	"PickupStatsApi/internal/validator"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	logger := jsonlog.New(os.Stderr, jsonlog.LevelInfo)

	if err := newApp(os.Stdout, logger).Run(os.Args); err != nil {
		logger.PrintFatal(err, nil)
	}
}

func newApp(out io.Writer, logger *jsonlog.Logger) *cli.App {
	dsnFlag := &cli.StringFlag{
		Name:     "db-dsn",
		Usage:    "PostgreSQL connection string",
		EnvVars:  []string{"PICKUP_DB_DSN"},
		Required: true,
	}

	return &cli.App{
		Name:  "pickupctl",
		Usage: "operator tasks for the pickup stats api",
		Commands: []*cli.Command{
			{
				Name:  "reconcile",
				Usage: "list players whose career record disagrees with their game history",
				Flags: []cli.Flag{
					dsnFlag,
					&cli.BoolFlag{
						Name:  "repair",
						Usage: "rebuild every diverging career from stored games",
					},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c.String("db-dsn"))
					if err != nil {
						return err
					}
					defer db.Close()

					models := data.NewModels(db)
					acc := career.New(&models.Players, logger, metrics.Noop{})
					job := reconcile.New(&models.Players, &models.Games, acc, logger)

					return runReconcile(c.Context, out, job, c.Bool("repair"))
				},
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					dsnFlag,
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"PICKUP_ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name", Value: "Administrator"},
				},
				Action: func(c *cli.Context) error {
					user, err := newAdmin(c.String("name"), c.String("email"), c.String("password"))
					if err != nil {
						return err
					}

					db, err := openDB(c.String("db-dsn"))
					if err != nil {
						return err
					}
					defer db.Close()

					models := data.NewModels(db)
					err = models.Users.Insert(c.Context, user)
					if err != nil {
						switch {
						case errors.Is(err, data.ErrDuplicateEmail):
							return fmt.Errorf("a user with email %s already exists", user.Email)
						default:
							return err
						}
					}

					logger.PrintInfo("administrator created", map[string]string{
						"user_id": user.ID.String(),
						"email":   user.Email,
					})
					return nil
				},
			},
		},
	}
}

type reconciler interface {
	Run(ctx context.Context, repair bool) (*reconcile.Report, error)
}

func runReconcile(ctx context.Context, out io.Writer, job reconciler, repair bool) error {
	report, err := job.Run(ctx, repair)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d career rebuilds failed", len(report.Failed))
	}
	return nil
}

// newAdmin builds and validates an admin user. Validation errors are returned as one error.
func newAdmin(name, email, plaintext string) (*data.User, error) {
	user := &data.User{Name: name, Email: email, Role: data.RoleAdmin}

	err := user.Password.Set(plaintext)
	if err != nil {
		return nil, err
	}

	v := validator.New()
	if data.ValidateUser(v, user); !v.Valid() {
		return nil, data.ModelValidationErrFrom(v)
	}

	return user, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
