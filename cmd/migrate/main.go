package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"librarymanager/internal/config"
)

var errUsage = errors.New("usage")

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	loadEnvFiles()

	if err := run(context.Background(), *command, *name, logger); err != nil {
		logger.Error("migrate failed", slog.String("command", *command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, command, name string, logger *slog.Logger) error {
	dir := migrationsDir()

	if command == "create" {
		if name == "" {
			return fmt.Errorf("%w: -name is required for create", errUsage)
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return err
		}
		logger.Info("migration created", slog.String("name", name))
		return nil
	}
	if !knownCommand(command) {
		return fmt.Errorf("%w: unknown command %q, use up, down, status or create", errUsage, command)
	}

	pool, err := pgxpool.New(ctx, config.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return apply(ctx, db, command, dir, logger)
}

func knownCommand(command string) bool {
	switch command {
	case "up", "down", "status":
		return true
	}
	return false
}

func apply(ctx context.Context, db *sql.DB, command, dir string, logger *slog.Logger) error {
	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return err
		}
		logger.Info("migrations applied")
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return err
		}
		logger.Info("migration rolled back")
	case "status":
		return goose.StatusContext(ctx, db, dir)
	}
	return nil
}
