package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"librarymanager/internal/config"
	"librarymanager/internal/lending"
	"librarymanager/internal/rating"
	"librarymanager/internal/store"
)

var (
	seedUsers = []string{"Alice", "Bob", "Carol"}
	seedBooks = []string{"Dune", "Emma", "Beloved", "Ubik"}
)

func main() {
	withHistory := flag.Bool("history", true, "Also borrow and return Dune as Alice (8) and Bob (7)")
	flag.Parse()

	config.LoadEnvFiles()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	gateway, err := store.Open(ctx, store.OpenOptions{
		Driver:     cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
		Timeout:    cfg.Store.Timeout,
	})
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer gateway.Close()

	service := lending.NewService(gateway, rating.NewEngine(cfg.Scoring), logger)
	if err := seed(ctx, service, *withHistory); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.Int("users", len(seedUsers)), slog.Int("books", len(seedBooks)))
}

func seed(ctx context.Context, service *lending.Service, withHistory bool) error {
	userIDs := make(map[string]int64, len(seedUsers))
	for _, name := range seedUsers {
		u, err := service.CreateUser(ctx, name)
		if err != nil {
			return fmt.Errorf("create user %s: %w", name, err)
		}
		userIDs[name] = u.ID
	}

	bookIDs := make(map[string]int64, len(seedBooks))
	for _, name := range seedBooks {
		b, err := service.CreateBook(ctx, name)
		if err != nil {
			return fmt.Errorf("create book %s: %w", name, err)
		}
		bookIDs[name] = b.ID
	}

	if !withHistory {
		return nil
	}

	dune := bookIDs["Dune"]
	for _, step := range []struct {
		user  string
		score float64
	}{{"Alice", 8}, {"Bob", 7}} {
		if _, err := service.BorrowBook(ctx, userIDs[step.user], dune); err != nil {
			return err
		}
		if _, err := service.ReturnBook(ctx, userIDs[step.user], dune, step.score); err != nil {
			return err
		}
	}
	_, err := service.BorrowBook(ctx, userIDs["Carol"], bookIDs["Emma"])
	return err
}
