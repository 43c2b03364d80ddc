// Command cloudkv serves a key-value store over gRPC and runs the
// synchronized facade against it.
//
//	cloudkv serve [flags]
//	cloudkv save [flags] <key> <value>
//	cloudkv fetch [flags] <key>
//	cloudkv delete [flags] <key>
//	cloudkv clear [flags]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloudkv/internal/config"
	"cloudkv/internal/kvsync"
	"cloudkv/internal/remote"
	"cloudkv/internal/storage"
	"cloudkv/internal/storage/sqlite"
	"cloudkv/internal/telemetry"
)

var (
	errUsage    = errors.New("usage: cloudkv <serve|save|fetch|delete|clear> [flags] [args]")
	errNotFound = errors.New("not found")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := telemetry.NewLogger(stderr, level)

	shutdown, err := telemetry.Setup(ctx, "cloudkv-"+cmd)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdown(context.Background())

	if cmd == "serve" {
		return serve(ctx, cfg, logger)
	}
	return runClient(ctx, cmd, fs.Args(), cfg, logger, stdout)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var store storage.Store
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	default:
		store = storage.NewInMemoryStore(storage.DefaultLimits())
	}

	seeds, err := config.ParseSeeds(cfg.Seeds)
	if err != nil {
		return err
	}
	svc := kvsync.New(store,
		kvsync.WithLogger(kvsync.NewSlogLogger(logger)),
		kvsync.WithSource("seed"),
	)
	for _, seed := range seeds {
		if err := svc.Save(seed.Key, seed.Value); err != nil {
			return err
		}
	}

	lis, err := remote.Listen(cfg.ListenAddr, store, remote.ServerOptions{
		ServerID: cfg.ServerID,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return lis.Serve(ctx)
}

func runClient(ctx context.Context, cmd string, args []string, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	want := map[string]int{"save": 2, "fetch": 1, "delete": 1, "clear": 0}
	n, ok := want[cmd]
	if !ok || len(args) != n {
		return errUsage
	}

	var key kvsync.Key
	if n > 0 {
		k, err := kvsync.ParseKey(args[0])
		if err != nil {
			return err
		}
		key = k
	}

	client, err := remote.Dial(cfg.RemoteAddr, remote.ClientOptions{
		ClientID:    cfg.ClientID,
		CallTimeout: cfg.CallTimeout,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	svc := kvsync.New(client,
		kvsync.WithLogger(kvsync.NewSlogLogger(logger)),
		kvsync.WithSource(cfg.ClientID),
	)

	switch cmd {
	case "save":
		return svc.Save(key, config.ParseValue(args[1]))
	case "fetch":
		// Fetch reports an unreachable store as a miss.
		if err := client.Check(ctx); err != nil {
			return err
		}
		value, ok := kvsync.Fetch[json.RawMessage](svc, key)
		if !ok {
			return fmt.Errorf("%s: %w", key, errNotFound)
		}
		_, err := fmt.Fprintln(stdout, string(value))
		return err
	case "delete":
		return svc.Delete(key)
	default:
		return svc.ClearAll()
	}
}
