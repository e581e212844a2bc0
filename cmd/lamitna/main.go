package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"lamitna/internal/app"
	"lamitna/internal/catalog"
	"lamitna/internal/chef"
	"lamitna/internal/config"
	"lamitna/internal/database"
	"lamitna/internal/fallback"
	"lamitna/internal/logging"
	"lamitna/internal/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "lamitna",
	Short:         "Plan Ramadan gatherings from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: $DATABASE_PATH or data/lamitna.db)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env bundles what a command needs. close releases the provider client and database.
type env struct {
	app   *app.App
	close func()
}

// openEnv builds the application. The database is opened only when withDB is set so
// that offline commands work without a writable data directory.
func openEnv(ctx context.Context, withDB bool) (*env, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	logger := logging.New(cfg.LogLevel, "console")

	collab, closeCollab, err := chef.NewCollaborator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { _ = closeCollab() }, func() { _ = logger.Sync() }}

	var (
		opts  = []chef.Option{chef.WithTimeout(cfg.AITimeout)}
		usage app.UsageStore
	)
	if withDB {
		db, err := database.NewDB(cfg.DatabasePath, logger)
		if err != nil {
			closeCollab()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		store := metrics.NewStore(db.SQL)
		opts = append(opts, chef.WithRecorder(store))
		usage = store
	}

	c := catalog.Default()
	svc := chef.NewService(collab, fallback.NewGenerator(c), logger.Named("chef"), opts...)
	logger.Debug("cli ready", zap.Bool("ai", cfg.HasAIProvider()), zap.Bool("db", withDB))

	return &env{
		app: app.NewApp(c, svc, usage, os.Stdout),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
