// Command quillctl runs administrative tasks against a Quill database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quill/internal/bootstrap"
	"quill/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type configLoader func() (*config.Config, error)

// app carries what every subcommand needs to reach the database.
type app struct {
	loadConfig configLoader
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(config.LoadConfig).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(load configLoader) *cobra.Command {
	a := &app{loadConfig: load}

	root := &cobra.Command{
		Use:          "quillctl",
		Short:        "Administrative tasks for the Quill API",
		SilenceUsage: true,
	}
	root.AddCommand(
		a.newMigrateCommand(),
		a.newSeedCommand(),
		newVAPIDCommand(),
	)
	return root
}

// connect loads config and opens the database. The caller must call the
// returned close func.
func (a *app) connect(ctx context.Context, opts bootstrap.Options) (*config.Config, *gorm.DB, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, func() { closeRuntime(db, rdb) }, nil
}

func closeRuntime(db *gorm.DB, rdb *redis.Client) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
