package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/safar/go-sql-marketplace/internal/config"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once config is loaded.
type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func main() {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:           "marketplace",
		Short:         "Marketplace order lifecycle and seller payouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.AddCommand(serveCommand(a), migrateCommand(a), workerCommand(a))

	if err := root.Execute(); err != nil {
		a.log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	a.log.SetFormatter(&logrus.JSONFormatter{})
	a.log.SetLevel(level)

	a.cfg = cfg
	return nil
}

func (a *app) connect() (*sql.DB, error) {
	db, err := database.NewConnection(&a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.log.Info("connected to database")
	return db, nil
}

// redisClient returns nil when no Redis address is configured.
func (a *app) redisClient() *redis.Client {
	if a.cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
}
