package main

import (
	"errors"

	"github.com/hibiken/asynq"
	"github.com/safar/go-sql-marketplace/internal/notify"
	"github.com/spf13/cobra"
)

func workerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume order and payout events from the notification queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Redis.Addr == "" {
				return errors.New("worker requires REDIS_ADDR")
			}

			srv := asynq.NewServer(
				asynq.RedisClientOpt{
					Addr:     a.cfg.Redis.Addr,
					Password: a.cfg.Redis.Password,
					DB:       a.cfg.Redis.DB,
				},
				asynq.Config{
					Concurrency: a.cfg.Queue.Concurrency,
					Queues:      map[string]int{a.cfg.Queue.Name: 1},
					Logger:      a.log,
				},
			)

			mux := asynq.NewServeMux()
			notify.NewHandler(a.log).Register(mux)

			a.log.WithField("queue", a.cfg.Queue.Name).Info("worker starting")
			return srv.Run(mux)
		},
	}
}
