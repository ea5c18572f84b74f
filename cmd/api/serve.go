package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/safar/go-sql-marketplace/internal/api"
	"github.com/safar/go-sql-marketplace/internal/earnings"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/lock"
	"github.com/safar/go-sql-marketplace/internal/notify"
	"github.com/safar/go-sql-marketplace/internal/orders"
	"github.com/safar/go-sql-marketplace/internal/payouts"
	"github.com/spf13/cobra"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := a.connect()
	if err != nil {
		return err
	}
	defer db.Close()

	observers := notify.Multi{notify.NewLogObserver(a.log)}
	var orderOpts []orders.Option
	var payoutOpts []payouts.Option

	rdb := a.redisClient()
	if rdb != nil {
		defer rdb.Close()

		queue := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		defer queue.Close()

		observers = append(observers, notify.NewQueueObserver(queue, a.cfg.Queue.Name, a.log))
		payoutOpts = append(payoutOpts, payouts.WithLocker(lock.NewManager(rdb, a.cfg.Redis.LockTTL, a.cfg.Redis.LockWait, a.log)))
		a.log.WithField("addr", a.cfg.Redis.Addr).Info("redis enabled for locks, rate cache and notifications")
	}

	rates := earnings.NewCachedRates(earnings.NewStoreRates(db), rdb, a.cfg.Redis.CacheTTL)
	calc := earnings.NewCalculator(rates, a.cfg.Earnings.TaxRate)

	orderOpts = append(orderOpts, orders.WithLogger(a.log))
	orderSvc := orders.NewService(db, calc, observers, orders.Config{
		Pricing: orders.PricingRules{
			FreeShippingThreshold:  a.cfg.Pricing.FreeShippingThreshold,
			FlatShippingFee:        a.cfg.Pricing.FlatShippingFee,
			PrepaidDiscountPercent: a.cfg.Pricing.PrepaidDiscountPercent,
			TaxRate:                a.cfg.Pricing.OrderTaxRate,
		},
		ReturnWindow:    a.cfg.Pricing.ReturnWindow,
		RestockOnReturn: a.cfg.Pricing.RestockOnReturn,
		MaxRetries:      a.cfg.Database.MaxRetries,
	}, orderOpts...)

	payoutOpts = append(payoutOpts, payouts.WithLogger(a.log))
	payoutSvc := payouts.NewService(db, observers, a.cfg.Database.MaxRetries, payoutOpts...)
	stockSvc := inventory.NewService(db, a.cfg.Database.MaxRetries)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      api.New(orderSvc, payoutSvc, stockSvc, db, a.log).Router(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("port", a.cfg.Server.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
