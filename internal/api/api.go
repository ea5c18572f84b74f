// Package api is the HTTP surface over the order and payout services.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/orders"
	"github.com/safar/go-sql-marketplace/internal/payouts"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/sirupsen/logrus"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, actor authz.Actor, req orders.PlaceOrderRequest) (*models.Order, error)
	TransitionOrder(ctx context.Context, actor authz.Actor, number string, to models.OrderStatus, comment string, extra orders.TransitionExtra) (*models.Order, error)
	CancelOrder(ctx context.Context, actor authz.Actor, number, reason string) (*models.Order, error)
	RequestReturn(ctx context.Context, actor authz.Actor, number, reason string) (*models.Order, error)
	GetOrder(ctx context.Context, actor authz.Actor, number string) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, actor authz.Actor, cursor string, limit int) (*store.CursorPage[models.Order], error)
	ListSellerOrders(ctx context.Context, actor authz.Actor, sellerID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
}

type PayoutService interface {
	CollectEligible(ctx context.Context, actor authz.Actor, sellerID int64) ([]models.Order, error)
	CreatePayout(ctx context.Context, actor authz.Actor, req payouts.CreatePayoutRequest) (*models.PayoutTransaction, error)
	MarkProcessing(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error)
	MarkCompleted(ctx context.Context, actor authz.Actor, txnID, gatewayRef string) (*models.PayoutTransaction, error)
	MarkFailed(ctx context.Context, actor authz.Actor, txnID, reason, code string) (*models.PayoutTransaction, error)
	CancelPayout(ctx context.Context, actor authz.Actor, txnID, reason string) (*models.PayoutTransaction, error)
	RetryPayout(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error)
	GetPayout(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error)
	ListSellerPayouts(ctx context.Context, actor authz.Actor, sellerID int64, page, pageSize int) (*store.OffsetPage[models.PayoutTransaction], error)
	GetWallet(ctx context.Context, actor authz.Actor, sellerID int64) (*models.SellerWallet, error)
}

type StockService interface {
	ListSellerProducts(ctx context.Context, sellerID int64, page, pageSize int) (*store.OffsetPage[models.Product], error)
	Restock(ctx context.Context, actor authz.Actor, productID int64, quantity int) (models.Stock, error)
}

// Pinger reports database health for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

var (
	_ OrderService  = (*orders.Service)(nil)
	_ PayoutService = (*payouts.Service)(nil)
)

const (
	actorKey     = "actor"
	requestIDKey = "request_id"

	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-ID"
)

type API struct {
	orders  OrderService
	payouts PayoutService
	stock   StockService
	db      Pinger
	log     logrus.FieldLogger
}

func New(o OrderService, p PayoutService, s StockService, db Pinger, log logrus.FieldLogger) *API {
	return &API{orders: o, payouts: p, stock: s, db: db, log: log}
}

func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/healthz", a.Health)

	v1 := r.Group("/v1", a.authenticate())

	v1.POST("/orders", a.PlaceOrder)
	v1.GET("/orders", a.ListOrders)
	v1.GET("/orders/:number", a.GetOrder)
	v1.POST("/orders/:number/transitions", a.TransitionOrder)
	v1.POST("/orders/:number/cancel", a.CancelOrder)
	v1.POST("/orders/:number/return", a.RequestReturn)

	v1.POST("/products/:id/stock", a.Restock)

	v1.GET("/sellers/:id/orders", a.ListSellerOrders)
	v1.GET("/sellers/:id/products", a.ListSellerProducts)
	v1.GET("/sellers/:id/payouts/eligible", a.CollectEligible)
	v1.GET("/sellers/:id/payouts", a.ListSellerPayouts)
	v1.POST("/sellers/:id/payouts", a.CreatePayout)
	v1.GET("/sellers/:id/wallet", a.GetWallet)

	v1.GET("/payouts/:txn", a.GetPayout)
	v1.POST("/payouts/:txn/processing", a.MarkProcessing)
	v1.POST("/payouts/:txn/complete", a.CompletePayout)
	v1.POST("/payouts/:txn/fail", a.FailPayout)
	v1.POST("/payouts/:txn/cancel", a.CancelPayout)
	v1.POST("/payouts/:txn/retry", a.RetryPayout)

	return r
}

func (a *API) Health(c *gin.Context) {
	if a.db != nil {
		if err := a.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		a.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request")
	}
}

// authenticate trusts the actor headers set by the upstream auth layer.
func (a *API) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(HeaderActorID), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Code: ErrCodeUnauthorized, Message: "missing or invalid " + HeaderActorID})
			return
		}
		role, err := authz.ParseRole(c.GetHeader(HeaderActorRole))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Code: ErrCodeUnauthorized, Message: err.Error()})
			return
		}

		c.Set(actorKey, authz.Actor{ID: id, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) authz.Actor {
	actor, _ := c.MustGet(actorKey).(authz.Actor)
	return actor
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, APIError{Code: ErrCodeInvalidInput, Message: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}
