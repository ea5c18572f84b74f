package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/models"
)

var _ StockService = (*inventory.Service)(nil)

// bind decodes the JSON body into req and runs its validation rules.
func (a *API) bind(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, APIError{Code: ErrCodeInvalidInput, Message: err.Error()})
		return false
	}
	if err := req.Validate(); err != nil {
		a.respondError(c, err)
		return false
	}
	return true
}

func (a *API) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if !a.bind(c, &req) {
		return
	}

	order, err := a.orders.PlaceOrder(c.Request.Context(), actorFrom(c), req.toCore())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders lists the caller's own orders: placed ones for buyers and admins,
// received ones for sellers.
func (a *API) ListOrders(c *gin.Context) {
	actor := actorFrom(c)
	cursor, limit := c.Query("cursor"), intQuery(c, "limit")

	var (
		page any
		err  error
	)
	if actor.Role == authz.RoleSeller {
		page, err = a.orders.ListSellerOrders(c.Request.Context(), actor, actor.ID, cursor, limit)
	} else {
		page, err = a.orders.ListBuyerOrders(c.Request.Context(), actor, cursor, limit)
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) ListSellerOrders(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, err := a.orders.ListSellerOrders(c.Request.Context(), actorFrom(c), sellerID, c.Query("cursor"), intQuery(c, "limit"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) GetOrder(c *gin.Context) {
	order, err := a.orders.GetOrder(c.Request.Context(), actorFrom(c), c.Param("number"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) TransitionOrder(c *gin.Context) {
	var req TransitionRequest
	if !a.bind(c, &req) {
		return
	}

	order, err := a.orders.TransitionOrder(c.Request.Context(), actorFrom(c), c.Param("number"),
		models.OrderStatus(req.Status), req.Comment, req.extra())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) CancelOrder(c *gin.Context) {
	var req ReasonRequest
	if !a.bind(c, &req) {
		return
	}

	order, err := a.orders.CancelOrder(c.Request.Context(), actorFrom(c), c.Param("number"), req.Reason)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) RequestReturn(c *gin.Context) {
	var req ReasonRequest
	if !a.bind(c, &req) {
		return
	}

	order, err := a.orders.RequestReturn(c.Request.Context(), actorFrom(c), c.Param("number"), req.Reason)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) ListSellerProducts(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, err := a.stock.ListSellerProducts(c.Request.Context(), sellerID, intQuery(c, "page"), intQuery(c, "page_size"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) Restock(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RestockRequest
	if !a.bind(c, &req) {
		return
	}

	stock, err := a.stock.Restock(c.Request.Context(), actorFrom(c), productID, req.Quantity)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}
