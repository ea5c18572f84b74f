package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) CollectEligible(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	eligible, err := a.payouts.CollectEligible(c.Request.Context(), actorFrom(c), sellerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": eligible, "count": len(eligible)})
}

func (a *API) CreatePayout(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CreatePayoutRequest
	if !a.bind(c, &req) {
		return
	}

	payout, err := a.payouts.CreatePayout(c.Request.Context(), actorFrom(c), req.toCore(sellerID))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payout)
}

func (a *API) ListSellerPayouts(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, err := a.payouts.ListSellerPayouts(c.Request.Context(), actorFrom(c), sellerID, intQuery(c, "page"), intQuery(c, "page_size"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) GetWallet(c *gin.Context) {
	sellerID, ok := idParam(c, "id")
	if !ok {
		return
	}

	wallet, err := a.payouts.GetWallet(c.Request.Context(), actorFrom(c), sellerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (a *API) GetPayout(c *gin.Context) {
	payout, err := a.payouts.GetPayout(c.Request.Context(), actorFrom(c), c.Param("txn"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (a *API) MarkProcessing(c *gin.Context) {
	payout, err := a.payouts.MarkProcessing(c.Request.Context(), actorFrom(c), c.Param("txn"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (a *API) CompletePayout(c *gin.Context) {
	var req CompletePayoutRequest
	if !a.bind(c, &req) {
		return
	}

	payout, err := a.payouts.MarkCompleted(c.Request.Context(), actorFrom(c), c.Param("txn"), req.GatewayRef)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (a *API) FailPayout(c *gin.Context) {
	var req FailPayoutRequest
	if !a.bind(c, &req) {
		return
	}

	payout, err := a.payouts.MarkFailed(c.Request.Context(), actorFrom(c), c.Param("txn"), req.Reason, req.Code)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (a *API) CancelPayout(c *gin.Context) {
	var req ReasonRequest
	if !a.bind(c, &req) {
		return
	}

	payout, err := a.payouts.CancelPayout(c.Request.Context(), actorFrom(c), c.Param("txn"), req.Reason)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (a *API) RetryPayout(c *gin.Context) {
	payout, err := a.payouts.RetryPayout(c.Request.Context(), actorFrom(c), c.Param("txn"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payout)
}
