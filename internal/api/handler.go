package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudpos/possync/internal/catalog"
	"github.com/cloudpos/possync/internal/checkout"
	"github.com/cloudpos/possync/internal/connectivity"
	"github.com/cloudpos/possync/internal/models"
	"github.com/cloudpos/possync/internal/store"
	"github.com/cloudpos/possync/internal/sync"
)

// BacklogCounter reports the unsynced queue depth for the status endpoint.
type BacklogCounter interface {
	CountUnsynced() (int, error)
}

// posHandler exposes the register's operations over HTTP: cart edits,
// checkout, catalog reads, sync status/trigger, and the connectivity signal
// ingress fed by the app shell.
type posHandler struct {
	cart         *checkout.Cart
	orchestrator *checkout.Orchestrator
	catalog      *catalog.Service
	engine       *sync.Engine
	monitor      *connectivity.Monitor
	backlog      BacklogCounter
	taxRate      float64
	logger       *slog.Logger
}

// NewHandler creates the HTTP handler set. engine and backlog are nil when
// the local store is unavailable; the handlers then report the degraded
// state instead of failing.
func NewHandler(cart *checkout.Cart, orch *checkout.Orchestrator, cat *catalog.Service, engine *sync.Engine, monitor *connectivity.Monitor, backlog BacklogCounter, taxRate float64, logger *slog.Logger) *posHandler {
	return &posHandler{
		cart:         cart,
		orchestrator: orch,
		catalog:      cat,
		engine:       engine,
		monitor:      monitor,
		backlog:      backlog,
		taxRate:      taxRate,
		logger:       logger,
	}
}

func (h *posHandler) handleAddCartItem(c *gin.Context) {
	var req struct {
		ProductID   string  `json:"product_id"`
		ProductName string  `json:"product_name"`
		UnitPrice   float64 `json:"unit_price"`
		Quantity    int     `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ProductID == "" || req.Quantity < 1 || req.UnitPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id required, quantity >= 1, unit_price >= 0"})
		return
	}

	h.cart.AddItem(models.SaleItem{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
	})
	h.renderCart(c, http.StatusOK)
}

func (h *posHandler) handleUpdateCartItem(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	h.cart.UpdateQuantity(c.Param("id"), req.Quantity)
	h.renderCart(c, http.StatusOK)
}

func (h *posHandler) handleRemoveCartItem(c *gin.Context) {
	h.cart.RemoveItem(c.Param("id"))
	h.renderCart(c, http.StatusOK)
}

func (h *posHandler) handleClearCart(c *gin.Context) {
	h.cart.Clear()
	h.renderCart(c, http.StatusOK)
}

func (h *posHandler) handleGetCart(c *gin.Context) {
	h.renderCart(c, http.StatusOK)
}

func (h *posHandler) renderCart(c *gin.Context, status int) {
	subtotal := h.cart.Subtotal()
	tax := subtotal * h.taxRate
	c.JSON(status, gin.H{
		"items":    h.cart.Items(),
		"subtotal": subtotal,
		"tax":      tax,
		"total":    subtotal + tax,
	})
}

func (h *posHandler) handleCheckout(c *gin.Context) {
	var req struct {
		CashierID     string `json:"cashier_id"`
		PaymentMethod string `json:"payment_method"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result, err := h.orchestrator.CompleteSale(c.Request.Context(), req.CashierID, req.PaymentMethod, req.Notes, h.cart.Items())
	if err != nil {
		h.logger.Error("Checkout failed", "error", err, "cashier_id", req.CashierID)
		switch {
		case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrInvalidPayment):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	h.cart.Clear()
	c.JSON(http.StatusCreated, result)
}

func (h *posHandler) handleListProducts(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), storeID)
	if err != nil {
		h.logger.Error("Product listing failed", "store_id", storeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *posHandler) handleDeleteProduct(c *gin.Context) {
	outcome := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id"))

	body := gin.H{
		"remote": outcomeString(outcome.RemoteErr),
		"local":  outcomeString(outcome.LocalErr),
	}
	if outcome.OK() {
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(http.StatusBadGateway, body)
}

func outcomeString(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

func (h *posHandler) handleSyncStatus(c *gin.Context) {
	status := gin.H{
		"online":     h.monitor.Online(),
		"syncing":    false,
		"sync_error": "",
		"pending":    0,
	}

	if h.engine == nil {
		status["sync_error"] = store.ErrStoreUnavailable.Error()
		c.JSON(http.StatusOK, status)
		return
	}

	status["syncing"] = h.engine.Syncing()
	status["sync_error"] = h.engine.LastError()

	if count, err := h.backlog.CountUnsynced(); err == nil {
		status["pending"] = count
	}

	c.JSON(http.StatusOK, status)
}

func (h *posHandler) handleSyncNow(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": store.ErrStoreUnavailable.Error()})
		return
	}

	// Single-flight: a refused trigger is indistinguishable from an
	// accepted one from the caller's point of view.
	go func() {
		if err := h.engine.Sync(context.Background()); err != nil && !errors.Is(err, sync.ErrSyncInProgress) {
			h.logger.Error("Manual sync failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "sync requested"})
}

func (h *posHandler) handleConnectivity(c *gin.Context) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "online (bool) is required"})
		return
	}

	h.monitor.Set(*req.Online)
	c.Status(http.StatusNoContent)
}
