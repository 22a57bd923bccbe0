package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"github.com/bitebudget/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName    = "bitebudget-backend"
	serviceVersion = "1.0.0"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	lists     *usecase.ShoppingListService
	receipts  *usecase.ReceiptService
	reconcile *usecase.ReconciliationService
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	lists *usecase.ShoppingListService,
	receipts *usecase.ReceiptService,
	reconcile *usecase.ReconciliationService,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		lists:     lists,
		receipts:  receipts,
		reconcile: reconcile,
		logger:    logger.Named("handler"),
	}
}

type shoppingListRequest struct {
	Name  string               `json:"name"`
	Items []domain.PlannedItem `json:"items"`
}

type itemStatusRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type receiptRequest struct {
	StoreName    string                 `json:"storeName"`
	PurchaseDate time.Time              `json:"purchaseDate"`
	TotalAmount  float64                `json:"totalAmount"`
	Items        []domain.PurchasedItem `json:"items"`
}

type reconcileListRequest struct {
	ReceiptIDs []int64 `json:"receiptIds" binding:"required"`
}

type reconcileRequest struct {
	Planned   []domain.PlannedItem   `json:"planned"`
	Purchased []domain.PurchasedItem `json:"purchased"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ListShoppingLists handles GET /shopping-lists
func (h *Handler) ListShoppingLists(c *gin.Context) {
	lists, err := h.lists.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

// CreateShoppingList handles POST /shopping-lists
func (h *Handler) CreateShoppingList(c *gin.Context) {
	var req shoppingListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	list, err := h.lists.Create(c.Request.Context(), &domain.ShoppingList{Name: req.Name, Items: req.Items})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// GetShoppingList handles GET /shopping-lists/:id
func (h *Handler) GetShoppingList(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.lists.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateShoppingList handles PUT /shopping-lists/:id
func (h *Handler) UpdateShoppingList(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req shoppingListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	list, err := h.lists.Update(c.Request.Context(), id, &domain.ShoppingList{Name: req.Name, Items: req.Items})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteShoppingList handles DELETE /shopping-lists/:id
func (h *Handler) DeleteShoppingList(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.lists.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetItemCompleted handles PATCH /shopping-lists/:id/items/:index
func (h *Handler) SetItemCompleted(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid item index %q", c.Param("index"))})
		return
	}

	var req itemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	list, err := h.lists.SetItemCompleted(c.Request.Context(), id, index, *req.Completed)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ReconcileShoppingList handles POST /shopping-lists/:id/reconcile
func (h *Handler) ReconcileShoppingList(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req reconcileListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	report, err := h.reconcile.ReconcileList(c.Request.Context(), id, req.ReceiptIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListReceipts handles GET /receipts
func (h *Handler) ListReceipts(c *gin.Context) {
	receipts, err := h.receipts.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}

// CreateReceipt handles POST /receipts
func (h *Handler) CreateReceipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	receipt, err := h.receipts.Create(c.Request.Context(), &domain.Receipt{
		StoreName:    req.StoreName,
		PurchaseDate: req.PurchaseDate,
		TotalAmount:  req.TotalAmount,
		Items:        req.Items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// GetReceipt handles GET /receipts/:id
func (h *Handler) GetReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.receipts.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// DeleteReceipt handles DELETE /receipts/:id
func (h *Handler) DeleteReceipt(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.receipts.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reconcile handles POST /reconcile for items supplied in the request body
func (h *Handler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	report := h.reconcile.ReconcileItems(req.Planned, req.Purchased)
	c.JSON(http.StatusOK, report)
}

// pathID parses a positive integer path parameter, writing a 400 when it is invalid
func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
