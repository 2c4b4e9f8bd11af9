package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/gateway/middleware"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
)

type POSHTTPHandler struct {
	pos       *posHandler.POSHandler
	storeName string
	loc       *time.Location
}

func NewPOSHTTPHandler(pos *posHandler.POSHandler, storeName string, loc *time.Location) *POSHTTPHandler {
	return &POSHTTPHandler{
		pos:       pos,
		storeName: storeName,
		loc:       loc,
	}
}

type AddItemToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CheckoutRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
}

type ReceiptQuery struct {
	Paid  string `form:"paid"`
	Print bool   `form:"print"`
}

func cashierID(c *gin.Context) string {
	return middleware.SessionFrom(c).User.ID
}

// --- Catalog ---

func (h *POSHTTPHandler) ListProducts(c *gin.Context) {
	var filter posHandler.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	products, err := h.pos.ListProducts(ctx, filter)
	if err != nil {
		respondError(c, err, "Failed to load products")
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, gin.H{"count": len(products)}))
}

func (h *POSHTTPHandler) ListCategories(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	categories, err := h.pos.Categories(ctx)
	if err != nil {
		respondError(c, err, "Failed to load categories")
		return
	}
	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

// --- Cart ---

func (h *POSHTTPHandler) GetCart(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	cart, err := h.pos.GetCart(ctx, cashierID(c))
	if err != nil {
		respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, successResponse("Cart retrieved successfully", cart.View()))
}

func (h *POSHTTPHandler) AddItemToCart(c *gin.Context) {
	var req AddItemToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	cart, err := h.pos.AddToCart(ctx, cashierID(c), req.ProductID)
	if err != nil {
		respondError(c, err, "Failed to add item to cart")
		return
	}
	c.JSON(http.StatusOK, successResponse("Item added to cart", cart.View()))
}

func (h *POSHTTPHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	cart, err := h.pos.UpdateCartQuantity(ctx, cashierID(c), c.Param("product_id"), *req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, successResponse("Cart updated", cart.View()))
}

func (h *POSHTTPHandler) RemoveCartItem(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	cart, err := h.pos.RemoveFromCart(ctx, cashierID(c), c.Param("product_id"))
	if err != nil {
		respondError(c, err, "Failed to remove item")
		return
	}
	c.JSON(http.StatusOK, successResponse("Item removed from cart", cart.View()))
}

func (h *POSHTTPHandler) ClearCart(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	if err := h.pos.ClearCart(ctx, cashierID(c)); err != nil {
		respondError(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, successResponse("Cart cleared", posHandler.NewCart(cashierID(c)).View()))
}

// --- Checkout ---

func (h *POSHTTPHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	receipt, err := h.pos.Checkout(ctx, posHandler.CheckoutRequest{
		CashierID:     cashierID(c),
		PaymentMethod: req.PaymentMethod,
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		respondError(c, err, "Failed to complete order")
		return
	}
	c.JSON(http.StatusCreated, successResponse("Order completed successfully", receipt))
}

// --- Receipts ---

func (h *POSHTTPHandler) loadReceipt(c *gin.Context) (*posHandler.Receipt, ReceiptQuery, bool) {
	var query ReceiptQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return nil, query, false
	}

	paid := decimal.Zero
	if query.Paid != "" {
		p, err := decimal.NewFromString(query.Paid)
		if err != nil || p.IsNegative() {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid amount paid"))
			return nil, query, false
		}
		paid = p
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	receipt, err := h.pos.GetReceipt(ctx, c.Param("id"), paid)
	if err != nil {
		respondError(c, err, "Failed to load receipt")
		return nil, query, false
	}
	return receipt, query, true
}

func (h *POSHTTPHandler) GetReceipt(c *gin.Context) {
	receipt, _, ok := h.loadReceipt(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successResponse("Receipt retrieved successfully", receipt))
}

// ReceiptHTML serves the receipt as a download, or inline with print=1.
func (h *POSHTTPHandler) ReceiptHTML(c *gin.Context) {
	receipt, query, ok := h.loadReceipt(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteReceiptHTML(&buf, h.storeName, receipt, h.loc, query.Print); err != nil {
		respondError(c, err, "Failed to render receipt")
		return
	}

	if !query.Print {
		c.Header("Content-Disposition", "attachment; filename="+reports.ReceiptFilename(receipt))
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
