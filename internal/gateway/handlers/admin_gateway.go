package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
)

type AdminHTTPHandler struct {
	reports *reports.Service
	pos     *posHandler.POSHandler
}

func NewAdminHTTPHandler(reportService *reports.Service, pos *posHandler.POSHandler) *AdminHTTPHandler {
	return &AdminHTTPHandler{
		reports: reportService,
		pos:     pos,
	}
}

type ReportQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

type exporter struct {
	contentType string
	write       func(io.Writer, *reports.OrderReport, *time.Location) error
}

var exporters = map[string]exporter{
	"pdf":  {"application/pdf", reports.WritePDF},
	"csv":  {"text/csv; charset=utf-8", reports.WriteCSV},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", reports.WriteXLSX},
}

func (h *AdminHTTPHandler) Dashboard(c *gin.Context) {
	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	dash, err := h.reports.Dashboard(ctx)
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, successResponse("Dashboard retrieved successfully", dash))
}

func (h *AdminHTTPHandler) loadReport(c *gin.Context) (*reports.OrderReport, bool) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return nil, false
	}

	r, err := h.reports.ParseRange(query.Start, query.End)
	if err != nil {
		respondError(c, err, "Invalid date range")
		return nil, false
	}

	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	report, err := h.reports.Orders(ctx, r)
	if err != nil {
		respondError(c, err, "Failed to load orders")
		return nil, false
	}
	return report, true
}

func (h *AdminHTTPHandler) ListOrders(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", report.Orders, gin.H{
		"start":   report.Start,
		"end":     report.End,
		"count":   report.Count,
		"revenue": report.Revenue,
	}))
}

// ExportReport renders the range as pdf, csv or xlsx, picked by the :format param.
func (h *AdminHTTPHandler) ExportReport(c *gin.Context) {
	format := c.Param("format")
	exp, ok := exporters[format]
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("Unsupported export format"))
		return
	}

	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := exp.write(&buf, report, h.reports.Location()); err != nil {
		respondError(c, err, "Failed to export report")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+report.Range.Filename(format))
	c.Data(http.StatusOK, exp.contentType, buf.Bytes())
}

func (h *AdminHTTPHandler) OrderItems(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	items, err := h.pos.ListOrderItems(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load order items")
		return
	}
	c.JSON(http.StatusOK, successResponse("Order items retrieved successfully", items))
}

// --- Products ---

func (h *AdminHTTPHandler) ListProducts(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	products, err := h.pos.AdminListProducts(ctx)
	if err != nil {
		respondError(c, err, "Failed to load products")
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, gin.H{"count": len(products)}))
}

func (h *AdminHTTPHandler) CreateProduct(c *gin.Context) {
	var req posHandler.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	product, err := h.pos.CreateProduct(ctx, req)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *AdminHTTPHandler) UpdateProduct(c *gin.Context) {
	var req posHandler.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	product, err := h.pos.UpdateProduct(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}
