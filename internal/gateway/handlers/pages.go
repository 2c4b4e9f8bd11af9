package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/format"
	"supplies-pos/internal/gateway/middleware"
	"supplies-pos/internal/logging"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
	userHandler "supplies-pos/internal/services/user/handler"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{
	"index.html",
	"login.html",
	"unauthorized.html",
	"reset_password.html",
	"admin_dashboard.html",
	"admin_products.html",
	"admin_reports.html",
	"cashier.html",
}

type PageHandler struct {
	users             *userHandler.UserHandler
	pos               *posHandler.POSHandler
	reports           *reports.Service
	storeName         string
	lowStockThreshold int
	pages             map[string]*template.Template
}

type pageData struct {
	Title     string
	StoreName string
	Session   *userHandler.Session
	Flash     string
	Error     string
	Data      gin.H
}

func NewPageHandler(users *userHandler.UserHandler, pos *posHandler.POSHandler, reportService *reports.Service, storeName string, lowStockThreshold int) (*PageHandler, error) {
	loc := reportService.Location()
	funcs := template.FuncMap{
		"currency":  format.Currency,
		"shortID":   format.ShortID,
		"upper":     strings.ToUpper,
		"date":      func(t time.Time) string { return format.Date(t, loc) },
		"dateShort": func(t time.Time) string { return format.DateShort(t, loc) },
		"clock":     func(t time.Time) string { return format.Time(t, loc) },
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		users:             users,
		pos:               pos,
		reports:           reportService,
		storeName:         storeName,
		lowStockThreshold: lowStockThreshold,
		pages:             pages,
	}, nil
}

func (h *PageHandler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	view := pageData{
		Title:     title,
		StoreName: h.storeName,
		Session:   middleware.SessionFrom(c),
		Flash:     c.Query("msg"),
		Error:     c.Query("err"),
		Data:      data,
	}
	if e, ok := data["error"].(string); ok && e != "" {
		view.Error = e
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[name].ExecuteTemplate(c.Writer, "layout", view); err != nil {
		logging.FromContext(c.Request.Context()).Error("render page", "page", name, "error", err)
		_ = c.Error(err)
	}
}

// pageError logs internal failures and shows a generic message in their place.
func (h *PageHandler) pageError(c *gin.Context, err error, fallback string) string {
	if statusFor(err) >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error(fallback, "error", err)
		return fallback
	}
	return err.Error()
}

func redirectWith(c *gin.Context, path, key, message string) {
	if message != "" {
		path += "?" + url.Values{key: {message}}.Encode()
	}
	c.Redirect(http.StatusSeeOther, path)
}

// --- Public ---

func (h *PageHandler) Landing(c *gin.Context) {
	middleware.ResolveState(c, h.users)

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	products, err := h.pos.ListProducts(ctx, posHandler.ProductFilter{})
	data := gin.H{"Products": products}
	if err != nil {
		data["error"] = h.pageError(c, err, "Failed to load products")
	}
	h.render(c, http.StatusOK, "index.html", "Welcome", data)
}

func (h *PageHandler) LoginForm(c *gin.Context) {
	state, session := middleware.ResolveState(c, h.users)
	if middleware.Evaluate(state) == middleware.GuardAllow {
		c.Redirect(http.StatusFound, session.Role.HomePath())
		return
	}
	h.render(c, http.StatusOK, "login.html", "Sign in", gin.H{"Email": ""})
}

func (h *PageHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	session, err := h.users.Authenticate(ctx, email, password)
	if err != nil {
		h.render(c, statusFor(err), "login.html", "Sign in", gin.H{
			"Email": email,
			"error": h.pageError(c, err, "Failed to sign in"),
		})
		return
	}

	if session.Role == userHandler.RoleNone {
		_ = h.users.SignOut(ctx, session)
		h.render(c, http.StatusForbidden, "login.html", "Sign in", gin.H{
			"Email": email,
			"error": "Your account has no role assigned",
		})
		return
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt)
	c.Redirect(http.StatusSeeOther, session.Role.HomePath())
}

func (h *PageHandler) Logout(c *gin.Context) {
	_, session := middleware.ResolveState(c, h.users)

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	if err := h.users.SignOut(ctx, session); err != nil {
		logging.FromContext(ctx).Error("sign out", "error", err)
	}
	middleware.ClearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

func (h *PageHandler) Unauthorized(c *gin.Context) {
	_, session := middleware.ResolveState(c, h.users)
	home := middleware.LoginPath
	if session != nil {
		home = session.Role.HomePath()
	}
	h.render(c, http.StatusForbidden, "unauthorized.html", "Access denied", gin.H{"Home": home})
}

func (h *PageHandler) ResetPasswordForm(c *gin.Context) {
	h.render(c, http.StatusOK, "reset_password.html", "Change password", nil)
}

func (h *PageHandler) ResetPassword(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	err := h.users.UpdatePassword(ctx, middleware.SessionFrom(c), c.PostForm("password"), c.PostForm("confirm_password"))
	if err != nil {
		h.render(c, statusFor(err), "reset_password.html", "Change password", gin.H{
			"error": h.pageError(c, err, "Failed to update password"),
		})
		return
	}

	middleware.ClearSessionCookie(c)
	redirectWith(c, middleware.LoginPath, "msg", "Password updated, please sign in again")
}

// --- Admin ---

func (h *PageHandler) AdminDashboard(c *gin.Context) {
	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	dash, err := h.reports.Dashboard(ctx)
	data := gin.H{"Dashboard": dash}
	if err != nil {
		data["error"] = h.pageError(c, err, "Failed to load dashboard")
	}
	h.render(c, http.StatusOK, "admin_dashboard.html", "Dashboard", data)
}

func (h *PageHandler) AdminProducts(c *gin.Context) {
	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	products, err := h.pos.AdminListProducts(ctx)
	data := gin.H{"Products": products, "LowStock": h.lowStockThreshold}
	if err != nil {
		data["error"] = h.pageError(c, err, "Failed to load products")
	}
	h.render(c, http.StatusOK, "admin_products.html", "Products", data)
}

func productFromForm(c *gin.Context) (posHandler.ProductInput, error) {
	in := posHandler.ProductInput{
		Name:     c.PostForm("name"),
		Category: c.PostForm("category"),
	}
	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		return in, fmt.Errorf("%w: price must be a number", posHandler.ErrInvalidProduct)
	}
	stock, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stock")))
	if err != nil {
		return in, fmt.Errorf("%w: stock must be a whole number", posHandler.ErrInvalidProduct)
	}
	in.Price = price
	in.Stock = stock
	return in, nil
}

func (h *PageHandler) AdminCreateProduct(c *gin.Context) {
	in, err := productFromForm(c)
	if err == nil {
		ctx, cancel := requestContext(c, shortTimeout)
		defer cancel()
		_, err = h.pos.CreateProduct(ctx, in)
	}
	if err != nil {
		redirectWith(c, "/admin/products", "err", h.pageError(c, err, "Failed to create product"))
		return
	}
	redirectWith(c, "/admin/products", "msg", "Product added")
}

func (h *PageHandler) AdminUpdateProduct(c *gin.Context) {
	in, err := productFromForm(c)
	if err == nil {
		ctx, cancel := requestContext(c, shortTimeout)
		defer cancel()
		_, err = h.pos.UpdateProduct(ctx, c.Param("id"), in)
	}
	if err != nil {
		redirectWith(c, "/admin/products", "err", h.pageError(c, err, "Failed to update product"))
		return
	}
	redirectWith(c, "/admin/products", "msg", "Product updated")
}

func (h *PageHandler) AdminReports(c *gin.Context) {
	data := gin.H{"Report": (*reports.OrderReport)(nil), "Receipt": (*posHandler.Receipt)(nil)}

	r, err := h.reports.ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		r, _ = h.reports.ParseRange("", "")
		data["error"] = err.Error()
	}

	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	report, err := h.reports.Orders(ctx, r)
	if err != nil {
		data["error"] = h.pageError(c, err, "Failed to load orders")
	}
	data["Report"] = report

	if orderID := c.Query("order"); orderID != "" {
		receipt, err := h.pos.GetReceipt(ctx, orderID, decimal.Zero)
		if err != nil {
			data["error"] = h.pageError(c, err, "Failed to load order items")
		}
		data["Receipt"] = receipt
	}
	h.render(c, http.StatusOK, "admin_reports.html", "Reports", data)
}

// --- Cashier ---

func (h *PageHandler) Cashier(c *gin.Context) {
	filter := posHandler.ProductFilter{
		Search:   c.Query("search"),
		Category: c.DefaultQuery("category", posHandler.CategoryAll),
	}
	cashier := middleware.SessionFrom(c).User.ID

	ctx, cancel := requestContext(c, shortTimeout)
	defer cancel()

	data := gin.H{"Filter": filter, "Receipt": (*posHandler.Receipt)(nil)}
	var errs []string

	products, err := h.pos.ListProducts(ctx, filter)
	if err != nil {
		errs = append(errs, h.pageError(c, err, "Failed to load products"))
	}
	data["Products"] = products

	categories, err := h.pos.Categories(ctx)
	if err != nil {
		categories = []string{posHandler.CategoryAll}
	}
	data["Categories"] = categories

	cart, err := h.pos.GetCart(ctx, cashier)
	if err != nil {
		errs = append(errs, h.pageError(c, err, "Failed to load cart"))
		cart = posHandler.NewCart(cashier)
	}
	data["Cart"] = cart.View()

	if orderID := c.Query("receipt"); orderID != "" {
		paid, err := parsePaid(c.Query("paid"))
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			receipt, err := h.pos.GetReceipt(ctx, orderID, paid)
			if err != nil {
				errs = append(errs, h.pageError(c, err, "Failed to load receipt"))
			}
			data["Receipt"] = receipt
		}
	}

	if len(errs) > 0 {
		data["error"] = strings.Join(errs, "; ")
	}
	h.render(c, http.StatusOK, "cashier.html", "Order", data)
}

var errInvalidPaid = errors.New("invalid amount paid")

// parsePaid treats an empty value as exact payment.
func parsePaid(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	p, err := decimal.NewFromString(raw)
	if err != nil || p.IsNegative() {
		return decimal.Zero, errInvalidPaid
	}
	return p, nil
}

func (h *PageHandler) cartAction(c *gin.Context, action func(ctx *gin.Context, cashier string) error, fallback string) {
	cashier := middleware.SessionFrom(c).User.ID
	if err := action(c, cashier); err != nil {
		redirectWith(c, "/cashier", "err", h.pageError(c, err, fallback))
		return
	}
	c.Redirect(http.StatusSeeOther, "/cashier")
}

func (h *PageHandler) CartAdd(c *gin.Context) {
	h.cartAction(c, func(ctx *gin.Context, cashier string) error {
		_, err := h.pos.AddToCart(ctx.Request.Context(), cashier, c.PostForm("product_id"))
		return err
	}, "Failed to add item")
}

func (h *PageHandler) CartUpdate(c *gin.Context) {
	h.cartAction(c, func(ctx *gin.Context, cashier string) error {
		qty, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity")))
		if err != nil {
			return fmt.Errorf("%w: quantity must be a whole number", userHandler.ErrValidation)
		}
		_, err = h.pos.UpdateCartQuantity(ctx.Request.Context(), cashier, c.PostForm("product_id"), qty)
		return err
	}, "Failed to update cart")
}

func (h *PageHandler) CartRemove(c *gin.Context) {
	h.cartAction(c, func(ctx *gin.Context, cashier string) error {
		_, err := h.pos.RemoveFromCart(ctx.Request.Context(), cashier, c.PostForm("product_id"))
		return err
	}, "Failed to remove item")
}

func (h *PageHandler) CartClear(c *gin.Context) {
	h.cartAction(c, func(ctx *gin.Context, cashier string) error {
		return h.pos.ClearCart(ctx.Request.Context(), cashier)
	}, "Failed to clear cart")
}

func (h *PageHandler) Checkout(c *gin.Context) {
	cashier := middleware.SessionFrom(c).User.ID
	method := models.PaymentMethod(c.PostForm("payment_method"))

	paid := decimal.Zero
	if raw := strings.TrimSpace(c.PostForm("amount_paid")); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			redirectWith(c, "/cashier", "err", "Amount paid must be a number")
			return
		}
		paid = p
	}

	ctx, cancel := requestContext(c, longTimeout)
	defer cancel()

	receipt, err := h.pos.Checkout(ctx, posHandler.CheckoutRequest{
		CashierID:     cashier,
		PaymentMethod: method,
		AmountPaid:    paid,
	})
	if err != nil {
		redirectWith(c, "/cashier", "err", h.pageError(c, err, "Failed to complete order"))
		return
	}

	q := url.Values{
		"receipt": {receipt.OrderID},
		"paid":    {receipt.AmountPaid.StringFixed(2)},
		"msg":     {"Order completed successfully"},
	}
	c.Redirect(http.StatusSeeOther, "/cashier?"+q.Encode())
}

// NotFound sends unknown paths home.
func (h *PageHandler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, errorResponse("Not found"))
		return
	}
	c.Redirect(http.StatusFound, "/")
}
