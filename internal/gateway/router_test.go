package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"supplies-pos/internal/database/dbtest"
	"supplies-pos/internal/database/models"
	"supplies-pos/internal/format"
	"supplies-pos/internal/gateway/middleware"
	"supplies-pos/internal/logging"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
	userHandler "supplies-pos/internal/services/user/handler"
	"supplies-pos/internal/utils"
)

type fakeHealth struct {
	status healthpb.HealthCheckResponse_ServingStatus
	err    error
}

func (f *fakeHealth) Check(context.Context, string) (*healthpb.HealthCheckResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &healthpb.HealthCheckResponse{Status: f.status}, nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

type testApp struct {
	router   *gin.Engine
	db       *gorm.DB
	health   *fakeHealth
	notebook models.Product
	eraser   models.Product
}

const testPassword = "secret123"

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.InitTestDB(t)
	rdb, _ := dbtest.InitTestRedis(t)
	users := userHandler.NewUserHandler(db, rdb, utils.NewTokenIssuer([]byte("test-secret"), time.Hour))

	ctx := context.Background()
	_, err := users.CreateProfile(ctx, "admin@example.com", testPassword, userHandler.RoleAdmin)
	require.NoError(t, err)
	_, err = users.CreateProfile(ctx, "cashier@example.com", testPassword, userHandler.RoleCashier)
	require.NoError(t, err)

	app := &testApp{
		db:     db,
		health: &fakeHealth{status: healthpb.HealthCheckResponse_SERVING},
		notebook: models.Product{
			Name: "Notebook", Category: "Paper", Price: decimal.RequireFromString("50.00"), Stock: 5,
		},
		eraser: models.Product{
			Name: "Eraser", Category: "Writing", Price: decimal.RequireFromString("20.00"), Stock: 3,
		},
	}
	require.NoError(t, db.Create(&app.notebook).Error)
	require.NoError(t, db.Create(&app.eraser).Error)

	router, err := NewRouter(Deps{
		Users:             users,
		POS:               posHandler.NewPOSHandler(db, rdb, nil, time.Hour),
		Reports:           reports.NewService(db, format.Location("Asia/Manila"), 10),
		Health:            app.health,
		Logger:            logging.NewWithWriter(io.Discard, "error"),
		StoreName:         "Test Supplies",
		HealthService:     "pos",
		LowStockThreshold: 10,
		CORSOrigins:       []string{"*"},
		LoginRateLimit:    "100-M",
	})
	require.NoError(t, err)
	app.router = router
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) form(t *testing.T, path, token string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SESSION_COOKIE, Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) page(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SESSION_COOKIE, Value: token})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
		Home  string `json:"home"`
	}
	decode(t, w, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

// --- API ---

func TestAPI_LoginAndSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "cashier@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SESSION_COOKIE+"=")

	var login struct {
		Token string           `json:"token"`
		Role  userHandler.Role `json:"role"`
		Home  string           `json:"home"`
	}
	decode(t, w, &login)
	assert.Equal(t, userHandler.RoleCashier, login.Role)
	assert.Equal(t, "/cashier", login.Home)

	w = app.do(t, http.MethodGet, "/api/v1/auth/session", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/auth/session", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_LoginWrongPassword(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "cashier@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.False(t, env.Success)
}

func TestAPI_RoleGuards(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")
	admin := app.login(t, "admin@example.com")

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/cashier/products", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/admin/dashboard", cashier, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/cashier/cart", admin, nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil).Code)
}

func TestAPI_CheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")

	var products []models.Product
	w := app.do(t, http.MethodGet, "/api/v1/cashier/products?search=note", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "Notebook", products[0].Name)

	for _, id := range []string{app.notebook.ID, app.notebook.ID, app.eraser.ID} {
		w = app.do(t, http.MethodPost, "/api/v1/cashier/cart/items", cashier, gin.H{"product_id": id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	var cart posHandler.CartView
	decode(t, w, &cart)
	assert.Equal(t, 3, cart.ItemCount)
	assert.True(t, decimal.RequireFromString("120").Equal(cart.Total))

	w = app.do(t, http.MethodPost, "/api/v1/cashier/checkout", cashier, gin.H{"payment_method": "cash", "amount_paid": "100"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/cashier/checkout", cashier, gin.H{"payment_method": "cash", "amount_paid": "150"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var receipt posHandler.Receipt
	decode(t, w, &receipt)
	assert.True(t, decimal.RequireFromString("30").Equal(receipt.Change))
	assert.Len(t, receipt.Lines, 2)

	var notebook models.Product
	require.NoError(t, app.db.First(&notebook, "id = ?", app.notebook.ID).Error)
	assert.Equal(t, 3, notebook.Stock)

	w = app.do(t, http.MethodGet, "/api/v1/cashier/cart", cashier, nil)
	decode(t, w, &cart)
	assert.Zero(t, cart.ItemCount)

	w = app.do(t, http.MethodGet, "/api/v1/orders/"+receipt.OrderID+"/receipt.html?paid=150", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-"+receipt.ShortID+".html")
	assert.Contains(t, w.Body.String(), "Test Supplies")

	admin := app.login(t, "admin@example.com")
	w = app.do(t, http.MethodGet, "/api/v1/admin/orders/"+receipt.OrderID+"/items", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.OrderItem
	decode(t, w, &items)
	assert.Len(t, items, 2)
}

func TestAPI_CartQuantityAndEmptyCheckout(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/cashier/checkout", cashier, gin.H{"payment_method": "cash", "amount_paid": "10"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/cashier/cart/items", cashier, gin.H{"product_id": app.eraser.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/api/v1/cashier/cart/items/"+app.eraser.ID, cashier, gin.H{"quantity": 9})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPatch, "/api/v1/cashier/cart/items/"+app.eraser.ID, cashier, gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	var cart posHandler.CartView
	decode(t, w, &cart)
	assert.Empty(t, cart.Items)
}

func TestAPI_AdminReportsAndExport(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "admin@example.com")

	cashierID := "00000000-0000-0000-0000-000000000001"
	require.NoError(t, app.db.Create(&models.Order{
		CashierID: cashierID, Total: decimal.RequireFromString("75.00"), PaymentMethod: models.PaymentGCash,
	}).Error)

	w := app.do(t, http.MethodGet, "/api/v1/admin/reports/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	env := decode(t, w, &orders)
	assert.Len(t, orders, 1)
	assert.Contains(t, string(env.Meta), `"count":1`)

	w = app.do(t, http.MethodGet, "/api/v1/admin/reports/orders?start=2025-02-10&end=2025-02-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for ext, contentType := range map[string]string{
		"csv":  "text/csv",
		"pdf":  "application/pdf",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	} {
		w = app.do(t, http.MethodGet, "/api/v1/admin/reports/export/"+ext, admin, nil)
		require.Equal(t, http.StatusOK, w.Code, ext)
		assert.Contains(t, w.Header().Get("Content-Type"), contentType)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "sales-report-")
		assert.NotZero(t, w.Body.Len())
	}

	w = app.do(t, http.MethodGet, "/api/v1/admin/reports/export/docx", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_AdminProducts(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "admin@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/admin/products", admin, gin.H{
		"name": "Ruler", "category": "Tools", "price": "15.50", "stock": 12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Product
	decode(t, w, &created)

	w = app.do(t, http.MethodPut, "/api/v1/admin/products/"+created.ID, admin, gin.H{
		"name": "Ruler 30cm", "category": "Tools", "price": "18.00", "stock": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cashier := app.login(t, "cashier@example.com")
	var products []models.Product
	decode(t, app.do(t, http.MethodGet, "/api/v1/cashier/products", cashier, nil), &products)
	for _, p := range products {
		assert.NotEqual(t, created.ID, p.ID, "out of stock product listed")
	}

	w = app.do(t, http.MethodGet, "/api/v1/admin/products", admin, nil)
	decode(t, w, &products)
	assert.Len(t, products, 3)
}

func TestAPI_PasswordUpdate(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "cashier@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/auth/password", token, gin.H{"password": "newpass1", "confirm_password": "newpass2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/password", token, gin.H{"password": "newpass1", "confirm_password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/auth/session", token, nil).Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "cashier@example.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Pages ---

func TestPages_LoginRedirectsByRole(t *testing.T) {
	app := newTestApp(t)

	w := app.form(t, "/login", "", url.Values{"email": {"admin@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	w = app.form(t, "/login", "", url.Values{"email": {"cashier@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cashier", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SESSION_COOKIE+"=")

	w = app.form(t, "/login", "", url.Values{"email": {"cashier@example.com"}, "password": {"nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "cashier@example.com")
}

func TestPages_Guards(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")
	admin := app.login(t, "admin@example.com")

	w := app.page(t, "/cashier", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.page(t, "/admin", cashier)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/unauthorized", w.Header().Get("Location"))

	w = app.page(t, "/admin", admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")

	w = app.page(t, "/login", admin)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	w = app.page(t, "/no/such/page", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestPages_CashierCheckout(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")

	w := app.page(t, "/cashier?category=Paper", cashier)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Notebook")
	assert.NotContains(t, w.Body.String(), "Eraser</")

	w = app.form(t, "/cashier/cart/add", cashier, url.Values{"product_id": {app.notebook.ID}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cashier", w.Header().Get("Location"))

	w = app.form(t, "/cashier/checkout", cashier, url.Values{"payment_method": {"cash"}, "amount_paid": {"10"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "err=")

	w = app.form(t, "/cashier/checkout", cashier, url.Values{"payment_method": {"cash"}, "amount_paid": {"100"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "receipt=")

	w = app.page(t, location, cashier)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Order completed successfully")
	assert.Contains(t, body, "₱50.00")
}

func TestPages_ReceiptRejectsBadPaid(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")

	w := app.form(t, "/cashier/cart/add", cashier, url.Values{"product_id": {app.eraser.ID}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = app.form(t, "/cashier/checkout", cashier, url.Values{"payment_method": {"cash"}, "amount_paid": {"50"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	orderID := loc.Query().Get("receipt")
	require.NotEmpty(t, orderID)

	w = app.page(t, "/cashier?receipt="+orderID+"&paid=abc", cashier)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "invalid amount paid")
	assert.NotContains(t, body, "Receipt #")
}

func TestPages_AdminReportsShowsOrderTime(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "admin@example.com")

	created := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, app.db.Create(&models.Order{
		CashierID:     "00000000-0000-0000-0000-000000000001",
		Total:         decimal.RequireFromString("40.00"),
		PaymentMethod: models.PaymentCash,
		CreatedAt:     created,
	}).Error)

	w := app.page(t, "/admin/reports", admin)
	require.Equal(t, http.StatusOK, w.Code)
	manila := format.Location("Asia/Manila")
	assert.Contains(t, w.Body.String(), format.DateShort(created, manila)+" "+format.Time(created, manila))
}

func TestPages_AdminProductForms(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "admin@example.com")

	w := app.form(t, "/admin/products", admin, url.Values{
		"name": {"Glue"}, "category": {"Art"}, "price": {"25"}, "stock": {"4"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "msg=")

	w = app.form(t, "/admin/products/"+app.eraser.ID, admin, url.Values{
		"name": {"Eraser"}, "category": {"Writing"}, "price": {"abc"}, "stock": {"3"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "err=")

	w = app.page(t, "/admin/products", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Glue")
}

func TestPages_Logout(t *testing.T) {
	app := newTestApp(t)
	cashier := app.login(t, "cashier@example.com")

	w := app.form(t, "/logout", cashier, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	assert.Equal(t, http.StatusFound, app.page(t, "/cashier", cashier).Code)
}

// --- Health ---

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"overall_status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"SERVING"`)

	app.health.err = errors.New("connection refused")
	w = app.do(t, http.MethodGet, "/health/detailed", "", nil)
	assert.Contains(t, w.Body.String(), `"overall_status":"degraded"`)
}
