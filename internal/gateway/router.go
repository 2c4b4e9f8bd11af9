package gateway

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"supplies-pos/internal/gateway/handlers"
	"supplies-pos/internal/gateway/middleware"
	posHandler "supplies-pos/internal/services/pos/handler"
	"supplies-pos/internal/services/reports"
	userHandler "supplies-pos/internal/services/user/handler"
)

type Deps struct {
	Users   *userHandler.UserHandler
	POS     *posHandler.POSHandler
	Reports *reports.Service
	Health  handlers.HealthChecker
	Logger  *slog.Logger

	StoreName         string
	HealthService     string
	LowStockThreshold int
	CORSOrigins       []string
	LoginRateLimit    string
}

// NewRouter mounts the JSON API under /api/v1 and the server-rendered pages
// at the root.
func NewRouter(d Deps) (*gin.Engine, error) {
	loc := d.Reports.Location()
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	pages, err := handlers.NewPageHandler(d.Users, d.POS, d.Reports, d.StoreName, d.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	userHTTP := handlers.NewUserHTTPHandler(d.Users)
	posHTTP := handlers.NewPOSHTTPHandler(d.POS, d.StoreName, loc)
	adminHTTP := handlers.NewAdminHTTPHandler(d.Reports, d.POS)
	healthHTTP := handlers.NewHealthHTTPHandler(d.Health, d.HealthService)

	var loginLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.LoginRateLimit != "" {
		loginLimit, err = middleware.RateLimit(d.LoginRateLimit)
		if err != nil {
			return nil, fmt.Errorf("login rate limit: %w", err)
		}
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(d.CORSOrigins))

	anyRole := middleware.RequireAPIRoles(d.Users)
	cashierAPI := middleware.RequireAPIRoles(d.Users, userHandler.RoleCashier)
	adminAPI := middleware.RequireAPIRoles(d.Users, userHandler.RoleAdmin)
	staffAPI := middleware.RequireAPIRoles(d.Users, userHandler.RoleAdmin, userHandler.RoleCashier)

	// --- API ---
	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimit, userHTTP.Login)
			auth.POST("/logout", anyRole, userHTTP.Logout)
			auth.GET("/session", anyRole, userHTTP.Session)
			auth.POST("/password", anyRole, userHTTP.UpdatePassword)
		}

		cashier := api.Group("/cashier", cashierAPI)
		{
			cashier.GET("/products", posHTTP.ListProducts)
			cashier.GET("/categories", posHTTP.ListCategories)
			cashier.GET("/cart", posHTTP.GetCart)
			cashier.POST("/cart/items", posHTTP.AddItemToCart)
			cashier.PATCH("/cart/items/:product_id", posHTTP.UpdateCartItem)
			cashier.DELETE("/cart/items/:product_id", posHTTP.RemoveCartItem)
			cashier.DELETE("/cart", posHTTP.ClearCart)
			cashier.POST("/checkout", posHTTP.Checkout)
		}

		orders := api.Group("/orders", staffAPI)
		{
			orders.GET("/:id/receipt", posHTTP.GetReceipt)
			orders.GET("/:id/receipt.html", posHTTP.ReceiptHTML)
		}

		admin := api.Group("/admin", adminAPI)
		{
			admin.GET("/dashboard", adminHTTP.Dashboard)
			admin.GET("/reports/orders", adminHTTP.ListOrders)
			admin.GET("/reports/export/:format", adminHTTP.ExportReport)
			admin.GET("/orders/:id/items", adminHTTP.OrderItems)
			admin.GET("/products", adminHTTP.ListProducts)
			admin.POST("/products", adminHTTP.CreateProduct)
			admin.PUT("/products/:id", adminHTTP.UpdateProduct)
		}
	}

	// --- Pages ---
	r.GET("/", pages.Landing)
	r.GET("/login", pages.LoginForm)
	r.POST("/login", loginLimit, pages.Login)
	r.POST("/logout", pages.Logout)
	r.GET("/unauthorized", pages.Unauthorized)

	signedIn := middleware.RequirePageRoles(d.Users)
	r.GET("/reset-password", signedIn, pages.ResetPasswordForm)
	r.POST("/reset-password", signedIn, pages.ResetPassword)

	adminPages := r.Group("/admin", middleware.RequirePageRoles(d.Users, userHandler.RoleAdmin))
	{
		adminPages.GET("", pages.AdminDashboard)
		adminPages.GET("/products", pages.AdminProducts)
		adminPages.POST("/products", pages.AdminCreateProduct)
		adminPages.POST("/products/:id", pages.AdminUpdateProduct)
		adminPages.GET("/reports", pages.AdminReports)
	}

	cashierPages := r.Group("/cashier", middleware.RequirePageRoles(d.Users, userHandler.RoleCashier))
	{
		cashierPages.GET("", pages.Cashier)
		cashierPages.POST("/cart/add", pages.CartAdd)
		cashierPages.POST("/cart/update", pages.CartUpdate)
		cashierPages.POST("/cart/remove", pages.CartRemove)
		cashierPages.POST("/cart/clear", pages.CartClear)
		cashierPages.POST("/checkout", pages.Checkout)
	}

	r.GET("/health", healthHTTP.Live)
	r.GET("/health/detailed", healthHTTP.Detailed)

	r.NoRoute(pages.NotFound)

	return r, nil
}
