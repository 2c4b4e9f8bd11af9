package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/format"
	"supplies-pos/internal/logging"
)

const (
	POS_PRODUCT_CACHE_KEY = "pos:products:in-stock"
	EventOrderCreated     = "order.created"
	CategoryAll           = "all"
	CACHE_TTL_SHORT       = 5 * time.Minute
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInsufficientPayment  = errors.New("amount paid is less than the total")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidProduct       = errors.New("invalid product")
)

type POSHandler struct {
	db     *gorm.DB
	carts  *CartStore
	cache  *ProductCache
	events Publisher
}

// NewPOSHandler falls back to redis pub/sub when events is nil.
func NewPOSHandler(db *gorm.DB, redisClient *redis.Client, events Publisher, cartTTL time.Duration) *POSHandler {
	if events == nil {
		events = NewRedisPublisher(redisClient)
	}
	return &POSHandler{
		db:     db,
		carts:  NewCartStore(redisClient, cartTTL),
		cache:  NewProductCache(redisClient, CACHE_TTL_SHORT),
		events: events,
	}
}

// -- Catalog --

type ProductFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
}

func (f ProductFilter) match(p models.Product) bool {
	if f.Category != "" && f.Category != CategoryAll && p.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(strings.TrimSpace(f.Search))) {
		return false
	}
	return true
}

func (s *POSHandler) loadInStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("stock > ?", 0).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListProducts returns in-stock products ordered by name.
func (s *POSHandler) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	products, err := s.cache.InStock(ctx, s.loadInStock)
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if filter.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Categories lists the categories of in-stock products, led by "all".
func (s *POSHandler) Categories(ctx context.Context) ([]string, error) {
	products, err := s.cache.InStock(ctx, s.loadInStock)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	categories := []string{CategoryAll}
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	return categories, nil
}

func (s *POSHandler) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, ErrProductNotFound
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

// -- Cart --

func (s *POSHandler) GetCart(ctx context.Context, cashierID string) (*Cart, error) {
	return s.carts.Load(ctx, cashierID)
}

func (s *POSHandler) AddToCart(ctx context.Context, cashierID, productID string) (*Cart, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(*product); err != nil {
		return cart, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *POSHandler) UpdateCartQuantity(ctx context.Context, cashierID, productID string, qty int) (*Cart, error) {
	cart, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(productID, qty); err != nil {
		return cart, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *POSHandler) RemoveFromCart(ctx context.Context, cashierID, productID string) (*Cart, error) {
	cart, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return nil, err
	}
	cart.Remove(productID)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *POSHandler) ClearCart(ctx context.Context, cashierID string) error {
	return s.carts.Clear(ctx, cashierID)
}

// -- Checkout --

type CheckoutRequest struct {
	CashierID     string
	PaymentMethod models.PaymentMethod
	AmountPaid    decimal.Decimal
}

// ValidateCheckout rejects a checkout before anything is written and returns
// the amount the customer paid. Non-cash payments are taken as exact.
func ValidateCheckout(cart *Cart, method models.PaymentMethod, amountPaid decimal.Decimal) (decimal.Decimal, error) {
	if cart == nil || cart.IsEmpty() {
		return decimal.Zero, ErrEmptyCart
	}
	if !method.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	total := cart.Total()
	if method != models.PaymentCash {
		return total, nil
	}
	if amountPaid.LessThan(total) {
		return decimal.Zero, fmt.Errorf("%w: paid %s, total %s", ErrInsufficientPayment, format.Currency(amountPaid), format.Currency(total))
	}
	return amountPaid, nil
}

// Checkout writes the order, its items and the stock decrements in one
// transaction. A line whose stock is gone by now aborts the whole order.
func (s *POSHandler) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	cart, err := s.carts.Load(ctx, req.CashierID)
	if err != nil {
		return nil, err
	}

	paid, err := ValidateCheckout(cart, req.PaymentMethod, req.AmountPaid)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin checkout: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	order := models.Order{
		CashierID:     req.CashierID,
		Total:         cart.Total(),
		PaymentMethod: req.PaymentMethod,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, line := range cart.Lines {
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal(),
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
			Update("stock", gorm.Expr("stock - ?", line.Quantity))
		if res.Error != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, line.Name)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log := logging.FromContext(ctx)
	log.Info("order created", "order_id", order.ID, "total", order.Total.StringFixed(2), "payment_method", order.PaymentMethod)

	if err := s.carts.Clear(ctx, req.CashierID); err != nil {
		log.Error("failed to clear cart after checkout", "order_id", order.ID, "error", err)
	}
	s.cache.Invalidate(ctx)

	itemCount := 0
	for _, l := range cart.Lines {
		itemCount += l.Quantity
	}
	if err := s.events.Publish(ctx, OrderEvent{
		EventType:     EventOrderCreated,
		OrderID:       order.ID,
		CashierID:     order.CashierID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     itemCount,
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		log.Error("failed to publish order event", "order_id", order.ID, "error", err)
	}

	receipt := receiptFromCart(order, cart, paid)
	return &receipt, nil
}

// -- Orders --

func (s *POSHandler) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("OrderItems.Product").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// ListOrderItems returns an order's lines with product name and price.
func (s *POSHandler) ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	var items []models.OrderItem
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return productName(items[i]) < productName(items[j])
	})
	return items, nil
}

func productName(item models.OrderItem) string {
	if item.Product == nil {
		return ""
	}
	return item.Product.Name
}

// GetReceipt rebuilds a receipt from a stored order. amountPaid is not stored,
// so the caller supplies it; zero means exact payment.
func (s *POSHandler) GetReceipt(ctx context.Context, orderID string, amountPaid decimal.Decimal) (*Receipt, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	receipt := receiptFromOrder(*order, amountPaid)
	return &receipt, nil
}

// -- Admin products --

type ProductInput struct {
	Name     string          `json:"name" form:"name" binding:"required"`
	Category string          `json:"category" form:"category" binding:"required"`
	Price    decimal.Decimal `json:"price" form:"price"`
	Stock    int             `json:"stock" form:"stock"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: name and category are required", ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// AdminListProducts includes out-of-stock products.
func (s *POSHandler) AdminListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *POSHandler) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price.Round(2),
		Stock:    in.Stock,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return &product, nil
}

func (s *POSHandler) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"name":     strings.TrimSpace(in.Name),
		"category": strings.TrimSpace(in.Category),
		"price":    in.Price.Round(2),
		"stock":    in.Stock,
	}).Error; err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return s.GetProduct(ctx, id)
}
