package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"supplies-pos/internal/database/models"
)

const CART_KEY_PREFIX = "pos:cart:"

var (
	ErrStockLimit = errors.New("not enough stock")
	ErrNotInCart  = errors.New("product is not in the cart")
)

// CartLine is a product snapshot taken when it was first added. Price stays
// fixed for the life of the line; Stock is refreshed on every add.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	CashierID string     `json:"cashier_id"`
	Lines     []CartLine `json:"lines"`
}

func NewCart(cashierID string) *Cart {
	return &Cart{CashierID: cashierID, Lines: []CartLine{}}
}

func (c *Cart) find(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart. The cart is left untouched when the
// line is already at the product's stock.
func (c *Cart) Add(p models.Product) error {
	i := c.find(p.ID)
	if i < 0 {
		if p.Stock < 1 {
			return fmt.Errorf("%w: %s", ErrStockLimit, p.Name)
		}
		c.Lines = append(c.Lines, CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Stock:     p.Stock,
			Quantity:  1,
		})
		return nil
	}

	if c.Lines[i].Quantity >= p.Stock {
		return fmt.Errorf("%w: %s", ErrStockLimit, p.Name)
	}
	c.Lines[i].Stock = p.Stock
	c.Lines[i].Quantity++
	return nil
}

// SetQuantity replaces a line's quantity. Zero or less removes the line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	i := c.find(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if qty <= 0 {
		c.Remove(productID)
		return nil
	}
	if qty > c.Lines[i].Stock {
		return fmt.Errorf("%w: %s", ErrStockLimit, c.Lines[i].Name)
	}
	c.Lines[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(productID string) {
	if i := c.find(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Total equals Subtotal; no tax is applied.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal()
}

type CartLineView struct {
	CartLine
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Items     []CartLineView  `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
}

func (c *Cart) View() CartView {
	v := CartView{
		Items:    make([]CartLineView, 0, len(c.Lines)),
		Subtotal: c.Subtotal(),
		Total:    c.Total(),
	}
	for _, l := range c.Lines {
		v.Items = append(v.Items, CartLineView{CartLine: l, Subtotal: l.Subtotal()})
		v.ItemCount += l.Quantity
	}
	return v
}

// CartStore keeps one cart per cashier in redis.
type CartStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCartStore(redisClient *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CartStore{redis: redisClient, ttl: ttl}
}

func cartKey(cashierID string) string {
	return CART_KEY_PREFIX + cashierID
}

// Load returns an empty cart when none is stored.
func (s *CartStore) Load(ctx context.Context, cashierID string) (*Cart, error) {
	data, err := s.redis.Get(ctx, cartKey(cashierID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewCart(cashierID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	cart := NewCart(cashierID)
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	cart.CashierID = cashierID
	return cart, nil
}

func (s *CartStore) Save(ctx context.Context, cart *Cart) error {
	if cart.IsEmpty() {
		return s.Clear(ctx, cart.CashierID)
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.redis.Set(ctx, cartKey(cart.CashierID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, cashierID string) error {
	if err := s.redis.Del(ctx, cartKey(cashierID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
