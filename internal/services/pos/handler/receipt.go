package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/format"
)

type ReceiptLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Receipt struct {
	OrderID       string               `json:"order_id"`
	ShortID       string               `json:"short_id"`
	CreatedAt     time.Time            `json:"created_at"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Lines         []ReceiptLine        `json:"lines"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Total         decimal.Decimal      `json:"total"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	Change        decimal.Decimal      `json:"change"`
}

// Change is never negative.
func Change(amountPaid, total decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, amountPaid.Sub(total))
}

func newReceipt(order models.Order, lines []ReceiptLine, amountPaid decimal.Decimal) Receipt {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
	}
	if order.PaymentMethod != models.PaymentCash || amountPaid.IsZero() {
		amountPaid = order.Total
	}
	return Receipt{
		OrderID:       order.ID,
		ShortID:       format.ShortID(order.ID),
		CreatedAt:     order.CreatedAt,
		PaymentMethod: order.PaymentMethod,
		Lines:         lines,
		Subtotal:      subtotal,
		Total:         order.Total,
		AmountPaid:    amountPaid,
		Change:        Change(amountPaid, order.Total),
	}
}

func receiptFromCart(order models.Order, cart *Cart, amountPaid decimal.Decimal) Receipt {
	lines := make([]ReceiptLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, ReceiptLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			Subtotal:  l.Subtotal(),
		})
	}
	return newReceipt(order, lines, amountPaid)
}

// receiptFromOrder derives unit prices from stored subtotals, since the
// product's price may have changed since the sale.
func receiptFromOrder(order models.Order, amountPaid decimal.Decimal) Receipt {
	lines := make([]ReceiptLine, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		line := ReceiptLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			line.Name = item.Product.Name
		}
		if item.Quantity > 0 {
			line.UnitPrice = item.Subtotal.Div(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		}
		lines = append(lines, line)
	}
	return newReceipt(order, lines, amountPaid)
}
