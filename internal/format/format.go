// Package format renders money and timestamps the way receipts and reports show them.
package format

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

const DefaultTimezone = "Asia/Manila"

const (
	dateLayout      = "January 2, 2006, 03:04 PM"
	dateShortLayout = "Mon, Jan 2, 2006"
	timeLayout      = "03:04 PM"
	dayLayout       = "2006-01-02"
)

// Location loads name, falling back to the store's home timezone.
func Location(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return loc
}

func Currency(amount decimal.Decimal) string {
	return "₱" + amount.StringFixed(2)
}

// CurrencyPlain avoids the peso sign for outputs limited to Latin-1 fonts.
func CurrencyPlain(amount decimal.Decimal) string {
	return "PHP " + amount.StringFixed(2)
}

func Date(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func DateShort(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateShortLayout)
}

func Time(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

// Day is the calendar day of t in loc, as YYYY-MM-DD.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// ShortID is the 8-character prefix receipts and reports print.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
