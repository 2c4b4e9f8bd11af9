package reports

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"supplies-pos/internal/format"
	posHandler "supplies-pos/internal/services/pos/handler"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"currency": format.Currency,
	"upper":    strings.ToUpper,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt #{{.Receipt.ShortID}}</title>
<style>
  body { font-family: monospace; padding: 20px; max-width: 400px; margin: 0 auto; }
  h1 { text-align: center; font-size: 18px; }
  .line { border-top: 1px dashed #000; margin: 10px 0; }
  .item { display: flex; justify-content: space-between; margin: 5px 0; }
  .total { font-weight: bold; font-size: 16px; }
</style>
</head>
<body>
<h1>{{.StoreName}}</h1>
<div class="line"></div>
<p>Order ID: {{.Receipt.ShortID}}</p>
<p>Date: {{.Date}}</p>
<p>Payment: {{upper (printf "%s" .Receipt.PaymentMethod)}}</p>
<div class="line"></div>
{{range .Receipt.Lines}}<div class="item"><span>{{if .Name}}{{.Name}}{{else}}Item{{end}} x{{.Quantity}}</span><span>{{currency .Subtotal}}</span></div>
{{end}}<div class="line"></div>
<div class="item"><span>Subtotal:</span><span>{{currency .Receipt.Subtotal}}</span></div>
<div class="item"><span>Total:</span><span>{{currency .Receipt.Total}}</span></div>
<div class="item"><span>Amount Paid:</span><span>{{currency .Receipt.AmountPaid}}</span></div>
<div class="item total"><span>Change:</span><span>{{currency .Receipt.Change}}</span></div>
<div class="line"></div>
<p style="text-align: center;">Thank you for your purchase!</p>
{{if .Print}}<script>window.onload = function () { window.print(); };</script>
{{end}}</body>
</html>
`))

type receiptView struct {
	StoreName string
	Date      string
	Receipt   *posHandler.Receipt
	Print     bool
}

// WriteReceiptHTML renders a standalone receipt page. With print set the page
// opens the browser print dialog on load.
func WriteReceiptHTML(w io.Writer, storeName string, receipt *posHandler.Receipt, loc *time.Location, print bool) error {
	if storeName == "" {
		storeName = "School Supplies POS"
	}
	view := receiptView{
		StoreName: storeName,
		Date:      format.Date(receipt.CreatedAt, loc),
		Receipt:   receipt,
		Print:     print,
	}
	if err := receiptTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

func ReceiptFilename(receipt *posHandler.Receipt) string {
	return fmt.Sprintf("receipt-%s.html", receipt.ShortID)
}
