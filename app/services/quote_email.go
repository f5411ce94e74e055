package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/amirphl/inox-pricing/pricing"
)

// QuoteEmailConfiguration is the table configuration shown in a quote email
type QuoteEmailConfiguration struct {
	ProductType    string
	Dimension      string
	Quantity       int
	DeliveryDays   int
	AdvancePayment string
}

// QuoteEmailData is everything a quote email may render. Breakdown is optional.
type QuoteEmailData struct {
	InquiryID     string
	Name          string
	Email         string
	Phone         string
	Company       string
	Message       string
	Configuration *QuoteEmailConfiguration
	Breakdown     *pricing.PriceBreakdown
	SubmittedAt   time.Time
}

// QuoteEmailRenderer renders the customer and sales variants of a quote email
type QuoteEmailRenderer interface {
	RenderCustomer(data QuoteEmailData) (subject, body string, err error)
	RenderSales(data QuoteEmailData) (subject, body string, err error)
}

const quoteEmailLayout = `{{define "breakdown"}}
{{- with .Breakdown}}
<table style="width:100%;border-collapse:collapse;font-size:14px">
  <tr><td>Base price per table</td><td style="text-align:right">{{formatAmount .Base .Currency}}</td></tr>
  {{- range $name, $value := .Adjustments.Map}}{{if ne $value 0.0}}
  <tr><td>{{adjustmentLabel $name}}</td><td style="text-align:right">{{formatAmount $value $.Breakdown.Currency}}</td></tr>
  {{- end}}{{end}}
  <tr><td>Unit price</td><td style="text-align:right">{{formatMoney .Unit .Currency}}</td></tr>
  <tr><td>Quantity</td><td style="text-align:right">{{.Quantity}}</td></tr>
  <tr><td>Subtotal</td><td style="text-align:right">{{formatMoney .Subtotal .Currency}}</td></tr>
  <tr><td><strong>Total</strong></td><td style="text-align:right"><strong>{{formatMoney .Total .Currency}}</strong></td></tr>
</table>
{{- else}}
<p>No configuration was priced with this inquiry.</p>
{{- end}}
{{end}}
{{define "configuration"}}
{{- with .Configuration}}
<ul>
  <li>Product: {{productLabel .ProductType}}{{if .Dimension}} ({{.Dimension}} cm){{end}}</li>
  <li>Quantity: {{.Quantity}}</li>
  <li>Delivery: {{.DeliveryDays}} days</li>
  <li>Advance payment: {{advanceLabel .AdvancePayment}}</li>
</ul>
{{- end}}
{{end}}`

const customerEmailTemplate = `<!doctype html>
<html lang="en">
<body style="font-family:Helvetica,Arial,sans-serif;color:#111827">
<p>Hello {{.Name}},</p>
<p>thank you for your inquiry. Here is the quote for your configuration.</p>
{{template "configuration" .}}
{{template "breakdown" .}}
<p>Our sales team will contact you shortly. Reference: {{.InquiryID}}</p>
</body>
</html>`

const salesEmailTemplate = `<!doctype html>
<html lang="en">
<body style="font-family:Helvetica,Arial,sans-serif;color:#111827">
<h2>New inquiry {{.InquiryID}}</h2>
<p>Submitted {{formatTime .SubmittedAt}}</p>
<ul>
  <li>Name: {{.Name}}</li>
  <li>Email: {{.Email}}</li>
  {{- if .Phone}}<li>Phone: {{.Phone}}</li>{{end}}
  {{- if .Company}}<li>Company: {{.Company}}</li>{{end}}
</ul>
{{- if .Message}}
<p style="white-space:pre-wrap">{{.Message}}</p>
{{- end}}
{{template "configuration" .}}
{{template "breakdown" .}}
</body>
</html>`

var adjustmentLabels = map[string]string{
	"startup_discount":         "Startup discount",
	"first_order_discount":     "First order discount",
	"delivery_surcharge":       "Delivery surcharge",
	"advance_payment_discount": "Advance payment discount",
	"bulk_discount_total":      "Bulk discount",
	"custom_unit_adjust":       "Adjustment per table",
	"custom_line_adjust":       "Adjustment on order",
}

var productLabels = map[string]string{
	"dimensioned": "Made-to-measure table",
	"table_only":  "Table top only",
	"all_in_one":  "All-in-one table",
}

type HTMLQuoteEmailRenderer struct {
	customer *template.Template
	sales    *template.Template
}

func NewQuoteEmailRenderer() QuoteEmailRenderer {
	funcs := template.FuncMap{
		"formatMoney":     formatMoney,
		"formatAmount":    formatAmount,
		"formatTime":      formatTime,
		"adjustmentLabel": adjustmentLabel,
		"productLabel":    productLabel,
		"advanceLabel":    advanceLabel,
	}
	layout := template.Must(template.New("layout").Funcs(funcs).Parse(quoteEmailLayout))
	return &HTMLQuoteEmailRenderer{
		customer: template.Must(template.Must(layout.Clone()).New("customer").Parse(customerEmailTemplate)),
		sales:    template.Must(template.Must(layout.Clone()).New("sales").Parse(salesEmailTemplate)),
	}
}

func (r *HTMLQuoteEmailRenderer) RenderCustomer(data QuoteEmailData) (string, string, error) {
	body, err := execute(r.customer, data)
	if err != nil {
		return "", "", fmt.Errorf("render customer quote email: %w", err)
	}
	return "Your stainless-steel table quote " + data.InquiryID, body, nil
}

func (r *HTMLQuoteEmailRenderer) RenderSales(data QuoteEmailData) (string, string, error) {
	body, err := execute(r.sales, data)
	if err != nil {
		return "", "", fmt.Errorf("render sales quote email: %w", err)
	}
	subject := "New inquiry " + data.InquiryID + " from " + sanitizeHeader(data.Name)
	if data.Breakdown != nil {
		subject += fmt.Sprintf(" (%s)", formatMoney(data.Breakdown.Total, data.Breakdown.Currency))
	}
	return subject, body, nil
}

func execute(tpl *template.Template, data QuoteEmailData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(amount int64, currency string) string {
	return fmt.Sprintf("%d %s", amount, currencyOrDefault(currency))
}

func formatAmount(amount float64, currency string) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", amount), "0"), ".")
	return s + " " + currencyOrDefault(currency)
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return pricing.DefaultCurrency
	}
	return currency
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func adjustmentLabel(name string) string {
	if label, ok := adjustmentLabels[name]; ok {
		return label
	}
	return name
}

func productLabel(name string) string {
	if label, ok := productLabels[name]; ok {
		return label
	}
	return name
}

func advanceLabel(tier string) string {
	switch tier {
	case "", "none":
		return "none"
	default:
		return tier + "%"
	}
}

// sanitizeHeader drops line breaks so caller-supplied text cannot add mail headers
func sanitizeHeader(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
