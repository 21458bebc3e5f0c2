package fulfillment

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

// EmailLine is one order line rendered into an email body.
type EmailLine struct {
	Name       string
	Quantity   int
	TotalMinor int64
}

// Total renders the line total in major units.
func (l EmailLine) Total() string {
	return formatMinor(l.TotalMinor)
}

type confirmationProps struct {
	FullName      string
	OrderID       string
	EventName     string
	EventDate     string
	EventTime     string
	EventLocation string
	Lines         []EmailLine
	TotalMinor    int64
	QRCodeURL     string
}

func (p confirmationProps) Total() string {
	return formatMinor(p.TotalMinor)
}

type affiliateSaleProps struct {
	FullName        string
	OrderID         string
	CommissionMinor int64
}

func (p affiliateSaleProps) Commission() string {
	return formatMinor(p.CommissionMinor)
}

type adminNotifyProps struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	TotalMinor    int64
	Lines         []EmailLine
}

func (p adminNotifyProps) Total() string {
	return formatMinor(p.TotalMinor)
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>You're in, {{.FullName}}!</h2>
  <p>Your payment for <strong>{{.EventName}}</strong> went through. Keep this email close; the QR code below is your ticket.</p>
  <p><strong>Order reference:</strong> {{.OrderID}}</p>
  <p>
    <strong>Date:</strong> {{.EventDate}}<br>
    <strong>Time:</strong> {{.EventTime}}<br>
    <strong>Location:</strong> {{.EventLocation}}
  </p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Lines}}
    <tr>
      <td style="padding: 4px 0;">{{.Quantity}}x {{.Name}}</td>
      <td style="padding: 4px 0; text-align: right;">{{.Total}}</td>
    </tr>
    {{end}}
    <tr>
      <td style="padding: 8px 0; border-top: 1px solid #ddd;"><strong>Total paid</strong></td>
      <td style="padding: 8px 0; border-top: 1px solid #ddd; text-align: right;"><strong>{{.Total}}</strong></td>
    </tr>
  </table>
  <p style="text-align: center; margin: 24px 0;">
    <img src="{{.QRCodeURL}}" alt="Ticket QR code" width="256" height="256">
  </p>
  <p>Show the QR code at the gate. See you on the dancefloor.</p>
</div>
`))

var affiliateSaleTemplate = template.Must(template.New("affiliate_sale").Parse(`
<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>New sale, {{.FullName}}!</h2>
  <p>Someone just bought tickets through your link.</p>
  <p><strong>Order reference:</strong> {{.OrderID}}</p>
  <p><strong>Your commission:</strong> {{.Commission}}</p>
  <p>Log in to your dashboard to see your running total.</p>
</div>
`))

var adminNotifyTemplate = template.Must(template.New("admin_notify").Parse(`
<div style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>New paid order {{.OrderID}}</h2>
  <p>{{.CustomerName}} ({{.CustomerEmail}}) just paid {{.Total}}.</p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Lines}}
    <tr>
      <td style="padding: 4px 0;">{{.Quantity}}x {{.Name}}</td>
      <td style="padding: 4px 0; text-align: right;">{{.Total}}</td>
    </tr>
    {{end}}
  </table>
</div>
`))

func renderTemplate(tmpl *template.Template, props any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, props); err != nil {
		return "", fmt.Errorf("rendering %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// formatMinor renders an amount in minor units as naira, e.g. 1850 -> "₦18.50".
func formatMinor(minor int64) string {
	major := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
	return "₦" + major.StringFixed(2)
}
