package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"fertilizer_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie les e-mails transactionnels.
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	body, err := RenderOrderConfirmation(order)
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Confirmation de votre commande", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}

var orderConfirmationTmpl = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"lineTotal": func(it models.OrderItem) float64 {
		return it.Price * float64(it.Quantity)
	},
	"productName": func(it models.OrderItem) string {
		if it.ProductInfo != nil {
			return it.ProductInfo.Name
		}
		return it.ProductID.Hex()
	},
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Confirmation de commande</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f6f8f3; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2f6b2f;">Merci pour votre commande</h2>
		<p>Bonjour {{with .ShippingAddress.FullName}}{{.}}{{end}},</p>
		<p>Votre commande <strong>{{.ID.Hex}}</strong> est en cours de préparation ({{.OrderStatus}}).</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #eef3e8;">
					<th style="padding: 8px; text-align: left;">Produit</th>
					<th style="padding: 8px; text-align: left;">Quantité</th>
					<th style="padding: 8px; text-align: left;">Prix unitaire</th>
					<th style="padding: 8px; text-align: left;">Total</th>
				</tr>
			</thead>
			<tbody>
			{{range .Items}}
				<tr>
					<td style="padding: 8px;">{{productName .}}</td>
					<td style="padding: 8px;">{{.Quantity}}</td>
					<td style="padding: 8px;">{{money .Price}}</td>
					<td style="padding: 8px;">{{money (lineTotal .)}}</td>
				</tr>
			{{end}}
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total :</td>
					<td style="padding: 8px; font-weight: bold;">{{money .TotalAmount}}</td>
				</tr>
			</tfoot>
		</table>
		<p>Paiement : {{.PaymentMethod}} ({{.PaymentStatus}})</p>
		{{with .ShippingAddress}}<p>Livraison : {{.Address}}, {{.ZipCode}} {{.City}}, {{.Country}}</p>{{end}}
	</div>
</body>
</html>`))

// RenderOrderConfirmation produit le corps HTML de l'e-mail de confirmation.
func RenderOrderConfirmation(order *models.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("rendu e-mail commande: %w", err)
	}
	return buf.String(), nil
}
