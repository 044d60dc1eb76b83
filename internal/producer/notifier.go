package producer

import (
	"context"
	"errors"
	"fmt"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Имена шаблонов воркера уведомлений (templates/<name>.html|.txt).
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateSellerNewOrder    = "seller_new_order"
	TemplateOrderStatus       = "order_status"
	TemplatePaymentFailed     = "payment_failed"
	TemplateWelcome           = "welcome"
)

var ErrRecipientNotFound = errors.New("email recipient not found")

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, key string, msg EmailMessage) error
}

// Notifier превращает доменные уведомления в сообщения для воркера писем.
type Notifier struct {
	emails EmailSender
	users  UserLookup
	log    *zap.Logger
}

func NewNotifier(emails EmailSender, users UserLookup, log *zap.Logger) *Notifier {
	return &Notifier{emails: emails, users: users, log: log}
}

func (n *Notifier) recipient(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Email == "" {
		return nil, fmt.Errorf("%w: %s", ErrRecipientNotFound, userID)
	}
	return u, nil
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func shortID(id uuid.UUID) string { return id.String()[:8] }

func orderData(o *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id": it.ProductID.String(),
			"quantity":   it.Quantity,
			"unit_price": formatMoney(it.UnitPriceCents, it.CurrencyCode),
			"line_total": formatMoney(it.LineTotalCents, it.CurrencyCode),
		})
	}
	return map[string]any{
		"order_id":  o.ID.String(),
		"order_ref": shortID(o.ID),
		"subtotal":  formatMoney(o.SubtotalCents, o.CurrencyCode),
		"discount":  formatMoney(o.DiscountCents, o.CurrencyCode),
		"total":     formatMoney(o.TotalAmountCents, o.CurrencyCode),
		"items":     items,
		"full_name": o.ShippingAddress.FullName,
		"city":      o.ShippingAddress.City,
	}
}

func (n *Notifier) SendOrderConfirmation(ctx context.Context, o *models.Order) error {
	u, err := n.recipient(ctx, o.CustomerID)
	if err != nil {
		return err
	}
	data := orderData(o)
	data["name"] = u.Name
	return n.emails.SendEmail(ctx, o.ID.String(), EmailMessage{
		To:       u.Email,
		Subject:  "Заказ " + shortID(o.ID) + " оформлен",
		Template: TemplateOrderConfirmation,
		Data:     data,
	})
}

func (n *Notifier) SendNewOrderEmailToSeller(ctx context.Context, o *models.Order, sellerEmail string) error {
	if sellerEmail == "" {
		return fmt.Errorf("%w: seller %s", ErrRecipientNotFound, o.SellerID)
	}
	return n.emails.SendEmail(ctx, o.ID.String(), EmailMessage{
		To:       sellerEmail,
		Subject:  "Новый заказ " + shortID(o.ID),
		Template: TemplateSellerNewOrder,
		Data:     orderData(o),
	})
}

func (n *Notifier) SendOrderStatusEmail(ctx context.Context, customerID, orderID uuid.UUID, status string) error {
	u, err := n.recipient(ctx, customerID)
	if err != nil {
		return err
	}
	return n.emails.SendEmail(ctx, orderID.String(), EmailMessage{
		To:       u.Email,
		Subject:  "Статус заказа " + shortID(orderID),
		Template: TemplateOrderStatus,
		Data: map[string]any{
			"name":      u.Name,
			"order_id":  orderID.String(),
			"order_ref": shortID(orderID),
			"status":    status,
		},
	})
}

func (n *Notifier) SendPaymentFailedEmail(ctx context.Context, customerID, orderID uuid.UUID, amountCents int64, currency string) error {
	u, err := n.recipient(ctx, customerID)
	if err != nil {
		return err
	}
	return n.emails.SendEmail(ctx, orderID.String(), EmailMessage{
		To:       u.Email,
		Subject:  "Оплата заказа " + shortID(orderID) + " не прошла",
		Template: TemplatePaymentFailed,
		Data: map[string]any{
			"name":      u.Name,
			"order_id":  orderID.String(),
			"order_ref": shortID(orderID),
			"amount":    formatMoney(amountCents, currency),
		},
	})
}

func (n *Notifier) SendWelcomeEmail(ctx context.Context, userID uuid.UUID, email, name string) error {
	if email == "" {
		return fmt.Errorf("%w: %s", ErrRecipientNotFound, userID)
	}
	return n.emails.SendEmail(ctx, userID.String(), EmailMessage{
		To:       email,
		Subject:  "Добро пожаловать в OrderHub",
		Template: TemplateWelcome,
		Data:     map[string]any{"name": name},
	})
}
