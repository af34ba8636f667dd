package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItemInput est une ligne telle qu'envoyée par le client au checkout.
type OrderItemInput struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type NewOrder struct {
	Items           []OrderItemInput       `json:"items"`
	TotalAmount     float64                `json:"totalAmount"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// OrderEvent est publié sur le bus d'événements.
type OrderEvent struct {
	Type        string  `json:"type"`
	OrderID     string  `json:"orderId"`
	UserID      string  `json:"userId"`
	TotalAmount float64 `json:"totalAmount"`
	Items       int     `json:"items"`
	Status      string  `json:"status"`
}

const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
)

type Orders struct {
	orders  OrderStore
	users   UserStore
	catalog *Catalog
	events  EventPublisher
	mailer  OrderMailer
}

func NewOrders(orders OrderStore, users UserStore, catalog *Catalog, events EventPublisher, mailer OrderMailer) *Orders {
	if events == nil {
		events = nopPublisher{}
	}
	if mailer == nil {
		mailer = nopMailer{}
	}
	return &Orders{orders: orders, users: users, catalog: catalog, events: events, mailer: mailer}
}

// Create enregistre la commande. Le paiement est simulé : la commande part
// en PROCESSING / PAID. totalAmount est conservé tel quel.
func (s *Orders) Create(ctx context.Context, userID primitive.ObjectID, in NewOrder) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, validationError("No items in order")
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		pid, err := ParseID("product", it.Product)
		if err != nil {
			return nil, err
		}
		if err := validateQuantity(it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{ProductID: pid, Quantity: it.Quantity, Price: it.Price})
	}

	order := &models.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     in.TotalAmount,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   NormalizePaymentMethod(in.PaymentMethod),
		PaymentStatus:   models.PaymentPaid,
		OrderStatus:     models.StatusProcessing,
	}
	if subtotal := order.Subtotal(); math.Abs(subtotal-order.TotalAmount) > 0.005 {
		log.Printf("ℹ️ Commande de %s : totalAmount %.2f, sous-total calculé %.2f", userID.Hex(), order.TotalAmount, subtotal)
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	log.Printf("✅ Commande %s créée pour %s", order.ID.Hex(), userID.Hex())

	s.publish(order, EventOrderCreated)
	s.confirm(order)
	return order, nil
}

// List renvoie les commandes de l'utilisateur, les plus récentes d'abord.
func (s *Orders) List(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	if err := s.attachProducts(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Orders) Get(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.attachProducts(ctx, *order); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel n'est possible que depuis PLACED.
func (s *Orders) Cancel(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.OrderStatus, models.StatusCancelled) {
		return nil, invalidStateError("Order cannot be cancelled")
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, order.OrderStatus, models.StatusCancelled)
	if errors.Is(err, repository.ErrNotFound) {
		// Le statut a changé entre la lecture et la mise à jour.
		return nil, invalidStateError("Order cannot be cancelled")
	}
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	s.publish(updated, EventOrderCancelled)
	return updated, nil
}

func (s *Orders) CheckPurchase(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	ok, err := s.orders.ExistsWithProduct(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return ok, nil
}

func (s *Orders) owned(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.UserID != userID {
		return nil, forbiddenError("Not authorized")
	}
	return order, nil
}

// attachProducts joint les produits du catalogue aux lignes.
// Les slices d'Items partagent leur tableau avec l'appelant.
func (s *Orders) attachProducts(ctx context.Context, orders ...models.Order) error {
	var ids []primitive.ObjectID
	for _, o := range orders {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := s.catalog.Resolve(ctx, ids)
	if err != nil {
		return err
	}
	for _, o := range orders {
		for i := range o.Items {
			o.Items[i].ProductInfo = products[o.Items[i].ProductID]
		}
	}
	return nil
}

func (s *Orders) publish(order *models.Order, eventType string) {
	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.Hex(),
		UserID:      order.UserID.Hex(),
		TotalAmount: order.TotalAmount,
		Items:       len(order.Items),
		Status:      order.OrderStatus,
	}
	background("Publication "+eventType, func(ctx context.Context) error {
		return s.events.Publish(ctx, event.OrderID, event)
	})
}

func (s *Orders) confirm(order *models.Order) {
	snapshot := *order
	background("Email de confirmation "+order.ID.Hex(), func(ctx context.Context) error {
		to := strings.TrimSpace(snapshot.ShippingAddress.Email)
		if to == "" && s.users != nil {
			user, err := s.users.FindByID(ctx, snapshot.UserID)
			if err != nil {
				return err
			}
			to = user.Email
		}
		if to == "" {
			return nil
		}
		return s.mailer.SendOrderConfirmation(ctx, to, &snapshot)
	})
}
