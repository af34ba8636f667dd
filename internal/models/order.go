package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentCOD  = "COD"
	PaymentCard = "CARD"
	PaymentUPI  = "UPI"

	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"

	StatusPlaced     = "PLACED"
	StatusProcessing = "PROCESSING"
	StatusConfirmed  = "CONFIRMED"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

type Order struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"user" bson:"user"`
	Items           []OrderItem        `json:"items" bson:"items"`
	TotalAmount     float64            `json:"totalAmount" bson:"totalAmount"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   string             `json:"paymentStatus" bson:"paymentStatus"`
	OrderStatus     string             `json:"orderStatus" bson:"orderStatus"`
	TrackingInfo    *TrackingInfo      `json:"trackingInfo,omitempty" bson:"trackingInfo,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// OrderItem capture le prix unitaire au moment de la commande.
// ProductInfo est rempli à la lecture, jamais persisté.
type OrderItem struct {
	ProductID   primitive.ObjectID `json:"-" bson:"product"`
	ProductInfo *Product           `json:"product" bson:"-"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	Price       float64            `json:"price" bson:"price"`
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	var product any = i.ProductID
	if i.ProductInfo != nil {
		product = i.ProductInfo
	}
	return json.Marshal(struct {
		Product  any     `json:"product"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}{product, i.Quantity, i.Price})
}

type TrackingInfo struct {
	Courier          string     `json:"courier,omitempty" bson:"courier,omitempty"`
	TrackingNumber   string     `json:"trackingNumber,omitempty" bson:"trackingNumber,omitempty"`
	ExpectedDelivery *time.Time `json:"expectedDelivery,omitempty" bson:"expectedDelivery,omitempty"`
}

// Subtotal additionne prix × quantité des lignes.
func (o *Order) Subtotal() float64 {
	total := 0.0
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// transitions liste les passages de statut autorisés.
var transitions = map[string][]string{
	StatusPlaced:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusConfirmed},
	StatusConfirmed:  {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

// CanTransition indique si une commande peut passer de from à to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
