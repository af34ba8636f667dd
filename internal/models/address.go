package models

// Address est l'adresse postale stockée sur le profil utilisateur.
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

// ShippingAddress est une copie dénormalisée prise au moment de la commande.
type ShippingAddress struct {
	FullName string `json:"fullName,omitempty" bson:"fullName,omitempty"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	Address  string `json:"address,omitempty" bson:"address,omitempty"`
	City     string `json:"city,omitempty" bson:"city,omitempty"`
	State    string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode  string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
	Country  string `json:"country,omitempty" bson:"country,omitempty"`
}
