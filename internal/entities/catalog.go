package entities

import "time"

type Product struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Order statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type OrderItem struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	ID           int         `json:"id"`
	ContactPhone string      `json:"contact_phone"`
	ContactName  string      `json:"contact_name"`
	Items        []OrderItem `json:"items"`
	Total        float64     `json:"total"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Pix key types accepted for payment settings.
const (
	PixCPF    = "cpf"
	PixCNPJ   = "cnpj"
	PixEmail  = "email"
	PixPhone  = "phone"
	PixRandom = "random"
)

type PixKey struct {
	ID         int       `json:"id"`
	KeyType    string    `json:"key_type"`
	KeyValue   string    `json:"key_value"`
	HolderName string    `json:"holder_name"`
	CreatedAt  time.Time `json:"created_at"`
}
