package usecases

import (
	"fmt"
	"math"
	"zapdesk/internal/entities"
	"zapdesk/internal/repository"
)

// OrderUsecase manages the product catalog, orders and pix payment keys.
type OrderUsecase struct {
	catalog *repository.CatalogRepository
	clients *repository.ClientRepository
}

func NewOrderUsecase(catalog *repository.CatalogRepository, clients *repository.ClientRepository) *OrderUsecase {
	return &OrderUsecase{catalog: catalog, clients: clients}
}

// --- products ---

func (u *OrderUsecase) CreateProduct(schema string, p *entities.Product) error {
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return u.catalog.CreateProduct(schema, p)
}

func (u *OrderUsecase) UpdateProduct(schema string, p *entities.Product) error {
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return u.catalog.UpdateProduct(schema, p)
}

func (u *OrderUsecase) DeleteProduct(schema string, id int) error {
	return u.catalog.DeleteProduct(schema, id)
}

func (u *OrderUsecase) ListProducts(schema string) ([]entities.Product, error) {
	return u.catalog.GetAllProducts(schema)
}

// --- orders ---

// CreateOrder prices each line from the catalog and computes the total
// server-side. Client-supplied prices are ignored.
func (u *OrderUsecase) CreateOrder(schema string, o *entities.Order) error {
	if o.ContactPhone == "" {
		return fmt.Errorf("contact phone is required")
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order needs at least one item")
	}

	total := 0.0
	for i := range o.Items {
		item := &o.Items[i]
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
		p, err := u.catalog.GetProduct(schema, item.ProductID)
		if err != nil {
			return err
		}
		if p == nil || !p.Active {
			return fmt.Errorf("product %d not available", item.ProductID)
		}
		item.Name = p.Name
		item.UnitPrice = p.Price
		total += p.Price * float64(item.Quantity)
	}
	o.Total = math.Round(total*100) / 100
	o.Status = entities.OrderPending

	u.clients.UpsertByPhone(schema, o.ContactPhone, o.ContactName)
	return u.catalog.CreateOrder(schema, o)
}

func (u *OrderUsecase) GetOrder(schema string, id int) (*entities.Order, error) {
	return u.catalog.GetOrder(schema, id)
}

func (u *OrderUsecase) ListOrders(schema, status string) ([]entities.Order, error) {
	return u.catalog.ListOrders(schema, status)
}

// orderTransitions guards the order lifecycle. Cancellation is allowed from
// any non-terminal state.
var orderTransitions = map[string][]string{
	entities.OrderPending: {entities.OrderPaid, entities.OrderCancelled},
	entities.OrderPaid:    {entities.OrderShipped, entities.OrderCancelled},
	entities.OrderShipped: {entities.OrderDelivered, entities.OrderCancelled},
}

func (u *OrderUsecase) ChangeOrderStatus(schema string, id int, status string) error {
	o, err := u.catalog.GetOrder(schema, id)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order not found")
	}
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == status {
			return u.catalog.UpdateOrderStatus(schema, id, status)
		}
	}
	return fmt.Errorf("cannot change %s order to %s", o.Status, status)
}

// --- pix keys ---

var pixTypes = map[string]bool{
	entities.PixCPF:    true,
	entities.PixCNPJ:   true,
	entities.PixEmail:  true,
	entities.PixPhone:  true,
	entities.PixRandom: true,
}

func (u *OrderUsecase) AddPixKey(schema string, k *entities.PixKey) error {
	if !pixTypes[k.KeyType] {
		return fmt.Errorf("invalid pix key type %q", k.KeyType)
	}
	if k.KeyValue == "" {
		return fmt.Errorf("pix key value is required")
	}
	return u.catalog.CreatePixKey(schema, k)
}

func (u *OrderUsecase) DeletePixKey(schema string, id int) error {
	return u.catalog.DeletePixKey(schema, id)
}

func (u *OrderUsecase) ListPixKeys(schema string) ([]entities.PixKey, error) {
	return u.catalog.GetAllPixKeys(schema)
}
