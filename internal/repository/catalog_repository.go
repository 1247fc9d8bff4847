package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository covers products, orders and pix keys for one tenant.
type CatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Products

func (r *CatalogRepository) CreateProduct(schema string, p *entities.Product) error {
	table := qualify(schema, "products")
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (name, description, price, image_url, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, updated_at
	`, table), p.Name, p.Description, p.Price, p.ImageURL, p.Active).Scan(&p.ID, &p.UpdatedAt)
}

func (r *CatalogRepository) UpdateProduct(schema string, p *entities.Product) error {
	table := qualify(schema, "products")
	tag, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET name=$1, description=$2, price=$3, image_url=$4, active=$5, updated_at=NOW()
		WHERE id=$6
	`, table), p.Name, p.Description, p.Price, p.ImageURL, p.Active, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CatalogRepository) DeleteProduct(schema string, id int) error {
	table := qualify(schema, "products")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

func (r *CatalogRepository) GetProduct(schema string, id int) (*entities.Product, error) {
	table := qualify(schema, "products")
	var p entities.Product
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		SELECT id, name, description, price, image_url, active, updated_at FROM %s WHERE id=$1
	`, table), id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Active, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) GetAllProducts(schema string) ([]entities.Product, error) {
	table := qualify(schema, "products")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT id, name, description, price, image_url, active, updated_at FROM %s ORDER BY name
	`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []entities.Product{}
	for rows.Next() {
		var p entities.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Active, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Orders

func (r *CatalogRepository) CreateOrder(schema string, o *entities.Order) error {
	table := qualify(schema, "orders")
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (contact_phone, contact_name, items, total, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at
	`, table), o.ContactPhone, o.ContactName, items, o.Total, o.Status).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *CatalogRepository) GetOrder(schema string, id int) (*entities.Order, error) {
	table := qualify(schema, "orders")
	var o entities.Order
	var items []byte
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		SELECT id, contact_phone, contact_name, items, total, status, created_at, updated_at
		FROM %s WHERE id=$1
	`, table), id).Scan(&o.ID, &o.ContactPhone, &o.ContactName, &items, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &o, nil
}

func (r *CatalogRepository) ListOrders(schema, status string) ([]entities.Order, error) {
	table := qualify(schema, "orders")
	query := fmt.Sprintf(`
		SELECT id, contact_phone, contact_name, items, total, status, created_at, updated_at FROM %s
	`, table)
	args := []interface{}{}
	if status != "" {
		query += " WHERE status=$1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []entities.Order{}
	for rows.Next() {
		var o entities.Order
		var items []byte
		if err := rows.Scan(&o.ID, &o.ContactPhone, &o.ContactName, &items, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *CatalogRepository) UpdateOrderStatus(schema string, id int, status string) error {
	table := qualify(schema, "orders")
	tag, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET status=$1, updated_at=NOW() WHERE id=$2", table), status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Pix keys

func (r *CatalogRepository) CreatePixKey(schema string, k *entities.PixKey) error {
	table := qualify(schema, "pix_keys")
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (key_type, key_value, holder_name)
		VALUES ($1, $2, $3) RETURNING id, created_at
	`, table), k.KeyType, k.KeyValue, k.HolderName).Scan(&k.ID, &k.CreatedAt)
}

func (r *CatalogRepository) DeletePixKey(schema string, id int) error {
	table := qualify(schema, "pix_keys")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

func (r *CatalogRepository) GetAllPixKeys(schema string) ([]entities.PixKey, error) {
	table := qualify(schema, "pix_keys")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT id, key_type, key_value, holder_name, created_at FROM %s ORDER BY created_at
	`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []entities.PixKey{}
	for rows.Next() {
		var k entities.PixKey
		if err := rows.Scan(&k.ID, &k.KeyType, &k.KeyValue, &k.HolderName, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
