package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(schema string, c *entities.Client) error {
	table := qualify(schema, "clients")
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (name, phone, email, notes, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, table), c.Name, c.Phone, c.Email, c.Notes, tags).Scan(&c.ID, &c.CreatedAt)
}

func (r *ClientRepository) Update(schema string, c *entities.Client) error {
	table := qualify(schema, "clients")
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET name=$1, phone=$2, email=$3, notes=$4, tags=$5 WHERE id=$6
	`, table), c.Name, c.Phone, c.Email, c.Notes, tags, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ClientRepository) Delete(schema string, id int) error {
	table := qualify(schema, "clients")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

func (r *ClientRepository) GetAll(schema string) ([]entities.Client, error) {
	table := qualify(schema, "clients")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT id, name, phone, email, notes, tags, created_at FROM %s ORDER BY name
	`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []entities.Client{}
	for rows.Next() {
		var c entities.Client
		var tags []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &tags, &c.CreatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal(tags, &c.Tags)
		clients = append(clients, c)
	}
	return clients, nil
}

// UpsertByPhone registers a contact the first time it messages in. An
// existing row only gets its name refreshed when it was empty.
func (r *ClientRepository) UpsertByPhone(schema, phone, name string) (*entities.Client, error) {
	table := qualify(schema, "clients")
	var c entities.Client
	var tags []byte
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s AS c (name, phone)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET name = CASE WHEN c.name = '' THEN EXCLUDED.name ELSE c.name END
		RETURNING id, name, phone, email, notes, tags, created_at
	`, table), name, phone).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &tags, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(tags, &c.Tags)
	return &c, nil
}

func (r *ClientRepository) Count(schema string) (int, error) {
	table := qualify(schema, "clients")
	var n int
	err := r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	return n, err
}
