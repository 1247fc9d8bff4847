package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantManager struct {
	db *pgxpool.Pool
}

func NewTenantManager(db *pgxpool.Pool) *TenantManager {
	return &TenantManager{db: db}
}

// sanitizeSchemaName ensures schema name is safe for SQL
func sanitizeSchemaName(name string) string {
	reg := regexp.MustCompile("[^a-zA-Z0-9_]+")
	return strings.ToLower(reg.ReplaceAllString(name, "_"))
}

// qualify returns a schema-qualified table name. Empty schema means public.
func qualify(schema, table string) string {
	if schema == "" || schema == "public" {
		return table
	}
	return fmt.Sprintf("%s.%s", sanitizeSchemaName(schema), table)
}

// CreateTenantSchema creates a new schema for a user with all tenant tables.
func (t *TenantManager) CreateTenantSchema(userID int) (string, error) {
	ctx := context.Background()
	schemaName := fmt.Sprintf("tenant_%d", userID)

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	if err != nil {
		return "", fmt.Errorf("failed to create schema: %w", err)
	}

	tables := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.settings (
				id SERIAL PRIMARY KEY,
				key VARCHAR(64) UNIQUE NOT NULL,
				value TEXT,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.clients (
				id SERIAL PRIMARY KEY,
				name VARCHAR(256) NOT NULL DEFAULT '',
				phone VARCHAR(32) UNIQUE NOT NULL,
				email VARCHAR(256) DEFAULT '',
				notes TEXT DEFAULT '',
				tags JSONB DEFAULT '[]',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description TEXT DEFAULT '',
				trigger_keyword VARCHAR(128) DEFAULT '',
				active BOOLEAN DEFAULT FALSE,
				ai_only BOOLEAN DEFAULT FALSE,
				business_profile JSONB,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.conversations (
				id SERIAL PRIMARY KEY,
				contact_phone VARCHAR(32) UNIQUE NOT NULL,
				contact_name VARCHAR(256) DEFAULT '',
				status VARCHAR(20) DEFAULT 'active',
				workflow_id UUID,
				current_node VARCHAR(64) DEFAULT '',
				variables JSONB DEFAULT '{}',
				ai_mode BOOLEAN DEFAULT FALSE,
				wait_until TIMESTAMP,
				unread INT DEFAULT 0,
				last_message TEXT DEFAULT '',
				last_message_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.messages (
				id SERIAL PRIMARY KEY,
				conversation_id INT NOT NULL,
				direction VARCHAR(3) NOT NULL,
				content TEXT NOT NULL,
				media_url TEXT DEFAULT '',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.services (
				id SERIAL PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description TEXT DEFAULT '',
				duration_min INT NOT NULL DEFAULT 30,
				price DECIMAL(15,2) DEFAULT 0,
				active BOOLEAN DEFAULT TRUE
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.working_hours (
				weekday INT PRIMARY KEY,
				opens VARCHAR(5) NOT NULL DEFAULT '09:00',
				closes VARCHAR(5) NOT NULL DEFAULT '18:00',
				enabled BOOLEAN DEFAULT FALSE
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.appointments (
				id SERIAL PRIMARY KEY,
				client_id INT DEFAULT 0,
				contact_phone VARCHAR(32) NOT NULL,
				contact_name VARCHAR(256) DEFAULT '',
				service_id INT NOT NULL,
				starts_at TIMESTAMP NOT NULL,
				ends_at TIMESTAMP NOT NULL,
				status VARCHAR(20) DEFAULT 'scheduled',
				notes TEXT DEFAULT '',
				reminded BOOLEAN DEFAULT FALSE,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.products (
				id SERIAL PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description TEXT DEFAULT '',
				price DECIMAL(15,2) DEFAULT 0,
				image_url TEXT DEFAULT '',
				active BOOLEAN DEFAULT TRUE,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.orders (
				id SERIAL PRIMARY KEY,
				contact_phone VARCHAR(32) NOT NULL,
				contact_name VARCHAR(256) DEFAULT '',
				items JSONB NOT NULL DEFAULT '[]',
				total DECIMAL(15,2) DEFAULT 0,
				status VARCHAR(20) DEFAULT 'pending',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.pix_keys (
				id SERIAL PRIMARY KEY,
				key_type VARCHAR(10) NOT NULL,
				key_value VARCHAR(256) NOT NULL,
				holder_name VARCHAR(256) DEFAULT '',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, schemaName),
	}

	for _, ddl := range tables {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return "", fmt.Errorf("failed to create table: %w", err)
		}
	}

	return schemaName, tx.Commit(ctx)
}

// DropTenantSchema removes a user's schema and all data
func (t *TenantManager) DropTenantSchema(schemaName string) error {
	ctx := context.Background()
	schemaName = sanitizeSchemaName(schemaName)

	_, err := t.db.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
	return err
}

// ListTenantSchemas returns every tenant schema currently in the database.
func (t *TenantManager) ListTenantSchemas() ([]string, error) {
	rows, err := t.db.Query(context.Background(),
		"SELECT schema_name FROM information_schema.schemata WHERE schema_name LIKE 'tenant_%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
