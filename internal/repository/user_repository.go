package repository

import (
	"context"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

type PlatformStats struct {
	TotalUsers     int
	ActiveUsers    int
	WAEnabledUsers int
	AdminCount     int
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *entities.User) error {
	return r.db.QueryRow(context.Background(),
		"INSERT INTO users (username, password_hash, role, schema_name) VALUES ($1, $2, $3, $4) RETURNING id",
		user.Username, user.PasswordHash, user.Role, user.SchemaName).Scan(&user.ID)
}

func (r *UserRepository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(context.Background(),
		`SELECT id, username, password_hash, role, schema_name, is_active, wa_enabled, daily_limit, monthly_limit, created_at
		 FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.SchemaName,
			&user.IsActive, &user.WAEnabled, &user.DailyLimit, &user.MonthlyLimit, &user.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id int) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(context.Background(),
		`SELECT id, username, password_hash, role, schema_name, is_active, wa_enabled, daily_limit, monthly_limit, created_at
		 FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.SchemaName,
			&user.IsActive, &user.WAEnabled, &user.DailyLimit, &user.MonthlyLimit, &user.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetAllUsers() ([]entities.User, error) {
	rows, err := r.db.Query(context.Background(),
		`SELECT id, username, role, schema_name, is_active, wa_enabled, daily_limit, monthly_limit, created_at
		 FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.SchemaName,
			&u.IsActive, &u.WAEnabled, &u.DailyLimit, &u.MonthlyLimit, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) UpdateSchemaName(userID int, schemaName string) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET schema_name = $1 WHERE id = $2", schemaName, userID)
	return err
}

func (r *UserRepository) SetActive(userID int, active bool) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET is_active = $1 WHERE id = $2", active, userID)
	return err
}

func (r *UserRepository) SetWAEnabled(userID int, enabled bool) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET wa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (r *UserRepository) UpdateLimits(userID, daily, monthly int) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET daily_limit = $1, monthly_limit = $2 WHERE id = $3", daily, monthly, userID)
	return err
}

func (r *UserRepository) GetStats() (*PlatformStats, error) {
	var s PlatformStats
	err := r.db.QueryRow(context.Background(), `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE wa_enabled),
		       COUNT(*) FILTER (WHERE role = 'admin')
		FROM users`).Scan(&s.TotalUsers, &s.ActiveUsers, &s.WAEnabledUsers, &s.AdminCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
