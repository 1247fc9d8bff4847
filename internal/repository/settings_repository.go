package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known settings keys.
const (
	SettingWelcomeMessage   = "welcome_message"
	SettingDefaultReply     = "default_reply"
	SettingAISystemPrompt   = "ai_system_prompt"
	SettingReminderTemplate = "reminder_template"
	SettingBusinessName     = "business_name"
	SettingTimezone         = "timezone"
)

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRepository stores per-tenant bot configuration.
type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns a setting value by key. Missing keys return "".
func (r *SettingsRepository) Get(schema, key string) (string, error) {
	table := qualify(schema, "settings")
	var value string
	err := r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT value FROM %s WHERE key=$1", table), key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (r *SettingsRepository) Set(schema, key, value string) error {
	table := qualify(schema, "settings")
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, table), key, value)
	return err
}

func (r *SettingsRepository) GetAll(schema string) ([]Setting, error) {
	table := qualify(schema, "settings")
	rows, err := r.db.Query(context.Background(),
		fmt.Sprintf("SELECT key, value, updated_at FROM %s ORDER BY key", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, nil
}
