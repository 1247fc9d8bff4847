package usecases

import (
	"testing"
	"zapdesk/internal/repository"

	"github.com/stretchr/testify/assert"
)

func TestSettingsMap(t *testing.T) {
	rows := []repository.Setting{
		{Key: "welcome_message", Value: "Olá!"},
		{Key: "default_reply", Value: "Não entendi."},
	}
	got := SettingsMap(rows)
	assert.Equal(t, map[string]string{
		"welcome_message": "Olá!",
		"default_reply":   "Não entendi.",
	}, got)
}

func TestSettingsMapEmpty(t *testing.T) {
	assert.Empty(t, SettingsMap(nil))
}
