package usecases

import (
	"time"
	"zapdesk/internal/entities"
	"zapdesk/internal/repository"
)

// DashboardUsecase aggregates the numbers the dashboard home and reports
// pages show, plus tenant settings management.
type DashboardUsecase struct {
	settings  *repository.SettingsRepository
	convos    *repository.ConversationRepository
	clients   *repository.ClientRepository
	appts     *repository.AppointmentRepository
	workflows *repository.WorkflowRepository
	usage     *repository.UsageRepository
	users     *repository.UserRepository
}

func NewDashboardUsecase(
	settings *repository.SettingsRepository,
	convos *repository.ConversationRepository,
	clients *repository.ClientRepository,
	appts *repository.AppointmentRepository,
	workflows *repository.WorkflowRepository,
	usage *repository.UsageRepository,
	users *repository.UserRepository,
) *DashboardUsecase {
	return &DashboardUsecase{
		settings:  settings,
		convos:    convos,
		clients:   clients,
		appts:     appts,
		workflows: workflows,
		usage:     usage,
		users:     users,
	}
}

// DashboardStats is the home page summary payload.
type DashboardStats struct {
	Conversations     map[string]int `json:"conversations"`
	Clients           int            `json:"clients"`
	ActiveWorkflows   int            `json:"active_workflows"`
	AppointmentsToday int            `json:"appointments_today"`
	MessagesSentToday int            `json:"messages_sent_today"`
	MessagesRecvToday int            `json:"messages_received_today"`
	WhatsAppConnected bool           `json:"whatsapp_connected"`
}

func (u *DashboardUsecase) GetStats(schema string, userID int) (*DashboardStats, error) {
	stats := &DashboardStats{}

	counts, err := u.convos.CountByStatus(schema)
	if err != nil {
		return nil, err
	}
	stats.Conversations = counts

	if stats.Clients, err = u.clients.Count(schema); err != nil {
		return nil, err
	}

	active, err := u.workflows.GetActive(schema)
	if err != nil {
		return nil, err
	}
	stats.ActiveWorkflows = len(active)

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := u.appts.ListBetween(schema, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	for _, a := range today {
		if a.Status != entities.AppointmentCancelled {
			stats.AppointmentsToday++
		}
	}

	sent, received, err := u.usage.GetTodayUsage(userID)
	if err != nil {
		return nil, err
	}
	stats.MessagesSentToday = sent
	stats.MessagesRecvToday = received

	return stats, nil
}

// GetAIMetrics returns per-day AI usage for the reports page.
func (u *DashboardUsecase) GetAIMetrics(userID, days int) ([]repository.DailyUsage, error) {
	if days <= 0 || days > 90 {
		days = 30
	}
	return u.usage.GetUsageHistory(userID, days)
}

// GetQuota returns the tenant's message quota position.
func (u *DashboardUsecase) GetQuota(userID int) (*repository.UserQuotaStatus, error) {
	user, err := u.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return u.usage.GetQuotaStatus(userID, user.DailyLimit, user.MonthlyLimit)
}

// Settings passthroughs used by the settings page.

func (u *DashboardUsecase) GetSetting(schema, key string) (string, error) {
	return u.settings.Get(schema, key)
}

func (u *DashboardUsecase) SetSetting(schema, key, value string) error {
	return u.settings.Set(schema, key, value)
}

func (u *DashboardUsecase) GetAllSettings(schema string) (map[string]string, error) {
	rows, err := u.settings.GetAll(schema)
	if err != nil {
		return nil, err
	}
	return SettingsMap(rows), nil
}

// SettingsMap flattens a settings listing into a key -> value map.
func SettingsMap(rows []repository.Setting) map[string]string {
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Key] = s.Value
	}
	return out
}
