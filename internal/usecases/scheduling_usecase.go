package usecases

import (
	"fmt"
	"strings"
	"time"
	"zapdesk/internal/entities"
	"zapdesk/internal/infrastructure"
	"zapdesk/internal/interfaces"
	"zapdesk/internal/repository"

	"go.uber.org/zap"
)

// reminderLead is how far ahead of an appointment the reminder goes out.
const reminderLead = 24 * time.Hour

// AppointmentStore is the persistence surface the scheduling flows need.
// *repository.AppointmentRepository is the production implementation.
type AppointmentStore interface {
	Create(schema string, a *entities.Appointment) error
	UpdateStatus(schema string, id int, status string) error
	GetByID(schema string, id int) (*entities.Appointment, error)
	ListBetween(schema string, from, to time.Time) ([]entities.Appointment, error)
	DueReminders(schema string, now time.Time, window time.Duration) ([]entities.Appointment, error)
	MarkReminded(schema string, id int) error
	CreateService(schema string, s *entities.Service) error
	UpdateService(schema string, s *entities.Service) error
	DeleteService(schema string, id int) error
	GetService(schema string, id int) (*entities.Service, error)
	GetAllServices(schema string) ([]entities.Service, error)
	SetWorkingHours(schema string, wh entities.WorkingHours) error
	GetWorkingHours(schema string) ([]entities.WorkingHours, error)
}

// ClientStore upserts contacts when a booking carries a phone number.
type ClientStore interface {
	UpsertByPhone(schema, phone, name string) (*entities.Client, error)
}

// SchedulingUsecase handles services, working hours, bookings and slot
// computation.
type SchedulingUsecase struct {
	appts    AppointmentStore
	clients  ClientStore
	settings *repository.SettingsRepository
	bus      *infrastructure.EventBus
	log      *zap.Logger

	// SenderFor is wired by main for WhatsApp reminder delivery.
	SenderFor func(userID int, schema string) interfaces.Messenger
}

func NewSchedulingUsecase(
	appts AppointmentStore,
	clients ClientStore,
	settings *repository.SettingsRepository,
	bus *infrastructure.EventBus,
	log *zap.Logger,
) *SchedulingUsecase {
	return &SchedulingUsecase{appts: appts, clients: clients, settings: settings, bus: bus, log: log}
}

// --- services and working hours ---

func (u *SchedulingUsecase) ListServices(schema string) ([]entities.Service, error) {
	return u.appts.GetAllServices(schema)
}

func (u *SchedulingUsecase) CreateService(schema string, s *entities.Service) error {
	if err := validateService(s); err != nil {
		return err
	}
	return u.appts.CreateService(schema, s)
}

func (u *SchedulingUsecase) UpdateService(schema string, s *entities.Service) error {
	if err := validateService(s); err != nil {
		return err
	}
	return u.appts.UpdateService(schema, s)
}

func (u *SchedulingUsecase) DeleteService(schema string, id int) error {
	return u.appts.DeleteService(schema, id)
}

func validateService(s *entities.Service) error {
	if s.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if s.DurationMin <= 0 {
		return fmt.Errorf("service duration must be positive")
	}
	if s.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return nil
}

func (u *SchedulingUsecase) GetWorkingHours(schema string) ([]entities.WorkingHours, error) {
	return u.appts.GetWorkingHours(schema)
}

// SetWorkingHours replaces the weekly schedule.
func (u *SchedulingUsecase) SetWorkingHours(schema string, hours []entities.WorkingHours) error {
	for _, wh := range hours {
		if wh.Weekday < 0 || wh.Weekday > 6 {
			return fmt.Errorf("invalid weekday %d", wh.Weekday)
		}
		if !wh.Enabled {
			continue
		}
		opens, okO := parseClock(wh.Opens)
		closes, okC := parseClock(wh.Closes)
		if !okO || !okC || opens >= closes {
			return fmt.Errorf("weekday %d: invalid opening window", wh.Weekday)
		}
	}
	for _, wh := range hours {
		if err := u.appts.SetWorkingHours(schema, wh); err != nil {
			return err
		}
	}
	return nil
}

// Book validates and creates an appointment.
func (u *SchedulingUsecase) Book(schema string, a *entities.Appointment) error {
	svc, err := u.appts.GetService(schema, a.ServiceID)
	if err != nil {
		return err
	}
	if svc == nil || !svc.Active {
		return fmt.Errorf("service not available")
	}

	if a.StartsAt.Before(time.Now()) {
		return fmt.Errorf("appointment must be in the future")
	}
	a.EndsAt = a.StartsAt.Add(time.Duration(svc.DurationMin) * time.Minute)
	a.Status = entities.AppointmentScheduled

	hours, err := u.appts.GetWorkingHours(schema)
	if err != nil {
		return err
	}
	if !withinWorkingHours(hours, a.StartsAt, a.EndsAt) {
		return fmt.Errorf("outside working hours")
	}

	// ListBetween matches any booking overlapping the requested interval.
	existing, err := u.appts.ListBetween(schema, a.StartsAt, a.EndsAt)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("time slot already booked")
	}

	if a.ContactPhone != "" {
		if c, err := u.clients.UpsertByPhone(schema, a.ContactPhone, a.ContactName); err == nil && c != nil {
			a.ClientID = c.ID
		}
	}
	return u.appts.Create(schema, a)
}

// validStatusChange guards the appointment lifecycle.
var validStatusChange = map[string][]string{
	entities.AppointmentScheduled: {entities.AppointmentConfirmed, entities.AppointmentCancelled},
	entities.AppointmentConfirmed: {entities.AppointmentCompleted, entities.AppointmentCancelled},
}

func (u *SchedulingUsecase) ChangeStatus(schema string, id int, status string) error {
	a, err := u.appts.GetByID(schema, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("appointment not found")
	}

	for _, allowed := range validStatusChange[a.Status] {
		if allowed == status {
			return u.appts.UpdateStatus(schema, id, status)
		}
	}
	return fmt.Errorf("cannot change %s appointment to %s", a.Status, status)
}

func (u *SchedulingUsecase) Agenda(schema string, from, to time.Time) ([]entities.Appointment, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range")
	}
	return u.appts.ListBetween(schema, from, to)
}

// AvailableSlots computes free start times for a service on a given day.
func (u *SchedulingUsecase) AvailableSlots(schema string, serviceID int, day time.Time) ([]time.Time, error) {
	svc, err := u.appts.GetService(schema, serviceID)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.Active {
		return nil, fmt.Errorf("service not available")
	}

	hours, err := u.appts.GetWorkingHours(schema)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	booked, err := u.appts.ListBetween(schema, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	active := booked[:0]
	for _, b := range booked {
		if b.Status != entities.AppointmentCancelled {
			active = append(active, b)
		}
	}

	return ComputeSlots(hours, active, svc.DurationMin, dayStart, time.Now()), nil
}

// ComputeSlots lists service-length start times inside the day's working
// window that don't overlap existing appointments and aren't in the past.
func ComputeSlots(hours []entities.WorkingHours, booked []entities.Appointment, durationMin int, dayStart, now time.Time) []time.Time {
	var wh *entities.WorkingHours
	for i := range hours {
		if hours[i].Weekday == int(dayStart.Weekday()) && hours[i].Enabled {
			wh = &hours[i]
			break
		}
	}
	if wh == nil || durationMin <= 0 {
		return nil
	}

	opens, okO := parseClock(wh.Opens)
	closes, okC := parseClock(wh.Closes)
	if !okO || !okC || opens >= closes {
		return nil
	}

	dur := time.Duration(durationMin) * time.Minute
	windowStart := dayStart.Add(opens)
	windowEnd := dayStart.Add(closes)

	var slots []time.Time
	for start := windowStart; !start.Add(dur).After(windowEnd); start = start.Add(dur) {
		if start.Before(now) {
			continue
		}
		end := start.Add(dur)
		free := true
		for _, b := range booked {
			if start.Before(b.EndsAt) && b.StartsAt.Before(end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, start)
		}
	}
	return slots
}

func withinWorkingHours(hours []entities.WorkingHours, start, end time.Time) bool {
	for _, wh := range hours {
		if wh.Weekday != int(start.Weekday()) || !wh.Enabled {
			continue
		}
		opens, okO := parseClock(wh.Opens)
		closes, okC := parseClock(wh.Closes)
		if !okO || !okC {
			return false
		}
		dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		windowStart := dayStart.Add(opens)
		windowEnd := dayStart.Add(closes)
		return !start.Before(windowStart) && !end.After(windowEnd)
	}
	return false
}

// parseClock reads "HH:MM" as an offset from midnight.
func parseClock(s string) (time.Duration, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
}

// SendReminders pushes WhatsApp reminders for appointments starting within
// the lead window. Wired to the cron scheduler per tenant.
func (u *SchedulingUsecase) SendReminders(schema string, userID int) {
	due, err := u.appts.DueReminders(schema, time.Now(), reminderLead)
	if err != nil {
		u.log.Warn("reminder query failed", zap.String("schema", schema), zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	sender := u.senderFor(userID, schema)
	if sender == nil {
		return
	}

	template, _ := u.settings.Get(schema, repository.SettingReminderTemplate)
	if template == "" {
		template = "Olá {name}! Lembrete do seu agendamento de {service} em {date} às {time}."
	}

	for _, a := range due {
		svcName := ""
		if svc, err := u.appts.GetService(schema, a.ServiceID); err == nil && svc != nil {
			svcName = svc.Name
		}
		text := strings.NewReplacer(
			"{name}", a.ContactName,
			"{service}", svcName,
			"{date}", a.StartsAt.Format("02/01/2006"),
			"{time}", a.StartsAt.Format("15:04"),
		).Replace(template)

		if err := sender.SendMessage(a.ContactPhone, text); err != nil {
			u.log.Warn("reminder send failed",
				zap.String("schema", schema), zap.String("contact", a.ContactPhone), zap.Error(err))
			continue
		}
		u.appts.MarkReminded(schema, a.ID)
		if u.bus != nil {
			u.bus.Publish(infrastructure.AutomationEvent{
				Type: infrastructure.EventReminderSent, Schema: schema, UserID: userID,
				Contact: a.ContactPhone,
			})
		}
	}
}

func (u *SchedulingUsecase) senderFor(userID int, schema string) interfaces.Messenger {
	if u.SenderFor == nil {
		return nil
	}
	return u.SenderFor(userID, schema)
}
