package usecases

import (
	"testing"
	"time"
	"zapdesk/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var tuesday = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // a Tuesday

func tuesdayHours(opens, closes string) []entities.WorkingHours {
	return []entities.WorkingHours{
		{Weekday: 2, Opens: opens, Closes: closes, Enabled: true},
	}
}

func TestComputeSlotsEmptyDay(t *testing.T) {
	slots := ComputeSlots(tuesdayHours("09:00", "12:00"), nil, 60, tuesday, tuesday)
	require.Len(t, slots, 3)
	assert.Equal(t, tuesday.Add(9*time.Hour), slots[0])
	assert.Equal(t, tuesday.Add(10*time.Hour), slots[1])
	assert.Equal(t, tuesday.Add(11*time.Hour), slots[2])
}

func TestComputeSlotsSkipsBooked(t *testing.T) {
	booked := []entities.Appointment{
		{StartsAt: tuesday.Add(10 * time.Hour), EndsAt: tuesday.Add(11 * time.Hour)},
	}
	slots := ComputeSlots(tuesdayHours("09:00", "12:00"), booked, 60, tuesday, tuesday)
	require.Len(t, slots, 2)
	assert.Equal(t, tuesday.Add(9*time.Hour), slots[0])
	assert.Equal(t, tuesday.Add(11*time.Hour), slots[1])
}

func TestComputeSlotsSkipsPast(t *testing.T) {
	now := tuesday.Add(10*time.Hour + 30*time.Minute)
	slots := ComputeSlots(tuesdayHours("09:00", "12:00"), nil, 60, tuesday, now)
	require.Len(t, slots, 1)
	assert.Equal(t, tuesday.Add(11*time.Hour), slots[0])
}

func TestComputeSlotsRespectsClosingTime(t *testing.T) {
	// A 90 minute service in a 09:00-10:00 window does not fit.
	slots := ComputeSlots(tuesdayHours("09:00", "10:00"), nil, 90, tuesday, tuesday)
	assert.Empty(t, slots)
}

func TestComputeSlotsDisabledDay(t *testing.T) {
	hours := []entities.WorkingHours{
		{Weekday: 2, Opens: "09:00", Closes: "18:00", Enabled: false},
	}
	assert.Empty(t, ComputeSlots(hours, nil, 30, tuesday, tuesday))
	assert.Empty(t, ComputeSlots(nil, nil, 30, tuesday, tuesday))
}

func TestComputeSlotsInvalidWindow(t *testing.T) {
	assert.Empty(t, ComputeSlots(tuesdayHours("18:00", "09:00"), nil, 30, tuesday, tuesday))
	assert.Empty(t, ComputeSlots(tuesdayHours("bogus", "12:00"), nil, 30, tuesday, tuesday))
}

func TestWithinWorkingHours(t *testing.T) {
	hours := tuesdayHours("09:00", "18:00")

	start := tuesday.Add(10 * time.Hour)
	assert.True(t, withinWorkingHours(hours, start, start.Add(time.Hour)))

	early := tuesday.Add(8 * time.Hour)
	assert.False(t, withinWorkingHours(hours, early, early.Add(time.Hour)))

	// Ends past closing.
	late := tuesday.Add(17*time.Hour + 30*time.Minute)
	assert.False(t, withinWorkingHours(hours, late, late.Add(time.Hour)))

	// Wednesday has no entry.
	wednesday := tuesday.AddDate(0, 0, 1).Add(10 * time.Hour)
	assert.False(t, withinWorkingHours(hours, wednesday, wednesday.Add(time.Hour)))
}

func TestParseClock(t *testing.T) {
	d, ok := parseClock("09:30")
	require.True(t, ok)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	_, ok = parseClock("25:00")
	assert.False(t, ok)
	_, ok = parseClock("")
	assert.False(t, ok)
}

// fakeAppointmentStore keeps appointments in memory and answers ListBetween
// with the same interval-overlap predicate the SQL uses.
type fakeAppointmentStore struct {
	services []entities.Service
	hours    []entities.WorkingHours
	appts    []entities.Appointment

	listFrom, listTo time.Time
	created          []entities.Appointment
}

func (f *fakeAppointmentStore) Create(schema string, a *entities.Appointment) error {
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeAppointmentStore) UpdateStatus(schema string, id int, status string) error { return nil }

func (f *fakeAppointmentStore) GetByID(schema string, id int) (*entities.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentStore) ListBetween(schema string, from, to time.Time) ([]entities.Appointment, error) {
	f.listFrom, f.listTo = from, to
	var out []entities.Appointment
	for _, a := range f.appts {
		if a.Status != entities.AppointmentCancelled && a.StartsAt.Before(to) && a.EndsAt.After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) DueReminders(schema string, now time.Time, window time.Duration) ([]entities.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentStore) MarkReminded(schema string, id int) error { return nil }

func (f *fakeAppointmentStore) CreateService(schema string, s *entities.Service) error { return nil }
func (f *fakeAppointmentStore) UpdateService(schema string, s *entities.Service) error { return nil }
func (f *fakeAppointmentStore) DeleteService(schema string, id int) error              { return nil }

func (f *fakeAppointmentStore) GetService(schema string, id int) (*entities.Service, error) {
	for i := range f.services {
		if f.services[i].ID == id {
			return &f.services[i], nil
		}
	}
	return nil, nil
}

func (f *fakeAppointmentStore) GetAllServices(schema string) ([]entities.Service, error) {
	return f.services, nil
}

func (f *fakeAppointmentStore) SetWorkingHours(schema string, wh entities.WorkingHours) error {
	return nil
}

func (f *fakeAppointmentStore) GetWorkingHours(schema string) ([]entities.WorkingHours, error) {
	return f.hours, nil
}

type fakeClientStore struct{}

func (fakeClientStore) UpsertByPhone(schema, phone, name string) (*entities.Client, error) {
	return nil, nil
}

func localMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func allWeekHours(opens, closes string) []entities.WorkingHours {
	hours := make([]entities.WorkingHours, 7)
	for d := range hours {
		hours[d] = entities.WorkingHours{Weekday: d, Opens: opens, Closes: closes, Enabled: true}
	}
	return hours
}

func newBookingFixture(existing ...entities.Appointment) (*SchedulingUsecase, *fakeAppointmentStore) {
	store := &fakeAppointmentStore{
		services: []entities.Service{{ID: 1, Name: "Corte", DurationMin: 60, Active: true}},
		hours:    allWeekHours("08:00", "23:00"),
		appts:    existing,
	}
	u := NewSchedulingUsecase(store, fakeClientStore{}, nil, nil, zap.NewNop())
	return u, store
}

func TestBookRejectsConflictAcrossUTCMidnight(t *testing.T) {
	// 20:30 in UTC-3 is 23:30 UTC; the hour-long slot crosses UTC midnight,
	// and the conflicting booking starts on the next UTC day.
	loc := time.FixedZone("BRT", -3*60*60)
	day := localMidnight(time.Now().In(loc).AddDate(0, 0, 30))
	taken := entities.Appointment{
		StartsAt: day.Add(21 * time.Hour),
		EndsAt:   day.Add(22 * time.Hour),
		Status:   entities.AppointmentScheduled,
	}
	u, store := newBookingFixture(taken)

	a := &entities.Appointment{ServiceID: 1, StartsAt: day.Add(20*time.Hour + 30*time.Minute)}
	err := u.Book("tenant_1", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already booked")
	assert.Empty(t, store.created)

	// The conflict scan covers exactly the requested interval.
	assert.Equal(t, a.StartsAt, store.listFrom)
	assert.Equal(t, a.StartsAt.Add(time.Hour), store.listTo)
}

func TestBookFreeSlot(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	day := localMidnight(time.Now().In(loc).AddDate(0, 0, 30))
	taken := entities.Appointment{
		StartsAt: day.Add(21 * time.Hour),
		EndsAt:   day.Add(22 * time.Hour),
		Status:   entities.AppointmentScheduled,
	}
	u, store := newBookingFixture(taken)

	a := &entities.Appointment{ServiceID: 1, StartsAt: day.Add(15 * time.Hour)}
	require.NoError(t, u.Book("tenant_1", a))
	require.Len(t, store.created, 1)
	assert.Equal(t, day.Add(16*time.Hour), store.created[0].EndsAt)
	assert.Equal(t, entities.AppointmentScheduled, store.created[0].Status)
}

func TestBookIgnoresCancelledOverlap(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	day := localMidnight(time.Now().In(loc).AddDate(0, 0, 30))
	cancelled := entities.Appointment{
		StartsAt: day.Add(15 * time.Hour),
		EndsAt:   day.Add(16 * time.Hour),
		Status:   entities.AppointmentCancelled,
	}
	u, store := newBookingFixture(cancelled)

	a := &entities.Appointment{ServiceID: 1, StartsAt: day.Add(15 * time.Hour)}
	require.NoError(t, u.Book("tenant_1", a))
	require.Len(t, store.created, 1)
}
