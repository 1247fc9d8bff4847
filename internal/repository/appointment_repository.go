package repository

import (
	"context"
	"fmt"
	"time"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AppointmentRepository struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "id, client_id, contact_phone, contact_name, service_id, starts_at, ends_at, status, notes, reminded, created_at"

func scanAppointment(row pgx.Row) (*entities.Appointment, error) {
	var a entities.Appointment
	err := row.Scan(&a.ID, &a.ClientID, &a.ContactPhone, &a.ContactName, &a.ServiceID,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.Reminded, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) Create(schema string, a *entities.Appointment) error {
	table := qualify(schema, "appointments")
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (client_id, contact_phone, contact_name, service_id, starts_at, ends_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, table), a.ClientID, a.ContactPhone, a.ContactName, a.ServiceID,
		a.StartsAt, a.EndsAt, a.Status, a.Notes).Scan(&a.ID, &a.CreatedAt)
}

func (r *AppointmentRepository) UpdateStatus(schema string, id int, status string) error {
	table := qualify(schema, "appointments")
	tag, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET status=$1 WHERE id=$2", table), status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) Delete(schema string, id int) error {
	table := qualify(schema, "appointments")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

func (r *AppointmentRepository) GetByID(schema string, id int) (*entities.Appointment, error) {
	table := qualify(schema, "appointments")
	a, err := scanAppointment(r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", appointmentColumns, table), id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListBetween returns non-cancelled appointments overlapping [from, to).
func (r *AppointmentRepository) ListBetween(schema string, from, to time.Time) ([]entities.Appointment, error) {
	table := qualify(schema, "appointments")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status <> 'cancelled' AND starts_at < $2 AND ends_at > $1
		ORDER BY starts_at
	`, appointmentColumns, table), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []entities.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, nil
}

// DueReminders returns appointments starting within the window that have not
// been reminded yet.
func (r *AppointmentRepository) DueReminders(schema string, now time.Time, window time.Duration) ([]entities.Appointment, error) {
	table := qualify(schema, "appointments")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE NOT reminded AND status IN ('scheduled', 'confirmed')
		  AND starts_at > $1 AND starts_at <= $2
	`, appointmentColumns, table), now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []entities.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, nil
}

func (r *AppointmentRepository) MarkReminded(schema string, id int) error {
	table := qualify(schema, "appointments")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET reminded=TRUE WHERE id=$1", table), id)
	return err
}

// Services

func (r *AppointmentRepository) CreateService(schema string, s *entities.Service) error {
	table := qualify(schema, "services")
	return r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (name, description, duration_min, price, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, table), s.Name, s.Description, s.DurationMin, s.Price, s.Active).Scan(&s.ID)
}

func (r *AppointmentRepository) UpdateService(schema string, s *entities.Service) error {
	table := qualify(schema, "services")
	tag, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET name=$1, description=$2, duration_min=$3, price=$4, active=$5 WHERE id=$6
	`, table), s.Name, s.Description, s.DurationMin, s.Price, s.Active, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) DeleteService(schema string, id int) error {
	table := qualify(schema, "services")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

func (r *AppointmentRepository) GetService(schema string, id int) (*entities.Service, error) {
	table := qualify(schema, "services")
	var s entities.Service
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		SELECT id, name, description, duration_min, price, active FROM %s WHERE id=$1
	`, table), id).Scan(&s.ID, &s.Name, &s.Description, &s.DurationMin, &s.Price, &s.Active)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AppointmentRepository) GetAllServices(schema string) ([]entities.Service, error) {
	table := qualify(schema, "services")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT id, name, description, duration_min, price, active FROM %s ORDER BY name
	`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []entities.Service{}
	for rows.Next() {
		var s entities.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMin, &s.Price, &s.Active); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, nil
}

// Working hours

func (r *AppointmentRepository) SetWorkingHours(schema string, wh entities.WorkingHours) error {
	table := qualify(schema, "working_hours")
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (weekday, opens, closes, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (weekday) DO UPDATE SET opens=EXCLUDED.opens, closes=EXCLUDED.closes, enabled=EXCLUDED.enabled
	`, table), wh.Weekday, wh.Opens, wh.Closes, wh.Enabled)
	return err
}

func (r *AppointmentRepository) GetWorkingHours(schema string) ([]entities.WorkingHours, error) {
	table := qualify(schema, "working_hours")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT weekday, opens, closes, enabled FROM %s ORDER BY weekday
	`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hours := []entities.WorkingHours{}
	for rows.Next() {
		var wh entities.WorkingHours
		if err := rows.Scan(&wh.Weekday, &wh.Opens, &wh.Closes, &wh.Enabled); err != nil {
			return nil, err
		}
		hours = append(hours, wh)
	}
	return hours, nil
}
