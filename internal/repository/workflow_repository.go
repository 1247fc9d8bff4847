package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkflowRepository struct {
	db *pgxpool.Pool
}

func NewWorkflowRepository(db *pgxpool.Pool) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func scanWorkflow(row pgx.Row) (*entities.Workflow, error) {
	var w entities.Workflow
	var nodes, edges []byte
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Trigger, &w.Active, &w.AIOnly,
		&w.BusinessProfile, &nodes, &edges, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(nodes, &w.Nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	if err := json.Unmarshal(edges, &w.Edges); err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}
	return &w, nil
}

const workflowColumns = "id, name, description, trigger_keyword, active, ai_only, business_profile, nodes, edges, created_at, updated_at"

func (r *WorkflowRepository) Create(schema string, w *entities.Workflow) error {
	table := qualify(schema, "workflows")
	nodes, err := json.Marshal(w.Nodes)
	if err != nil {
		return err
	}
	edges, err := json.Marshal(w.Edges)
	if err != nil {
		return err
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	_, err = r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, table, workflowColumns),
		w.ID, w.Name, w.Description, w.Trigger, w.Active, w.AIOnly,
		w.BusinessProfile, nodes, edges, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r *WorkflowRepository) Update(schema string, w *entities.Workflow) error {
	table := qualify(schema, "workflows")
	nodes, err := json.Marshal(w.Nodes)
	if err != nil {
		return err
	}
	edges, err := json.Marshal(w.Edges)
	if err != nil {
		return err
	}
	w.UpdatedAt = time.Now()
	tag, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET name=$1, description=$2, trigger_keyword=$3, active=$4, ai_only=$5,
			business_profile=$6, nodes=$7, edges=$8, updated_at=$9
		WHERE id=$10
	`, table), w.Name, w.Description, w.Trigger, w.Active, w.AIOnly,
		w.BusinessProfile, nodes, edges, w.UpdatedAt, w.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *WorkflowRepository) GetByID(schema, id string) (*entities.Workflow, error) {
	table := qualify(schema, "workflows")
	w, err := scanWorkflow(r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", workflowColumns, table), id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return w, err
}

func (r *WorkflowRepository) GetAll(schema string) ([]entities.Workflow, error) {
	table := qualify(schema, "workflows")
	rows, err := r.db.Query(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", workflowColumns, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workflows := []entities.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *w)
	}
	return workflows, nil
}

// GetActive returns all active workflows for trigger matching.
func (r *WorkflowRepository) GetActive(schema string) ([]entities.Workflow, error) {
	table := qualify(schema, "workflows")
	rows, err := r.db.Query(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE active ORDER BY created_at", workflowColumns, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workflows := []entities.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *w)
	}
	return workflows, nil
}

func (r *WorkflowRepository) SetActive(schema, id string, active bool) error {
	table := qualify(schema, "workflows")
	tag, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET active=$1, updated_at=NOW() WHERE id=$2", table), active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *WorkflowRepository) Delete(schema, id string) error {
	table := qualify(schema, "workflows")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE id=$1", table), id)
	return err
}

// TriggerInUse reports whether another active workflow already claims the
// given trigger keyword.
func (r *WorkflowRepository) TriggerInUse(schema, keyword, excludeID string) (bool, error) {
	if strings.TrimSpace(keyword) == "" {
		return false, nil
	}
	table := qualify(schema, "workflows")
	var count int
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE active AND LOWER(trigger_keyword)=LOWER($1) AND id <> $2
	`, table), keyword, excludeID).Scan(&count)
	return count > 0, err
}
