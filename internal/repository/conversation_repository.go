package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"zapdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, contact_phone, contact_name, status, COALESCE(workflow_id::text, ''), current_node,
	variables, ai_mode, wait_until, unread, last_message, last_message_at, created_at`

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var c entities.Conversation
	err := row.Scan(&c.ID, &c.ContactPhone, &c.ContactName, &c.Status, &c.WorkflowID,
		&c.CurrentNode, &c.Variables, &c.AIMode, &c.WaitUntil, &c.Unread,
		&c.LastMessage, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreate returns the conversation for a contact, creating it on first
// inbound message.
func (r *ConversationRepository) GetOrCreate(schema, phone, name string) (*entities.Conversation, error) {
	table := qualify(schema, "conversations")
	c, err := scanConversation(r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE contact_phone=$1", conversationColumns, table), phone))
	if err == nil {
		return c, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	return scanConversation(r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (contact_phone, contact_name, status)
		VALUES ($1, $2, 'active')
		RETURNING %s
	`, table, conversationColumns), phone, name))
}

func (r *ConversationRepository) GetByID(schema string, id int) (*entities.Conversation, error) {
	table := qualify(schema, "conversations")
	c, err := scanConversation(r.db.QueryRow(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s WHERE id=$1", conversationColumns, table), id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByStatus returns conversations for one inbox bucket, most recent first.
func (r *ConversationRepository) ListByStatus(schema, status string) ([]entities.Conversation, error) {
	table := qualify(schema, "conversations")
	query := fmt.Sprintf("SELECT %s FROM %s", conversationColumns, table)
	args := []interface{}{}
	if status != "" {
		query += " WHERE status=$1"
		args = append(args, status)
	}
	query += " ORDER BY last_message_at DESC"

	rows, err := r.db.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convos := []entities.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convos = append(convos, *c)
	}
	return convos, nil
}

// UpdateFlowState persists the automation cursor for a conversation.
func (r *ConversationRepository) UpdateFlowState(schema string, convoID int, workflowID, currentNode string, vars map[string]string, aiMode bool, waitUntil *time.Time) error {
	table := qualify(schema, "conversations")
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return err
	}
	var wid interface{}
	if workflowID != "" {
		wid = workflowID
	}
	_, err = r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET workflow_id=$1, current_node=$2, variables=$3, ai_mode=$4, wait_until=$5
		WHERE id=$6
	`, table), wid, currentNode, varsJSON, aiMode, waitUntil, convoID)
	return err
}

func (r *ConversationRepository) SetStatus(schema string, convoID int, status string) error {
	table := qualify(schema, "conversations")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET status=$1 WHERE id=$2", table), status, convoID)
	return err
}

// ClearFlow drops the automation state, leaving the chat itself intact.
func (r *ConversationRepository) ClearFlow(schema string, convoID int) error {
	table := qualify(schema, "conversations")
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET workflow_id=NULL, current_node='', variables='{}', ai_mode=FALSE, wait_until=NULL
		WHERE id=$1
	`, table), convoID)
	return err
}

func (r *ConversationRepository) MarkRead(schema string, convoID int) error {
	table := qualify(schema, "conversations")
	_, err := r.db.Exec(context.Background(),
		fmt.Sprintf("UPDATE %s SET unread=0 WHERE id=$1", table), convoID)
	return err
}

// AppendMessage stores a message and refreshes the conversation preview.
// Inbound messages bump the unread counter.
func (r *ConversationRepository) AppendMessage(schema string, convoID int, direction, content, mediaURL string) (*entities.Message, error) {
	msgTable := qualify(schema, "messages")
	convoTable := qualify(schema, "conversations")

	var m entities.Message
	err := r.db.QueryRow(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (conversation_id, direction, content, media_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, direction, content, media_url, created_at
	`, msgTable), convoID, direction, content, mediaURL).
		Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.MediaURL, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	unreadBump := 0
	if direction == "in" {
		unreadBump = 1
	}
	_, err = r.db.Exec(context.Background(), fmt.Sprintf(`
		UPDATE %s SET last_message=$1, last_message_at=$2, unread=unread+$3 WHERE id=$4
	`, convoTable), content, m.CreatedAt, unreadBump, convoID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ConversationRepository) GetMessages(schema string, convoID, limit int) ([]entities.Message, error) {
	table := qualify(schema, "messages")
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT id, conversation_id, direction, content, media_url, created_at
		FROM %s WHERE conversation_id=$1 ORDER BY created_at ASC LIMIT $2
	`, table), convoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.MediaURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// DueWaits returns conversations whose wait timer has expired.
func (r *ConversationRepository) DueWaits(schema string, now time.Time) ([]entities.Conversation, error) {
	table := qualify(schema, "conversations")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT %s FROM %s WHERE wait_until IS NOT NULL AND wait_until <= $1 AND status='active'
	`, conversationColumns, table), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convos := []entities.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convos = append(convos, *c)
	}
	return convos, nil
}

// PendingWaits returns every parked conversation, used to rehydrate timers
// after a restart.
func (r *ConversationRepository) PendingWaits(schema string) ([]entities.Conversation, error) {
	table := qualify(schema, "conversations")
	rows, err := r.db.Query(context.Background(), fmt.Sprintf(`
		SELECT %s FROM %s WHERE wait_until IS NOT NULL AND status='active'
	`, conversationColumns, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convos := []entities.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convos = append(convos, *c)
	}
	return convos, nil
}

// CountByStatus returns inbox bucket sizes for the dashboard.
func (r *ConversationRepository) CountByStatus(schema string) (map[string]int, error) {
	table := qualify(schema, "conversations")
	rows, err := r.db.Query(context.Background(),
		fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}
