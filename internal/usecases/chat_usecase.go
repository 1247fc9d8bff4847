package usecases

import (
	"fmt"
	"zapdesk/internal/entities"
	"zapdesk/internal/interfaces"
	"zapdesk/internal/repository"
)

// ChatUsecase backs the operator inbox: listing conversations by status,
// reading history and replying by hand.
type ChatUsecase struct {
	convos    *repository.ConversationRepository
	usage     *repository.UsageRepository
	senderFor func(userID int, schema string) interfaces.Messenger
}

func NewChatUsecase(convos *repository.ConversationRepository, usage *repository.UsageRepository, senderFor func(int, string) interfaces.Messenger) *ChatUsecase {
	return &ChatUsecase{convos: convos, usage: usage, senderFor: senderFor}
}

// Inbox groups conversations into the three dashboard buckets.
type Inbox struct {
	Active       []entities.Conversation `json:"active"`
	WaitingHuman []entities.Conversation `json:"waiting_human"`
	Closed       []entities.Conversation `json:"closed"`
}

func (u *ChatUsecase) GetInbox(schema string) (*Inbox, error) {
	inbox := &Inbox{}
	for _, b := range []struct {
		status string
		dst    *[]entities.Conversation
	}{
		{entities.ConversationActive, &inbox.Active},
		{entities.ConversationWaitingHuman, &inbox.WaitingHuman},
		{entities.ConversationClosed, &inbox.Closed},
	} {
		list, err := u.convos.ListByStatus(schema, b.status)
		if err != nil {
			return nil, err
		}
		*b.dst = list
	}
	return inbox, nil
}

// GetHistory returns a conversation's messages and clears its unread count.
func (u *ChatUsecase) GetHistory(schema string, convoID, limit int) ([]entities.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	msgs, err := u.convos.GetMessages(schema, convoID, limit)
	if err != nil {
		return nil, err
	}
	u.convos.MarkRead(schema, convoID)
	return msgs, nil
}

// SendManual delivers an operator-typed reply. Taking over a chat pauses any
// running workflow for it.
func (u *ChatUsecase) SendManual(schema string, userID, convoID int, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	convo, err := u.convos.GetByID(schema, convoID)
	if err != nil {
		return err
	}
	if convo == nil {
		return fmt.Errorf("conversation not found")
	}

	sender := u.senderFor(userID, schema)
	if sender == nil {
		return fmt.Errorf("whatsapp instance not connected")
	}
	if err := sender.SendMessage(convo.ContactPhone, text); err != nil {
		return fmt.Errorf("send to %s: %w", convo.ContactPhone, err)
	}

	// A manual reply means a human is driving this chat now.
	if convo.WorkflowID != "" {
		u.convos.ClearFlow(schema, convoID)
	}
	if convo.Status != entities.ConversationWaitingHuman {
		u.convos.SetStatus(schema, convoID, entities.ConversationWaitingHuman)
	}

	if _, err := u.convos.AppendMessage(schema, convoID, "out", text, ""); err != nil {
		return err
	}
	u.usage.IncrementSent(userID)
	return nil
}

// Close ends a conversation and drops its automation state.
func (u *ChatUsecase) Close(schema string, convoID int) error {
	if err := u.convos.SetStatus(schema, convoID, entities.ConversationClosed); err != nil {
		return err
	}
	return u.convos.ClearFlow(schema, convoID)
}

// Release hands a waiting_human conversation back to automation.
func (u *ChatUsecase) Release(schema string, convoID int) error {
	return u.convos.SetStatus(schema, convoID, entities.ConversationActive)
}

// Counts returns conversation totals per status for the dashboard.
func (u *ChatUsecase) Counts(schema string) (map[string]int, error) {
	return u.convos.CountByStatus(schema)
}
