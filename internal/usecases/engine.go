package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"zapdesk/internal/entities"
	"zapdesk/internal/infrastructure"
	"zapdesk/internal/interfaces"
	"zapdesk/internal/repository"

	"go.uber.org/zap"
)

// maxStepsPerMessage bounds how many non-blocking nodes one inbound message
// may traverse, so a miswired graph cannot loop forever.
const maxStepsPerMessage = 20

// Storage surfaces the engine steps through. The repository types are the
// production implementations.

type ConversationStore interface {
	GetOrCreate(schema, phone, name string) (*entities.Conversation, error)
	GetByID(schema string, id int) (*entities.Conversation, error)
	AppendMessage(schema string, convoID int, direction, content, mediaURL string) (*entities.Message, error)
	SetStatus(schema string, convoID int, status string) error
	ClearFlow(schema string, convoID int) error
	UpdateFlowState(schema string, convoID int, workflowID, currentNode string, vars map[string]string, aiMode bool, waitUntil *time.Time) error
	PendingWaits(schema string) ([]entities.Conversation, error)
}

type WorkflowStore interface {
	GetByID(schema, id string) (*entities.Workflow, error)
	GetActive(schema string) ([]entities.Workflow, error)
}

type SettingsReader interface {
	Get(schema, key string) (string, error)
}

type UsageRecorder interface {
	IncrementSent(userID int) error
	IncrementReceived(userID int) error
	RecordAICall(userID, tokens int) error
	CanSendMessage(userID int, dailyLimit, monthlyLimit int) (bool, string)
}

type UserReader interface {
	GetByID(id int) (*entities.User, error)
}

// Engine walks workflow graphs against incoming WhatsApp messages and keeps
// per-contact conversation state.
type Engine struct {
	workflows WorkflowStore
	convos    ConversationStore
	clients   ClientStore
	settings  SettingsReader
	usage     UsageRecorder
	users     UserReader

	ai       interfaces.AIClient
	bus      *infrastructure.EventBus
	sessions *infrastructure.SessionManager
	limiter  *infrastructure.MessageRateLimiter
	log      *zap.Logger

	// SenderFor resolves the outbound transport for a tenant. Wired by main
	// to the WhatsApp manager (with Cloud API fallback).
	SenderFor func(userID int, schema string) interfaces.Messenger

	mu     sync.Mutex
	timers map[string]*time.Timer // schema/convoID -> pending wait timer
}

func NewEngine(
	workflows WorkflowStore,
	convos ConversationStore,
	clients ClientStore,
	settings SettingsReader,
	usage UsageRecorder,
	users UserReader,
	ai interfaces.AIClient,
	bus *infrastructure.EventBus,
	log *zap.Logger,
) *Engine {
	return &Engine{
		workflows: workflows,
		convos:    convos,
		clients:   clients,
		settings:  settings,
		usage:     usage,
		users:     users,
		ai:        ai,
		bus:       bus,
		sessions:  infrastructure.NewSessionManager(),
		limiter:   infrastructure.NewMessageRateLimiter(1, 5),
		log:       log,
		timers:    make(map[string]*time.Timer),
	}
}

// flowState carries everything a graph step needs.
type flowState struct {
	schema string
	userID int
	convo  *entities.Conversation
	wf     *entities.Workflow
	vars   map[string]string
	sender interfaces.Messenger
}

// HandleInbound is the entry point for every message a tenant instance
// receives. Safe to call from the whatsmeow event goroutine.
func (e *Engine) HandleInbound(msg entities.InboundMessage) {
	session := e.sessions.GetOrCreateSession(msg.SchemaName, msg.From)
	if !session.TryAcquire() {
		// A step for this contact is still running; record the message so
		// the inbox doesn't lose it, but skip automation.
		if convo, err := e.convos.GetOrCreate(msg.SchemaName, msg.From, msg.PushName); err == nil {
			e.convos.AppendMessage(msg.SchemaName, convo.ID, "in", msg.Content, "")
		}
		return
	}
	defer session.Release()

	if err := e.processInbound(msg); err != nil {
		e.log.Error("inbound processing failed",
			zap.String("schema", msg.SchemaName),
			zap.String("contact", msg.From),
			zap.Error(err))
	}
}

func (e *Engine) processInbound(msg entities.InboundMessage) error {
	schema := msg.SchemaName

	if _, err := e.clients.UpsertByPhone(schema, msg.From, msg.PushName); err != nil {
		e.log.Warn("client upsert failed", zap.String("schema", schema), zap.Error(err))
	}

	convo, err := e.convos.GetOrCreate(schema, msg.From, msg.PushName)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	isNew := convo.LastMessage == ""

	if _, err := e.convos.AppendMessage(schema, convo.ID, "in", msg.Content, ""); err != nil {
		return fmt.Errorf("store inbound message: %w", err)
	}
	e.usage.IncrementReceived(msg.UserID)

	switch convo.Status {
	case entities.ConversationWaitingHuman:
		// A human owns this chat; automation stays out.
		return nil
	case entities.ConversationClosed:
		// A new message reopens the chat with a clean automation slate.
		if err := e.convos.SetStatus(schema, convo.ID, entities.ConversationActive); err != nil {
			return err
		}
		e.convos.ClearFlow(schema, convo.ID)
		convo.Status = entities.ConversationActive
		convo.WorkflowID = ""
		convo.CurrentNode = ""
		convo.AIMode = false
		convo.WaitUntil = nil
	}

	sender := e.senderFor(msg.UserID, schema)
	if sender == nil {
		return fmt.Errorf("no outbound transport for user %d", msg.UserID)
	}

	st := &flowState{
		schema: schema,
		userID: msg.UserID,
		convo:  convo,
		vars:   convo.Vars(),
		sender: sender,
	}

	// Resume a running flow first.
	if convo.WorkflowID != "" {
		wf, err := e.workflows.GetByID(schema, convo.WorkflowID)
		if err != nil {
			return err
		}
		if wf == nil || !wf.Active {
			e.convos.ClearFlow(schema, convo.ID)
		} else {
			st.wf = wf
			if convo.WaitUntil != nil {
				// Parked on a wait node; the timer will resume it.
				return nil
			}
			if convo.AIMode {
				return e.aiTurn(st, msg.Content)
			}
			if convo.CurrentNode != "" {
				return e.resumeAt(st, msg.Content)
			}
		}
	}

	// No running flow: match a trigger.
	wf := e.matchTrigger(schema, msg.Content)
	if wf == nil {
		return e.sendFallback(st, isNew)
	}
	st.wf = wf

	e.publish(infrastructure.AutomationEvent{
		Type: infrastructure.EventFlowStarted, Schema: schema, UserID: msg.UserID,
		Contact: convo.ContactPhone, WorkflowID: wf.ID,
	})

	if wf.AIOnly {
		if err := e.convos.UpdateFlowState(schema, convo.ID, wf.ID, "", st.vars, true, nil); err != nil {
			return err
		}
		st.convo.AIMode = true
		return e.aiTurn(st, msg.Content)
	}

	trigger := wf.TriggerNode()
	if trigger == nil {
		return fmt.Errorf("workflow %s has no trigger node", wf.ID)
	}
	return e.runFrom(st, wf.NextNode(trigger.ID, ""))
}

func (e *Engine) matchTrigger(schema, content string) *entities.Workflow {
	workflows, err := e.workflows.GetActive(schema)
	if err != nil {
		e.log.Warn("list active workflows failed", zap.String("schema", schema), zap.Error(err))
		return nil
	}
	return PickWorkflow(workflows, content)
}

// PickWorkflow picks the workflow a message should start. Exact keyword
// match wins over substring match; AI-only workflows without a keyword
// catch anything left over.
func PickWorkflow(workflows []entities.Workflow, content string) *entities.Workflow {
	text := strings.ToLower(strings.TrimSpace(content))
	var contains *entities.Workflow
	var catchAll *entities.Workflow

	for i := range workflows {
		w := &workflows[i]
		keyword := strings.ToLower(strings.TrimSpace(w.Trigger))
		if keyword == "" {
			if w.AIOnly && catchAll == nil {
				catchAll = w
			}
			continue
		}
		if text == keyword {
			return w
		}
		if contains == nil && strings.Contains(text, keyword) {
			contains = w
		}
	}
	if contains != nil {
		return contains
	}
	return catchAll
}

// resumeAt handles a reply while parked on a blocking node (questionnaire).
func (e *Engine) resumeAt(st *flowState, reply string) error {
	node := st.wf.FindNode(st.convo.CurrentNode)
	if node == nil {
		e.convos.ClearFlow(st.schema, st.convo.ID)
		return nil
	}

	if node.Type != entities.NodeQuestionnaire {
		// Shouldn't happen: only questionnaires park without a wait timer.
		return e.runFrom(st, node)
	}

	var d entities.QuestionnaireData
	if err := node.DecodeData(&d); err != nil {
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	idx := matchOption(d.Options, reply)
	if idx < 0 {
		return e.sendText(st, "Por favor, responda com o número de uma das opções.", "")
	}

	varName := d.Variable
	if varName == "" {
		varName = node.ID
	}
	st.vars[varName] = d.Options[idx]

	next := nextForOption(st.wf, node.ID, idx, d.Options[idx])
	return e.runFrom(st, next)
}

// matchOption resolves a reply against questionnaire options by number
// (1-based) or by option text.
func matchOption(options []string, reply string) int {
	reply = strings.TrimSpace(reply)
	if n, err := strconv.Atoi(reply); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1
		}
		return -1
	}
	lower := strings.ToLower(reply)
	for i, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt)) == lower {
			return i
		}
	}
	return -1
}

// nextForOption tries the handle spellings editors produce for option
// branches before falling back to the node's single outgoing edge.
func nextForOption(wf *entities.Workflow, nodeID string, idx int, option string) *entities.Node {
	for _, handle := range []string{
		fmt.Sprintf("option-%d", idx),
		strconv.Itoa(idx),
		option,
	} {
		if n := wf.NextNode(nodeID, handle); n != nil {
			return n
		}
	}
	return wf.NextNode(nodeID, "")
}

// runFrom executes nodes until the flow blocks or ends.
func (e *Engine) runFrom(st *flowState, node *entities.Node) error {
	for steps := 0; steps < maxStepsPerMessage; steps++ {
		if node == nil {
			return e.finishFlow(st)
		}

		switch node.Type {
		case entities.NodeTrigger:
			node = st.wf.NextNode(node.ID, "")

		case entities.NodeMessage:
			var d entities.MessageData
			if err := node.DecodeData(&d); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
			if err := e.sendText(st, renderTemplate(d.Text, st), d.MediaURL); err != nil {
				return err
			}
			node = st.wf.NextNode(node.ID, "")

		case entities.NodeWait:
			var d entities.WaitData
			if err := node.DecodeData(&d); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
			until := time.Now().Add(d.WaitDuration())
			if err := e.convos.UpdateFlowState(st.schema, st.convo.ID, st.wf.ID, node.ID, st.vars, false, &until); err != nil {
				return err
			}
			e.scheduleWait(st.schema, st.userID, st.convo.ID, until)
			return nil

		case entities.NodeQuestionnaire:
			var d entities.QuestionnaireData
			if err := node.DecodeData(&d); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
			var sb strings.Builder
			sb.WriteString(renderTemplate(d.Question, st))
			for i, opt := range d.Options {
				sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
			}
			if err := e.sendText(st, sb.String(), ""); err != nil {
				return err
			}
			return e.convos.UpdateFlowState(st.schema, st.convo.ID, st.wf.ID, node.ID, st.vars, false, nil)

		case entities.NodeCondition:
			var d entities.ConditionData
			if err := node.DecodeData(&d); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
			if EvaluateCondition(d, st.vars) {
				node = st.wf.NextNode(node.ID, "true")
			} else {
				node = st.wf.NextNode(node.ID, "false")
			}

		case entities.NodeAI:
			var d entities.AIData
			if err := node.DecodeData(&d); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
			if err := e.aiNodeTurn(st, node.ID, d); err != nil {
				return err
			}
			node = st.wf.NextNode(node.ID, "")

		case entities.NodeTransferToHuman:
			if err := e.convos.SetStatus(st.schema, st.convo.ID, entities.ConversationWaitingHuman); err != nil {
				return err
			}
			e.convos.ClearFlow(st.schema, st.convo.ID)
			e.publish(infrastructure.AutomationEvent{
				Type: infrastructure.EventTransferred, Schema: st.schema, UserID: st.userID,
				Contact: st.convo.ContactPhone, WorkflowID: st.wf.ID, NodeID: node.ID,
				Detail: st.wf.Name,
			})
			return nil

		case entities.NodeCloseChat:
			if err := e.convos.SetStatus(st.schema, st.convo.ID, entities.ConversationClosed); err != nil {
				return err
			}
			e.convos.ClearFlow(st.schema, st.convo.ID)
			e.publish(infrastructure.AutomationEvent{
				Type: infrastructure.EventChatClosed, Schema: st.schema, UserID: st.userID,
				Contact: st.convo.ContactPhone, WorkflowID: st.wf.ID, NodeID: node.ID,
			})
			return nil

		default:
			return fmt.Errorf("node %s: unknown type %q", node.ID, node.Type)
		}
	}
	return fmt.Errorf("workflow %s exceeded %d steps for one message", st.wf.ID, maxStepsPerMessage)
}

// finishFlow clears automation state when the graph path ends.
func (e *Engine) finishFlow(st *flowState) error {
	if err := e.convos.ClearFlow(st.schema, st.convo.ID); err != nil {
		return err
	}
	e.publish(infrastructure.AutomationEvent{
		Type: infrastructure.EventFlowFinished, Schema: st.schema, UserID: st.userID,
		Contact: st.convo.ContactPhone, WorkflowID: st.wf.ID,
	})
	return nil
}

// EvaluateCondition applies a structured condition against collected
// variables. gt/lt compare numerically and fail closed on parse errors.
func EvaluateCondition(d entities.ConditionData, vars map[string]string) bool {
	val := vars[d.Variable]
	switch d.Operator {
	case "eq":
		return strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(d.Value))
	case "neq":
		return !strings.EqualFold(strings.TrimSpace(val), strings.TrimSpace(d.Value))
	case "contains":
		return strings.Contains(strings.ToLower(val), strings.ToLower(d.Value))
	case "gt":
		a, errA := strconv.ParseFloat(strings.TrimSpace(val), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
		return errA == nil && errB == nil && a > b
	case "lt":
		a, errA := strconv.ParseFloat(strings.TrimSpace(val), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
		return errA == nil && errB == nil && a < b
	}
	return false
}

// renderTemplate substitutes {name} and {variable} placeholders.
func renderTemplate(text string, st *flowState) string {
	out := strings.ReplaceAll(text, "{name}", st.convo.ContactName)
	for k, v := range st.vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// aiNodeTurn runs one manual-workflow AI node.
func (e *Engine) aiNodeTurn(st *flowState, nodeID string, d entities.AIData) error {
	if e.ai == nil {
		return fmt.Errorf("ai client not configured")
	}
	system := d.SystemPrompt
	if system == "" {
		system, _ = e.settings.Get(st.schema, repository.SettingAISystemPrompt)
	}
	reply, tokens, err := e.ai.ChatCompletion(context.Background(), system, renderTemplate(d.Prompt, st), d.Temperature, d.MaxTokens)
	if err != nil {
		return fmt.Errorf("ai node %s: %w", nodeID, err)
	}
	e.usage.RecordAICall(st.userID, tokens)
	e.publish(infrastructure.AutomationEvent{
		Type: infrastructure.EventAICompleted, Schema: st.schema, UserID: st.userID,
		Contact: st.convo.ContactPhone, WorkflowID: st.wf.ID, NodeID: nodeID,
	})
	return e.sendText(st, reply, "")
}

// aiTurn handles one exchange of an AI-only conversation. The business
// profile JSON becomes the system prompt context.
func (e *Engine) aiTurn(st *flowState, content string) error {
	if e.ai == nil {
		return fmt.Errorf("ai client not configured")
	}
	system, _ := e.settings.Get(st.schema, repository.SettingAISystemPrompt)
	if len(st.wf.BusinessProfile) > 0 {
		system = strings.TrimSpace(system + "\n\nBusiness profile:\n" + string(st.wf.BusinessProfile))
	}

	reply, tokens, err := e.ai.ChatCompletion(context.Background(), system, content, 0.7, 500)
	if err != nil {
		return fmt.Errorf("ai conversation: %w", err)
	}
	e.usage.RecordAICall(st.userID, tokens)
	e.publish(infrastructure.AutomationEvent{
		Type: infrastructure.EventAICompleted, Schema: st.schema, UserID: st.userID,
		Contact: st.convo.ContactPhone, WorkflowID: st.wf.ID,
	})
	return e.sendText(st, reply, "")
}

// sendFallback answers messages no workflow claimed.
func (e *Engine) sendFallback(st *flowState, isNew bool) error {
	if isNew {
		if welcome, _ := e.settings.Get(st.schema, repository.SettingWelcomeMessage); welcome != "" {
			return e.sendText(st, welcome, "")
		}
	}
	if fallback, _ := e.settings.Get(st.schema, repository.SettingDefaultReply); fallback != "" {
		return e.sendText(st, fallback, "")
	}
	return nil
}

// sendText delivers one outbound message, honoring quota and rate limits.
func (e *Engine) sendText(st *flowState, text, mediaURL string) error {
	if text == "" && mediaURL == "" {
		return nil
	}

	if user, err := e.users.GetByID(st.userID); err == nil && user != nil {
		if ok, reason := e.usage.CanSendMessage(st.userID, user.DailyLimit, user.MonthlyLimit); !ok {
			return fmt.Errorf("quota exceeded: %s", reason)
		}
	}

	if !e.limiter.Allow(st.userID) {
		wait := e.limiter.WaitTime(st.userID)
		if wait > 3*time.Second {
			wait = 3 * time.Second
		}
		time.Sleep(wait)
	}

	body := text
	if mediaURL != "" {
		if body != "" {
			body += "\n"
		}
		body += mediaURL
	}

	if err := st.sender.SendMessage(st.convo.ContactPhone, body); err != nil {
		return fmt.Errorf("send to %s: %w", st.convo.ContactPhone, err)
	}

	e.convos.AppendMessage(st.schema, st.convo.ID, "out", text, mediaURL)
	e.usage.IncrementSent(st.userID)
	e.publish(infrastructure.AutomationEvent{
		Type: infrastructure.EventMessageSent, Schema: st.schema, UserID: st.userID,
		Contact: st.convo.ContactPhone,
	})
	return nil
}

func (e *Engine) senderFor(userID int, schema string) interfaces.Messenger {
	if e.SenderFor == nil {
		return nil
	}
	return e.SenderFor(userID, schema)
}

func (e *Engine) publish(evt infrastructure.AutomationEvent) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(evt); err != nil {
		e.log.Warn("event publish failed", zap.String("type", evt.Type), zap.Error(err))
	}
}

// scheduleWait arms (or rearms) the timer resuming a parked conversation.
func (e *Engine) scheduleWait(schema string, userID, convoID int, until time.Time) {
	key := fmt.Sprintf("%s/%d", schema, convoID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if t, exists := e.timers[key]; exists {
		t.Stop()
	}
	delay := time.Until(until)
	if delay < 0 {
		delay = 0
	}
	e.timers[key] = time.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.timers, key)
		e.mu.Unlock()
		e.resumeWait(schema, userID, convoID)
	})
}

// resumeWait continues a conversation whose wait expired.
func (e *Engine) resumeWait(schema string, userID, convoID int) {
	convo, err := e.convos.GetByID(schema, convoID)
	if err != nil || convo == nil || convo.WaitUntil == nil || convo.WorkflowID == "" {
		return
	}
	if convo.Status != entities.ConversationActive {
		return
	}

	wf, err := e.workflows.GetByID(schema, convo.WorkflowID)
	if err != nil || wf == nil || !wf.Active {
		e.convos.ClearFlow(schema, convoID)
		return
	}

	sender := e.senderFor(userID, schema)
	if sender == nil {
		e.log.Warn("wait resume without transport",
			zap.String("schema", schema), zap.Int("user", userID))
		return
	}

	// Unpark before stepping so a crash mid-step doesn't loop the timer.
	if err := e.convos.UpdateFlowState(schema, convoID, wf.ID, convo.CurrentNode, convo.Vars(), false, nil); err != nil {
		return
	}

	st := &flowState{
		schema: schema,
		userID: userID,
		convo:  convo,
		wf:     wf,
		vars:   convo.Vars(),
		sender: sender,
	}

	node := wf.FindNode(convo.CurrentNode)
	if node == nil {
		e.convos.ClearFlow(schema, convoID)
		return
	}
	if err := e.runFrom(st, wf.NextNode(node.ID, "")); err != nil {
		e.log.Error("wait resume failed",
			zap.String("schema", schema), zap.Int("conversation", convoID), zap.Error(err))
	}
}

// RestoreWaits rehydrates wait timers for a tenant after a restart.
func (e *Engine) RestoreWaits(schema string, userID int) {
	pending, err := e.convos.PendingWaits(schema)
	if err != nil {
		e.log.Warn("restore waits failed", zap.String("schema", schema), zap.Error(err))
		return
	}
	for _, c := range pending {
		if c.WaitUntil != nil {
			e.scheduleWait(schema, userID, c.ID, *c.WaitUntil)
		}
	}
}
