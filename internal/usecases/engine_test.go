package usecases

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
	"zapdesk/internal/entities"
	"zapdesk/internal/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func wfWithTrigger(id, trigger string, aiOnly bool) entities.Workflow {
	return entities.Workflow{ID: id, Trigger: trigger, Active: true, AIOnly: aiOnly}
}

func TestPickWorkflowExactBeatsContains(t *testing.T) {
	workflows := []entities.Workflow{
		wfWithTrigger("contains", "menu", false),
		wfWithTrigger("exact", "menu completo", false),
	}

	got := PickWorkflow(workflows, "Menu Completo")
	require.NotNil(t, got)
	assert.Equal(t, "exact", got.ID)
}

func TestPickWorkflowContains(t *testing.T) {
	workflows := []entities.Workflow{
		wfWithTrigger("agendar", "agendar", false),
	}

	got := PickWorkflow(workflows, "quero agendar um horário")
	require.NotNil(t, got)
	assert.Equal(t, "agendar", got.ID)
}

func TestPickWorkflowAIOnlyCatchAll(t *testing.T) {
	workflows := []entities.Workflow{
		wfWithTrigger("kw", "pedido", false),
		wfWithTrigger("ai", "", true),
	}

	got := PickWorkflow(workflows, "bom dia, tudo bem?")
	require.NotNil(t, got)
	assert.Equal(t, "ai", got.ID)
}

func TestPickWorkflowNoMatch(t *testing.T) {
	workflows := []entities.Workflow{
		wfWithTrigger("kw", "pedido", false),
	}
	assert.Nil(t, PickWorkflow(workflows, "bom dia"))
}

func TestEvaluateCondition(t *testing.T) {
	vars := map[string]string{
		"plano": "Premium",
		"idade": "25",
	}

	tests := []struct {
		name string
		cond entities.ConditionData
		want bool
	}{
		{"eq case-insensitive", entities.ConditionData{Variable: "plano", Operator: "eq", Value: "premium"}, true},
		{"eq mismatch", entities.ConditionData{Variable: "plano", Operator: "eq", Value: "basic"}, false},
		{"neq", entities.ConditionData{Variable: "plano", Operator: "neq", Value: "basic"}, true},
		{"contains", entities.ConditionData{Variable: "plano", Operator: "contains", Value: "prem"}, true},
		{"gt true", entities.ConditionData{Variable: "idade", Operator: "gt", Value: "18"}, true},
		{"gt false", entities.ConditionData{Variable: "idade", Operator: "gt", Value: "30"}, false},
		{"lt", entities.ConditionData{Variable: "idade", Operator: "lt", Value: "30"}, true},
		{"gt non-numeric fails closed", entities.ConditionData{Variable: "plano", Operator: "gt", Value: "10"}, false},
		{"missing variable", entities.ConditionData{Variable: "nope", Operator: "eq", Value: "x"}, false},
		{"unknown operator", entities.ConditionData{Variable: "plano", Operator: "matches", Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.cond, vars))
		})
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Corte", "Barba", "Corte e Barba"}

	assert.Equal(t, 0, matchOption(options, "1"))
	assert.Equal(t, 2, matchOption(options, "3"))
	assert.Equal(t, -1, matchOption(options, "4"))
	assert.Equal(t, -1, matchOption(options, "0"))
	assert.Equal(t, 1, matchOption(options, "barba"))
	assert.Equal(t, 2, matchOption(options, " corte e barba "))
	assert.Equal(t, -1, matchOption(options, "sobrancelha"))
}

func TestNextForOptionHandles(t *testing.T) {
	wf := &entities.Workflow{
		Nodes: []entities.Node{
			{ID: "q", Type: entities.NodeQuestionnaire},
			{ID: "a", Type: entities.NodeMessage},
			{ID: "b", Type: entities.NodeMessage},
		},
		Edges: []entities.Edge{
			{Source: "q", Target: "a", SourceHandle: "option-0"},
			{Source: "q", Target: "b", SourceHandle: "option-1"},
		},
	}

	next := nextForOption(wf, "q", 1, "Barba")
	require.NotNil(t, next)
	assert.Equal(t, "b", next.ID)
}

func TestNextForOptionSingleEdgeFallback(t *testing.T) {
	wf := &entities.Workflow{
		Nodes: []entities.Node{
			{ID: "q", Type: entities.NodeQuestionnaire},
			{ID: "next", Type: entities.NodeMessage},
		},
		Edges: []entities.Edge{
			{Source: "q", Target: "next"},
		},
	}

	next := nextForOption(wf, "q", 0, "Sim")
	require.NotNil(t, next)
	assert.Equal(t, "next", next.ID)
}

func TestRenderTemplate(t *testing.T) {
	st := &flowState{
		convo: &entities.Conversation{ContactName: "Maria"},
		vars:  map[string]string{"servico": "Corte"},
	}

	out := renderTemplate("Olá {name}, confirmando seu {servico}.", st)
	assert.Equal(t, "Olá Maria, confirmando seu Corte.", out)

	out = renderTemplate("sem placeholders", st)
	assert.Equal(t, "sem placeholders", out)
}

func TestQuestionnairePayloadRoundTrip(t *testing.T) {
	raw, err := json.Marshal(entities.QuestionnaireData{
		Question: "Qual serviço?",
		Variable: "servico",
		Options:  []string{"Corte", "Barba"},
	})
	require.NoError(t, err)

	node := entities.Node{ID: "q1", Type: entities.NodeQuestionnaire, Data: raw}
	var d entities.QuestionnaireData
	require.NoError(t, node.DecodeData(&d))
	assert.Equal(t, "servico", d.Variable)
	assert.Len(t, d.Options, 2)
}

// --- wait scheduling and step budget ---

type fakeConvoStore struct {
	mu      sync.Mutex
	convo   *entities.Conversation
	pending []entities.Conversation
}

func (f *fakeConvoStore) GetOrCreate(schema, phone, name string) (*entities.Conversation, error) {
	return f.convo, nil
}

func (f *fakeConvoStore) GetByID(schema string, id int) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convo == nil || f.convo.ID != id {
		return nil, nil
	}
	cp := *f.convo
	return &cp, nil
}

func (f *fakeConvoStore) AppendMessage(schema string, convoID int, direction, content, mediaURL string) (*entities.Message, error) {
	return &entities.Message{Direction: direction, Content: content}, nil
}

func (f *fakeConvoStore) SetStatus(schema string, convoID int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convo != nil {
		f.convo.Status = status
	}
	return nil
}

func (f *fakeConvoStore) ClearFlow(schema string, convoID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convo != nil {
		f.convo.WorkflowID = ""
		f.convo.CurrentNode = ""
		f.convo.WaitUntil = nil
		f.convo.AIMode = false
	}
	return nil
}

func (f *fakeConvoStore) UpdateFlowState(schema string, convoID int, workflowID, currentNode string, vars map[string]string, aiMode bool, waitUntil *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convo != nil {
		f.convo.WorkflowID = workflowID
		f.convo.CurrentNode = currentNode
		f.convo.AIMode = aiMode
		f.convo.WaitUntil = waitUntil
	}
	return nil
}

func (f *fakeConvoStore) PendingWaits(schema string) ([]entities.Conversation, error) {
	return f.pending, nil
}

type fakeWorkflowStore struct {
	wf *entities.Workflow
}

func (f *fakeWorkflowStore) GetByID(schema, id string) (*entities.Workflow, error) {
	return f.wf, nil
}

func (f *fakeWorkflowStore) GetActive(schema string) ([]entities.Workflow, error) {
	if f.wf == nil {
		return nil, nil
	}
	return []entities.Workflow{*f.wf}, nil
}

type fakeSettings struct{}

func (fakeSettings) Get(schema, key string) (string, error) { return "", nil }

type fakeUsage struct {
	mu   sync.Mutex
	sent int
}

func (f *fakeUsage) IncrementSent(userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return nil
}

func (f *fakeUsage) IncrementReceived(userID int) error    { return nil }
func (f *fakeUsage) RecordAICall(userID, tokens int) error { return nil }
func (f *fakeUsage) CanSendMessage(userID, dailyLimit, monthlyLimit int) (bool, string) {
	return true, ""
}

type fakeUsers struct{}

func (fakeUsers) GetByID(id int) (*entities.User, error) { return nil, nil }

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) SendMessage(to, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestEngine(convos *fakeConvoStore, wf *entities.Workflow) (*Engine, *fakeMessenger) {
	sender := &fakeMessenger{}
	e := NewEngine(&fakeWorkflowStore{wf: wf}, convos, fakeClientStore{}, fakeSettings{},
		&fakeUsage{}, fakeUsers{}, nil, nil, zap.NewNop())
	e.SenderFor = func(userID int, schema string) interfaces.Messenger { return sender }
	return e, sender
}

func waitMessageWorkflow() *entities.Workflow {
	waitData, _ := json.Marshal(entities.WaitData{Duration: 0, Unit: "seconds"})
	msgData, _ := json.Marshal(entities.MessageData{Text: "voltamos!"})
	return &entities.Workflow{
		ID: "wf-wait", Name: "Espera", Active: true,
		Nodes: []entities.Node{
			{ID: "t", Type: entities.NodeTrigger},
			{ID: "w", Type: entities.NodeWait, Data: waitData},
			{ID: "m", Type: entities.NodeMessage, Data: msgData},
		},
		Edges: []entities.Edge{
			{Source: "t", Target: "w"},
			{Source: "w", Target: "m"},
		},
	}
}

func TestWaitNodeParksThenTimerResumes(t *testing.T) {
	wf := waitMessageWorkflow()
	convos := &fakeConvoStore{convo: &entities.Conversation{
		ID: 7, ContactPhone: "+5511988887777", Status: entities.ConversationActive,
	}}
	e, sender := newTestEngine(convos, wf)

	st := &flowState{
		schema: "tenant_1", userID: 1,
		convo: convos.convo, wf: wf,
		vars:   map[string]string{},
		sender: sender,
	}
	require.NoError(t, e.runFrom(st, wf.FindNode("w")))

	// The timer fires, unparks the conversation and delivers the next node.
	assert.Eventually(t, func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "voltamos!", sender.sent[0])

	convo, _ := convos.GetByID("tenant_1", 7)
	assert.Nil(t, convo.WaitUntil)
}

func TestScheduleWaitRearmsExistingTimer(t *testing.T) {
	convos := &fakeConvoStore{}
	e, _ := newTestEngine(convos, nil)

	until := time.Now().Add(time.Hour)
	e.scheduleWait("tenant_1", 1, 42, until)
	e.scheduleWait("tenant_1", 1, 42, until.Add(time.Hour))

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.timers, 1)
	timer, ok := e.timers["tenant_1/42"]
	require.True(t, ok)
	timer.Stop()
}

func TestRestoreWaitsRearmsPendingTimers(t *testing.T) {
	until := time.Now().Add(time.Hour)
	convos := &fakeConvoStore{pending: []entities.Conversation{
		{ID: 5, WaitUntil: &until},
		{ID: 9, WaitUntil: &until},
		{ID: 11}, // no wait recorded, must be skipped
	}}
	e, _ := newTestEngine(convos, nil)

	e.RestoreWaits("tenant_1", 1)

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.timers, 2)
	for _, key := range []string{"tenant_1/5", "tenant_1/9"} {
		timer, ok := e.timers[key]
		require.True(t, ok, key)
		timer.Stop()
	}
}

func loopingWorkflow() *entities.Workflow {
	condData, _ := json.Marshal(entities.ConditionData{Variable: "x", Operator: "eq", Value: "1"})
	return &entities.Workflow{
		ID: "wf-loop", Name: "Laço", Active: true,
		Nodes: []entities.Node{
			{ID: "t", Type: entities.NodeTrigger},
			{ID: "c", Type: entities.NodeCondition, Data: condData},
		},
		Edges: []entities.Edge{
			{Source: "t", Target: "c"},
			{Source: "c", Target: "c", SourceHandle: "true"},
		},
	}
}

func TestRunFromStopsCyclicGraphAtStepBudget(t *testing.T) {
	wf := loopingWorkflow()
	convos := &fakeConvoStore{convo: &entities.Conversation{ID: 3, ContactPhone: "+5511"}}
	e, _ := newTestEngine(convos, wf)

	st := &flowState{
		schema: "tenant_1", userID: 1,
		convo: convos.convo, wf: wf,
		vars: map[string]string{"x": "1"},
	}
	err := e.runFrom(st, wf.FindNode("c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded")
}
