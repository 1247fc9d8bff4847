package usecases

import (
	"encoding/json"
	"testing"
	"zapdesk/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func validManualWorkflow(t *testing.T) *entities.Workflow {
	return &entities.Workflow{
		Name:    "Boas-vindas",
		Trigger: "oi",
		Active:  true,
		Nodes: []entities.Node{
			{ID: "t", Type: entities.NodeTrigger},
			{ID: "m", Type: entities.NodeMessage, Data: mustJSON(t, entities.MessageData{Text: "Olá!"})},
		},
		Edges: []entities.Edge{
			{Source: "t", Target: "m"},
		},
	}
}

func TestValidateGraphOK(t *testing.T) {
	assert.NoError(t, ValidateGraph(validManualWorkflow(t)))
}

func TestValidateGraphAIOnlyWithoutNodes(t *testing.T) {
	wf := &entities.Workflow{Name: "Atendente IA", AIOnly: true, Active: true}
	assert.NoError(t, ValidateGraph(wf))
}

func TestValidateGraphManualNeedsOneTrigger(t *testing.T) {
	wf := validManualWorkflow(t)
	wf.Nodes = wf.Nodes[1:] // drop the trigger
	wf.Edges = nil
	err := ValidateGraph(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one trigger")

	wf2 := validManualWorkflow(t)
	wf2.Nodes = append(wf2.Nodes, entities.Node{ID: "t2", Type: entities.NodeTrigger})
	assert.Error(t, ValidateGraph(wf2))
}

func TestValidateGraphDuplicateNodeID(t *testing.T) {
	wf := validManualWorkflow(t)
	wf.Nodes = append(wf.Nodes, entities.Node{ID: "m", Type: entities.NodeTransferToHuman})
	err := ValidateGraph(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestValidateGraphEdgeToUnknownNode(t *testing.T) {
	wf := validManualWorkflow(t)
	wf.Edges = append(wf.Edges, entities.Edge{Source: "m", Target: "ghost"})
	err := ValidateGraph(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestValidateGraphDuplicateBranchHandle(t *testing.T) {
	wf := validManualWorkflow(t)
	wf.Nodes = append(wf.Nodes,
		entities.Node{ID: "q", Type: entities.NodeQuestionnaire,
			Data: mustJSON(t, entities.QuestionnaireData{Question: "?", Options: []string{"a", "b"}})},
		entities.Node{ID: "x", Type: entities.NodeCloseChat},
	)
	wf.Edges = append(wf.Edges,
		entities.Edge{Source: "q", Target: "m", SourceHandle: "option-0"},
		entities.Edge{Source: "q", Target: "x", SourceHandle: "option-0"},
	)
	err := ValidateGraph(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate branch handle")
}

func TestValidateGraphPayloads(t *testing.T) {
	tests := []struct {
		name string
		node entities.Node
		want string
	}{
		{
			"empty message",
			entities.Node{ID: "n", Type: entities.NodeMessage, Data: mustJSON(t, entities.MessageData{})},
			"needs text or media",
		},
		{
			"zero wait",
			entities.Node{ID: "n", Type: entities.NodeWait, Data: mustJSON(t, entities.WaitData{Duration: 0, Unit: "minutes"})},
			"duration must be positive",
		},
		{
			"questionnaire without options",
			entities.Node{ID: "n", Type: entities.NodeQuestionnaire, Data: mustJSON(t, entities.QuestionnaireData{Question: "?"})},
			"needs options",
		},
		{
			"condition bad operator",
			entities.Node{ID: "n", Type: entities.NodeCondition, Data: mustJSON(t, entities.ConditionData{Variable: "v", Operator: "regex"})},
			"unknown condition operator",
		},
		{
			"unknown node type",
			entities.Node{ID: "n", Type: "teleport"},
			"unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := validManualWorkflow(t)
			wf.Nodes = append(wf.Nodes, tt.node)
			err := ValidateGraph(wf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateGraphActiveManualNeedsKeyword(t *testing.T) {
	wf := validManualWorkflow(t)
	wf.Trigger = "  "
	err := ValidateGraph(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger keyword")

	// Inactive drafts may stay keywordless.
	wf.Active = false
	assert.NoError(t, ValidateGraph(wf))
}
