package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchingWorkflow() *Workflow {
	return &Workflow{
		Nodes: []Node{
			{ID: "t", Type: NodeTrigger},
			{ID: "c", Type: NodeCondition},
			{ID: "yes", Type: NodeMessage},
			{ID: "no", Type: NodeMessage},
		},
		Edges: []Edge{
			{Source: "t", Target: "c"},
			{Source: "c", Target: "yes", SourceHandle: "true"},
			{Source: "c", Target: "no", SourceHandle: "false"},
		},
	}
}

func TestNextNodeByHandle(t *testing.T) {
	wf := branchingWorkflow()

	next := wf.NextNode("c", "true")
	require.NotNil(t, next)
	assert.Equal(t, "yes", next.ID)

	next = wf.NextNode("c", "false")
	require.NotNil(t, next)
	assert.Equal(t, "no", next.ID)

	assert.Nil(t, wf.NextNode("c", "maybe"))
}

func TestNextNodeSingleEdgeFallback(t *testing.T) {
	wf := branchingWorkflow()

	// The trigger's only edge has no handle; "" follows it.
	next := wf.NextNode("t", "")
	require.NotNil(t, next)
	assert.Equal(t, "c", next.ID)

	// End of path.
	assert.Nil(t, wf.NextNode("yes", ""))
}

func TestTriggerNode(t *testing.T) {
	wf := branchingWorkflow()
	trigger := wf.TriggerNode()
	require.NotNil(t, trigger)
	assert.Equal(t, "t", trigger.ID)

	assert.Nil(t, (&Workflow{AIOnly: true}).TriggerNode())
}

func TestWaitDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, WaitData{Duration: 30, Unit: "seconds"}.WaitDuration())
	assert.Equal(t, 2*time.Hour, WaitData{Duration: 2, Unit: "hours"}.WaitDuration())
	assert.Equal(t, 5*time.Minute, WaitData{Duration: 5, Unit: "minutes"}.WaitDuration())
	// Unknown units read as minutes.
	assert.Equal(t, 5*time.Minute, WaitData{Duration: 5, Unit: "fortnights"}.WaitDuration())
}

func TestDecodeDataEmptyPayload(t *testing.T) {
	var d MessageData
	require.NoError(t, Node{ID: "n", Type: NodeMessage}.DecodeData(&d))
	assert.Empty(t, d.Text)
}
