package entities

import (
	"encoding/json"
	"time"
)

// Node types supported by the automation editor and the engine.
const (
	NodeTrigger         = "trigger"
	NodeMessage         = "message"
	NodeWait            = "wait"
	NodeQuestionnaire   = "questionnaire"
	NodeAI              = "ai"
	NodeCondition       = "condition"
	NodeTransferToHuman = "transfer_to_human"
	NodeCloseChat       = "close_chat"
)

// Workflow is a named automation graph owned by a tenant. Manual workflows
// carry a node graph; AI-only workflows carry a business profile instead.
type Workflow struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Trigger         string          `json:"trigger"`
	Active          bool            `json:"active"`
	AIOnly          bool            `json:"is_ai_only"`
	BusinessProfile json.RawMessage `json:"business_profile,omitempty"`
	Nodes           []Node          `json:"nodes"`
	Edges           []Edge          `json:"edges"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Node is one typed step in a manual workflow. Data holds the type-specific
// payload exactly as the editor saved it.
type Node struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge connects two nodes. SourceHandle distinguishes outputs of branching
// nodes (questionnaire options, condition true/false).
type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Typed node payloads. Decoded from Node.Data on demand.

type MessageData struct {
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

type WaitData struct {
	Duration int    `json:"duration"`
	Unit     string `json:"unit"` // seconds, minutes, hours
}

type QuestionnaireData struct {
	Question string   `json:"question"`
	Variable string   `json:"variable,omitempty"`
	Options  []string `json:"options"`
}

type AIData struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

type ConditionData struct {
	Variable   string `json:"variable"`
	Operator   string `json:"operator"` // eq, neq, contains, gt, lt
	Value      string `json:"value"`
	TrueLabel  string `json:"true_label,omitempty"`
	FalseLabel string `json:"false_label,omitempty"`
}

// DecodeData unmarshals the node payload into out.
func (n Node) DecodeData(out interface{}) error {
	if len(n.Data) == 0 {
		return nil
	}
	return json.Unmarshal(n.Data, out)
}

// FindNode returns the node with the given id, or nil.
func (w *Workflow) FindNode(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// TriggerNode returns the first trigger node, or nil for AI-only graphs.
func (w *Workflow) TriggerNode() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Type == NodeTrigger {
			return &w.Nodes[i]
		}
	}
	return nil
}

// EdgesFrom returns all edges whose source is the given node.
func (w *Workflow) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// NextNode follows the edge out of nodeID matching handle ("" matches an
// edge without a source handle). Returns nil when the path ends.
func (w *Workflow) NextNode(nodeID, handle string) *Node {
	for _, e := range w.Edges {
		if e.Source != nodeID {
			continue
		}
		if e.SourceHandle == handle || (handle == "" && e.SourceHandle == "") {
			return w.FindNode(e.Target)
		}
	}
	// Fall back to the only outgoing edge when the handle doesn't match,
	// so single-output nodes don't depend on editor handle naming.
	edges := w.EdgesFrom(nodeID)
	if handle == "" && len(edges) == 1 {
		return w.FindNode(edges[0].Target)
	}
	return nil
}

// WaitDuration converts the wait payload into a time.Duration. Unknown units
// are treated as minutes.
func (d WaitData) WaitDuration() time.Duration {
	switch d.Unit {
	case "seconds":
		return time.Duration(d.Duration) * time.Second
	case "hours":
		return time.Duration(d.Duration) * time.Hour
	default:
		return time.Duration(d.Duration) * time.Minute
	}
}
