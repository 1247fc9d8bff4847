package usecases

import (
	"errors"
	"fmt"
	"strings"
	"zapdesk/internal/entities"
	"zapdesk/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrTriggerTaken = errors.New("trigger keyword already used by an active workflow")
	ErrInvalidGraph = errors.New("invalid workflow graph")
)

type WorkflowUsecase struct {
	repo *repository.WorkflowRepository
}

func NewWorkflowUsecase(repo *repository.WorkflowRepository) *WorkflowUsecase {
	return &WorkflowUsecase{repo: repo}
}

// ValidateGraph enforces the structural rules the editor leaves implicit:
// exactly one trigger node on manual workflows, edges referencing existing
// nodes, unique branch handles per node, and sane node payloads.
func ValidateGraph(w *entities.Workflow) error {
	if w.AIOnly {
		// AI-only workflows carry no graph; a leftover one is ignored but a
		// malformed one is still rejected below when present.
		if len(w.Nodes) == 0 {
			return nil
		}
	}

	nodeIDs := make(map[string]bool, len(w.Nodes))
	triggers := 0
	for _, n := range w.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node without id")
		}
		if nodeIDs[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		nodeIDs[n.ID] = true

		switch n.Type {
		case entities.NodeTrigger:
			triggers++
		case entities.NodeMessage:
			var d entities.MessageData
			if err := n.DecodeData(&d); err != nil {
				return fmt.Errorf("node %q: invalid message payload: %w", n.ID, err)
			}
			if strings.TrimSpace(d.Text) == "" && d.MediaURL == "" {
				return fmt.Errorf("node %q: message node needs text or media", n.ID)
			}
		case entities.NodeWait:
			var d entities.WaitData
			if err := n.DecodeData(&d); err != nil {
				return fmt.Errorf("node %q: invalid wait payload: %w", n.ID, err)
			}
			if d.Duration <= 0 {
				return fmt.Errorf("node %q: wait duration must be positive", n.ID)
			}
		case entities.NodeQuestionnaire:
			var d entities.QuestionnaireData
			if err := n.DecodeData(&d); err != nil {
				return fmt.Errorf("node %q: invalid questionnaire payload: %w", n.ID, err)
			}
			if strings.TrimSpace(d.Question) == "" {
				return fmt.Errorf("node %q: questionnaire needs a question", n.ID)
			}
			if len(d.Options) == 0 {
				return fmt.Errorf("node %q: questionnaire needs options", n.ID)
			}
		case entities.NodeCondition:
			var d entities.ConditionData
			if err := n.DecodeData(&d); err != nil {
				return fmt.Errorf("node %q: invalid condition payload: %w", n.ID, err)
			}
			if d.Variable == "" {
				return fmt.Errorf("node %q: condition needs a variable", n.ID)
			}
			switch d.Operator {
			case "eq", "neq", "contains", "gt", "lt":
			default:
				return fmt.Errorf("node %q: unknown condition operator %q", n.ID, d.Operator)
			}
		case entities.NodeAI:
			var d entities.AIData
			if err := n.DecodeData(&d); err != nil {
				return fmt.Errorf("node %q: invalid ai payload: %w", n.ID, err)
			}
		case entities.NodeTransferToHuman, entities.NodeCloseChat:
			// no payload
		default:
			return fmt.Errorf("node %q: unknown type %q", n.ID, n.Type)
		}
	}

	if !w.AIOnly && triggers != 1 {
		return fmt.Errorf("manual workflow must have exactly one trigger node, found %d", triggers)
	}

	handles := make(map[string]bool)
	for _, e := range w.Edges {
		if !nodeIDs[e.Source] {
			return fmt.Errorf("edge references unknown source node %q", e.Source)
		}
		if !nodeIDs[e.Target] {
			return fmt.Errorf("edge references unknown target node %q", e.Target)
		}
		key := e.Source + "#" + e.SourceHandle
		if handles[key] {
			return fmt.Errorf("node %q: duplicate branch handle %q", e.Source, e.SourceHandle)
		}
		handles[key] = true
	}

	if !w.AIOnly && w.Active && strings.TrimSpace(w.Trigger) == "" {
		return fmt.Errorf("active manual workflow needs a trigger keyword")
	}

	return nil
}

func (uc *WorkflowUsecase) Create(schema string, w *entities.Workflow) error {
	if err := ValidateGraph(w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	if w.Active {
		taken, err := uc.repo.TriggerInUse(schema, w.Trigger, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrTriggerTaken
		}
	}
	w.ID = uuid.NewString()
	return uc.repo.Create(schema, w)
}

func (uc *WorkflowUsecase) Update(schema string, w *entities.Workflow) error {
	if err := ValidateGraph(w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	if w.Active {
		taken, err := uc.repo.TriggerInUse(schema, w.Trigger, w.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrTriggerTaken
		}
	}
	return uc.repo.Update(schema, w)
}

func (uc *WorkflowUsecase) SetActive(schema, id string, active bool) error {
	w, err := uc.repo.GetByID(schema, id)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("workflow not found")
	}
	if active {
		w.Active = true
		if err := ValidateGraph(w); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
		}
		taken, err := uc.repo.TriggerInUse(schema, w.Trigger, w.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrTriggerTaken
		}
	}
	return uc.repo.SetActive(schema, id, active)
}

func (uc *WorkflowUsecase) Get(schema, id string) (*entities.Workflow, error) {
	return uc.repo.GetByID(schema, id)
}

func (uc *WorkflowUsecase) List(schema string) ([]entities.Workflow, error) {
	return uc.repo.GetAll(schema)
}

func (uc *WorkflowUsecase) Delete(schema, id string) error {
	return uc.repo.Delete(schema, id)
}
