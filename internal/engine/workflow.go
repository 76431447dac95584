package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brdflow/internal/domain"
	"brdflow/internal/events"
	"brdflow/internal/repo"
)

var (
	ErrNotApproved        = errors.New("request is not approved for IT review")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrInvalidStageStatus = errors.New("invalid stage status")
)

// Transition is the effect of one IT decision: the stage statuses it sets,
// the request status it forces (empty leaves the request status alone) and
// the thread wording it records.
type Transition struct {
	Stages        map[domain.Stage]domain.StageStatus
	RequestStatus domain.RequestStatus
	Message       string
}

// FeasibilityTransitions maps each feasibility decision to its effect.
var FeasibilityTransitions = map[domain.FeasibilityStatus]Transition{
	domain.FeasibilityFeasible: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageITReview:            domain.StageDone,
			domain.StageInternalFeasibility: domain.StageDone,
			domain.StageFinalCostApproval:   domain.StageInProgress,
		},
		Message: "IT feasibility confirmed. BRD moves to final cost approval.",
	},
	domain.FeasibilityNeedsInfo: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageITReview:            domain.StageDone,
			domain.StageInternalFeasibility: domain.StageInProgress,
			domain.StageFinalCostApproval:   domain.StageNotStarted,
		},
		Message: "IT needs more information before confirming feasibility.",
	},
	domain.FeasibilityNotFeasible: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageITReview:            domain.StageDone,
			domain.StageInternalFeasibility: domain.StageDone,
			domain.StageFinalCostApproval:   domain.StageNotStarted,
			domain.StageBAFollowUp:          domain.StageInProgress,
		},
		RequestStatus: domain.StatusChangesRequested,
		Message:       "IT marked this BRD as not feasible. Changes requested from BA.",
	},
	domain.FeasibilityPending: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageITReview:            domain.StageDone,
			domain.StageInternalFeasibility: domain.StageInProgress,
			domain.StageFinalCostApproval:   domain.StageNotStarted,
		},
		Message: "IT feasibility review reset to pending.",
	},
}

// FinancialTransitions maps each financial head decision to its effect.
var FinancialTransitions = map[domain.FinancialDecision]Transition{
	domain.FinancialApproved: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageFinalCostApproval: domain.StageDone,
			domain.StageTimelineShared:    domain.StageInProgress,
			domain.StageBAFollowUp:        domain.StageNotStarted,
		},
		Message: "Financial head approved the final cost. Timeline sharing can begin.",
	},
	domain.FinancialDisapproved: {
		Stages: map[domain.Stage]domain.StageStatus{
			domain.StageFinalCostApproval: domain.StageDone,
			domain.StageTimelineShared:    domain.StageNotStarted,
			domain.StageBAFollowUp:        domain.StageInProgress,
		},
		RequestStatus: domain.StatusChangesRequested,
		Message:       "Financial head disapproved the final cost. BA follow-up required.",
	},
}

// itRecords is the request together with its satellite IT records.
type itRecords struct {
	request     domain.StakeholderRequest
	workflow    domain.ITWorkflowState
	feasibility domain.FeasibilityState
	created     bool
}

// loadIT returns the IT records of a request, creating the defaults for an
// approved request seen for the first time. ok is false when the request is
// missing or not eligible.
func (e Engine) loadIT(ctx context.Context, requestID string) (itRecords, bool, error) {
	req, err := e.Repo.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return itRecords{}, false, nil
		}
		return itRecords{}, false, err
	}
	rec := itRecords{request: req}
	w, err := e.Repo.GetWorkflow(ctx, requestID)
	switch {
	case err == nil:
		rec.workflow = w
	case errors.Is(err, repo.ErrNotFound):
		if req.Status != domain.StatusApproved {
			return rec, false, nil
		}
		rec.workflow = domain.DefaultWorkflow(requestID)
		rec.created = true
	default:
		return itRecords{}, false, err
	}
	f, err := e.Repo.GetFeasibility(ctx, requestID)
	switch {
	case err == nil:
		rec.feasibility = f
	case errors.Is(err, repo.ErrNotFound):
		rec.feasibility = domain.DefaultFeasibility(requestID)
		rec.created = true
	default:
		return itRecords{}, false, err
	}
	return rec, true, nil
}

func (e Engine) saveIT(ctx context.Context, rec itRecords) error {
	if err := e.Repo.PutWorkflow(ctx, rec.workflow); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	if err := e.Repo.PutFeasibility(ctx, rec.feasibility); err != nil {
		return fmt.Errorf("save feasibility: %w", err)
	}
	return nil
}

// InitWorkflow returns the workflow of an approved request, creating the
// default workflow and feasibility records on first use. Existing records
// are never overwritten.
func (e Engine) InitWorkflow(ctx context.Context, requestID, actorID string) (domain.ITWorkflowState, error) {
	if _, err := e.Repo.GetRequest(ctx, requestID); err != nil {
		return domain.ITWorkflowState{}, err
	}
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return domain.ITWorkflowState{}, err
	}
	if !ok {
		return domain.ITWorkflowState{}, fmt.Errorf("init workflow %s: %w", requestID, ErrNotApproved)
	}
	if rec.created {
		if err := e.saveIT(ctx, rec); err != nil {
			return domain.ITWorkflowState{}, err
		}
		if err := e.appendEvent(ctx, "it.init", requestID, actorID, nil); err != nil {
			return domain.ITWorkflowState{}, err
		}
	}
	return rec.workflow, nil
}

// Workflow reads the stored workflow without creating it.
func (e Engine) Workflow(ctx context.Context, requestID string) (domain.ITWorkflowState, error) {
	return e.Repo.GetWorkflow(ctx, requestID)
}

// Feasibility reads the stored feasibility record without creating it.
func (e Engine) Feasibility(ctx context.Context, requestID string) (domain.FeasibilityState, error) {
	return e.Repo.GetFeasibility(ctx, requestID)
}

// SetStage overrides one stage status. Stage order is not enforced.
func (e Engine) SetStage(ctx context.Context, requestID string, stage domain.Stage, status domain.StageStatus, actorID string) error {
	if !domain.ValidStage(stage) {
		return fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}
	if !domain.ValidStageStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStageStatus, status)
	}
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("set stage", requestID, "request missing or not approved")
		return nil
	}
	rec.workflow.Stages[stage] = status
	if err := e.saveIT(ctx, rec); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.stage", requestID, actorID, events.EventPayload{
		"stage": string(stage), "status": string(status),
	})
}

// SetFeasibilityNotes stores IT's free-text notes, later quoted in the
// feasibility decision thread.
func (e Engine) SetFeasibilityNotes(ctx context.Context, requestID, notes, actorID string) error {
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("set feasibility notes", requestID, "request missing or not approved")
		return nil
	}
	rec.feasibility.Notes = notes
	if err := e.saveIT(ctx, rec); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.notes", requestID, actorID, nil)
}

func (e Engine) SetTimeline(ctx context.Context, requestID, text, actorID string) error {
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("set timeline", requestID, "request missing or not approved")
		return nil
	}
	rec.workflow.Timeline = text
	if err := e.saveIT(ctx, rec); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.timeline", requestID, actorID, nil)
}

func (e Engine) SetSitNotes(ctx context.Context, requestID, notes, actorID string) error {
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("set sit notes", requestID, "request missing or not approved")
		return nil
	}
	rec.workflow.SitNotes = notes
	if err := e.saveIT(ctx, rec); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.sit", requestID, actorID, nil)
}

// RecordFeasibilityDecision applies IT's verdict to the workflow stages, the
// feasibility record and the request thread.
func (e Engine) RecordFeasibilityDecision(ctx context.Context, requestID string, decision domain.FeasibilityStatus, actorID string) error {
	t, ok := FeasibilityTransitions[decision]
	if !ok {
		return fmt.Errorf("feasibility %q: %w", decision, ErrInvalidDecision)
	}
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("feasibility decision", requestID, "request missing or not approved")
		return nil
	}
	rec.feasibility.Status = decision
	rec.feasibility.UpdatedAt = e.timestamp()
	text := t.Message
	if notes := strings.TrimSpace(rec.feasibility.Notes); notes != "" {
		text += "\nNotes: " + notes
	}
	thread := domain.ConversationThread{Title: "IT Feasibility Decision", Participants: "IT Team", Notes: text}
	if err := e.applyTransition(ctx, rec, t, thread, actorID); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.feasibility", requestID, actorID, events.EventPayload{"decision": string(decision)})
}

// RecordFinancialDecision applies the financial head's verdict. It does not
// check that final_cost_approval is in progress.
func (e Engine) RecordFinancialDecision(ctx context.Context, requestID string, decision domain.FinancialDecision, comment, actorID string) error {
	t, ok := FinancialTransitions[decision]
	if !ok {
		return fmt.Errorf("financial %q: %w", decision, ErrInvalidDecision)
	}
	rec, ok, err := e.loadIT(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		logNoop("financial decision", requestID, "request missing or not approved")
		return nil
	}
	text := t.Message
	if c := strings.TrimSpace(comment); c != "" {
		text += "\nComment: " + c
	}
	thread := domain.ConversationThread{Title: "Financial Head Decision", Participants: "Financial Head", Notes: text}
	if err := e.applyTransition(ctx, rec, t, thread, actorID); err != nil {
		return err
	}
	return e.appendEvent(ctx, "it.financial", requestID, actorID, events.EventPayload{
		"decision": string(decision), "comment": comment,
	})
}

// applyTransition writes the stage delta, then appends the thread and
// propagates the request status. IT decisions may send a request back to
// changes_requested from any status.
func (e Engine) applyTransition(ctx context.Context, rec itRecords, t Transition, thread domain.ConversationThread, actorID string) error {
	for stage, status := range t.Stages {
		rec.workflow.Stages[stage] = status
	}
	if err := e.saveIT(ctx, rec); err != nil {
		return err
	}
	_, err := e.mutateRequest(ctx, rec.request.ID, actorID, func(r *domain.StakeholderRequest) error {
		appendThread(r, thread, e.timestamp())
		if t.RequestStatus == "" {
			return nil
		}
		r.Status = t.RequestStatus
		r.ReviewerComment = thread.Notes
		return nil
	})
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}
