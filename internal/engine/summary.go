package engine

import (
	"context"
	"math"

	"brdflow/internal/domain"
)

// CompletionPercent is the share of done stages, rounded to the nearest
// whole percent.
func CompletionPercent(w domain.ITWorkflowState) int {
	done := 0
	for _, st := range domain.Stages {
		if w.Stages[st] == domain.StageDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(domain.Stages)) * 100))
}

// CurrentStage is the first in-progress stage, or uat_delivery once it is
// done.
func CurrentStage(w domain.ITWorkflowState) (domain.Stage, bool) {
	for _, st := range domain.Stages {
		if w.Stages[st] == domain.StageInProgress {
			return st, true
		}
	}
	if w.Stages[domain.StageUATDelivery] == domain.StageDone {
		return domain.StageUATDelivery, true
	}
	return "", false
}

func anyInProgress(w domain.ITWorkflowState) bool {
	for _, st := range domain.Stages {
		if w.Stages[st] == domain.StageInProgress {
			return true
		}
	}
	return false
}

type ProgressRow struct {
	RequestID    string       `json:"requestId"`
	Title        string       `json:"title"`
	CurrentStage domain.Stage `json:"currentStage,omitempty"`
	Percent      int          `json:"percent"`
}

type Summary struct {
	Approved       int                              `json:"approved"`
	Feasibility    map[domain.FeasibilityStatus]int `json:"feasibility"`
	InProgress     int                              `json:"inProgress"`
	Delivered      int                              `json:"delivered"`
	FinancialQueue []string                         `json:"financialQueue"`
	Progress       []ProgressRow                    `json:"progress"`
}

// Summarize computes the IT dashboard over approved requests and any request
// that already has a workflow record.
func Summarize(requests []domain.StakeholderRequest, feasibility map[string]domain.FeasibilityState, workflows map[string]domain.ITWorkflowState) Summary {
	s := Summary{
		Feasibility:    make(map[domain.FeasibilityStatus]int, len(domain.FeasibilityStatuses)),
		FinancialQueue: []string{},
		Progress:       []ProgressRow{},
	}
	for _, st := range domain.FeasibilityStatuses {
		s.Feasibility[st] = 0
	}
	for _, req := range requests {
		w, hasWorkflow := workflows[req.ID]
		approved := req.Status == domain.StatusApproved
		if approved {
			s.Approved++
		}
		if !approved && !hasWorkflow {
			continue
		}
		f, ok := feasibility[req.ID]
		status := domain.FeasibilityPending
		if ok && f.Status != "" {
			status = f.Status
		}
		s.Feasibility[status]++
		if !hasWorkflow {
			w = domain.DefaultWorkflow(req.ID)
		}
		w.Normalize()
		if anyInProgress(w) {
			s.InProgress++
		}
		if w.Stages[domain.StageUATDelivery] == domain.StageDone {
			s.Delivered++
		}
		if status == domain.FeasibilityFeasible && w.Stages[domain.StageFinalCostApproval] == domain.StageInProgress {
			s.FinancialQueue = append(s.FinancialQueue, req.ID)
		}
		row := ProgressRow{RequestID: req.ID, Title: req.ReqTitle, Percent: CompletionPercent(w)}
		if st, ok := CurrentStage(w); ok {
			row.CurrentStage = st
		}
		s.Progress = append(s.Progress, row)
	}
	return s
}

// Summary loads all collections and summarizes them.
func (e Engine) Summary(ctx context.Context) (Summary, error) {
	requests, err := e.Repo.Requests(ctx)
	if err != nil {
		return Summary{}, err
	}
	feasibility, err := e.Repo.FeasibilityMap(ctx)
	if err != nil {
		return Summary{}, err
	}
	workflows, err := e.Repo.WorkflowMap(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(requests, feasibility, workflows), nil
}
