package server

import (
	"brdflow/internal/domain"
	"brdflow/internal/engine"
)

// Request payloads

type ThreadRequest struct {
	Title        string `json:"title"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Participants string `json:"participants,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type CreateRequestRequest struct {
	ID        *string         `json:"id,omitempty"`
	ReqType   string          `json:"reqType,omitempty"`
	Title     string          `json:"title"`
	Owner     string          `json:"owner,omitempty"`
	Tenant    string          `json:"tenant,omitempty"`
	Priority  string          `json:"priority,omitempty"`
	Brief     string          `json:"brief"`
	Threads   []ThreadRequest `json:"threads,omitempty"`
	CreatedBy string          `json:"createdBy,omitempty"`
}

type ReviewRequest struct {
	Decision string `json:"decision" enum:"approved,changes_requested"`
	Comment  string `json:"comment,omitempty"`
}

type ReplyRequest struct {
	From string `json:"from" enum:"stakeholder,ba,it"`
	Text string `json:"text"`
}

type StageRequest struct {
	Status string `json:"status"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type FeasibilityDecisionRequest struct {
	Decision string `json:"decision" enum:"pending,feasible,needs_info,not_feasible"`
}

type FinancialDecisionRequest struct {
	Decision string `json:"decision" enum:"approved,disapproved"`
	Comment  string `json:"comment,omitempty"`
}

// Response payloads

type DocumentResponse struct {
	RequestID string `json:"requestId"`
	Version   string `json:"version"`
	Text      string `json:"text"`
}

type ITResponse struct {
	Workflow     domain.ITWorkflowState  `json:"workflow"`
	Feasibility  domain.FeasibilityState `json:"feasibility"`
	Percent      int                     `json:"percent"`
	CurrentStage domain.Stage            `json:"currentStage,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId,omitempty"`
	ActorID    string         `json:"actorId"`
	Payload    map[string]any `json:"payload"`
}

type paginatedRequests struct {
	Items []domain.StakeholderRequest `json:"items"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func threadFromRequest(t ThreadRequest) domain.ConversationThread {
	return domain.ConversationThread{
		Title:        t.Title,
		Date:         t.Date,
		Time:         t.Time,
		Participants: t.Participants,
		Transcript:   t.Transcript,
		Notes:        t.Notes,
	}
}

func itResponse(w domain.ITWorkflowState, f domain.FeasibilityState) ITResponse {
	resp := ITResponse{
		Workflow:    w,
		Feasibility: f,
		Percent:     engine.CompletionPercent(w),
	}
	if st, ok := engine.CurrentStage(w); ok {
		resp.CurrentStage = st
	}
	return resp
}

func eventResponse(e domain.Event) EventResponse {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    payload,
	}
}

func nonNilRequests(items []domain.StakeholderRequest) []domain.StakeholderRequest {
	if items == nil {
		return []domain.StakeholderRequest{}
	}
	return items
}
