package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"brdflow/internal/config"
	"brdflow/internal/domain"
	"brdflow/internal/events"
	"brdflow/internal/generate"
	"brdflow/internal/logger"
	"brdflow/internal/repo"
	"brdflow/internal/store"
)

var (
	ErrMissingDraft    = errors.New("request has no BRD draft")
	ErrInvalidDecision = errors.New("invalid decision")
)

// TransitionError reports a request status change outside the allowed set.
type TransitionError struct {
	From domain.RequestStatus
	To   domain.RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid request status transition %s -> %s", e.From, e.To)
}

type Engine struct {
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Now      func() time.Time
	Generate generate.Func
}

func New(s store.Store, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		Repo:     repo.Repo{Store: s},
		Events:   events.Writer{Store: s},
		Config:   cfg,
		Now:      time.Now,
		Generate: generate.Draft,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) appendEvent(ctx context.Context, evtType, entityID, actorID string, payload events.EventPayload) error {
	w := e.Events
	w.Now = e.now
	if _, err := w.Append(ctx, evtType, "request", entityID, actorID, payload); err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}

var requestTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.StatusNew:              {domain.StatusInProgress, domain.StatusGenerated},
	domain.StatusInProgress:       {domain.StatusInProgress, domain.StatusGenerated},
	domain.StatusGenerated:        {domain.StatusInProgress, domain.StatusGenerated, domain.StatusSent},
	domain.StatusSent:             {domain.StatusInProgress, domain.StatusGenerated, domain.StatusApproved, domain.StatusChangesRequested},
	domain.StatusChangesRequested: {domain.StatusInProgress, domain.StatusGenerated, domain.StatusSent},
	domain.StatusApproved:         {domain.StatusApproved, domain.StatusChangesRequested},
}

// ensureRequestTransition returns a *TransitionError when from -> to is not allowed.
func ensureRequestTransition(from, to domain.RequestStatus) error {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// RequestCreateOptions are parameters for creating a stakeholder request.
type RequestCreateOptions struct {
	ID        string
	ReqType   string
	Title     string
	Owner     string
	Tenant    string
	Priority  string
	Brief     string
	Threads   []domain.ConversationThread
	CreatedBy domain.Origin
	ActorID   string
}

func (e Engine) CreateRequest(ctx context.Context, opts RequestCreateOptions) (domain.StakeholderRequest, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.StakeholderRequest{}, errors.New("title is required")
	}
	if strings.TrimSpace(opts.Brief) == "" {
		return domain.StakeholderRequest{}, errors.New("brief is required")
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = domain.OriginStakeholder
	}
	if opts.CreatedBy != domain.OriginStakeholder && opts.CreatedBy != domain.OriginBA {
		return domain.StakeholderRequest{}, fmt.Errorf("unknown origin %q", opts.CreatedBy)
	}
	if opts.Priority == "" {
		opts.Priority = "P2"
	}
	now := e.timestamp()
	id := opts.ID
	if id == "" {
		existing, err := e.Repo.Requests(ctx)
		if err != nil {
			return domain.StakeholderRequest{}, err
		}
		seed := opts.Title + "|" + now + "|" + strconv.Itoa(len(existing))
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	threads := opts.Threads
	if threads == nil {
		threads = []domain.ConversationThread{}
	}
	for i := range threads {
		if threads[i].ID == "" {
			threads[i].ID = threadID(id, i+1)
		}
		if threads[i].Date == "" {
			threads[i].Date = now
		}
	}
	req := domain.StakeholderRequest{
		ID:        id,
		ReqType:   opts.ReqType,
		ReqTitle:  strings.TrimSpace(opts.Title),
		Owner:     opts.Owner,
		Tenant:    opts.Tenant,
		Priority:  opts.Priority,
		Brief:     strings.TrimSpace(opts.Brief),
		Threads:   threads,
		CreatedAt: now,
		CreatedBy: opts.CreatedBy,
		Status:    domain.StatusNew,
	}
	if err := e.Repo.InsertRequest(ctx, req); err != nil {
		return domain.StakeholderRequest{}, err
	}
	if err := e.appendEvent(ctx, "request.created", req.ID, opts.ActorID, events.EventPayload{
		"title": req.ReqTitle, "createdBy": string(req.CreatedBy), "status": string(req.Status),
	}); err != nil {
		return domain.StakeholderRequest{}, err
	}
	return req, nil
}

func threadID(requestID string, n int) string {
	return fmt.Sprintf("%s-msg-%d", requestID, n)
}

// Requests lists requests matching the filters.
func (e Engine) Requests(ctx context.Context, f repo.RequestFilters) ([]domain.StakeholderRequest, error) {
	return e.Repo.ListRequests(ctx, f)
}

// Request returns a single request or repo.ErrNotFound.
func (e Engine) Request(ctx context.Context, id string) (domain.StakeholderRequest, error) {
	return e.Repo.GetRequest(ctx, id)
}

// mutateRequest applies fn and records a request.status event when the
// status changed.
func (e Engine) mutateRequest(ctx context.Context, id, actorID string, fn func(*domain.StakeholderRequest) error) (domain.StakeholderRequest, error) {
	var from domain.RequestStatus
	updated, err := e.Repo.UpdateRequest(ctx, id, func(r *domain.StakeholderRequest) error {
		from = r.Status
		return fn(r)
	})
	if err != nil {
		return updated, err
	}
	if updated.Status != from {
		if err := e.appendEvent(ctx, "request.status", id, actorID, events.EventPayload{
			"from": string(from), "to": string(updated.Status),
		}); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// SaveDraft stores the BA's master data. Approved requests stay approved;
// everything else moves to in_progress.
func (e Engine) SaveDraft(ctx context.Context, id string, master domain.BRDMasterData, actorID string) (domain.StakeholderRequest, error) {
	req, err := e.mutateRequest(ctx, id, actorID, func(r *domain.StakeholderRequest) error {
		next := domain.StatusInProgress
		if r.Status == domain.StatusApproved {
			next = domain.StatusApproved
		}
		if err := ensureRequestTransition(r.Status, next); err != nil {
			return err
		}
		m := master
		r.BRDMaster = &m
		r.Status = next
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.draft", id, actorID, nil)
}

// GenerateDraft runs the generator over the stored draft, or a default draft
// seeded from the request, and marks the request generated.
func (e Engine) GenerateDraft(ctx context.Context, id, actorID string) (domain.StakeholderRequest, error) {
	gen := e.Generate
	if gen == nil {
		gen = generate.Draft
	}
	req, err := e.mutateRequest(ctx, id, actorID, func(r *domain.StakeholderRequest) error {
		if err := ensureRequestTransition(r.Status, domain.StatusGenerated); err != nil {
			return err
		}
		base := domain.DefaultMaster(*r)
		if r.BRDMaster != nil {
			base = *r.BRDMaster
		}
		out := gen(base)
		r.BRDMaster = &out
		r.Status = domain.StatusGenerated
		r.AIGeneratedAt = e.timestamp()
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.generated", id, actorID, events.EventPayload{"aiGeneratedAt": req.AIGeneratedAt})
}

// SendForReview hands the draft to the stakeholder.
func (e Engine) SendForReview(ctx context.Context, id, actorID string) (domain.StakeholderRequest, error) {
	req, err := e.mutateRequest(ctx, id, actorID, func(r *domain.StakeholderRequest) error {
		if r.BRDMaster == nil {
			return fmt.Errorf("send %s: %w", r.ID, ErrMissingDraft)
		}
		if err := ensureRequestTransition(r.Status, domain.StatusSent); err != nil {
			return err
		}
		r.Status = domain.StatusSent
		r.SentAt = e.timestamp()
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.sent", id, actorID, events.EventPayload{"sentAt": req.SentAt})
}

// RecordReview stores the stakeholder's verdict and comment.
func (e Engine) RecordReview(ctx context.Context, id string, decision domain.RequestStatus, comment, actorID string) (domain.StakeholderRequest, error) {
	if decision != domain.StatusApproved && decision != domain.StatusChangesRequested {
		return domain.StakeholderRequest{}, fmt.Errorf("review %q: %w", decision, ErrInvalidDecision)
	}
	req, err := e.mutateRequest(ctx, id, actorID, func(r *domain.StakeholderRequest) error {
		if err := ensureRequestTransition(r.Status, decision); err != nil {
			return err
		}
		r.Status = decision
		r.ReviewerComment = comment
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.review", id, actorID, events.EventPayload{
		"decision": string(decision), "comment": comment,
	})
}

// AddThread appends a discussion entry, filling id and date when blank.
func (e Engine) AddThread(ctx context.Context, id string, thread domain.ConversationThread, actorID string) (domain.StakeholderRequest, error) {
	if strings.TrimSpace(thread.Title) == "" {
		return domain.StakeholderRequest{}, errors.New("thread title is required")
	}
	req, err := e.Repo.UpdateRequest(ctx, id, func(r *domain.StakeholderRequest) error {
		appendThread(r, thread, e.timestamp())
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.thread", id, actorID, events.EventPayload{"title": thread.Title})
}

func appendThread(r *domain.StakeholderRequest, thread domain.ConversationThread, now string) {
	if thread.ID == "" {
		thread.ID = threadID(r.ID, len(r.Threads)+1)
	}
	if thread.Date == "" {
		thread.Date = now
	}
	r.Threads = append(r.Threads, thread)
}

// ReplyFrom names the team posting a follow-up message.
type ReplyFrom string

const (
	ReplyStakeholder ReplyFrom = "stakeholder"
	ReplyBA          ReplyFrom = "ba"
	ReplyIT          ReplyFrom = "it"
)

var replyThreads = map[ReplyFrom]domain.ConversationThread{
	ReplyStakeholder: {Title: "Stakeholder Follow-up", Participants: "Stakeholder Team"},
	ReplyBA:          {Title: "BA Follow-up", Participants: "BA Team"},
	ReplyIT:          {Title: "IT Feasibility Note", Participants: "IT Team"},
}

// Reply records a follow-up message. A BA reply reopens the draft unless
// the request is already approved.
func (e Engine) Reply(ctx context.Context, id string, from ReplyFrom, text, actorID string) (domain.StakeholderRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.StakeholderRequest{}, errors.New("reply text is required")
	}
	thread, ok := replyThreads[from]
	if !ok {
		return domain.StakeholderRequest{}, fmt.Errorf("unknown reply author %q", from)
	}
	thread.Notes = text
	req, err := e.mutateRequest(ctx, id, actorID, func(r *domain.StakeholderRequest) error {
		if from == ReplyBA && r.Status != domain.StatusApproved {
			if err := ensureRequestTransition(r.Status, domain.StatusInProgress); err != nil {
				return err
			}
			r.Status = domain.StatusInProgress
		}
		appendThread(r, thread, e.timestamp())
		return nil
	})
	if err != nil {
		return req, err
	}
	return req, e.appendEvent(ctx, "request.thread", id, actorID, events.EventPayload{"title": thread.Title})
}

// logNoop records a mutation skipped because its target is missing.
func logNoop(op, requestID, reason string) {
	logger.Debug("%s %s skipped: %s", op, requestID, reason)
}
