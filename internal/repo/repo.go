package repo

import (
	"context"
	"errors"
	"fmt"

	"brdflow/internal/domain"
	"brdflow/internal/events"
	"brdflow/internal/store"
)

// Persisted collection keys.
const (
	RequestsKey    = "allRequests"
	FeasibilityKey = "itFeasibilityState"
	WorkflowKey    = "itWorkflowState"
)

var ErrNotFound = errors.New("not found")

// Repo reads and writes whole collections through the store adapter.
type Repo struct {
	Store store.Store
}

// RequestFilters narrows ListRequests; zero values match everything.
type RequestFilters struct {
	Origin domain.Origin
	Status domain.RequestStatus
}

func (r Repo) Requests(ctx context.Context) ([]domain.StakeholderRequest, error) {
	return store.Load(ctx, r.Store, RequestsKey, []domain.StakeholderRequest{})
}

func (r Repo) SaveRequests(ctx context.Context, requests []domain.StakeholderRequest) error {
	if requests == nil {
		requests = []domain.StakeholderRequest{}
	}
	return store.Save(ctx, r.Store, RequestsKey, requests)
}

func (r Repo) ListRequests(ctx context.Context, f RequestFilters) ([]domain.StakeholderRequest, error) {
	all, err := r.Requests(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]domain.StakeholderRequest, 0, len(all))
	for _, req := range all {
		if f.Origin != "" && originOf(req) != f.Origin {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		res = append(res, req)
	}
	return res, nil
}

// originOf treats records without createdBy as stakeholder submissions.
func originOf(req domain.StakeholderRequest) domain.Origin {
	if req.CreatedBy == "" {
		return domain.OriginStakeholder
	}
	return req.CreatedBy
}

func (r Repo) GetRequest(ctx context.Context, id string) (domain.StakeholderRequest, error) {
	all, err := r.Requests(ctx)
	if err != nil {
		return domain.StakeholderRequest{}, err
	}
	for _, req := range all {
		if req.ID == id {
			return req, nil
		}
	}
	return domain.StakeholderRequest{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
}

func (r Repo) InsertRequest(ctx context.Context, req domain.StakeholderRequest) error {
	all, err := r.Requests(ctx)
	if err != nil {
		return err
	}
	for _, existing := range all {
		if existing.ID == req.ID {
			return fmt.Errorf("request %s already exists", req.ID)
		}
	}
	return r.SaveRequests(ctx, append(all, req))
}

// UpdateRequest applies fn to the stored request and writes the collection
// back. fn returning an error aborts without writing.
func (r Repo) UpdateRequest(ctx context.Context, id string, fn func(*domain.StakeholderRequest) error) (domain.StakeholderRequest, error) {
	all, err := r.Requests(ctx)
	if err != nil {
		return domain.StakeholderRequest{}, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if err := fn(&all[i]); err != nil {
			return all[i], err
		}
		if err := r.SaveRequests(ctx, all); err != nil {
			return all[i], err
		}
		return all[i], nil
	}
	return domain.StakeholderRequest{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
}

func (r Repo) FeasibilityMap(ctx context.Context) (map[string]domain.FeasibilityState, error) {
	m, err := store.Load(ctx, r.Store, FeasibilityKey, map[string]domain.FeasibilityState{})
	if err != nil {
		return nil, err
	}
	for id, st := range m {
		if st.RequestID == "" {
			st.RequestID = id
			m[id] = st
		}
	}
	return m, nil
}

func (r Repo) GetFeasibility(ctx context.Context, requestID string) (domain.FeasibilityState, error) {
	m, err := r.FeasibilityMap(ctx)
	if err != nil {
		return domain.FeasibilityState{}, err
	}
	st, ok := m[requestID]
	if !ok {
		return domain.FeasibilityState{}, fmt.Errorf("feasibility %s: %w", requestID, ErrNotFound)
	}
	return st, nil
}

func (r Repo) PutFeasibility(ctx context.Context, st domain.FeasibilityState) error {
	m, err := r.FeasibilityMap(ctx)
	if err != nil {
		return err
	}
	m[st.RequestID] = st
	return store.Save(ctx, r.Store, FeasibilityKey, m)
}

func (r Repo) WorkflowMap(ctx context.Context) (map[string]domain.ITWorkflowState, error) {
	m, err := store.Load(ctx, r.Store, WorkflowKey, map[string]domain.ITWorkflowState{})
	if err != nil {
		return nil, err
	}
	for id, w := range m {
		w.Normalize()
		if w.RequestID == "" {
			w.RequestID = id
		}
		m[id] = w
	}
	return m, nil
}

func (r Repo) GetWorkflow(ctx context.Context, requestID string) (domain.ITWorkflowState, error) {
	m, err := r.WorkflowMap(ctx)
	if err != nil {
		return domain.ITWorkflowState{}, err
	}
	w, ok := m[requestID]
	if !ok {
		return domain.ITWorkflowState{}, fmt.Errorf("workflow %s: %w", requestID, ErrNotFound)
	}
	return w, nil
}

func (r Repo) PutWorkflow(ctx context.Context, w domain.ITWorkflowState) error {
	m, err := r.WorkflowMap(ctx)
	if err != nil {
		return err
	}
	m[w.RequestID] = w
	return store.Save(ctx, r.Store, WorkflowKey, m)
}

// LatestEvents returns up to n most recent events, newest last.
func (r Repo) LatestEvents(ctx context.Context, n int, evtType, entityID string) ([]domain.Event, error) {
	log, err := store.Load(ctx, r.Store, events.Key, []domain.Event{})
	if err != nil {
		return nil, err
	}
	var res []domain.Event
	for _, evt := range log {
		if evtType != "" && evt.Type != evtType {
			continue
		}
		if entityID != "" && evt.EntityID != entityID {
			continue
		}
		res = append(res, evt)
	}
	if n > 0 && len(res) > n {
		res = res[len(res)-n:]
	}
	return res, nil
}

// EventsAfter returns up to limit events with id greater than cursor.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	log, err := store.Load(ctx, r.Store, events.Key, []domain.Event{})
	if err != nil {
		return nil, err
	}
	var res []domain.Event
	for _, evt := range log {
		if evt.ID <= cursor {
			continue
		}
		res = append(res, evt)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

// LatestEventID returns the id of the newest event, or 0.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	log, err := store.Load(ctx, r.Store, events.Key, []domain.Event{})
	if err != nil {
		return 0, err
	}
	if len(log) == 0 {
		return 0, nil
	}
	return log[len(log)-1].ID, nil
}
