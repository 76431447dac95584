package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdflow/internal/domain"
	"brdflow/internal/events"
	"brdflow/internal/repo"
	"brdflow/internal/store"
)

func TestRequestsRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{Store: store.NewMemory()}

	all, err := r.Requests(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, r.InsertRequest(ctx, domain.StakeholderRequest{ID: "a", Status: domain.StatusNew, CreatedBy: domain.OriginStakeholder}))
	require.NoError(t, r.InsertRequest(ctx, domain.StakeholderRequest{ID: "b", Status: domain.StatusSent, CreatedBy: domain.OriginBA}))
	require.Error(t, r.InsertRequest(ctx, domain.StakeholderRequest{ID: "a"}))

	got, err := r.GetRequest(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)

	_, err = r.GetRequest(ctx, "zzz")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	updated, err := r.UpdateRequest(ctx, "a", func(req *domain.StakeholderRequest) error {
		req.Status = domain.StatusInProgress
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	_, err = r.UpdateRequest(ctx, "zzz", func(*domain.StakeholderRequest) error { return nil })
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestListRequestsFilters(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{Store: store.NewMemory()}
	require.NoError(t, r.SaveRequests(ctx, []domain.StakeholderRequest{
		{ID: "a", Status: domain.StatusNew},
		{ID: "b", Status: domain.StatusSent, CreatedBy: domain.OriginBA},
		{ID: "c", Status: domain.StatusSent, CreatedBy: domain.OriginStakeholder},
	}))

	stakeholder, err := r.ListRequests(ctx, repo.RequestFilters{Origin: domain.OriginStakeholder})
	require.NoError(t, err)
	assert.Len(t, stakeholder, 2)

	sent, err := r.ListRequests(ctx, repo.RequestFilters{Status: domain.StatusSent})
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	both, err := r.ListRequests(ctx, repo.RequestFilters{Origin: domain.OriginBA, Status: domain.StatusSent})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "b", both[0].ID)
}

func TestSatelliteMaps(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	r := repo.Repo{Store: s}

	_, err := r.GetWorkflow(ctx, "a")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = r.GetFeasibility(ctx, "a")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.PutFeasibility(ctx, domain.DefaultFeasibility("a")))
	f, err := r.GetFeasibility(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.FeasibilityPending, f.Status)

	// a record persisted with missing stages is normalised on load
	require.NoError(t, s.Set(ctx, repo.WorkflowKey, `{"a":{"stages":{"sit":"done"},"timeline":"Q3"}}`))
	w, err := r.GetWorkflow(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", w.RequestID)
	assert.Len(t, w.Stages, len(domain.Stages))
	assert.Equal(t, domain.StageDone, w.Stages[domain.StageSIT])
	assert.Equal(t, domain.StageNotStarted, w.Stages[domain.StageITReview])
	assert.Equal(t, "Q3", w.Timeline)
}

func TestFeasibilityWithoutRequestIDKeepsItsKey(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	r := repo.Repo{Store: s}

	require.NoError(t, s.Set(ctx, repo.FeasibilityKey, `{"r1":{"status":"pending"}}`))
	f, err := r.GetFeasibility(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", f.RequestID)

	f.Status = domain.FeasibilityFeasible
	require.NoError(t, r.PutFeasibility(ctx, f))

	all, err := r.FeasibilityMap(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NotContains(t, all, "")
	assert.Equal(t, domain.FeasibilityFeasible, all["r1"].Status)
}

func TestEventReads(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	r := repo.Repo{Store: s}
	w := events.Writer{Store: s}

	id, err := r.LatestEventID(ctx)
	require.NoError(t, err)
	assert.Zero(t, id)

	for _, typ := range []string{"request.created", "request.status", "it.stage"} {
		_, err := w.Append(ctx, typ, "request", "r-1", "tester", nil)
		require.NoError(t, err)
	}
	id, err = r.LatestEventID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	after, err := r.EventsAfter(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "request.status", after[0].Type)

	latest, err := r.LatestEvents(ctx, 2, "", "")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "it.stage", latest[1].Type)

	stage, err := r.LatestEvents(ctx, 0, "it.stage", "r-1")
	require.NoError(t, err)
	assert.Len(t, stage, 1)
}
