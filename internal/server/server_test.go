package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"brdflow/internal/config"
	"brdflow/internal/domain"
	"brdflow/internal/engine"
	"brdflow/internal/pdf"
	"brdflow/internal/store"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	e := engine.New(store.NewMemory(), cfg)
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	opts := pdf.DefaultOptions()
	opts.Compress = false
	handler, err := New(Config{Engine: e, Renderer: pdf.New(opts), BasePath: "/v1"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func expectStatus(t *testing.T, res *http.Response, data []byte, want int) {
	t.Helper()
	if res.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", res.Request.Method, res.Request.URL.Path, want, res.StatusCode, string(data))
	}
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %T: %v (%s)", out, err, string(data))
	}
	return out
}

type errorEnvelope struct {
	Error apiErrorBody `json:"error"`
}

func createApproved(t *testing.T, srv *testServer) string {
	t.Helper()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests", map[string]any{
		"title":  "Home loan renewals",
		"brief":  "Automate renewal checks",
		"owner":  "Retail Lending",
		"tenant": "RBL BANK",
	}, map[string]string{"X-Actor-Id": "sme-1"})
	expectStatus(t, res, data, http.StatusCreated)
	created := decode[domain.StakeholderRequest](t, data)
	if created.Status != domain.StatusNew {
		t.Fatalf("expected new, got %s", created.Status)
	}
	id := created.ID

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+id+"/generate", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+id+"/send", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+id+"/review", map[string]any{
		"decision": "approved",
		"comment":  "Looks good",
	}, nil)
	expectStatus(t, res, data, http.StatusOK)
	approved := decode[domain.StakeholderRequest](t, data)
	if approved.Status != domain.StatusApproved || approved.ReviewerComment != "Looks good" {
		t.Fatalf("unexpected review result: %+v", approved)
	}
	return id
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests", map[string]any{
		"title": "Branch onboarding",
		"brief": "Digitise branch KYC",
		"threads": []map[string]any{
			{"title": "Kickoff", "notes": "scope call"},
		},
	}, nil)
	expectStatus(t, res, data, http.StatusCreated)
	created := decode[domain.StakeholderRequest](t, data)
	if len(created.Threads) != 1 || created.Threads[0].ID != created.ID+"-msg-1" {
		t.Fatalf("unexpected threads: %+v", created.Threads)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+created.ID+"/draft", map[string]string{
		"objective": "Cut onboarding time",
		"product":   "Savings",
	}, nil)
	expectStatus(t, res, data, http.StatusOK)
	drafted := decode[domain.StakeholderRequest](t, data)
	if drafted.Status != domain.StatusInProgress || drafted.BRDMaster == nil || drafted.BRDMaster.Objective != "Cut onboarding time" {
		t.Fatalf("unexpected draft: %+v", drafted)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+created.ID+"/draft", map[string]string{
		"nope": "x",
	}, nil)
	expectStatus(t, res, data, http.StatusBadRequest)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests/"+created.ID+"/document", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	doc := decode[DocumentResponse](t, data)
	if doc.Version != "0.5" || !strings.Contains(doc.Text, "Cut onboarding time") {
		t.Fatalf("unexpected document: %+v", doc)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests?status=in_progress", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	list := decode[paginatedRequests](t, data)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list.Items)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+created.ID+"/replies", map[string]any{
		"from": "stakeholder",
		"text": "Please add branch codes",
	}, nil)
	expectStatus(t, res, data, http.StatusOK)
	replied := decode[domain.StakeholderRequest](t, data)
	if last := replied.Threads[len(replied.Threads)-1]; last.Title != "Stakeholder Follow-up" {
		t.Fatalf("unexpected reply thread: %+v", last)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests/missing", nil, nil)
	expectStatus(t, res, data, http.StatusNotFound)
	body := decode[errorEnvelope](t, data)
	if body.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %+v", body.Error)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests", map[string]any{"title": "No brief"}, nil)
	expectStatus(t, res, data, http.StatusBadRequest)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests", map[string]any{"title": "Fresh", "brief": "b", "id": "fresh"}, nil)
	expectStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/fresh/review", map[string]any{"decision": "approved"}, nil)
	expectStatus(t, res, data, http.StatusConflict)
	body = decode[errorEnvelope](t, data)
	if body.Error.Code != "invalid_transition" || body.Error.Details["from"] != "new" {
		t.Fatalf("unexpected transition error: %+v", body.Error)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/fresh/send", nil, nil)
	expectStatus(t, res, data, http.StatusBadRequest)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests/fresh/it", nil, nil)
	expectStatus(t, res, data, http.StatusConflict)
}

func TestITWorkflowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	id := createApproved(t, srv)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests/"+id+"/it", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	state := decode[ITResponse](t, data)
	if state.Percent != 0 || state.Feasibility.Status != domain.FeasibilityPending {
		t.Fatalf("unexpected initial IT state: %+v", state)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+id+"/it/notes", map[string]any{"text": "Core banking API ready"}, nil)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+id+"/it/feasibility", map[string]any{"decision": "feasible"}, nil)
	expectStatus(t, res, data, http.StatusOK)
	state = decode[ITResponse](t, data)
	if state.Percent != 29 || state.CurrentStage != domain.StageFinalCostApproval {
		t.Fatalf("unexpected state after feasibility: %+v", state)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+id+"/it/financial", map[string]any{"decision": "approved"}, nil)
	expectStatus(t, res, data, http.StatusOK)
	state = decode[ITResponse](t, data)
	if state.Percent != 43 || state.CurrentStage != domain.StageTimelineShared {
		t.Fatalf("unexpected state after financial: %+v", state)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+id+"/it/stages/sit", map[string]any{"status": "in_progress"}, nil)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+id+"/it/stages/bogus", map[string]any{"status": "done"}, nil)
	expectStatus(t, res, data, http.StatusBadRequest)

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+id+"/it/timeline", map[string]any{"text": "UAT in March"}, nil)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/requests/"+id+"/it/sit", map[string]any{"text": "SIT cycle 1 green"}, nil)
	expectStatus(t, res, data, http.StatusOK)
	state = decode[ITResponse](t, data)
	if state.Workflow.Timeline != "UAT in March" || state.Workflow.SitNotes != "SIT cycle 1 green" {
		t.Fatalf("unexpected workflow text: %+v", state.Workflow)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/summary", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	summary := decode[engine.Summary](t, data)
	if summary.Approved != 1 || summary.Feasibility[domain.FeasibilityFeasible] != 1 || summary.InProgress != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPDFEndpointMasks(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	id := createApproved(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/requests/"+id+"/pdf", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	if ct := res.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:min(len(data), 16)])
	}
	if bytes.Contains(data, []byte("RBL")) {
		t.Fatalf("pdf leaks tenant name")
	}
}

func TestEventsPaging(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	id := createApproved(t, srv)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?limit=2", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	page := decode[paginatedEvents](t, data)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Items[0].Type != "request.created" || page.Items[0].ActorID != "sme-1" {
		t.Fatalf("unexpected first event: %+v", page.Items[0])
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?limit=500&cursor="+page.NextCursor, nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	rest := decode[paginatedEvents](t, data)
	if len(rest.Items) == 0 || rest.Items[0].ID <= page.Items[1].ID || rest.NextCursor != "" {
		t.Fatalf("unexpected second page: %+v", rest)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?type=request.status&entity_id="+id, nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	statuses := decode[paginatedEvents](t, data)
	if len(statuses.Items) != 3 {
		t.Fatalf("expected 3 status changes, got %d", len(statuses.Items))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?cursor=abc", nil, nil)
	expectStatus(t, res, data, http.StatusBadRequest)
}

func TestWebhookDeliversFilteredEvents(t *testing.T) {
	var mu sync.Mutex
	var got []EventResponse
	var secrets []string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt EventResponse
		json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		got = append(got, evt)
		secrets = append(secrets, r.Header.Get("X-Brdflow-Secret"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	ctx := context.Background()
	e := engine.New(store.NewMemory(), nil)
	if _, err := e.CreateRequest(ctx, engine.RequestCreateOptions{ID: "old", Title: "Old", Brief: "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	disabled := false
	d := newWebhookDispatcher(ctx, e.Repo, []config.Webhook{
		{URL: hook.URL, Events: []string{"request.status"}, Secret: "s3cret"},
		{URL: hook.URL, Enabled: &disabled},
	})
	if d == nil || len(d.targets) != 1 {
		t.Fatalf("expected one enabled hook")
	}

	if _, err := e.GenerateDraft(ctx, "old", "ba-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	d.poll(ctx)
	d.poll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d: %+v", len(got), got)
	}
	if got[0].Type != "request.status" || got[0].Payload["to"] != "generated" || secrets[0] != "s3cret" {
		t.Fatalf("unexpected delivery: %+v secret=%q", got[0], secrets[0])
	}
}

func TestWebhookRetriesFailedDelivery(t *testing.T) {
	var mu sync.Mutex
	var attempts []string
	fail := true
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, r.Header.Get("X-Brdflow-Delivery"))
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	ctx := context.Background()
	e := engine.New(store.NewMemory(), nil)
	d := newWebhookDispatcher(ctx, e.Repo, []config.Webhook{{URL: hook.URL, Events: []string{"request.created"}}})
	if _, err := e.CreateRequest(ctx, engine.RequestCreateOptions{ID: "r1", Title: "T", Brief: "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	d.poll(ctx)
	mu.Lock()
	fail = false
	mu.Unlock()
	d.poll(ctx)
	d.poll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 2 || attempts[0] != attempts[1] {
		t.Fatalf("expected the same event delivered twice, got %v", attempts)
	}
}

func TestWebhookDispatcherNilWithoutHooks(t *testing.T) {
	e := engine.New(store.NewMemory(), nil)
	if d := newWebhookDispatcher(context.Background(), e.Repo, []config.Webhook{{URL: "  "}}); d != nil {
		t.Fatalf("expected no dispatcher")
	}
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	const n = 8
	bodies := make([]string, n)
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v1/openapi.json")
			if err != nil {
				return
			}
			defer res.Body.Close()
			b, _ := io.ReadAll(res.Body)
			codes[i], bodies[i] = res.StatusCode, string(b)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if codes[i] != http.StatusOK || bodies[i] != bodies[0] {
			t.Fatalf("request %d: status %d", i, codes[i])
		}
	}
	if !strings.Contains(bodies[0], "/requests/{id}/it") || !strings.Contains(bodies[0], "ApiError") {
		t.Fatalf("unexpected document: %.200s", bodies[0])
	}
}
