package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"brdflow/internal/document"
	"brdflow/internal/domain"
	"brdflow/internal/engine"
	"brdflow/internal/logger"
	"brdflow/internal/pdf"
	"brdflow/internal/repo"
)

const defaultActor = "api"

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Renderer pdf.Renderer
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"invalid request status transition new -> sent"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"from\":\"new\",\"to\":\"sent\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the BRD workflow API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Renderer.Options.Masker == nil {
		cfg.Renderer = pdf.New(cfg.Renderer.Options)
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("http %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	})
	hcfg := huma.DefaultConfig("brdflow API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerRequests(group, cfg.Engine)
	registerLifecycle(group, cfg.Engine)
	registerDocuments(group, cfg.Engine, cfg.Renderer)
	registerIT(group, cfg.Engine)
	registerSummary(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var te *engine.TransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"from": string(te.From), "to": string(te.To)})
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrNotApproved):
		return newAPIError(http.StatusConflict, "not_approved", err.Error(), nil)
	case errors.Is(err, engine.ErrMissingDraft):
		return newAPIError(http.StatusBadRequest, "missing_draft", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidStage),
		errors.Is(err, engine.ErrInvalidStageStatus),
		errors.Is(err, engine.ErrInvalidDecision):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "already exists"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "unknown") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		logger.Warn("internal error: %v", err)
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func actorOr(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return defaultActor
	}
	return actor
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>brdflow API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Pass X-Actor-Id to attribute changes in the event log.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type requestOutput struct {
	Body domain.StakeholderRequest `json:"body"`
}

func registerRequests(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "List stakeholder requests",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Origin string `query:"origin"`
	}) (*struct {
		Body paginatedRequests `json:"body"`
	}, error) {
		items, err := e.Requests(ctx, repo.RequestFilters{
			Status: domain.RequestStatus(input.Status),
			Origin: domain.Origin(input.Origin),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedRequests `json:"body"`
		}{Body: paginatedRequests{Items: nonNilRequests(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-request",
		Method:        http.MethodPost,
		Path:          "/requests",
		Summary:       "Create stakeholder request",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Actor string `header:"X-Actor-Id"`
		Body  CreateRequestRequest
	}) (*requestOutput, error) {
		opts := engine.RequestCreateOptions{
			ReqType:   input.Body.ReqType,
			Title:     input.Body.Title,
			Owner:     input.Body.Owner,
			Tenant:    input.Body.Tenant,
			Priority:  input.Body.Priority,
			Brief:     input.Body.Brief,
			CreatedBy: domain.Origin(input.Body.CreatedBy),
			ActorID:   actorOr(input.Actor),
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		for _, t := range input.Body.Threads {
			opts.Threads = append(opts.Threads, threadFromRequest(t))
		}
		req, err := e.CreateRequest(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/requests/{id}",
		Summary:     "Get stakeholder request",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*requestOutput, error) {
		req, err := e.Request(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-thread",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/threads",
		Summary:     "Attach a conversation thread",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  ThreadRequest
	}) (*requestOutput, error) {
		req, err := e.AddThread(ctx, input.ID, threadFromRequest(input.Body), actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reply",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/replies",
		Summary:     "Post a follow-up message",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  ReplyRequest
	}) (*requestOutput, error) {
		req, err := e.Reply(ctx, input.ID, engine.ReplyFrom(input.Body.From), input.Body.Text, actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})
}

func registerLifecycle(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "save-draft",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/draft",
		Summary:     "Save BRD draft",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  map[string]string
	}) (*requestOutput, error) {
		var m domain.BRDMasterData
		for key, value := range input.Body {
			if err := m.Set(key, value); err != nil {
				return nil, handleError(err)
			}
		}
		req, err := e.SaveDraft(ctx, input.ID, m, actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-draft",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/generate",
		Summary:     "Fill blank draft fields",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
	}) (*requestOutput, error) {
		req, err := e.GenerateDraft(ctx, input.ID, actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-for-review",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/send",
		Summary:     "Send BRD for stakeholder review",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
	}) (*requestOutput, error) {
		req, err := e.SendForReview(ctx, input.ID, actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-review",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/review",
		Summary:     "Record stakeholder review",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  ReviewRequest
	}) (*requestOutput, error) {
		req, err := e.RecordReview(ctx, input.ID, domain.RequestStatus(input.Body.Decision), input.Body.Comment, actorOr(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &requestOutput{Body: req}, nil
	})
}

// draftOf returns the saved draft, or the defaults derived from the request.
func draftOf(req domain.StakeholderRequest) domain.BRDMasterData {
	if req.BRDMaster != nil {
		return *req.BRDMaster
	}
	return domain.DefaultMaster(req)
}

func registerDocuments(api huma.API, e engine.Engine, renderer pdf.Renderer) {
	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/requests/{id}/document",
		Summary:     "BRD text document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DocumentResponse `json:"body"`
	}, error) {
		req, err := e.Request(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentResponse `json:"body"`
		}{Body: DocumentResponse{
			RequestID: req.ID,
			Version:   document.Version(req.Status),
			Text:      document.Build(req, draftOf(req)),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pdf",
		Method:      http.MethodGet,
		Path:        "/requests/{id}/pdf",
		Summary:     "BRD as masked PDF",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		req, err := e.Request(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out, err := renderer.Render(req, draftOf(req))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        "application/pdf",
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", "BRD_"+req.ID+".pdf"),
			Body:               out.Bytes,
		}, nil
	})
}

type itOutput struct {
	Body ITResponse `json:"body"`
}

// itState initializes the workflow if needed and returns the combined view.
func itState(ctx context.Context, e engine.Engine, id, actor string) (*itOutput, error) {
	w, err := e.InitWorkflow(ctx, id, actor)
	if err != nil {
		return nil, handleError(err)
	}
	f, err := e.Feasibility(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		f, err = domain.DefaultFeasibility(id), nil
	}
	if err != nil {
		return nil, handleError(err)
	}
	return &itOutput{Body: itResponse(w, f)}, nil
}

// itMutation makes sure the workflow exists before applying fn so that
// missing or unapproved requests surface as errors over HTTP.
func itMutation(ctx context.Context, e engine.Engine, id, actor string, fn func(actor string) error) (*itOutput, error) {
	actor = actorOr(actor)
	if _, err := e.InitWorkflow(ctx, id, actor); err != nil {
		return nil, handleError(err)
	}
	if err := fn(actor); err != nil {
		return nil, handleError(err)
	}
	return itState(ctx, e, id, actor)
}

func registerIT(api huma.API, e engine.Engine) {
	itErrors := []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}

	huma.Register(api, huma.Operation{
		OperationID: "get-it",
		Method:      http.MethodGet,
		Path:        "/requests/{id}/it",
		Summary:     "IT workflow and feasibility",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
	}) (*itOutput, error) {
		return itState(ctx, e, input.ID, actorOr(input.Actor))
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-stage",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/it/stages/{stage}",
		Summary:     "Set a stage status",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Stage string `path:"stage"`
		Actor string `header:"X-Actor-Id"`
		Body  StageRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.SetStage(ctx, input.ID, domain.Stage(input.Stage), domain.StageStatus(input.Body.Status), actor)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-feasibility-notes",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/it/notes",
		Summary:     "Replace feasibility notes",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  TextRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.SetFeasibilityNotes(ctx, input.ID, input.Body.Text, actor)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-feasibility",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/it/feasibility",
		Summary:     "Record feasibility decision",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  FeasibilityDecisionRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.RecordFeasibilityDecision(ctx, input.ID, domain.FeasibilityStatus(input.Body.Decision), actor)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-financial",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/it/financial",
		Summary:     "Record financial decision",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  FinancialDecisionRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.RecordFinancialDecision(ctx, input.ID, domain.FinancialDecision(input.Body.Decision), input.Body.Comment, actor)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-timeline",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/it/timeline",
		Summary:     "Replace delivery timeline",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  TextRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.SetTimeline(ctx, input.ID, input.Body.Text, actor)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-sit-notes",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/it/sit",
		Summary:     "Replace SIT notes",
		Errors:      itErrors,
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Actor string `header:"X-Actor-Id"`
		Body  TextRequest
	}) (*itOutput, error) {
		return itMutation(ctx, e, input.ID, input.Actor, func(actor string) error {
			return e.SetSitNotes(ctx, input.ID, input.Body.Text, actor)
		})
	})
}

func registerSummary(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "summary",
		Method:      http.MethodGet,
		Path:        "/summary",
		Summary:     "IT dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Summary `json:"body"`
	}, error) {
		s, err := e.Summary(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Summary `json:"body"`
		}{Body: s}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events after a cursor",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		all, err := e.Repo.EventsAfter(ctx, 0, cursorID)
		if err != nil {
			return nil, handleError(err)
		}
		var items []domain.Event
		for _, evt := range all {
			if input.Type != "" && evt.Type != input.Type {
				continue
			}
			if input.EntityID != "" && evt.EntityID != input.EntityID {
				continue
			}
			items = append(items, evt)
			if len(items) > limit {
				break
			}
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 500 {
		return 500
	}
	return in
}
