package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/siyuanflow/internal/batch"
	"github.com/starford/siyuanflow/internal/importer"
	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/operation"
	"github.com/starford/siyuanflow/internal/siyuan"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	catalog  *operation.Catalog
	client   *siyuan.Client
	recorder batch.Recorder
	journal  *journal.DB
	importer *importer.Importer
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRecorder stores batch item outcomes in r.
func WithRecorder(r batch.Recorder) HandlerOption {
	return func(h *Handler) {
		h.recorder = r
	}
}

// WithJournal enables GET /batch/{runID}.
func WithJournal(j *journal.DB) HandlerOption {
	return func(h *Handler) {
		h.journal = j
	}
}

// WithImporter enables POST /import.
func WithImporter(im *importer.Importer) HandlerOption {
	return func(h *Handler) {
		h.importer = im
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a new Handler.
func NewHandler(catalog *operation.Catalog, client *siyuan.Client, opts ...HandlerOption) *Handler {
	h := &Handler{catalog: catalog, client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListOperations handles GET /api/operations.
//
//	@Summary		List every operation with its parameters
//	@Tags			operations
//	@Produce		json
//	@Success		200		{object}	OperationListResponse
//	@Security		BearerAuth
//	@Router			/operations [get]
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OperationListResponse{Operations: h.catalog.Operations()})
}

// GetOperation handles GET /api/operations/{name}.
//
//	@Summary		Describe one operation
//	@Tags			operations
//	@Produce		json
//	@Param			name	path		string	true	"Operation name"
//	@Success		200		{object}	operation.Operation
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/operations/{name} [get]
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, ok := h.catalog.Lookup(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown operation"))
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// InvokeOperation handles POST /api/operations/{name}. The body is a JSON
// object of parameters and may be empty.
//
//	@Summary		Run one operation against the kernel
//	@Tags			operations
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Operation name"
//	@Param			body	body		object			false	"Operation parameters"
//	@Success		200		{object}	InvokeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/operations/{name} [post]
func (h *Handler) InvokeOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var params map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	out, err := h.catalog.Invoke(r.Context(), h.client, name, params)
	if err != nil {
		if statusOf(err) >= http.StatusInternalServerError {
			h.logger.Error("operation failed", slog.String("operation", name), slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Data: out})
}

// RunBatch handles POST /api/batch.
//
//	@Summary		Run a list of operations in order
//	@Tags			batch
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchRequest	true	"Items to run"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/batch [post]
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ex := batch.NewExecutor(h.catalog, h.client,
		batch.WithContinueOnFail(req.ContinueOnFail),
		batch.WithRecorder(h.recorder),
		batch.WithLogger(h.logger))

	run, err := ex.Run(r.Context(), req.Items)
	resp := BatchResponse{Run: run}
	if err != nil {
		body := faultBody(err)
		resp.Aborted = &body
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /api/batch/{runID}.
//
//	@Summary		Get the stored outcomes of a batch run
//	@Tags			batch
//	@Produce		json
//	@Param			runID	path		string	true	"Run ID"
//	@Success		200		{object}	RunItemsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/batch/{runID} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, errorBody("journal disabled"))
		return
	}
	runID := chi.URLParam(r, "runID")
	items, err := h.journal.RunItems(r.Context(), runID)
	if err != nil {
		h.logger.Error("run items failed", slog.String("run_id", runID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, RunItemsResponse{RunID: runID, Items: items})
}

// Import handles POST /api/import.
//
//	@Summary		Sync the vault into the notebook now
//	@Tags			import
//	@Produce		json
//	@Success		200		{object}	importer.Report
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		writeJSON(w, http.StatusNotFound, errorBody("importer disabled"))
		return
	}
	report, err := h.importer.Sync(r.Context())
	if err != nil {
		h.logger.Warn("import failed", slog.String("error", err.Error()))
		if report == nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusMultiStatus, map[string]any{"report": report, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Ready handles GET /health/ready: the kernel must answer a version call.
func Ready(client *siyuan.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := client.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, faultBody(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Live handles GET /health/live.
func Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
