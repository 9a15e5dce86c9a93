package recharge

import (
	"net/http"
	"strconv"

	"github.com/kevin07696/recharge-service/internal/domain"
	"go.uber.org/zap"
)

// TraceReader reads diagnostic traces back for operators
type TraceReader interface {
	List(limit int) ([]domain.TraceRecord, error)
	ListByAttempt(attemptID string) ([]domain.TraceRecord, error)
}

// TraceHandler serves GET /traces. Entries carry unredacted provider text, so
// it is mounted on the operator metrics listener only.
type TraceHandler struct {
	traces TraceReader
	logger *zap.Logger
}

// NewTraceHandler creates a new trace handler
func NewTraceHandler(traces TraceReader, logger *zap.Logger) *TraceHandler {
	return &TraceHandler{traces: traces, logger: logger}
}

// RegisterRoutes mounts the trace endpoint on the operator mux
func (h *TraceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /traces", h.ListTraces)
}

// ListTraces returns traces for ?attempt_id=, or the latest ?limit= (default 50)
func (h *TraceHandler) ListTraces(w http.ResponseWriter, r *http.Request) {
	var (
		records []domain.TraceRecord
		err     error
	)
	if id := r.URL.Query().Get("attempt_id"); id != "" {
		records, err = h.traces.ListByAttempt(id)
	} else {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 1 || n > 1000 {
				writeError(h.logger, w, r, domain.NewDomainError(domain.ErrorCodeValidationFailed, "limit must be between 1 and 1000"))
				return
			}
			limit = n
		}
		records, err = h.traces.List(limit)
	}
	if err != nil {
		writeError(h.logger, w, r, domain.WrapError(domain.ErrorCodeInternalError, "failed to read traces", err))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, records)
}
