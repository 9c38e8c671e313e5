package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// History reads the most recently persisted aggregate. The snapshot store
// satisfies it.
type History interface {
	Latest(ctx context.Context) (*Stats, error)
}

// Handler serves the aggregate over HTTP.
type Handler struct {
	aggregator *Aggregator
	history    History
	logger     *slog.Logger
}

// NewHandler serves aggregator. history may be nil when snapshots are not
// persisted; the snapshot route then answers 404.
func NewHandler(aggregator *Aggregator, history History) *Handler {
	return &Handler{
		aggregator: aggregator,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/keywords/{keyword}", h.Keyword)
	mux.HandleFunc("GET /api/v1/analytics/snapshot", h.Snapshot)
}

// Stats handles GET /api/v1/analytics. ?top=N shortens both term lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st := h.aggregator.Stats()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "top must be a positive integer"))
			return
		}
		st.TopKeywords = head(st.TopKeywords, n)
		st.ZeroResultQueries = head(st.ZeroResultQueries, n)
	}
	h.writeJSON(w, http.StatusOK, st)
}

// Keyword handles GET /api/v1/analytics/keywords/{keyword}: how many
// answered queries used the keyword.
func (h *Handler) Keyword(w http.ResponseWriter, r *http.Request) {
	kw := r.PathValue("keyword")
	h.writeJSON(w, http.StatusOK, KeywordCount{Term: kw, Count: h.aggregator.KeywordCount(kw)})
}

// Snapshot handles GET /api/v1/analytics/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "snapshots are not persisted"))
		return
	}
	st, err := h.history.Latest(r.Context())
	if err != nil {
		h.logger.Error("reading latest snapshot failed", "error", err)
		h.writeError(w, err)
		return
	}
	if st == nil {
		h.writeError(w, apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "no snapshot saved yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func head(list []KeywordCount, n int) []KeywordCount {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := apperrors.Response(err)
	h.writeJSON(w, status, body)
}
