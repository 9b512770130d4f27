// Package server serves the sentence submission API and a live feed of
// stored records.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/pipeline"
	"github.com/at-ishikawa/cantocards/internal/record"
)

// Processor runs the whole pipeline for one word.
type Processor interface {
	ProcessWord(ctx context.Context, raw string) pipeline.Outcome
}

// Store is the part of the result store the API reads and watches.
type Store interface {
	List(ctx context.Context, order record.Order) ([]record.GenerationRecord, error)
	Delete(ctx context.Context, simplified string) (bool, error)
	Subscribe(ctx context.Context) <-chan record.Event
}

const maxRequestBytes = 1 << 16

type Handler struct {
	processor Processor
	store     Store
	logger    *slog.Logger
}

func NewHandler(processor Processor, store Store, logger *slog.Logger) *Handler {
	return &Handler{
		processor: processor,
		store:     store,
		logger:    logger,
	}
}

// Routes registers the API on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sentences", h.CreateSentences)
	mux.HandleFunc("GET /api/records", h.ListRecords)
	mux.HandleFunc("DELETE /api/records/{word}", h.DeleteRecord)
	mux.HandleFunc("GET /api/records/stream", h.StreamRecords)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type createSentencesRequest struct {
	Word string `json:"word"`
}

type recordResponse struct {
	Simplified  string `json:"simplified"`
	Traditional string `json:"traditional"`
	Mandarin    string `json:"mandarin"`
	Cantonese   string `json:"cantonese"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func newRecordResponse(rec record.GenerationRecord) recordResponse {
	resp := recordResponse{
		Simplified:  rec.Word.Simplified,
		Traditional: rec.Word.Traditional,
		Mandarin:    rec.MandarinSentence,
		Cantonese:   rec.CantoneseSentence,
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = rec.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// CreateSentences generates and stores the sentences of one word before
// responding.
func (h *Handler) CreateSentences(w http.ResponseWriter, r *http.Request) {
	var req createSentencesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "")
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "word is required", "")
		return
	}

	outcome := h.processor.ProcessWord(r.Context(), req.Word)
	if !outcome.Succeeded() {
		h.logger.WarnContext(r.Context(), "failed to generate sentences",
			slog.String("word", req.Word),
			slog.String("stage", string(outcome.FailedStage)),
			slog.String("reason", outcome.Reason),
			slog.String("request_id", requestIDFrom(r.Context())),
		)
		writeError(w, statusForOutcome(outcome), outcome.Reason, string(outcome.FailedStage))
		return
	}
	writeJSON(w, http.StatusOK, newRecordResponse(*outcome.Record))
}

func statusForOutcome(outcome pipeline.Outcome) int {
	if outcome.FailedStage == pipeline.StageNormalize {
		return http.StatusBadRequest
	}
	if kind, ok := inference.KindOf(outcome.Err); ok {
		switch kind {
		case inference.RateLimited:
			return http.StatusTooManyRequests
		case inference.Timeout:
			return http.StatusGatewayTimeout
		case inference.ModelRefusal, inference.EmptyOutput:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	}
	if record.IsTransient(outcome.Err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ListRecords returns every record, optionally in reverse insertion order.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	order := record.OrderInsertion
	if value := r.URL.Query().Get("order"); value != "" {
		var err error
		if order, err = record.ParseOrder(value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
	}

	records, err := h.store.List(r.Context(), order)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list records", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list records", "")
		return
	}
	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, newRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	word := r.PathValue("word")
	deleted, err := h.store.Delete(r.Context(), word)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete a record", slog.String("word", word), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to delete the record", "")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no record for %s", word), "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamRecords pushes record changes as server-sent events until the
// client goes away.
func (h *Handler) StreamRecords(w http.ResponseWriter, r *http.Request) {
	// Subscribe first so nothing written after the headers is missed.
	events := h.store.Subscribe(r.Context())

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.ErrorContext(r.Context(), "streaming is not supported", slog.Any("error", err))
		return
	}

	for event := range events {
		data, err := json.Marshal(newRecordResponse(event.Record))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "failed to encode an event", slog.Any("error", err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Default().Warn("failed to write a response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, message, stage string) {
	writeJSON(w, status, errorResponse{Error: message, Stage: stage})
}
