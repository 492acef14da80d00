package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type EntryHandler struct {
	compiler    *service.CompilerService
	entries     *service.EntryService
	promotion   *service.PromotionService
	incremental *service.IncrementalCompiler
}

func NewEntryHandler(
	compiler *service.CompilerService,
	entries *service.EntryService,
	promotion *service.PromotionService,
	incremental *service.IncrementalCompiler,
) *EntryHandler {
	return &EntryHandler{
		compiler:    compiler,
		entries:     entries,
		promotion:   promotion,
		incremental: incremental,
	}
}

type compileEntryRequest struct {
	Text            string      `json:"text"`
	ThreadID        string      `json:"thread_id,omitempty"`
	UtteranceID     string      `json:"utterance_id,omitempty"`
	Timestamp       *time.Time  `json:"timestamp,omitempty"`
	Canon           string      `json:"canon,omitempty"`
	PreviousEntryID *uuid.UUID  `json:"previous_entry_id,omitempty"`
	RelatedEntryIDs []uuid.UUID `json:"related_entry_ids,omitempty"`
}

// Compile runs the full compiler over one utterance.
func (h *EntryHandler) Compile(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req compileEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creq := service.CompileRequest{
		UserID:          user.ID,
		Text:            req.Text,
		PreviousEntryID: req.PreviousEntryID,
		RelatedEntryIDs: req.RelatedEntryIDs,
	}
	if req.ThreadID != "" {
		id, err := uuid.Parse(req.ThreadID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid thread_id")
			return
		}
		creq.ThreadID = id
	}
	if req.UtteranceID != "" {
		id, err := uuid.Parse(req.UtteranceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid utterance_id")
			return
		}
		creq.UtteranceID = id
	}
	if req.Timestamp != nil {
		creq.Timestamp = *req.Timestamp
	}
	if req.Canon != "" {
		c := domain.CanonStatus(strings.ToUpper(req.Canon))
		creq.CanonOverride = &c
	}

	entry, err := h.compiler.Compile(r.Context(), creq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUtteranceEmpty),
			errors.Is(err, service.ErrUserIDMissing),
			errors.Is(err, service.ErrInvalidCanonValue):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to compile entry")
		}
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	contract, ok := contractParam(r, domain.Archivist)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown contract")
		return
	}
	limit, ok := intParam(r, "limit", 100)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	req := service.ListEntriesRequest{UserID: user.ID, Contract: contract, Limit: limit}
	if s := r.URL.Query().Get("thread_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid thread_id")
			return
		}
		req.ThreadID = &id
	}

	view, err := h.entries.List(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	writeJSON(w, http.StatusOK, renderView(view))
}

func (h *EntryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	contract, ok := contractParam(r, domain.Archivist)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown contract")
		return
	}

	view, err := h.entries.Get(r.Context(), user.ID, id, contract)
	if err != nil {
		// an entry the contract hides is indistinguishable from a missing one
		if errors.Is(err, service.ErrEntryNotFound) || errors.Is(err, service.ErrNotVisible) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	writeJSON(w, http.StatusOK, renderView(view))
}

type promoteRequest struct {
	To          string      `json:"to"`
	EvidenceIDs []uuid.UUID `json:"evidence_ids,omitempty"`
	Reasoning   string      `json:"reasoning,omitempty"`
}

type violationResponse struct {
	Error  string                 `json:"error"`
	Reason domain.ViolationReason `json:"reason"`
	From   domain.KnowledgeType   `json:"from"`
	To     domain.KnowledgeType   `json:"to"`
}

func (h *EntryHandler) Promote(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.promotion.Promote(r.Context(), service.PromoteRequest{
		UserID:      user.ID,
		EntryID:     id,
		To:          domain.KnowledgeType(strings.ToUpper(req.To)),
		EvidenceIDs: req.EvidenceIDs,
		GeneratedBy: domain.GeneratedByUser,
		Reasoning:   req.Reasoning,
	})
	if err != nil {
		var v *domain.EpistemicViolation
		switch {
		case errors.As(err, &v):
			writeJSON(w, http.StatusUnprocessableEntity, violationResponse{
				Error:  v.Error(),
				Reason: v.Reason,
				From:   v.Attempt.From,
				To:     v.Attempt.To,
			})
		case errors.Is(err, service.ErrEntryNotFound):
			writeError(w, http.StatusNotFound, "entry not found")
		case errors.Is(err, service.ErrInvalidKnowledge),
			errors.Is(err, service.ErrEvidenceNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEntryDeprecated):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to promote entry")
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Deprecate(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if _, err := h.promotion.Deprecate(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to deprecate entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recompileRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids"`
}

// Recompile runs incremental compilation seeded with the given entries.
func (h *EntryHandler) Recompile(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req recompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.EntryIDs) == 0 {
		writeError(w, http.StatusBadRequest, "entry_ids is required")
		return
	}

	res, err := h.incremental.IncrementalCompile(r.Context(), user.ID, req.EntryIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to recompile entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type renderedEntry struct {
	domain.EntryIR
	Display string `json:"display"`
}

type viewResponse struct {
	Entries  []renderedEntry     `json:"entries"`
	Contract domain.ContractName `json:"contract"`
	Metadata domain.ViewMetadata `json:"metadata"`
}

func renderView(v *domain.ConstrainedMemoryView) viewResponse {
	out := viewResponse{
		Entries:  make([]renderedEntry, 0, len(v.Entries)),
		Contract: v.Contract.Name,
		Metadata: v.Metadata,
	}
	for i := range v.Entries {
		out.Entries = append(out.Entries, renderedEntry{
			EntryIR: v.Entries[i],
			Display: service.Render(v.Contract, &v.Entries[i]),
		})
	}
	return out
}
