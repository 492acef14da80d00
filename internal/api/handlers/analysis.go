package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
	"github.com/google/uuid"
)

// AnalysisHandler serves the derived layers: belief evolution, narrative
// diffs and the invariant audit.
type AnalysisHandler struct {
	beliefs *service.BeliefEvolutionService
	diffs   *service.NarrativeDiffService
	auditor *service.InvariantAuditor
}

func NewAnalysisHandler(beliefs *service.BeliefEvolutionService, diffs *service.NarrativeDiffService, auditor *service.InvariantAuditor) *AnalysisHandler {
	return &AnalysisHandler{beliefs: beliefs, diffs: diffs, auditor: auditor}
}

type beliefsResponse struct {
	Beliefs []domain.BeliefEvolution `json:"beliefs"`
	Count   int                      `json:"count"`
}

func (h *AnalysisHandler) ListBeliefs(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	beliefs, err := h.beliefs.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list beliefs")
		return
	}
	writeJSON(w, http.StatusOK, beliefsResponse{Beliefs: nonNil(beliefs), Count: len(beliefs)})
}

func (h *AnalysisHandler) RebuildBeliefs(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	beliefs, err := h.beliefs.Rebuild(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to rebuild beliefs")
		return
	}
	writeJSON(w, http.StatusOK, beliefsResponse{Beliefs: nonNil(beliefs), Count: len(beliefs)})
}

type diffsResponse struct {
	Diffs []domain.NarrativeDiff `json:"diffs"`
	Count int                    `json:"count"`
}

func (h *AnalysisHandler) ListDiffs(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	limit, ok := intParam(r, "limit", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	var subject *uuid.UUID
	if s := r.URL.Query().Get("subject_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid subject_id")
			return
		}
		subject = &id
	}

	diffs, err := h.diffs.List(r.Context(), user.ID, subject, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list diffs")
		return
	}
	writeJSON(w, http.StatusOK, diffsResponse{Diffs: nonNil(diffs), Count: len(diffs)})
}

func (h *AnalysisHandler) DetectDiffs(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	contract, ok := contractParam(r, domain.Reflector)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown contract")
		return
	}

	diffs, err := h.diffs.Detect(r.Context(), user.ID, contract)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to detect diffs")
		return
	}
	writeJSON(w, http.StatusOK, diffsResponse{Diffs: nonNil(diffs), Count: len(diffs)})
}

func (h *AnalysisHandler) Audit(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	report, err := h.auditor.Audit(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to audit invariants")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
