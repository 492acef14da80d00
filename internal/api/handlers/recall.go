package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
)

type RecallHandler struct {
	svc *service.RecallService
}

func NewRecallHandler(svc *service.RecallService) *RecallHandler {
	return &RecallHandler{svc: svc}
}

// Recall answers GET /v1/recall?q=&contract=&k=.
func (h *RecallHandler) Recall(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	contract, ok := contractParam(r, domain.Archivist)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown contract")
		return
	}
	k, ok := intParam(r, "k", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid k")
		return
	}

	res, err := h.svc.Recall(r.Context(), service.RecallRequest{
		UserID:   user.ID,
		Query:    r.URL.Query().Get("q"),
		Contract: contract,
		Limit:    k,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQueryEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRecallNotConfigured):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to recall entries")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
