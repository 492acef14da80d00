package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ScopeHandler struct {
	symbols *service.SymbolTable
}

func NewScopeHandler(symbols *service.SymbolTable) *ScopeHandler {
	return &ScopeHandler{symbols: symbols}
}

// scopeID maps the "global" shorthand onto the caller's root scope.
func scopeID(userID uuid.UUID, raw string) string {
	if strings.EqualFold(raw, "global") {
		return domain.GlobalScopeID(userID)
	}
	return raw
}

type enterScopeRequest struct {
	ScopeID       string  `json:"scope_id"`
	ScopeType     string  `json:"scope_type"`
	ParentScopeID *string `json:"parent_scope_id,omitempty"`
}

func (h *ScopeHandler) Enter(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req enterScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParentScopeID != nil {
		p := scopeID(user.ID, *req.ParentScopeID)
		req.ParentScopeID = &p
	}

	sc, err := h.symbols.EnterScope(r.Context(), user.ID,
		domain.ScopeType(strings.ToUpper(req.ScopeType)), scopeID(user.ID, req.ScopeID), req.ParentScopeID)
	if err != nil {
		if errors.Is(err, service.ErrScopeIDMissing) || errors.Is(err, service.ErrInvalidScopeType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enter scope")
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

type defineSymbolRequest struct {
	CanonicalName string   `json:"canonical_name"`
	EntityType    string   `json:"entity_type,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
}

func (h *ScopeHandler) DefineSymbol(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req defineSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conf := req.Confidence
	if conf <= 0 || conf > 1 {
		conf = 1
	}
	sym := &domain.EntitySymbol{
		ID:              uuid.New(),
		CanonicalName:   strings.TrimSpace(req.CanonicalName),
		EntityType:      domain.EntityType(strings.ToUpper(req.EntityType)),
		Aliases:         req.Aliases,
		Confidence:      conf,
		CertaintySource: domain.CertaintyVerification,
	}

	if err := h.symbols.DefineSymbol(r.Context(), user.ID, scopeID(user.ID, chi.URLParam(r, "id")), sym); err != nil {
		switch {
		case errors.Is(err, service.ErrScopeIDMissing),
			errors.Is(err, service.ErrSymbolNameEmpty),
			errors.Is(err, service.ErrInvalidEntity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to define symbol")
		}
		return
	}
	writeJSON(w, http.StatusCreated, sym)
}

func (h *ScopeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sym, err := h.symbols.Resolve(r.Context(), user.ID, name, scopeID(user.ID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve symbol")
		return
	}
	if sym == nil {
		writeError(w, http.StatusNotFound, "symbol not found")
		return
	}
	writeJSON(w, http.StatusOK, sym)
}
