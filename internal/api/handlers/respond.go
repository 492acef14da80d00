package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/api/middleware"
	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requireUser writes 401 and returns nil when the request is unauthenticated.
func requireUser(w http.ResponseWriter, r *http.Request) *domain.User {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return u
}

// contractParam reads ?contract=, falling back to def when absent.
func contractParam(r *http.Request, def domain.SensemakingContract) (domain.SensemakingContract, bool) {
	name := r.URL.Query().Get("contract")
	if name == "" {
		return def, true
	}
	return domain.ContractByName(name)
}

func intParam(r *http.Request, key string, def int) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
