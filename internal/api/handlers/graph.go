package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/lorekeeper/internal/service"
)

type GraphHandler struct {
	graph *service.DependencyGraph
}

func NewGraphHandler(graph *service.DependencyGraph) *GraphHandler {
	return &GraphHandler{graph: graph}
}

// Affected answers GET /v1/graph/affected?ids=a,b with the bounded closure
// of entries that depend on the given ones.
func (h *GraphHandler) Affected(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ids, err := parseUUIDs(strings.Split(r.URL.Query().Get("ids"), ","))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ids")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	res, err := h.graph.GetAffectedEntries(r.Context(), user.ID, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute affected entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
