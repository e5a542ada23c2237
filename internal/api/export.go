package api

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/promptlabs/promptlab/internal/httputil"
	"github.com/promptlabs/promptlab/internal/types"
)

type exportRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
}

// Export handles POST /api/export. It renders the selected experiments from
// the persisted store as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if len(req.ExperimentIDs) == 0 {
		httputil.WriteBadRequestError(w, reqID, "No experiments selected")
		return
	}

	experiments, err := h.experiments.GetByIDs(r.Context(), req.ExperimentIDs)
	if err != nil {
		slog.Error("failed to load experiments for export", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to export experiments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"format": "csv",
		"data":   renderCSV(experiments),
	})
}

// renderCSV produces the simple export format: one row per experiment with
// id, prompt, model, accuracy, and cost. Fields are CSV-quoted as needed.
func renderCSV(experiments []types.ExperimentResult) string {
	var b strings.Builder
	cw := csv.NewWriter(&b)
	cw.Write([]string{"experiment_id", "prompt", "model", "accuracy", "cost"})
	for _, exp := range experiments {
		cw.Write([]string{
			exp.ExperimentID,
			exp.Prompt,
			exp.Model,
			strconv.FormatFloat(exp.Accuracy, 'f', -1, 64),
			strconv.FormatFloat(exp.EstimatedCost, 'f', -1, 64),
		})
	}
	cw.Flush()
	return b.String()
}
