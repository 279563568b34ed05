package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"
)

type Input struct {
	Meta
	Circuits []circuit.Spec `json:"circuits"`
}

type Handler struct {
	Compliance *compliance.Handler
	Now        func() time.Time
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	ds, err := h.Compliance.Resolve(r)
	if err != nil {
		http.Error(w, err.Error(), compliance.DatasetStatus(err))
		return
	}
	batch, err := compliance.EvaluateBatch(r.Context(), ds, input.Circuits, h.Compliance.Workers)
	if errors.Is(err, compliance.ErrEmptyBatch) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Batch cancelled", http.StatusServiceUnavailable)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	var buf bytes.Buffer
	if err := Render(&buf, input.Meta, batch, now()); err != nil {
		h.Compliance.Logger().Error("render report", "project", input.Project, "err", err)
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"compliance-report.pdf\"")
	w.Write(buf.Bytes())
}
