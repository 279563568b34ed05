package autodesign

import (
	"encoding/json"
	"net/http"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"
)

type Handler struct {
	Compliance *compliance.Handler
}

func (h *Handler) Upsize(w http.ResponseWriter, r *http.Request) {
	var input circuit.Spec
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	ds, err := h.Compliance.Resolve(r)
	if err != nil {
		http.Error(w, err.Error(), compliance.DatasetStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Upsize(ds, input))
}
