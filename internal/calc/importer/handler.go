package importer

import (
	"net/http"

	"Circuitry/internal/calc/compliance"
)

type Handler struct {
	Compliance *compliance.Handler
	MaxBytes   int64
}

// Import evaluates every circuit in an uploaded xlsx schedule (form field
// "file").
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "File too big or malformed form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	specs, err := ReadSchedule(file)
	if err != nil {
		http.Error(w, "Invalid schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	ds, err := h.Compliance.Resolve(r)
	if err != nil {
		http.Error(w, err.Error(), compliance.DatasetStatus(err))
		return
	}
	h.Compliance.RunBatch(w, r, ds, specs)
}

func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"circuit-schedule.xlsx\"")
	if err := Template(w); err != nil {
		http.Error(w, "Template generation error", http.StatusInternalServerError)
	}
}
