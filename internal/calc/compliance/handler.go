package compliance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"Circuitry/internal/auth"
	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/repo"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	Registry *refdata.Registry
	Dataset  string // default dataset name
	Version  string // default semver constraint
	Workers  int
	Store    repo.EvaluationStore // nil disables storage
	Log      *slog.Logger
}

type BatchInput struct {
	Circuits []circuit.Spec `json:"circuits"`
}

// Stored is a result together with the ID it was saved under.
type Stored struct {
	ID *uuid.UUID `json:"id,omitempty"`
	Result
}

// Logger is the handler's logger, or the default one when none was set.
func (h *Handler) Logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// Resolve picks the dataset for a request: ?dataset= and ?version= override
// the handler defaults.
func (h *Handler) Resolve(r *http.Request) (*refdata.Dataset, error) {
	name, version := h.Dataset, h.Version
	if v := r.URL.Query().Get("dataset"); v != "" {
		name, version = v, ""
	}
	if v := r.URL.Query().Get("version"); v != "" {
		version = v
	}
	return h.Registry.Match(name, version)
}

// DatasetStatus is the response code for a Resolve error: 404 for a dataset
// that is not registered, 400 for a malformed version constraint.
func DatasetStatus(err error) int {
	if errors.Is(err, refdata.ErrUnknownDataset) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var spec circuit.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	ds, err := h.Resolve(r)
	if err != nil {
		http.Error(w, err.Error(), DatasetStatus(err))
		return
	}

	res := Evaluate(ds, spec)
	h.Logger().Info("circuit evaluated", "user", auth.UserLogin(r.Context()), "reference", res.Reference, "dataset", res.Dataset, "version", res.DatasetVersion, "overall", res.Overall)

	out := Stored{Result: res}
	if h.Store != nil {
		id, err := h.save(r, res)
		if err != nil {
			h.Logger().Error("store evaluation", "reference", res.Reference, "err", err)
			http.Error(w, "Storage error", http.StatusInternalServerError)
			return
		}
		out.ID = &id
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) save(r *http.Request, res Result) (uuid.UUID, error) {
	userID, _ := auth.UserID(r.Context())
	body, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, err
	}
	ev, err := h.Store.SaveEvaluation(r.Context(), repo.Evaluation{
		UserID:         userID,
		Reference:      res.Reference,
		Dataset:        res.Dataset,
		DatasetVersion: res.DatasetVersion,
		Overall:        string(res.Overall),
		Result:         body,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return ev.ID, nil
}

func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var input BatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	ds, err := h.Resolve(r)
	if err != nil {
		http.Error(w, err.Error(), DatasetStatus(err))
		return
	}
	h.RunBatch(w, r, ds, input.Circuits)
}

// RunBatch evaluates specs and writes the batch result.
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request, ds *refdata.Dataset, specs []circuit.Spec) {
	res, err := EvaluateBatch(r.Context(), ds, specs, h.Workers)
	switch {
	case errors.Is(err, ErrEmptyBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.Logger().Warn("batch cancelled", "circuits", len(specs), "err", err)
		http.Error(w, "Batch cancelled", http.StatusServiceUnavailable)
		return
	}
	h.Logger().Info("batch evaluated", "user", auth.UserLogin(r.Context()), "dataset", res.Dataset, "total", res.Summary.Total,
		"pass", res.Summary.Pass, "fail", res.Summary.Fail, "indeterminate", res.Summary.Indeterminate)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "Evaluation storage disabled", http.StatusNotFound)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}
	userID, _ := auth.UserID(r.Context())
	ev, err := h.Store.GetEvaluation(r.Context(), userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger().Error("load evaluation", "id", id, "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type refdataResponse struct {
	Datasets []refdata.Info   `json:"datasets"`
	Default  *refdata.Info    `json:"default,omitempty"`
	Methods  []refdata.Method `json:"installation_methods,omitempty"`
}

// Refdata lists registered datasets and the default dataset's installation
// methods.
func (h *Handler) Refdata(w http.ResponseWriter, r *http.Request) {
	out := refdataResponse{Datasets: h.Registry.List()}
	if ds, err := h.Registry.Match(h.Dataset, h.Version); err == nil {
		info := ds.Info()
		out.Default = &info
		out.Methods = ds.Methods()
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
