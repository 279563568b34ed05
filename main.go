package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Circuitry/internal/auth"
	"Circuitry/internal/calc/autodesign"
	"Circuitry/internal/calc/compliance"
	"Circuitry/internal/calc/importer"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/report"
	"Circuitry/internal/config"
	"Circuitry/internal/logger"
	"Circuitry/internal/repo"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

type deps struct {
	cfg      *config.Config
	registry *refdata.Registry
	users    repo.Repository
	store    repo.EvaluationStore
	log      *slog.Logger
}

func HandleList(mux *mux.Router, d deps) {
	authEnv := &auth.Authenv{JWTkey: []byte(d.cfg.TokenKey), Repo: d.users, Log: d.log}
	limiter := auth.NewIPRateLimiter(rate.Limit(d.cfg.RateLimitRPS), d.cfg.RateLimitBurst)

	complianceH := &compliance.Handler{
		Registry: d.registry,
		Dataset:  d.cfg.RefdataName,
		Version:  d.cfg.RefdataVersion,
		Workers:  d.cfg.BatchWorkers,
		Store:    d.store,
		Log:      d.log,
	}
	importH := &importer.Handler{Compliance: complianceH, MaxBytes: d.cfg.MaxUploadBytes()}
	reportH := &report.Handler{Compliance: complianceH}
	autoH := &autodesign.Handler{Compliance: complianceH}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")
	api.HandleFunc("/refdata", complianceH.Refdata).Methods("GET")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	secureApi.HandleFunc("/circuits/evaluate", complianceH.Evaluate).Methods("POST")
	secureApi.HandleFunc("/circuits/batch", complianceH.Batch).Methods("POST")
	secureApi.HandleFunc("/circuits/upsize", autoH.Upsize).Methods("POST")
	secureApi.HandleFunc("/circuits/import", importH.Import).Methods("POST")
	secureApi.HandleFunc("/circuits/import/template", importH.Template).Methods("GET")
	secureApi.HandleFunc("/circuits/report/pdf", reportH.Generate).Methods("POST")
	secureApi.HandleFunc("/evaluations/{id}", complianceH.Get).Methods("GET")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.RequireServer(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry, err := refdata.Bootstrap(cfg.RefdataDir)
	if err != nil {
		log.Error("load reference data", "dir", cfg.RefdataDir, "err", err)
		os.Exit(1)
	}
	ds, err := registry.Match(cfg.RefdataName, cfg.RefdataVersion)
	if err != nil {
		log.Error("select reference data", "name", cfg.RefdataName, "version", cfg.RefdataVersion, "err", err)
		os.Exit(1)
	}
	log.Info("reference data loaded", "datasets", len(registry.List()), "default", ds.Name(), "version", ds.Version())

	db, err := repo.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	pg := repo.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Error("database", "err", err)
		os.Exit(1)
	}

	d := deps{cfg: cfg, registry: registry, users: pg, log: log}
	if cfg.StoreEvaluations {
		d.store = pg
	}

	router := mux.NewRouter()
	HandleList(router, d)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           CORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting server", "addr", cfg.Addr, "tls", cfg.TLSCert != "")
		var err error
		if cfg.TLSCert != "" {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
	wg.Wait()
	log.Info("server stopped")
}
