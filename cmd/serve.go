package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/store"
)

var servePort int

// reader is the read-only slice of the store exposed over HTTP.
type reader interface {
	LoadBaseRecords(ctx context.Context) ([]model.BaseRecord, error)
	QueryView(ctx context.Context, name string) (*store.Table, error)
	Quality(ctx context.Context) (*store.QualityReport, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reporting views and the quality report over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(st, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func buildRouter(r reader, origins []string) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Get("/views", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"views": store.ViewNames()})
	})

	mux.Get("/views/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		tbl, err := r.QueryView(req.Context(), name)
		if errors.Is(err, store.ErrUnknownView) {
			writeError(w, http.StatusNotFound, "unknown view "+name)
			return
		}
		if err != nil {
			zap.L().Error("query view failed", zap.String("view", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, tbl)
	})

	mux.Get("/quality", func(w http.ResponseWriter, req *http.Request) {
		report, err := r.Quality(req.Context())
		if err != nil {
			zap.L().Error("quality report failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "quality report failed")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			*store.QualityReport
			Passed bool `json:"passed"`
		}{report, report.Passed()})
	})

	mux.Get("/monuments/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		records, err := r.LoadBaseRecords(req.Context())
		if err != nil {
			zap.L().Error("load records failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "load failed")
			return
		}
		for _, rec := range records {
			if rec.ID == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		writeError(w, http.StatusNotFound, "unknown monument "+id)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
