package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/plugdex/plugdex/pkg/config"
	"github.com/plugdex/plugdex/pkg/github"
)

// newServeCmd creates the "serve" command exposing the published
// documents over HTTP.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the published browse documents over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			publicDir := filepath.Join(cfg.DataDir, "public")
			if _, err := os.Stat(publicDir); os.IsNotExist(err) {
				printWarning("no published documents under %s", publicDir)
				printNextStep("Run a crawl first", "plugdex crawl")
			}

			r := newRouter(cfg.DataDir)
			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("serving directory", "addr", cfg.ListenAddr, "dir", publicDir)
			printInfo("listening on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newRouter builds the read-only document API. Every endpoint serves a
// file the pipeline wrote; nothing is computed per request.
func newRouter(dataDir string) http.Handler {
	publicDir := filepath.Join(dataDir, "public")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/api/report", serveJSONFile(filepath.Join(dataDir, "report.json")))
	r.Get("/api/index", serveJSONFile(filepath.Join(publicDir, "index.json")))
	r.Get("/api/marketplaces", serveJSONFile(filepath.Join(publicDir, "marketplaces.json")))
	r.Get("/api/plugins", serveJSONFile(filepath.Join(publicDir, "plugins.json")))
	r.Get("/api/authors/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		// Author files are named by validated logins; reject anything
		// else before it reaches the filesystem.
		if err := github.ValidateOwner(id); err != nil {
			http.Error(w, "invalid author id", http.StatusBadRequest)
			return
		}
		serveJSONFile(filepath.Join(publicDir, "authors", id+".json"))(w, req)
	})
	return r
}

func serveJSONFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
