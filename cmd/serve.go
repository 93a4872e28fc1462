package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/cache"
	"github.com/crestline-labs/fincompare/internal/pipeline"
	"github.com/crestline-labs/fincompare/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the chi router for the analysis API.
func newRouter(env *analyzerEnv) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", handleUploadDocument(env.Documents))
		r.Post("/analyses", handleCreateAnalysis(env))
		r.Get("/analyses", handleListAnalyses(env.Store))
		r.Get("/analyses/{id}", handleGetAnalysis(env.Store))
		r.Post("/compare", handleCompare(env))
		r.Get("/comparisons/{id}", handleGetComparison(env.Store))
		r.Get("/cache/stats", handleCacheStats(env))
	})

	return r
}

type documentRequest struct {
	Text string `json:"text"`
}

// handleUploadDocument stores raw document text and returns an ID usable
// in later analysis requests.
func handleUploadDocument(documents *cache.DocumentCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		id := uuid.NewString()
		documents.Set(id, []byte(req.Text))
		writeJSON(w, http.StatusCreated, map[string]string{"document_id": id})
	}
}

type analysisRequest struct {
	Company    string `json:"company"`
	Text       string `json:"text,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Ticker     string `json:"ticker,omitempty"`
}

// resolve turns an API request into a pipeline request, loading uploaded
// document text when only an ID was sent.
func (req analysisRequest) resolve(documents *cache.DocumentCache) (pipeline.AnalyzeRequest, error) {
	out := pipeline.AnalyzeRequest{
		Company:    req.Company,
		Text:       req.Text,
		DocumentID: req.DocumentID,
		Ticker:     req.Ticker,
	}
	if out.Text == "" && req.DocumentID != "" {
		data, ok := documents.Get(req.DocumentID)
		if !ok {
			return out, eris.Errorf("document %s not found or expired", req.DocumentID)
		}
		out.Text = string(data)
	}
	return out, nil
}

func handleCreateAnalysis(env *analyzerEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Company == "" {
			writeError(w, http.StatusBadRequest, "company is required")
			return
		}
		if req.Text == "" && req.DocumentID == "" {
			writeError(w, http.StatusBadRequest, "text or document_id is required")
			return
		}

		preq, err := req.resolve(env.Documents)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		result, err := env.Analyzer.Analyze(r.Context(), preq)
		if err != nil {
			if eris.Is(err, pipeline.ErrNameMismatch) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			zap.L().Error("analysis failed", zap.String("company", req.Company), zap.Error(err))
			writeError(w, http.StatusBadGateway, "analysis failed")
			return
		}

		if err := env.Store.SaveAnalysis(r.Context(), result); err != nil {
			zap.L().Error("save analysis failed", zap.String("id", result.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func handleListAnalyses(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.AnalysisFilter{
			Company: r.URL.Query().Get("company"),
			Limit:   50,
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			limit := 0
			if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = limit
		}

		analyses, err := st.ListAnalyses(r.Context(), filter)
		if err != nil {
			zap.L().Error("list analyses failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
	}
}

func handleGetAnalysis(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analysis, err := st.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		if err != nil {
			zap.L().Error("get analysis failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get failed")
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

type compareRequest struct {
	Companies []analysisRequest `json:"companies"`
}

func handleCompare(env *analyzerEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Companies) < 2 || len(req.Companies) > 4 {
			writeError(w, http.StatusBadRequest, "compare needs 2-4 companies")
			return
		}

		reqs := make([]pipeline.AnalyzeRequest, len(req.Companies))
		for i, c := range req.Companies {
			if c.Company == "" {
				writeError(w, http.StatusBadRequest, "company is required for every entry")
				return
			}
			if c.Text == "" && c.DocumentID == "" {
				writeError(w, http.StatusBadRequest, "text or document_id is required for every entry")
				return
			}
			preq, err := c.resolve(env.Documents)
			if err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			reqs[i] = preq
		}

		comparison, err := env.Analyzer.CompareCompanies(r.Context(), reqs)
		if err != nil {
			if eris.Is(err, pipeline.ErrNameMismatch) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			zap.L().Error("comparison failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "comparison failed")
			return
		}

		if err := env.Store.SaveComparison(r.Context(), comparison); err != nil {
			zap.L().Error("save comparison failed", zap.String("id", comparison.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}

		writeJSON(w, http.StatusCreated, comparison)
	}
}

func handleGetComparison(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comparison, err := st.GetComparison(r.Context(), chi.URLParam(r, "id"))
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comparison not found")
			return
		}
		if err != nil {
			zap.L().Error("get comparison failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get failed")
			return
		}
		writeJSON(w, http.StatusOK, comparison)
	}
}

func handleCacheStats(env *analyzerEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]cache.Stats{
			"web":       env.WebCache.GetStats(),
			"documents": env.Documents.GetStats(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
