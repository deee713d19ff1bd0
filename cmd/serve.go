package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/internal/research"
	"github.com/atelier-labs/campaign-engine/internal/retrieval"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/v1/generate", handleGenerate(env))
		r.Post("/v1/plan", handlePlan(env))
		r.Post("/v1/research", handleResearch(env))
		r.Get("/v1/frameworks/search", handleFrameworkSearch(env))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown. The signal context is already cancelled
		// here, so the drain gets its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv, shutdownTimeout)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	System      string   `json:"system,omitempty"`
	Type        string   `json:"type,omitempty"`
	Complexity  string   `json:"complexity,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	ForceModel  string   `json:"force_model,omitempty"`
	UserID      string   `json:"user_id"`
	ClientID    string   `json:"client_id,omitempty"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func handleGenerate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Prompt == "" {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		task := model.Task{
			Type:        model.TaskType(req.Type),
			Complexity:  model.Complexity(req.Complexity),
			Priority:    model.Priority(req.Priority),
			ForceModel:  req.ForceModel,
			UserID:      req.UserID,
			ClientID:    req.ClientID,
			System:      req.System,
			Messages:    []model.Message{{Role: "user", Content: req.Prompt}},
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}
		if task.Type == "" {
			task.Type = model.TaskContentGeneration
		}

		result, err := env.Orchestrator.Execute(r.Context(), task)
		if err != nil {
			zap.L().Error("generate failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"content":       result.Content,
			"model":         result.Model.ID,
			"model_label":   result.Model.Label,
			"used_fallback": result.UsedFallback,
			"input_tokens":  result.InputTokens,
			"output_tokens": result.OutputTokens,
			"cost_usd":      result.CostUSD,
			"duration_ms":   result.Duration.Milliseconds(),
		})
	}
}

type planRequest struct {
	Topic       string   `json:"topic"`
	Depth       string   `json:"depth"`
	ClientID    string   `json:"client_id,omitempty"`
	TemplateIDs []string `json:"prompt_template_ids,omitempty"`
}

func handlePlan(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.requireResearch(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}

		var req planRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Topic == "" {
			writeError(w, http.StatusBadRequest, "topic is required")
			return
		}
		depth := model.Depth(req.Depth)
		if !depth.Valid() {
			writeError(w, http.StatusBadRequest, "depth must be quick, standard, or comprehensive")
			return
		}

		plan, err := env.Planner.GeneratePlan(r.Context(), req.Topic, depth, req.TemplateIDs, req.ClientID)
		if err != nil {
			zap.L().Error("plan failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, plan)
	}
}

func handleResearch(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.requireResearch(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}

		var params research.Params
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := env.Research.Perform(r.Context(), params)
		if err != nil {
			zap.L().Error("research failed", zap.Error(err))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handleFrameworkSearch(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}

		threshold := retrieval.DefaultThreshold
		if s := r.URL.Query().Get("threshold"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid threshold")
				return
			}
			threshold = v
		}
		limit := retrieval.DefaultLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = v
		}

		chunks := env.Searcher.Search(r.Context(), query, threshold, limit)
		writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
	}
}

const shutdownTimeout = 10 * time.Second

// shutdownServer drains in-flight requests under its own deadline.
func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
