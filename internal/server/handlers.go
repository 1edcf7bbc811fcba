package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/podcast-agent/internal/db"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/output"
	"github.com/jonathan/podcast-agent/internal/pipeline"
	"github.com/jonathan/podcast-agent/internal/types"
)

// maxRequestBytes bounds a run request body, seed image included
const maxRequestBytes = 16 << 20

// defaultListLimit is the number of runs /runs returns without ?limit
const defaultListLimit = 50

// RunRequest represents the request body for /run and /run/stream
type RunRequest struct {
	Topic       string   `json:"topic"`
	Parts       int      `json:"parts,omitempty"`
	UseSearch   *bool    `json:"use_search,omitempty"`
	ImagePrompt string   `json:"image_prompt,omitempty"`
	Stages      []string `json:"stages,omitempty"`
	// SeedImage is a base64 encoded PNG, JPEG or WebP
	SeedImage string `json:"seed_image,omitempty"`
}

// RunResponse represents the response for /run
type RunResponse struct {
	RunID      string                `json:"run_id"`
	Status     string                `json:"status"`
	SessionDir string                `json:"session_dir,omitempty"`
	Files      *output.Files         `json:"files,omitempty"`
	Result     *types.PipelineResult `json:"result"`
}

// RunDetailResponse represents the response for /runs/{id}
type RunDetailResponse struct {
	Run    *db.Run               `json:"run"`
	Script []types.ScriptSegment `json:"script"`
}

// generationRequest converts the body into a validated pipeline request
func (s *Server) generationRequest(req RunRequest) (types.GenerationRequest, error) {
	parts := req.Parts
	if parts == 0 {
		parts = s.cfg.DefaultParts
	}
	search := s.cfg.DefaultSearch
	if req.UseSearch != nil {
		search = *req.UseSearch
	}

	opts := []types.RequestOption{
		types.WithPartCount(parts),
		types.WithSearch(search),
		types.WithImagePrompt(req.ImagePrompt),
	}
	if len(req.Stages) > 0 {
		stages := make([]types.StageName, len(req.Stages))
		for i, name := range req.Stages {
			stages[i] = types.StageName(name)
		}
		opts = append(opts, types.WithStages(stages...))
	}
	if req.SeedImage != "" {
		data, err := base64.StdEncoding.DecodeString(req.SeedImage)
		if err != nil {
			return types.GenerationRequest{}, types.NewError(types.KindInvalidRequest, "seed_image is not valid base64", err)
		}
		mimeType, err := output.DetectImageType(data)
		if err != nil {
			return types.GenerationRequest{}, types.NewError(types.KindInvalidRequest, "invalid seed_image", err)
		}
		opts = append(opts, types.WithSeedImage(data, mimeType))
	}
	return types.NewGenerationRequest(req.Topic, opts...)
}

// decodeRunRequest reads and validates a run request, writing a 400 on failure
func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (types.GenerationRequest, bool) {
	var body RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return types.GenerationRequest{}, false
	}
	req, err := s.generationRequest(body)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return types.GenerationRequest{}, false
	}
	return req, true
}

func runResponse(result *types.PipelineResult, session *output.Session) RunResponse {
	resp := RunResponse{
		RunID:  result.RunID,
		Status: db.RunStatus(result),
		Result: result,
	}
	if session != nil {
		resp.SessionDir = session.Dir
		files := session.Manifest.Files
		resp.Files = &files
	}
	return resp
}

// handleRun generates a podcast and returns the result once every stage has finished
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	s.logger.Info("starting pipeline run", "topic", req.Topic, "parts", req.PartCount, "search", req.UseSearch)

	result, session, err := s.exec.Execute(r.Context(), req, nil)
	if err != nil {
		s.logger.Error("pipeline run failed", "error", err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, runResponse(result, session))
}

// handleRunStream generates a podcast and streams progress via SSE.
// Events: "step" per progress event, then "result" and "complete", or "error".
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRunRequest(w, r)
	if !ok {
		return
	}

	stream, err := openEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger
	onProgress := func(event pipeline.ProgressEvent) {
		if event.Step == pipeline.StepRun && event.Category == pipeline.CategoryStarted {
			logger = logging.WithRunID(s.logger, event.RunID)
			logger.Info("streaming pipeline run started", "topic", req.Topic)
		}
		if err := stream.send("step", event); err != nil {
			logger.Warn("failed to write SSE event", "error", err)
		}
	}

	result, session, err := s.exec.Execute(r.Context(), req, onProgress)
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		if err := stream.finish("error", map[string]string{"error": err.Error()}); err != nil {
			logger.Warn("failed to write SSE error", "error", err)
		}
		return
	}

	resp := runResponse(result, session)
	if err := stream.send("result", resp); err != nil {
		logger.Warn("failed to write SSE result", "error", err)
	}
	if err := stream.finish("complete", map[string]string{"run_id": resp.RunID, "status": resp.Status}); err != nil {
		logger.Warn("failed to write SSE completion", "error", err)
	}
	logger.Info("streaming pipeline run completed", "status", resp.Status)
}

// handleListRuns returns the most recent runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns one run with its script
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return
	}

	run, err := s.history.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	script, err := s.history.GetScript(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if script == nil {
		script = []types.ScriptSegment{}
	}
	s.jsonResponse(w, http.StatusOK, RunDetailResponse{Run: run, Script: script})
}
