// Package api serves the analysis tools over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/report"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/engine"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/logger"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 32 << 20

// Analyzer is the engine surface the handlers need.
type Analyzer interface {
	AnalyzeMetadata(ctx context.Context, req engine.MetadataRequest) (types.VideoMetadata, error)
	AnalyzeGOP(ctx context.Context, req engine.GOPRequest) (gop.Stats, error)
	CompareQuality(ctx context.Context, req engine.QualityRequest) (engine.QualityComparison, error)
	AnalyzeArtifacts(ctx context.Context, req engine.ArtifactsRequest) (artifacts.Analysis, error)
	SummarizeTranscode(ctx context.Context, req engine.SummaryRequest) (report.TranscodeReport, error)
}

// Response is the success envelope of every tool call.
type Response struct {
	Success bool        `json:"success"`
	Tool    string      `json:"tool,omitempty"`
	Result  interface{} `json:"result"`
}

// ToolListResponse is returned by GET /api/v1/tools.
type ToolListResponse struct {
	Tools []Tool `json:"tools"`
	Count int    `json:"count"`
}

// Handlers exposes the analyzer as HTTP handlers.
type Handlers struct {
	analyzer     Analyzer
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	maxBodyBytes int64
}

// NewHandlers creates the tool handlers. A non-positive maxBodyBytes uses
// DefaultMaxBodyBytes.
func NewHandlers(analyzer Analyzer, errorHandler *apperrors.ErrorHandler, log logger.Logger, maxBodyBytes int64) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handlers{
		analyzer:     analyzer,
		errorHandler: errorHandler,
		logger:       log.WithField("component", "api_handlers"),
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes registers the tool routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tools", h.HandleListTools).Methods("GET")
	api.HandleFunc("/tools/{tool}", h.HandleTool).Methods("POST")

	h.logger.Info("Tool routes registered")
}

// HandleListTools lists the available tools.
func (h *Handlers) HandleListTools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, ToolListResponse{Tools: Tools, Count: len(Tools)})
}

// HandleTool runs the tool named in the path.
func (h *Handlers) HandleTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["tool"]
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	res, err := Invoke(r.Context(), h.analyzer, name, body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, Response{Success: true, Tool: name, Result: res})
}

// Invoke decodes a JSON request for tool from body and runs it.
func Invoke(ctx context.Context, a Analyzer, tool string, body io.Reader) (interface{}, error) {
	switch tool {
	case engine.OpVideoMetadata:
		return invoke(ctx, body, a.AnalyzeMetadata)
	case engine.OpGOPStructure:
		return invoke(ctx, body, a.AnalyzeGOP)
	case engine.OpQualityMetrics:
		return invoke(ctx, body, a.CompareQuality)
	case engine.OpArtifacts:
		return invoke(ctx, body, a.AnalyzeArtifacts)
	case engine.OpTranscodeSummary:
		return invoke(ctx, body, a.SummarizeTranscode)
	default:
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tool %q", tool))
	}
}

func invoke[Req, Res any](ctx context.Context, body io.Reader, run func(context.Context, Req) (Res, error)) (interface{}, error) {
	var req Req
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}

	res, err := run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// decodeBody reads a single JSON object into dst. An empty body decodes as
// {} so the engine reports the missing parameters.
func decodeBody(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.Is(err, io.EOF):
			return nil
		case stderrors.As(err, &tooLarge):
			return apperrors.New(apperrors.ErrorTypeMalformedInput,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				http.StatusRequestEntityTooLarge)
		default:
			return apperrors.NewMalformedInputError("body", fmt.Sprintf("invalid request body: %v", err))
		}
	}
	if dec.More() {
		return apperrors.NewMalformedInputError("body", "request body must be a single JSON object")
	}
	return nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("Failed to encode response")
	}
}
