package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/unbindai/unbind/internal/docparse"
	"github.com/unbindai/unbind/internal/llm"
	"github.com/unbindai/unbind/internal/pipeline"
	"github.com/unbindai/unbind/internal/store"
)

// minDocumentChars rejects uploads with too little extractable text to
// produce a meaningful analysis.
const minDocumentChars = 50

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Role     string `json:"role"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileName == "" {
		req.FileName = "pasted-text.txt"
	}
	s.enqueueAnalysis(w, r, req.Text, req.Role, sanitizeFilename(req.FileName))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with 1MB headroom for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !docparse.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	text, err := docparse.ExtractText(data, filename)
	if err != nil {
		s.log.Warn("text extraction failed", "file", filename, "error", err)
		jsonError(w, "could not extract text from this file", http.StatusUnprocessableEntity)
		return
	}

	s.enqueueAnalysis(w, r, text, r.FormValue("role"), filename)
}

func (s *Server) enqueueAnalysis(w http.ResponseWriter, r *http.Request, text, role, filename string) {
	if len(strings.TrimSpace(text)) < minDocumentChars {
		jsonError(w, "the document text is too short to analyze", http.StatusUnprocessableEntity)
		return
	}

	job := pipeline.NewJob(uuid.NewString(), UserID(r), filename, text, role)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":   job.ID,
		"status":  pipeline.StatusQueued,
		"pollUrl": fmt.Sprintf("/api/analysis/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.UserID != UserID(r) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type analysisResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	FileName       string          `json:"fileName"`
	AnalysisDate   time.Time       `json:"analysisDate"`
	AnalysisResult json.RawMessage `json:"analysisResult"`
	DocumentText   string          `json:"documentText,omitempty"`
}

func toAnalysisResponse(a *store.Analysis, includeText bool) analysisResponse {
	resp := analysisResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		FileName:       a.FileName,
		AnalysisDate:   a.AnalysisDate,
		AnalysisResult: a.Result,
	}
	if includeText {
		resp.DocumentText = a.DocumentText
	}
	return resp
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.AnalysesByUser(r.Context(), UserID(r))
	if err != nil {
		s.log.Error("list analyses", "error", err)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	out := make([]analysisResponse, 0, len(list))
	for i := range list {
		out = append(out, toAnalysisResponse(&list[i], false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.AnalysisByID(r.Context(), chi.URLParam(r, "analysisID"), UserID(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "analysis not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load analysis", "error", err)
		jsonError(w, "failed to load analysis", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisResponse(a, true))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentText string `json:"documentText"`
		AnalysisID   string `json:"analysisId"`
		Scenario     string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	text := req.DocumentText
	if text == "" && req.AnalysisID != "" {
		a, err := s.store.AnalysisByID(r.Context(), req.AnalysisID, UserID(r))
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "analysis not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.log.Error("load analysis", "error", err)
			jsonError(w, "failed to load analysis", http.StatusInternalServerError)
			return
		}
		text = a.DocumentText
	}
	if strings.TrimSpace(text) == "" {
		jsonError(w, "documentText or analysisId is required", http.StatusUnprocessableEntity)
		return
	}

	result, err := s.analyzer.SimulateImpact(r.Context(), text, req.Scenario)
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			jsonError(w, "the AI analysis engine is currently unreachable", http.StatusBadGateway)
			return
		}
		s.log.Error("simulate impact", "error", err)
		jsonError(w, "simulation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llmClient == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.llmClient.Model(),
		"stats": s.llmClient.StatsSnapshot(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
