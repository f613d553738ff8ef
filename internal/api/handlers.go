package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/cadence/internal/corrector"
	"github.com/MikeSquared-Agency/cadence/internal/detector"
	"github.com/MikeSquared-Agency/cadence/internal/golden"
	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/session"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// EvaluateRequest is the body for POST /api/v1/evaluations.
type EvaluateRequest struct {
	ConversationID string            `json:"conversation_id"`
	AgentID        string            `json:"agent_id,omitempty"`
	Niche          string            `json:"niche,omitempty"`
	Turns          []transcript.Turn `json:"turns"`
	Spec           *promptspec.Spec  `json:"spec,omitempty"`
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	eval, err := s.manager.EvaluateAndStore(r.Context(), req.ConversationID, req.Turns, rubric.Options{
		AgentID: req.AgentID,
		Niche:   req.Niche,
		Spec:    req.Spec,
	})
	if err != nil {
		s.logger.Error("evaluation failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	eval, err := s.manager.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("session load failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}
	if eval == nil {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) getCorrectedTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	eval, err := s.manager.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("session load failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "session load failed")
		return
	}
	if eval == nil {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"turns":           session.CorrectedTranscript(eval),
	})
}

func (s *Server) applyCorrections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	var patch session.CorrectionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	eval, err := s.manager.ApplyManualCorrections(r.Context(), id, patch)
	if err != nil {
		s.logger.Error("correction failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "correction failed")
		return
	}
	if eval == nil {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// ValidateRequest is the body for POST /api/v1/responses/validate.
type ValidateRequest struct {
	Response string            `json:"response"`
	TurnID   string            `json:"turn_id,omitempty"`
	Spec     *promptspec.Spec  `json:"spec,omitempty"`
	History  []transcript.Turn `json:"history,omitempty"`
}

// ValidateResponse bundles the detected violations with the corrector's
// suggested replacement in one round trip.
type ValidateResponse struct {
	Violations []detector.Violation `json:"violations"`
	Correction corrector.Result     `json:"correction"`
}

func (s *Server) validateResponse(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.TurnID == "" {
		req.TurnID = uuid.NewString()
	}

	violations := detector.Validate(req.Response, req.TurnID, req.Spec, req.History)
	result := corrector.AutoCorrect(violations, req.History, req.Spec)
	if violations == nil {
		violations = []detector.Violation{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Violations: violations, Correction: result})
}

// LintRequest is the body for POST /api/v1/specs/lint.
type LintRequest struct {
	Spec       promptspec.Spec `json:"spec"`
	PromptText string          `json:"prompt_text,omitempty"`
}

func (s *Server) lintSpec(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	issues := promptspec.Lint(req.Spec, req.PromptText)
	promptspec.SortIssues(issues)
	if issues == nil {
		issues = []promptspec.LintIssue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues, "count": len(issues)})
}

func (s *Server) pinGolden(w http.ResponseWriter, r *http.Request) {
	var sample golden.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if sample.PinnedAt == 0 {
		sample.PinnedAt = time.Now().UnixMilli()
	}
	if err := s.golden.Pin(r.Context(), sample); err != nil {
		s.logger.Error("golden pin failed", "agent_id", sample.AgentID, "error", err)
		writeError(w, http.StatusInternalServerError, "pin failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pinned"})
}

// ReplayRequest is the body for POST /api/v1/golden/replay.
type ReplayRequest struct {
	golden.Query
	Spec *promptspec.Spec `json:"spec,omitempty"`
}

func (s *Server) replayGolden(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	summaries, err := golden.Replay(r.Context(), s.golden, req.Query, req.Spec, s.version)
	if err != nil {
		s.logger.Error("golden replay failed", "error", err)
		writeError(w, http.StatusInternalServerError, "replay failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": summaries, "count": len(summaries)})
}
