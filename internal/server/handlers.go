package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/recommend"
	"github.com/jonathan/method-advisor/internal/types"
)

var validate = validator.New()

// RecommendRequest represents the request body for /recommend
type RecommendRequest struct {
	Questionnaire   types.Questionnaire `json:"questionnaire" validate:"required,min=1"`
	DataDescription string              `json:"dataDescription,omitempty"`
	Provider        string              `json:"provider,omitempty" validate:"omitempty,oneof=deepseek openai qwen gemini"`
	APIKey          string              `json:"apiKey,omitempty"`

	// Profiles computed by an earlier call may be supplied to skip
	// the corresponding analysis stages.
	UserNeeds    *types.UserProfile        `json:"userNeeds,omitempty"`
	DataFeatures *types.DataFeatureProfile `json:"dataFeatures,omitempty"`
}

// decodeRecommendRequest parses and validates the request body
func (s *Server) decodeRecommendRequest(r *http.Request) (*RecommendRequest, error) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := validate.Struct(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, &ErrValidation{Field: fieldErrs[0].Field(), Message: "failed " + fieldErrs[0].Tag() + " validation"}
		}
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return &req, nil
}

func (s *Server) recommendOptions(req *RecommendRequest) recommend.Options {
	provider := s.provider
	if req.Provider != "" {
		provider = llm.Provider(req.Provider)
	}
	return recommend.Options{
		Questionnaire:   req.Questionnaire,
		DataDescription: req.DataDescription,
		UserNeeds:       req.UserNeeds,
		DataFeatures:    req.DataFeatures,
		Catalog:         s.catalog,
		Provider:        provider,
		UserAPIKey:      req.APIKey,
		Static:          s.static,
		Logger:          s.log,
	}
}

// handleRecommend runs the full pipeline and returns the complete bundle
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRecommendRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	bundle, err := s.run(r.Context(), s.recommendOptions(req))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, bundle)
}

// handleRecommendStream runs the pipeline and streams stage progress
// via SSE, ending with the full bundle
func (s *Server) handleRecommendStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRecommendRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := s.recommendOptions(req)
	opts.OnProgress = func(event recommend.ProgressEvent) {
		if err := sse.WriteEvent("stage", event); err != nil {
			s.log.WithError(err).Error("failed to write SSE event")
		}
	}

	bundle, err := s.run(r.Context(), opts)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}

	if err := sse.WriteEvent("result", bundle); err != nil {
		s.log.WithError(err).Error("failed to write SSE result")
		return
	}
	sse.WriteComplete(bundle.RunID, bundle.Summary.CompletionStatus)
}

// handleListMethods returns all catalog methods
func (s *Server) handleListMethods(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"methods": s.catalog.Methods,
		"count":   s.catalog.Len(),
	})
}

// handleGetMethod returns a single catalog method by name
func (s *Server) handleGetMethod(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	method := s.catalog.Find(name)
	if method == nil {
		s.errorResponse(w, http.StatusNotFound, "method not found: "+name)
		return
	}
	s.jsonResponse(w, http.StatusOK, method)
}
