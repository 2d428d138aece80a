package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"flowsentry/internal/align"
	"flowsentry/internal/classify"
	"flowsentry/internal/model"
	"flowsentry/internal/query"
)

// APIHandler holds the dependencies for the HTTP handlers.
type APIHandler struct {
	querier    query.Querier
	aligner    *align.Aligner
	classifier *classify.Classifier
	evaluator  *classify.Evaluator
}

// classifyRequest is the body of POST /api/v1/classify.
type classifyRequest struct {
	FlowID   string                 `json:"flow_id"`
	Features map[string]interface{} `json:"features"`
}

// classifyResponse carries the verdict and the ranked probabilities.
type classifyResponse struct {
	FlowID      string                  `json:"flow_id"`
	Level       model.ThreatLevel       `json:"threat_level"`
	Reason      string                  `json:"reason"`
	Defaulted   []string                `json:"defaulted_features,omitempty"`
	Predictions []model.ClassPrediction `json:"predictions"`
}

// classifyHandler classifies one posted flow record on demand.
func (h *APIHandler) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Features) == 0 {
		http.Error(w, "request has no features", http.StatusBadRequest)
		return
	}

	rec := &model.FlowRecord{
		FlowID:    req.FlowID,
		Timestamp: time.Now(),
		Features:  req.Features,
	}
	if rec.FlowID == "" {
		rec.FlowID = "adhoc"
	}

	aligned := h.aligner.Align(rec)
	result, err := h.classifier.Classify(aligned)
	if err != nil {
		log.Printf("Classification failed for %s: %v", rec.FlowID, err)
		http.Error(w, "classification failed", http.StatusInternalServerError)
		return
	}
	verdict := h.evaluator.Evaluate(result)

	writeJSON(w, classifyResponse{
		FlowID:      verdict.FlowID,
		Level:       verdict.Level,
		Reason:      verdict.Reason,
		Defaulted:   aligned.Defaulted,
		Predictions: result.Predictions,
	})
}

// threatSummaryHandler returns aggregated verdict counts from the report
// store. Optional query parameters: since, until (RFC3339) and class.
func (h *APIHandler) threatSummaryHandler(w http.ResponseWriter, r *http.Request) {
	var since, until time.Time
	var err error

	if v := r.URL.Query().Get("since"); v != "" {
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid 'since' timestamp", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("until"); v != "" {
		until, err = time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid 'until' timestamp", http.StatusBadRequest)
			return
		}
	}

	summaries, err := h.querier.SummarizeThreats(r.Context(), since, until, r.URL.Query().Get("class"))
	if err != nil {
		log.Printf("Threat summary query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"summaries": summaries})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
