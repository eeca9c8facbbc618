package api

import (
	"encoding/json"
	"net/http"

	"github.com/plainsql/plainsql/internal/auth"
	"github.com/plainsql/plainsql/internal/nl2sql"
	"github.com/plainsql/plainsql/internal/nl2sql/manual"
	"github.com/plainsql/plainsql/internal/observability"
)

const (
	maxTranslateSentences = 500
	maxTranslateBodyBytes = 1 << 20
)

type translateRequest struct {
	Sentences []string `json:"sentences"`
}

type translatedSentence struct {
	SQL        string `json:"sql"`
	Intent     string `json:"intent"`
	Recognized bool   `json:"recognized"`
}

type translateResponse struct {
	Results []string             `json:"results"`
	Details []translatedSentence `json:"details"`
}

func handleTranslate(_ Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleTranslate); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req translateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTranslateBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translate request", false, map[string]any{"details": err.Error()})
		return
	}
	if req.Sentences == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "SENTENCES_REQUIRED", "sentences is required", false, nil)
		return
	}
	if len(req.Sentences) > maxTranslateSentences {
		writeError(r.Context(), w, http.StatusBadRequest, "TOO_MANY_SENTENCES", "too many sentences in one request", false, map[string]any{"max_sentences": maxTranslateSentences})
		return
	}

	outcomes := manual.TranslateAll(req.Sentences)
	resp := translateResponse{
		Results: make([]string, 0, len(outcomes)),
		Details: make([]translatedSentence, 0, len(outcomes)),
	}
	for _, outcome := range outcomes {
		recognized := outcome.Recognized()
		observability.ObserveTranslation(outcome.Intent.String(), nl2sql.RulesProvider, recognized)
		resp.Results = append(resp.Results, outcome.String())
		resp.Details = append(resp.Details, translatedSentence{
			SQL:        outcome.String(),
			Intent:     outcome.Intent.String(),
			Recognized: recognized,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
