package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-reservations/internal/errs"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// writeError maps an engine error to its HTTP status and keeps the code and
// context (details, alternatives) in the payload for the caller to act on.
func writeError(w http.ResponseWriter, err error) {
	ee := errs.As(err)
	body := map[string]interface{}{}
	if ee.Details != nil {
		body["details"] = ee.Details
	}
	if ee.Alternatives != nil {
		body["alternatives"] = ee.Alternatives
	}
	var data interface{}
	if len(body) > 0 {
		data = body
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ee.StatusCode())
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success:   false,
		Message:   ee.Message,
		Error:     ee.Code,
		Data:      data,
		Timestamp: time.Now(),
	})
}
