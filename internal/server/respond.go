package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"procure/internal/catalog"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSellerError distinguishes field-level validation failures from
// malformed JSON so the client sees which entry was rejected.
func writeSellerError(w http.ResponseWriter, err error) {
	var vErr *catalog.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "invalid seller list",
			"index": vErr.Index,
			"field": vErr.Field,
			"why":   vErr.Reason,
		})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid seller list: "+err.Error())
}
