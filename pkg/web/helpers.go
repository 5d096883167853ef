package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ParseUUID extracts and validates a UUID path parameter. Returns the parsed
// value and a boolean indicating success; on failure a 400 has been written.
func ParseUUID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, param string) (uuid.UUID, bool) {
	pathValue := r.PathValue(param)
	id, err := uuid.Parse(pathValue)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", param, pathValue))
		return uuid.UUID{}, false
	}
	return id, true
}

// GetCredentialOrAbort retrieves the forwarded credential from the request
// context. Returns the credential and a boolean indicating success.
func GetCredentialOrAbort(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	credential, ok := GetCredential(r.Context())
	if !ok || credential == "" {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: missing credential")
		return "", false
	}
	return credential, true
}
