package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

// gte returns a ParamValidator that checks if the argument is greater than or equal to the given value.
func gte(min int64) ParamValidator {
	return func(v int64) bool { return v >= min }
}

// between returns a ParamValidator that checks if the argument lies in [min, max].
func between(min, max int64) ParamValidator {
	return func(v int64) bool { return v >= min && v <= max }
}

func ParseValidateGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min int64) (int32, bool) {
	return parseValidate(r, w, logger, key, gte(min))
}

func ParseValidateBetween(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min, max int64) (int32, bool) {
	return parseValidate(r, w, logger, key, between(min, max))
}

func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return int32(intValue), true
}
