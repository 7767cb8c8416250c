package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter, returning defaultVal when
// the parameter is absent and a validation error when it is malformed or
// outside [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryParamError(key, "query parameter must be numeric", nil)
	}
	if value < min || value > max {
		return 0, queryParamError(key, "query parameter out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

func queryParamError(key, message string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
