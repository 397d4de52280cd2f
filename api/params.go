package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-backend/errs"
)

// queryInt returns the integer query parameter key, or defaultValue when it is absent.
func queryInt(r *http.Request, key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewInvalidFieldError(key, "must be an integer")
	}
	return value, nil
}

// queryList collects a parameter given as comma separated values, repeated, or both.
func queryList(r *http.Request, key string) []string {
	var values []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
