// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// GetAndValidateURLParam extracts, decodes, and validates a URL parameter from the request.
// Returns the decoded value or an error if invalid.
// Validation rules:
// - Must not be empty after trimming whitespace
// - Must not contain any whitespace characters
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	encodedValue := chi.URLParam(r, paramName)

	decoded, err := url.PathUnescape(encodedValue)
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}

	if strings.ContainsAny(decoded, " \t\n\r") {
		return "", fmt.Errorf("%s cannot contain whitespace", paramName)
	}

	return decoded, nil
}

// ResourceKeyFromRequest builds a validated resource key from the locale and type URL parameters
func ResourceKeyFromRequest(r *http.Request) (naming.ResourceKey, error) {
	locale, err := GetAndValidateURLParam(r, "locale")
	if err != nil {
		return naming.ResourceKey{}, syncerr.Wrap(syncerr.CodeValidation, "read", "", err, "invalid locale")
	}
	typ, err := GetAndValidateURLParam(r, "type")
	if err != nil {
		return naming.ResourceKey{}, syncerr.Wrap(syncerr.CodeValidation, "read", "", err, "invalid type")
	}
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return naming.ResourceKey{}, syncerr.Wrap(syncerr.CodeValidation, "read", "", err, "invalid resource key")
	}
	return key, nil
}

// AssetPathFromRequest returns the decoded wildcard path of the request, "" for the working copy root
func AssetPathFromRequest(r *http.Request) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeValidation, "read", "", err, "invalid URL encoding in path")
	}
	return strings.Trim(decoded, "/"), nil
}
