package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/middleware"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// handleError writes err as a JSON error body. Errors that are not AppErrors
// are logged and reported as a generic 500.
func handleError(log zerolog.Logger, w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		status := appErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			log.Error().Err(appErr).Str("code", string(appErr.Code)).Msg("Request failed")
		}
		response.Error(w, status, string(appErr.Code), appErr.Message)
		return
	}
	log.Error().Err(err).Msg("Internal server error")
	response.InternalError(w, "internal server error")
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return errors.Validation("invalid request body")
	}
	return nil
}

// resolveUserID reconciles a request-supplied user ID with the authenticated
// caller. Without authentication the supplied ID is required.
func resolveUserID(r *http.Request, supplied string) (string, error) {
	supplied = strings.TrimSpace(supplied)
	caller := middleware.GetUserID(r.Context())
	switch {
	case caller == "" && supplied == "":
		return "", errors.Validation("user_id is required")
	case caller == "":
		return supplied, nil
	case supplied == "":
		return caller, nil
	case supplied != caller:
		return "", errors.Forbidden("user_id does not match the authenticated user")
	}
	return caller, nil
}

// callerID is the authenticated user, or "" when auth is disabled.
func callerID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}
