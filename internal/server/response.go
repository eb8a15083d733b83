package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/sunburst"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, status int, code errs.Code, msg string, retry bool) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: string(code), Message: msg, Retry: retry}})
}

// writeErr maps err to a status code and writes it.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "err", err)
	}

	var rl *errs.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
	}
	writeError(w, r, status, code, errs.UserMessage(err), errs.IsLoadError(err))
}

func classify(err error) (int, errs.Code) {
	var rl *errs.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, errs.ErrCodeRateLimited
	case errors.Is(err, sunburst.ErrNotActivatable):
		return http.StatusBadRequest, errs.ErrCodeInvalidInput
	case errs.IsSuperseded(err):
		// The client went away; nobody reads this.
		return http.StatusServiceUnavailable, errs.ErrCodeSuperseded
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound, errs.ErrCodeNotFound
	}

	code := errs.GetCode(err)
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidPackage, errs.ErrCodeInvalidVersion,
		errs.ErrCodeInvalidThreshold, errs.ErrCodeInvalidState, errs.ErrCodeInvalidFormat,
		errs.ErrCodeUnsupported:
		return http.StatusBadRequest, code
	case errs.ErrCodeNotFound, errs.ErrCodePackageNotFound, errs.ErrCodeNodeNotFound:
		return http.StatusNotFound, code
	case errs.ErrCodeRateLimited:
		return http.StatusTooManyRequests, code
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway, code
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout, code
	case "":
		return http.StatusInternalServerError, errs.ErrCodeInternal
	}
	return http.StatusInternalServerError, code
}
