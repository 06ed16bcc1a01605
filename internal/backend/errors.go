package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/five82/pase/internal/comanda"
)

// ErrAlreadyInState marks a conflict meaning the requested state is already
// in effect. It is the same sentinel the state machine uses.
var ErrAlreadyInState = comanda.ErrAlreadyInState

// APIError is returned for 4xx and 5xx responses.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

var alreadyMarkers = []string{"already", "ya se encuentra", "ya está", "ya esta"}

func newAPIError(method, path string, resp *http.Response) error {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = strings.TrimSpace(body.Code)
		apiErr.Message = strings.TrimSpace(firstNonEmpty(body.Message, body.Error))
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusConflict && isAlreadyInState(apiErr) {
		return fmt.Errorf("%w: %w", ErrAlreadyInState, apiErr)
	}
	return apiErr
}

func isAlreadyInState(e *APIError) bool {
	if strings.EqualFold(e.Code, "ALREADY_IN_STATE") {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, marker := range alreadyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, and 5xx responses.
func IsTransient(err error) bool {
	if err == nil || comanda.IsBenign(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return false
}

// IsConflict reports whether err is a non-benign client error the user should
// see, such as a 409 or 422 the backend rejected.
func IsConflict(err error) bool {
	if err == nil || comanda.IsBenign(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500
	}
	return false
}
