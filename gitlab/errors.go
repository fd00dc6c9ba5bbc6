package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotFound matches any *ErrorResponse with status 404.
	ErrNotFound = errors.New("404 Not Found")

	// ErrUnauthorized matches any *ErrorResponse with status 401.
	ErrUnauthorized = errors.New("401 Unauthorized")

	// ErrForbidden matches any *ErrorResponse with status 403.
	ErrForbidden = errors.New("403 Forbidden")
)

// ErrorResponse is returned for every non-2xx response. Message holds GitLab's
// "message" or "error" field flattened to one line.
type ErrorResponse struct {
	Response *http.Response
	Body     []byte
	Message  string
}

func (e *ErrorResponse) Error() string {
	path := ""
	method := ""
	if e.Response.Request != nil {
		method = e.Response.Request.Method
		path = e.Response.Request.URL.Path
	}
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d", method, path, e.Response.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", method, path, e.Response.StatusCode, e.Message)
}

// Is matches the status sentinels.
func (e *ErrorResponse) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Response.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.Response.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.Response.StatusCode == http.StatusForbidden
	}
	return false
}

// StatusCode returns the HTTP status of the failed response.
func (e *ErrorResponse) StatusCode() int {
	return e.Response.StatusCode
}

func checkResponse(r *http.Response) error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}

	errResp := &ErrorResponse{Response: r}
	body, err := io.ReadAll(r.Body)
	if err == nil && len(body) > 0 {
		errResp.Body = body
		errResp.Message = parseErrorBody(body)
	}
	if errResp.Message == "" {
		errResp.Message = http.StatusText(r.StatusCode)
	}
	return errResp
}

func parseErrorBody(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return strings.TrimSpace(string(body))
	}
	if msg, ok := raw["message"]; ok {
		return flattenMessage(msg)
	}
	if msg, ok := raw["error"]; ok {
		text := flattenMessage(msg)
		if desc, ok := raw["error_description"].(string); ok && desc != "" {
			text += ": " + desc
		}
		return text
	}
	return ""
}

// flattenMessage turns GitLab's message shapes (a string, a list, or a map of
// field names to lists of problems) into a single line.
func flattenMessage(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, item := range m {
			parts = append(parts, flattenMessage(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+flattenMessage(m[k]))
		}
		return "{" + strings.Join(parts, "}, {") + "}"
	case nil:
		return ""
	default:
		return fmt.Sprint(m)
	}
}
