package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// GenericFailure is shown for transport failures and unreadable errors.
const GenericFailure = "Something went wrong!"

// APIError is a non-2xx response. Message is the backend's validation
// errors flattened into one display string.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage is the text to show for err: the flattened server message for
// an APIError, GenericFailure for everything else.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericFailure
}

// parseAPIError reads the error shapes the backend produces:
// {"non_field_errors": [...]}, {"error": "..."}, {"detail": "..."} or a map
// of field name to messages. non_field_errors shows only its first message,
// a field map shows every message joined by spaces in sorted field order.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 || strings.HasPrefix(apiErr.Message, "<") {
			apiErr.Message = ""
		}
		return apiErr
	}

	apiErr.Fields = make(map[string][]string, len(raw))
	for k, v := range raw {
		apiErr.Fields[k] = messages(v)
	}

	if nfe := apiErr.Fields["non_field_errors"]; len(nfe) > 0 {
		apiErr.Message = nfe[0]
		return apiErr
	}

	keys := make([]string, 0, len(apiErr.Fields))
	for k := range apiErr.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, apiErr.Fields[k]...)
	}
	apiErr.Message = strings.Join(parts, " ")
	return apiErr
}

// messages flattens a field value: a string, a list of strings or a nested
// list.
func messages(v json.RawMessage) []string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []json.RawMessage
	if json.Unmarshal(v, &list) == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}
	return nil
}
