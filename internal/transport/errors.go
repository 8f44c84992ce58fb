package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// HTTPError reports a response with status 400 or above.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("transport: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return msg
	}
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return msg + ": " + body
}

// ErrorResponse is returned when the server answered with a non-empty errors
// array. Data holds whatever partial data came with it.
type ErrorResponse struct {
	Data   json.RawMessage
	Errors []GraphQLError
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) == 1 {
		return "transport: graphql: " + e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i := range e.Errors {
		msgs[i] = e.Errors[i].Error()
	}
	return fmt.Sprintf("transport: %d graphql errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}
