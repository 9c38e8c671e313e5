package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

var timeoutBody = func() string {
	b, _ := json.Marshal(apperrors.Body{Error: "request timeout", Code: apperrors.Code(apperrors.ErrTimeout)})
	return string(b)
}()

// Timeout bounds request handling to d. Handlers see the deadline on their
// context; a handler that overruns it gets a 503 with a JSON error body.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}
