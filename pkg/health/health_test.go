package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestRun(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("index", up)
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)

	c.RegisterOptional("redis", down)
	r := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "connection refused", r.Components["redis"].Message)

	c.Register("postgres", down)
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestRunTimesOutSlowChecks(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r := c.Run(context.Background())
	assert.Equal(t, StatusDown, r.Status)
	assert.Equal(t, "no answer within 10ms", r.Components["slow"].Message)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(time.Second)
	c.RegisterOptional("kafka", down)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var r Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, StatusDegraded, r.Status)

	c.Register("index", down)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
