package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTelemetry struct {
	got []byte
	err error
}

func (f *fakeTelemetry) PublishTelemetry(_ context.Context, payload []byte) error {
	f.got = payload
	return f.err
}

func TestTelemetryHandler_AlwaysAcknowledges(t *testing.T) {
	ft := &fakeTelemetry{err: errors.New("broker down")}
	rr := httptest.NewRecorder()
	NewTelemetryHandler(ft).Batch(rr, httptest.NewRequest(http.MethodPost, "/events/batch", strings.NewReader(`[{"e":"click"}]`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"received"}`, rr.Body.String())
	assert.Equal(t, `[{"e":"click"}]`, string(ft.got))

	rr = httptest.NewRecorder()
	NewTelemetryHandler(nil).Batch(rr, httptest.NewRequest(http.MethodPost, "/events/batch", strings.NewReader("not json")))
	assert.Equal(t, http.StatusOK, rr.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(fakePinger{}).Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("down")}).Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "db_unavailable", errorCode(t, rr))
}
