package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type failingChecker struct{ msg string }

func (c failingChecker) Check() error { return errors.New(c.msg) }

func TestMultiChecker(t *testing.T) {
	startup := NewStartupCompleteChecker()
	mc := NewMultiChecker(startup)
	assert.Error(t, mc.Check())

	startup.MarkComplete()
	assert.NoError(t, mc.Check())

	mc.Add(failingChecker{msg: "engine down"})
	err := mc.Check()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "engine down")
}

func TestHealthCheckHttpHandler(t *testing.T) {
	startup := NewStartupCompleteChecker()
	mux := http.NewServeMux()
	SetupHttpMux(mux, startup)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "startup is not complete", rec.Body.String())

	startup.MarkComplete()
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
