package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth_Live(t *testing.T) {
	h := NewHealthHandler(nil, 0)

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON[healthResponse](t, rec).Status)
}

func TestHealth_Ready(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
	}{
		{"all up", map[string]Pinger{"database": ok, "storage": ok}, http.StatusOK},
		{"storage down", map[string]Pinger{"database": ok, "storage": down}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, 0)

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tt.status, rec.Code)
			resp := decodeJSON[healthResponse](t, rec)
			assert.Len(t, resp.Checks, 2)
			assert.Equal(t, "ok", resp.Checks["database"].Status)
			if tt.status != http.StatusOK {
				assert.Equal(t, "fail", resp.Status)
				assert.Equal(t, "connection refused", resp.Checks["storage"].Message)
			}
		})
	}
}
