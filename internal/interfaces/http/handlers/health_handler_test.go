package handlers

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/pkg/types/common"
)

func pingOK(context.Context) error   { return nil }
func pingDown(context.Context) error { return stdliberrors.New("connection refused") }

func probe(t *testing.T, fn http.HandlerFunc) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLiveness_IgnoresDependencies(t *testing.T) {
	h := NewHealthHandler("v1.2.3", CheckerFunc("redis", pingDown))
	code, body := probe(t, h.Liveness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, common.HealthUp, body.Status)
	assert.Equal(t, "v1.2.3", body.Version)
}

func TestReadiness(t *testing.T) {
	code, body := probe(t, NewHealthHandler("dev").Readiness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, common.HealthUp, body.Status)

	h := NewHealthHandler("dev", CheckerFunc("redis", pingOK), CheckerFunc("postgres", pingDown))
	code, body = probe(t, h.Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, common.HealthDown, body.Status)
	require.Len(t, body.Components, 2)
	assert.Equal(t, "redis", body.Components[0].Name)
	assert.Equal(t, common.HealthUp, body.Components[0].Status)
	assert.Equal(t, "postgres", body.Components[1].Name)
	assert.Equal(t, "connection refused", body.Components[1].Message)
}

func TestDetailed(t *testing.T) {
	h := NewHealthHandler("dev", CheckerFunc("redis", pingOK))
	code, body := probe(t, h.Detailed)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Components, 1)
	assert.NotEmpty(t, body.Components[0].Latency)

	h = NewHealthHandler("dev", CheckerFunc("kafka", pingDown))
	code, body = probe(t, h.Detailed)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, common.HealthDegraded, body.Status)
}

//Personal.AI order the ending
