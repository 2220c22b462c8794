package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/api"
	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/metrics"
	"github.com/ShatskikhS/NotifyMe/internal/provider"
	"github.com/ShatskikhS/NotifyMe/internal/queue"
	"github.com/ShatskikhS/NotifyMe/internal/ratelimiter"
	"github.com/ShatskikhS/NotifyMe/internal/repository"
	"github.com/ShatskikhS/NotifyMe/internal/service"
)

type testServer struct {
	srv  *httptest.Server
	repo *repository.MockNotificationRepository
}

type serverOpts struct {
	debug   bool
	limiter *ratelimiter.RequestLimiter
	sendErr error
}

func newTestServer(t *testing.T, opts serverOpts) *testServer {
	t.Helper()
	repo := repository.NewMockNotificationRepository()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	console := provider.SenderFunc{Ch: domain.ChannelConsole, Fn: func(context.Context, *domain.Notification) error {
		return opts.sendErr
	}}
	disp := provider.NewDispatcher([]provider.Sender{console}, nil, m.DispatchHooks(), zap.NewNop())
	svc := service.NewNotificationService(repo, disp, domain.Rules{AllowedSources: domain.DefaultSources}, zap.NewNop())

	h := api.NewRouter(api.Deps{
		Service:  svc,
		Queue:    queue.New(),
		Gatherer: reg,
		Limiter:  opts.limiter,
		Debug:    opts.debug,
		Logger:   zap.NewNop(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

const createBody = `{"source":"telegramBot","message":"Server is down","channels":["console"],"priority":"high"}`

func deferredBody(in time.Duration) string {
	return fmt.Sprintf(`{"source":"newRoute","message":"later","channels":["console"],"sendAt":%q}`,
		time.Now().Add(in).UTC().Format(time.RFC3339))
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	before := time.Now().UnixMilli()

	resp, body := ts.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.GreaterOrEqual(t, body["time"].(float64), float64(before))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	resp, body := ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHealthAndCorrelationID(t *testing.T) {
	ts := newTestServer(t, serverOpts{})

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))

	resp2, _ := ts.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, resp2.Header.Get("X-Correlation-ID"))
}

func TestCreate_Immediate(t *testing.T) {
	ts := newTestServer(t, serverOpts{})

	resp, body := ts.do(t, http.MethodPost, "/notifications", createBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "delivered", body["status"])
	assert.Equal(t, float64(1), body["notificationId"])
	assert.NotNil(t, body["time"])

	stored, err := ts.repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)
	assert.Equal(t, domain.PriorityHigh, stored.Priority)
}

func TestCreate_DeliveryFailureStillSucceeds(t *testing.T) {
	ts := newTestServer(t, serverOpts{sendErr: errors.New("stdout closed")})

	resp, body := ts.do(t, http.MethodPost, "/notifications", createBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deliveryError", body["status"])
}

func TestCreate_UnconfiguredChannelIsDeliveryError(t *testing.T) {
	ts := newTestServer(t, serverOpts{})

	resp, body := ts.do(t, http.MethodPost, "/notifications",
		`{"source":"telegramBot","message":"m","channels":["console","email"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deliveryError", body["status"])
}

func TestCreate_Deferred(t *testing.T) {
	ts := newTestServer(t, serverOpts{})

	resp, body := ts.do(t, http.MethodPost, "/notifications", deferredBody(time.Hour))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "awaitingDelivery", body["status"])
}

func TestCreate_ValidationMessages(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		body  string
		want  string
	}{
		{"unknown field, production", false, `{"source":"telegramBot","message":"m","channels":["console"],"extra":1}`, "Invalid request payload"},
		{"unknown field, debug", true, `{"source":"telegramBot","message":"m","channels":["console"],"extra":1}`, `unknown field "extra"`},
		{"empty body", false, ``, "Invalid request payload"},
		{"bad channel, production", false, `{"source":"telegramBot","message":"m","channels":["fax"]}`, "Invalid value"},
		{"bad channel, debug", true, `{"source":"telegramBot","message":"m","channels":["fax"]}`, `"fax" is invalid value`},
		{"missing message", false, `{"source":"telegramBot","channels":["console"]}`, "Required field missing"},
		{"past sendAt", false, deferredBody(-time.Hour), "Invalid date"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, serverOpts{debug: tc.debug})
			resp, body := ts.do(t, http.MethodPost, "/notifications", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["error"], tc.want)
			assert.Equal(t, 0, ts.repo.Len())
		})
	}
}

func TestList(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	ts.do(t, http.MethodPost, "/notifications", createBody)
	ts.do(t, http.MethodPost, "/notifications", deferredBody(time.Hour))

	resp, body := ts.do(t, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 2)

	first := body["1"].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "telegramBot", first["source"])
	assert.Nil(t, first["sendAt"])
	assert.NotNil(t, body["2"].(map[string]any)["sendAt"])
}

func TestGetByID(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	ts.do(t, http.MethodPost, "/notifications", createBody)

	resp, body := ts.do(t, http.MethodGet, "/notifications/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Server is down", body["message"])

	resp, body = ts.do(t, http.MethodGet, "/notifications/5", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "record with id 5 not found", body["error"])

	for _, bad := range []string{"abc", "0", "-1"} {
		resp, _ = ts.do(t, http.MethodGet, "/notifications/"+bad, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "id=%s", bad)
	}
}

func TestUpdate(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	ts.do(t, http.MethodPost, "/notifications", createBody)

	resp, body := ts.do(t, http.MethodPatch, "/notifications/1", `{"message":"Server is back"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotNil(t, body["time"])
	updated := body["updated"].(map[string]any)
	assert.Equal(t, "Server is back", updated["message"])
	assert.Equal(t, "telegramBot", updated["source"])

	resp, _ = ts.do(t, http.MethodPatch, "/notifications/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPatch, "/notifications/9", `{"message":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	later := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	resp, body = ts.do(t, http.MethodPatch, "/notifications/1", fmt.Sprintf(`{"sendAt":%q}`, later))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "missing sendAt field")
}

func TestCancel(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	ts.do(t, http.MethodPost, "/notifications", createBody)
	ts.do(t, http.MethodPost, "/notifications", deferredBody(time.Hour))

	resp, body := ts.do(t, http.MethodDelete, "/notifications/1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "not scheduled for future delivery")

	resp, body = ts.do(t, http.MethodDelete, "/notifications/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = ts.do(t, http.MethodGet, "/notifications/2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/notifications/2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStorageErrorIsInternal(t *testing.T) {
	for _, debug := range []bool{false, true} {
		ts := newTestServer(t, serverOpts{debug: debug})
		ts.repo.FindAllErr = &domain.InvalidStorageFileError{Path: "data/x.json"}

		resp, body := ts.do(t, http.MethodGet, "/notifications", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		if debug {
			assert.Contains(t, body["error"], "data/x.json")
		} else {
			assert.Equal(t, "Internal Server Error", body["error"])
		}
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, serverOpts{limiter: ratelimiter.NewRequestLimiter(2, time.Hour)})

	for i := 0; i < 2; i++ {
		resp, _ := ts.do(t, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := ts.do(t, http.MethodGet, "/notifications", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Contains(t, body["error"], "Too many requests")

	resp, _ = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoints(t *testing.T) {
	ts := newTestServer(t, serverOpts{})
	ts.do(t, http.MethodPost, "/notifications", createBody)

	resp, body := ts.do(t, http.MethodGet, "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["stored_notifications"])
	depth := body["queue_depth"].(map[string]any)
	assert.Equal(t, float64(0), depth["total"])

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/metrics", nil)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	text, _ := io.ReadAll(raw.Body)
	assert.Contains(t, string(text), `notifications_sent_total{channel="console"} 1`)
}
