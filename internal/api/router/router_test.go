package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientcheck/followup-platform/internal/auth"
	"github.com/clientcheck/followup-platform/internal/monitoring"
)

type stubVerifier struct {
	session *auth.Session
	err     error
}

func (s *stubVerifier) Verify(string) (*auth.Session, error) {
	return s.session, s.err
}

func newTestRouter(t *testing.T, verifier *stubVerifier) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := monitoring.NewStore(client, monitoring.Defaults{MinCallDurationSecs: 7, CooldownDays: 10})
	return New(&Config{
		MonitoringHandler: monitoring.NewHandler(store, nil, nil),
		SessionVerifier:   verifier,
		MetricsHandler:    http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubVerifier{err: errors.New("no session")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMetricsEndpointMounted(t *testing.T) {
	r := newTestRouter(t, &stubVerifier{err: errors.New("no session")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMonitoringRequiresSession(t *testing.T) {
	r := newTestRouter(t, &stubVerifier{err: errors.New("expired token")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/monitoring/state", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMonitoringWithSession(t *testing.T) {
	r := newTestRouter(t, &stubVerifier{session: &auth.Session{InstallationID: "inst-1", Role: "owner"}})

	req := httptest.NewRequest(http.MethodGet, "/monitoring/state", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blacklist")
}
