package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	var gotPath, gotRole, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRole = r.URL.Query().Get("role")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"templates": []map[string]any{
				{"id": "tpl-1", "template_type": "missed", "description": "We missed you!", "is_primary": true},
				{"id": "tpl-2", "template_type": "incoming", "description": "Thanks for calling", "is_primary": false},
			},
		})
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIToken: "token-1"})
	require.NoError(t, err)

	templates, err := client.Templates(context.Background(), "owner")
	require.NoError(t, err)

	assert.Equal(t, "/v1/templates", gotPath)
	assert.Equal(t, "owner", gotRole)
	assert.Equal(t, "Bearer token-1", gotAuth)
	require.Len(t, templates, 2)
	assert.Equal(t, "tpl-1", templates[0].ID)
	assert.True(t, templates[0].IsPrimary)
	assert.Equal(t, "We missed you!", templates[0].Description)
}

func TestTemplatesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Templates(context.Background(), "owner")
	assert.Error(t, err)
}

func TestWriteCallLog(t *testing.T) {
	var gotPath string
	var gotBody CallLogRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	rec := CallLogRecord{
		ContactNumber:   "+15550001",
		CallType:        "missed",
		DurationSeconds: 0,
		TimestampMillis: 1000,
	}
	require.NoError(t, client.WriteCallLog(context.Background(), rec))
	assert.Equal(t, "/v1/call-logs", gotPath)
	assert.Equal(t, rec, gotBody)
}

func TestWriteMessageSentErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	err = client.WriteMessageSent(context.Background(), MessageSentRecord{
		ContactNumber: "+15550001",
		MessageSent:   "hello",
	})
	assert.Error(t, err)
}
