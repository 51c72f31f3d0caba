package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habedi/dcli/pkg/config"
)

// newTestClient points a Client at handler and records backoff waits instead of sleeping.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(config.Config{
		APIKey:         "test-key",
		BaseURL:        server.URL + "/Platform",
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Millisecond,
		Timeout:        5 * time.Second,
	})
	waits := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return c, waits
}

func writeEnvelope(w http.ResponseWriter, status int, code PlatformErrorCode, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	raw, _ := json.Marshal(response)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Response":        json.RawMessage(raw),
		"ErrorCode":       int(code),
		"ThrottleSeconds": 0,
		"ErrorStatus":     "Status",
		"Message":         "message text",
		"MessageData":     map[string]string{},
	})
}
