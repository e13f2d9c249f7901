package eps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceServer(t *testing.T, feeders map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connHvPoleTrace.do" {
			w.WriteHeader(http.StatusOK)
			return
		}
		poleID := r.URL.Query().Get("poleId")
		feeder, ok := feeders[poleID]
		if !ok {
			http.Error(w, "unknown pole", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"poleId":   poleID,
			"feederId": feeder,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTracePole(t *testing.T) {
	srv := traceServer(t, map[string]string{"P1": "F7"})
	c := New(srv.URL, 5*time.Second)

	res, err := c.TracePole(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "P1", res.PoleID)
	assert.Equal(t, "F7", res.FeederID)
}

func TestCheckDuplicatesFindsSharedFeeder(t *testing.T) {
	srv := traceServer(t, map[string]string{
		"P1": "F7",
		"P2": "F7",
		"P3": "F9",
	})
	c := New(srv.URL, 5*time.Second)

	check := c.CheckDuplicates(context.Background(), []string{"P1", "P2", "P3"})
	assert.True(t, check.HasDuplicate)
	assert.ElementsMatch(t, []string{"P1", "P2"}, check.DuplicatePoles)
}

func TestCheckDuplicatesToleratesErrors(t *testing.T) {
	srv := traceServer(t, map[string]string{"P1": "F7"})
	c := New(srv.URL, 5*time.Second)

	// P2 yields a 404; the advisory continues and finds no duplicate.
	check := c.CheckDuplicates(context.Background(), []string{"P1", "P2"})
	assert.False(t, check.HasDuplicate)
}

func TestCheckDuplicatesServiceDown(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	check := c.CheckDuplicates(context.Background(), []string{"P1"})
	assert.False(t, check.HasDuplicate, "unreachable service must not fail the check")
}

func TestHealthy(t *testing.T) {
	srv := traceServer(t, nil)
	assert.True(t, New(srv.URL, time.Second).Healthy(context.Background()))
	assert.False(t, New("http://127.0.0.1:1", 200*time.Millisecond).Healthy(context.Background()))
}
