package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gimmefy/core"
)

func TestSinkPostsEvents(t *testing.T) {
	var got core.Event
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnEvent(core.NewLevelUp("alice", 4))

	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
	if got.Username != "alice" || got.Type != core.EventLevelUp || got.Level != 4 {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestSinkNoEndpoints(t *testing.T) {
	// must be a no-op, not a panic
	New(nil).OnEvent(core.NewUserCreated("bob"))
}
