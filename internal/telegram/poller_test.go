package telegram

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPollerFiltersChatAndAdvancesOffset(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("getUpdates", func(body []byte) (int, string) {
		var req getUpdatesRequest
		json.Unmarshal(body, &req)
		if req.Offset == 0 {
			return 200, `{"ok":true,"result":[
				{"update_id":10,"message":{"message_id":1,"chat":{"id":42},"text":"Coding"}},
				{"update_id":11,"message":{"message_id":2,"chat":{"id":7},"text":"spam"}},
				{"update_id":12},
				{"update_id":13,"message":{"message_id":3,"chat":{"id":42},"text":"/status"}}
			]}`
		}
		return 200, `{"ok":true,"result":[]}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	p := NewPoller(c, 42, 0, nil)
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context, msg *Message) {
			got = append(got, msg.Text)
			if len(got) == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	if diff := cmp.Diff([]string{"Coding", "/status"}, got); diff != "" {
		t.Errorf("handled messages mismatch (-want +got):\n%s", diff)
	}
	if api.count("getUpdates") > 1 {
		var req getUpdatesRequest
		json.Unmarshal(api.body("getUpdates", 1), &req)
		if req.Offset != 14 {
			t.Errorf("second poll offset = %d, want 14", req.Offset)
		}
	}
}

func TestPollerRestartsAfterFailure(t *testing.T) {
	api, c := newFakeAPI(t)
	c.MaxRetries = 0
	var n int
	api.handle("getUpdates", func([]byte) (int, string) {
		n++
		if n == 1 {
			return 500, `oops`
		}
		return 200, `{"ok":true,"result":[{"update_id":1,"message":{"message_id":1,"chat":{"id":42},"text":"hello"}}]}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoller(c, 42, 0, nil)
	p.RestartDelay = time.Millisecond
	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context, msg *Message) {
			got <- msg.Text
			cancel()
		})
	}()

	select {
	case text := <-got:
		if text != "hello" {
			t.Errorf("text = %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not recover")
	}
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
