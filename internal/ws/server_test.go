package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/joblog"
)

// anyMessage can hold every server→client message for decoding in tests.
type anyMessage struct {
	Type   string           `json:"type"`
	JobID  string           `json:"job_id"`
	Status job.Status       `json:"status"`
	Result *job.ProofResult `json:"result"`
	Error  string           `json:"error"`
	Lines  []string         `json:"lines"`
}

func newTestServer(t *testing.T, keepalive, poll time.Duration) (*httptest.Server, *job.Store, *joblog.Store) {
	t.Helper()
	registry := job.NewStore()
	trail := joblog.NewStore()
	s := NewServer(registry, trail, keepalive, poll, nil)

	r := chi.NewRouter()
	r.Get("/ws/jobs/{id}/status", s.HandleStatus)
	r.Get("/ws/jobs/{id}/logs", s.HandleLogs)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry, trail
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readMessage skips pings and returns the next status or log message.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) anyMessage {
	t.Helper()
	for {
		var msg anyMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "ping" {
			return msg
		}
	}
}

func TestStatusWatcher_ImmediateSnapshot(t *testing.T) {
	srv, registry, _ := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/status")

	msg := readMessage(t, ctx, conn)
	if msg.Type != "status" || msg.Status != job.StatusProcessing {
		t.Errorf("expected processing snapshot first, got %+v", msg)
	}
	if msg.JobID != id {
		t.Errorf("expected job id %s, got %s", id, msg.JobID)
	}
}

func TestStatusWatcher_TerminalAsFirstMessage(t *testing.T) {
	srv, registry, _ := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)
	registry.Complete(id, &job.ProofResult{PublicValues: "true", Proof: "proof-" + id + ".proof"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/status")

	msg := readMessage(t, ctx, conn)
	if msg.Status != job.StatusComplete {
		t.Errorf("expected terminal status first, got %+v", msg)
	}
	if msg.Result == nil || msg.Result.Proof == "" {
		t.Errorf("expected result attached, got %+v", msg.Result)
	}
}

func TestStatusWatcher_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/ghost/status")

	msg := readMessage(t, ctx, conn)
	if msg.Status != job.StatusNotFound {
		t.Errorf("expected not_found, got %+v", msg)
	}
	if msg.Error == "" {
		t.Error("expected error message on not_found")
	}
}

func TestStatusWatcher_ObservesTransition(t *testing.T) {
	srv, registry, _ := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/status")

	first := readMessage(t, ctx, conn)
	if first.Status != job.StatusProcessing {
		t.Fatalf("expected processing first, got %+v", first)
	}

	registry.Fail(id, "Invalid solution")

	second := readMessage(t, ctx, conn)
	if second.Status != job.StatusFailed {
		t.Errorf("expected failed, got %+v", second)
	}
	if second.Error != "Invalid solution" {
		t.Errorf("expected failure reason, got %q", second.Error)
	}
}

func TestStatusWatcher_Keepalive(t *testing.T) {
	srv, registry, _ := newTestServer(t, 20*time.Millisecond, time.Minute)
	id := job.NewID()
	registry.Create(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/status")

	sawPing := false
	for i := 0; i < 5 && !sawPing; i++ {
		var msg anyMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "ping" {
			sawPing = true
		}
	}
	if !sawPing {
		t.Error("expected a ping within the first messages")
	}
}

func TestLogWatcher_ReplayThenNewLines(t *testing.T) {
	srv, registry, trail := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)
	trail.Append(id, "job created")
	trail.Append(id, "validating solution")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/logs")

	history := readMessage(t, ctx, conn)
	if history.Type != "log" || len(history.Lines) != 2 {
		t.Fatalf("expected 2-line replay, got %+v", history)
	}
	if history.Lines[0] != "job created" {
		t.Errorf("unexpected replay order: %v", history.Lines)
	}

	trail.Append(id, "generating proof")

	fresh := readMessage(t, ctx, conn)
	if len(fresh.Lines) != 1 || fresh.Lines[0] != "generating proof" {
		t.Errorf("expected exactly the new line once, got %+v", fresh)
	}
}

func TestLogWatcher_TerminalMarkerOnce(t *testing.T) {
	srv, registry, trail := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)
	trail.Append(id, "job created")
	registry.Fail(id, "Invalid solution")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/logs")

	// history first
	history := readMessage(t, ctx, conn)
	if len(history.Lines) != 1 {
		t.Fatalf("expected history, got %+v", history)
	}

	marker := readMessage(t, ctx, conn)
	if len(marker.Lines) != 1 || !strings.Contains(marker.Lines[0], "terminal") {
		t.Fatalf("expected terminal marker, got %+v", marker)
	}
	if !strings.Contains(marker.Lines[0], "failed") || !strings.Contains(marker.Lines[0], "Invalid solution") {
		t.Errorf("marker should name the terminal status and reason: %q", marker.Lines[0])
	}

	// Writes after the terminal status still stream, and the marker is
	// not repeated.
	trail.Append(id, "late line")
	next := readMessage(t, ctx, conn)
	if len(next.Lines) != 1 || next.Lines[0] != "late line" {
		t.Errorf("expected only the late line, got %+v", next)
	}
}

func TestLogWatcher_NoGapAcrossConnect(t *testing.T) {
	srv, registry, trail := newTestServer(t, time.Minute, 5*time.Millisecond)
	id := job.NewID()
	registry.Create(id)
	trail.Append(id, "seq 0")
	trail.Append(id, "seq 1")

	const last = 199
	appended := make(chan struct{})
	go func() {
		defer close(appended)
		for i := 2; i <= last; i++ {
			trail.Append(id, fmt.Sprintf("seq %d", i))
			time.Sleep(500 * time.Microsecond)
		}
	}()

	// Connect while lines are landing: everything delivered across the
	// replay frame and the following log messages must stay contiguous.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/logs")

	var seen []int
	for len(seen) == 0 || seen[len(seen)-1] != last {
		msg := readMessage(t, ctx, conn)
		for _, line := range msg.Lines {
			n, err := strconv.Atoi(strings.TrimPrefix(line, "seq "))
			if err != nil {
				t.Fatalf("unexpected line %q", line)
			}
			seen = append(seen, n)
		}
	}
	<-appended

	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[i-1]+1 {
			t.Fatalf("delivery gap or repeat: %d followed by %d", seen[i-1], seen[i])
		}
	}
}

func TestLogWatcher_EmptyTrailReplay(t *testing.T) {
	srv, registry, trail := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/logs")

	history := readMessage(t, ctx, conn)
	if history.Type != "log" || len(history.Lines) != 0 {
		t.Fatalf("expected empty replay, got %+v", history)
	}

	trail.Append(id, "first")
	fresh := readMessage(t, ctx, conn)
	if len(fresh.Lines) != 1 || fresh.Lines[0] != "first" {
		t.Errorf("expected the first line, got %+v", fresh)
	}
}

func TestWatcher_ClientTextFrameIgnored(t *testing.T) {
	srv, registry, _ := newTestServer(t, time.Minute, 10*time.Millisecond)
	id := job.NewID()
	registry.Create(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "/ws/jobs/"+id+"/status")

	if msg := readMessage(t, ctx, conn); msg.Status != job.StatusProcessing {
		t.Fatalf("expected processing, got %+v", msg)
	}

	// A text frame has no protocol effect; the stream continues.
	if err := conn.Write(ctx, websocket.MessageText, []byte("hello?")); err != nil {
		t.Fatalf("write: %v", err)
	}

	registry.Complete(id, &job.ProofResult{PublicValues: "true", Proof: "p"})
	if msg := readMessage(t, ctx, conn); msg.Status != job.StatusComplete {
		t.Errorf("expected complete after client chatter, got %+v", msg)
	}
}
