// Package ws serves the live watch connections: status watchers receive a
// snapshot whenever the job's status changes, log watchers receive trail
// lines as they are appended. Watchers never block the runner; they poll
// the shared stores on their own tickers.
package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/joblog"
	"github.com/sudokulabs/proofd/internal/observability"
)

type Server struct {
	registry  job.Registry
	trail     *joblog.Store
	keepalive time.Duration
	poll      time.Duration
	metrics   *observability.Metrics
}

func NewServer(registry job.Registry, trail *joblog.Store, keepalive, poll time.Duration, metrics *observability.Metrics) *Server {
	return &Server{
		registry:  registry,
		trail:     trail,
		keepalive: keepalive,
		poll:      poll,
		metrics:   metrics,
	}
}

// HandleStatus upgrades the connection and streams status snapshots for
// the job in the route.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")

	s.metrics.WatcherOpened(r.Context())
	defer s.metrics.WatcherClosed(context.Background())

	log.Printf("Status watcher attached: %s", jobID)
	s.watchStatus(r.Context(), conn, jobID)
	log.Printf("Status watcher detached: %s", jobID)
}

// HandleLogs upgrades the connection and streams the job's log trail.
func (s *Server) HandleLogs(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")

	s.metrics.WatcherOpened(r.Context())
	defer s.metrics.WatcherClosed(context.Background())

	log.Printf("Log watcher attached: %s", jobID)
	s.watchLogs(r.Context(), conn, jobID)
	log.Printf("Log watcher detached: %s", jobID)
}

func (s *Server) watchStatus(ctx context.Context, conn *websocket.Conn, jobID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	inbound := s.readLoop(ctx, conn, jobID)

	// Deliver the current snapshot immediately, not_found included, to
	// establish the baseline. A watcher attaching after completion sees
	// the terminal status as its first message.
	snapshot := s.snapshot(jobID)
	if err := wsjson.Write(ctx, conn, snapshot); err != nil {
		return
	}
	last := snapshot.Status

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()
	poll := time.NewTicker(s.poll)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-inbound:
			if !ok {
				return
			}
			// Inbound text frames carry no protocol meaning; the read
			// loop already logged them.

		case <-keepalive.C:
			if err := wsjson.Write(ctx, conn, PingMessage{Type: "ping", Timestamp: time.Now().UTC()}); err != nil {
				return
			}

		case <-poll.C:
			cur := s.snapshot(jobID)
			if cur.Status == last {
				continue
			}
			if err := wsjson.Write(ctx, conn, cur); err != nil {
				return
			}
			last = cur.Status
			// Terminal statuses are delivered like any other change;
			// the client decides when to close.
		}
	}
}

func (s *Server) watchLogs(ctx context.Context, conn *websocket.Conn, jobID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	inbound := s.readLoop(ctx, conn, jobID)

	// Replay the retained trail first, then the cursor only moves forward.
	// The window and the cursor come from one consistent snapshot: a line
	// appended while the history frame is in flight lands at a position
	// the next poll still covers.
	history, cursor := s.trail.Snapshot(jobID)
	if err := wsjson.Write(ctx, conn, LogMessage{Type: "log", JobID: jobID, Lines: history}); err != nil {
		return
	}
	terminalSent := false

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()
	poll := time.NewTicker(s.poll)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-inbound:
			if !ok {
				return
			}

		case <-keepalive.C:
			if err := wsjson.Write(ctx, conn, PingMessage{Type: "ping", Timestamp: time.Now().UTC()}); err != nil {
				return
			}

		case <-poll.C:
			fresh := s.trail.ReadFrom(jobID, cursor)
			if len(fresh) > 0 {
				if err := wsjson.Write(ctx, conn, LogMessage{Type: "log", JobID: jobID, Lines: fresh}); err != nil {
					return
				}
				cursor += len(fresh)
			}

			if !terminalSent {
				if j, ok := s.registry.Get(jobID); ok && job.Terminal(j.Status) {
					marker := "job reached terminal status: " + string(j.Status)
					if j.Error != "" {
						marker += " (" + j.Error + ")"
					}
					if err := wsjson.Write(ctx, conn, LogMessage{Type: "log", JobID: jobID, Lines: []string{marker}}); err != nil {
						return
					}
					terminalSent = true
				}
			}
		}
	}
}

// readLoop pumps inbound frames into a channel so the watcher can select
// over them. The channel closes on read error or client close, which ends
// the watcher; frame content is observed only.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, jobID string) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					log.Printf("WebSocket read error: %v", err)
				}
				return
			}
			log.Printf("Watcher message on job %s: %s", jobID, data)
			select {
			case ch <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (s *Server) snapshot(jobID string) StatusMessage {
	j, ok := s.registry.Get(jobID)
	if !ok {
		return StatusMessage{
			Type:   "status",
			JobID:  jobID,
			Status: job.StatusNotFound,
			Error:  "Job not found",
		}
	}
	return StatusMessage{
		Type:   "status",
		JobID:  jobID,
		Status: j.Status,
		Result: j.Result,
		Error:  j.Error,
	}
}
