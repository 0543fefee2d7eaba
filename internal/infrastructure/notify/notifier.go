package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL     string
	Origin      string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c Config) normalize() Config {
	out := c
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	if out.Origin == "" {
		out.Origin = "http://localhost/"
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 5
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = time.Second
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 10 * time.Second
	}
	return out
}

type controlMessage struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}

// JobNotifier follows analysis jobs over the backend's per-user WebSocket.
type JobNotifier struct {
	cfg Config
}

func NewJobNotifier(cfg Config) *JobNotifier {
	return &JobNotifier{cfg: cfg.normalize()}
}

// Watch subscribes to jobID and forwards every decoded update until ctx is
// done or the server closes the socket after a terminal job update, which
// returns nil. Any other disconnect is retried with capped exponential
// backoff, resubscribing on each new connection. After MaxAttempts
// consecutive failures it returns ErrReconnectExhausted.
func (n *JobNotifier) Watch(ctx context.Context, session domain.Session, jobID string, onUpdate func(domain.JobUpdate)) error {
	if strings.TrimSpace(session.UserID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, "watch job", errors.New("user id is required"))
	}

	failures := 0
	for {
		conn, err := n.dial(ctx, session)
		if err == nil {
			failures = 0
			slog.Info("job_socket_connected", "user_id", session.UserID, "job_id", jobID)
			err = n.serve(ctx, conn, jobID, onUpdate)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			slog.Info("job_socket_closed", "user_id", session.UserID, "job_id", jobID)
			return nil
		}

		if failures >= n.cfg.MaxAttempts {
			slog.Error("job_socket_failed", "user_id", session.UserID, "job_id", jobID, "attempts", failures, "error", err)
			return fmt.Errorf("%w: %v", domain.ErrReconnectExhausted, err)
		}
		wait := resilience.Backoff(failures, n.cfg.BaseDelay, n.cfg.MaxDelay)
		failures++
		slog.Warn("job_socket_reconnect",
			"user_id", session.UserID,
			"job_id", jobID,
			"attempt", failures,
			"max_attempts", n.cfg.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		if err := resilience.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (n *JobNotifier) dial(ctx context.Context, session domain.Session) (*websocket.Conn, error) {
	target := n.cfg.BaseURL + "/ws/analysis/" + url.PathEscape(session.UserID)
	config, err := websocket.NewConfig(target, n.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	if session.HasToken() {
		config.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// serve subscribes on conn and reads until the connection drops or ctx ends.
// On ctx end it unsubscribes before closing. x/net/websocket reports a close
// frame and a dropped connection alike as io.EOF, so EOF only counts as a
// normal end once the job has reached a terminal status.
func (n *JobNotifier) serve(ctx context.Context, conn *websocket.Conn, jobID string, onUpdate func(domain.JobUpdate)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = websocket.JSON.Send(conn, controlMessage{Type: "unsubscribe_job", JobID: jobID})
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	if err := websocket.JSON.Send(conn, controlMessage{Type: "subscribe_job", JobID: jobID}); err != nil {
		return fmt.Errorf("subscribe job: %w", err)
	}

	finished := false
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if finished && errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("websocket receive: %w", err)
		}
		var update domain.JobUpdate
		if err := json.Unmarshal(raw, &update); err != nil || update.Type == "" {
			slog.Warn("job_message_dropped", "job_id", jobID, "bytes", len(raw), "error", err)
			continue
		}
		if update.JobID != "" && update.JobID != jobID {
			continue
		}
		if update.Data != nil && update.Data.Status.IsTerminal() {
			finished = true
		}
		onUpdate(update)
	}
}
