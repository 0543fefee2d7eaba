package analysisapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const streamPath = "/api/analyze/stream"

// Stream posts the request to the streaming endpoint and emits each decoded
// event. Opening the stream is retried through the executor; once bytes have
// arrived a failure is returned to the caller as is.
func (c *Client) Stream(ctx context.Context, session domain.Session, req domain.AnalysisRequest, emit func(domain.StreamEvent)) error {
	if !session.HasToken() {
		return domain.WrapError(domain.ErrUnauthorized, "analysis stream", errors.New("authentication token required"))
	}

	var resp *http.Response
	err := c.executor.Execute(ctx, "analysis_api_stream_open", func(ctx context.Context) error {
		httpReq, err := c.newRequest(ctx, http.MethodPost, streamPath, session.AccessToken, req)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Accept", "text/event-stream")

		r, err := c.streamClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("analysis api stream request: %w", err)
		}
		if r.StatusCode >= 300 {
			defer r.Body.Close()
			return newHTTPStatusError("stream", r)
		}
		resp = r
		return nil
	}, classifyError)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classifyOutcome("analysis stream", err)
	}
	defer resp.Body.Close()

	terminal, err := decodeStream(resp.Body, emit)
	if terminal {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "analysis stream", err)
	}
	return domain.WrapError(domain.ErrTemporary, "analysis stream", domain.ErrStreamIncomplete)
}

// decodeStream reads newline-delimited `data: {...}` frames until a terminal
// event or the end of the body. It reports whether a terminal event was seen.
func decodeStream(body io.Reader, emit func(domain.StreamEvent)) (bool, error) {
	reader := bufio.NewReader(body)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			event, ok := parseFrame(line)
			if ok {
				emit(event)
				if event.Type == domain.EventAnalysisComplete || event.Type == domain.EventError {
					return true, nil
				}
			}
		}
		if readErr == io.EOF {
			return false, nil
		}
		if readErr != nil {
			return false, fmt.Errorf("read stream: %w", readErr)
		}
	}
}

var dataPrefix = []byte("data:")

func parseFrame(line []byte) (domain.StreamEvent, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return domain.StreamEvent{}, false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 || string(payload) == "[DONE]" {
		return domain.StreamEvent{}, false
	}

	var event domain.StreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		slog.Warn("stream_frame_dropped", "reason", "invalid_json", "error", err, "bytes", len(payload))
		return domain.StreamEvent{}, false
	}
	if event.Type == "" {
		slog.Warn("stream_frame_dropped", "reason", "missing_type")
		return domain.StreamEvent{}, false
	}
	return event, true
}
