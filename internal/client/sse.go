// ABOUTME: Server-sent events reader for live-chat updates
// ABOUTME: Listen returns once the server confirms the stream is open

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// EventStream is an open server-push connection
type EventStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc
	once   sync.Once
}

// Listen calls GET /support/live-chat/:id/listen. It returns only after the
// server answered 200 with an event-stream body, which is the open
// confirmation. Cancel ctx or call Close to end the stream.
func (c *Client) Listen(ctx context.Context, chatID string) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+chatPath(chatID)+"/listen", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, c.handleRequestError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, c.handleErrorResponse(resp)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected stream content type %q", resp.Header.Get("Content-Type"))
	}

	return &EventStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		cancel: cancel,
	}, nil
}

// Next blocks until the next data event and decodes it. Comment lines and
// events without data are skipped. Returns io.EOF when the server closes.
func (s *EventStream) Next() (*ChatEvent, error) {
	var data strings.Builder
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && data.Len() > 0 {
				return decodeEvent(data.String())
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if data.Len() == 0 {
				continue
			}
			return decodeEvent(data.String())
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field == "data" {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
}

// Close ends the stream; safe to call more than once
func (s *EventStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func decodeEvent(data string) (*ChatEvent, error) {
	var ev ChatEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, fmt.Errorf("invalid stream event: %w", err)
	}
	return &ev, nil
}
