package ws

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// SSEClient streams activity as Server-Sent Events over an HTTP response.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	event   string
	log     *slog.Logger
	closed  chan struct{}
	once    sync.Once
}

// NewSSEClient builds an SSE client that labels frames with event.
func NewSSEClient(writer io.Writer, flusher http.Flusher, event string, logger *slog.Logger) *SSEClient {
	return &SSEClient{writer: writer, flusher: flusher, event: event, log: logger, closed: make(chan struct{})}
}

// Send emits a data event to the SSE stream.
func (c *SSEClient) Send(payload []byte) error {
	return c.write(func(w io.Writer) error {
		if c.event != "" {
			if _, err := fmt.Fprintf(w, "event: %s\n", c.event); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
		return err
	})
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	return c.write(func(w io.Writer) error {
		_, err := fmt.Fprint(w, ": ping\n\n")
		return err
	})
}

func (c *SSEClient) write(fn func(io.Writer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return io.EOF
	default:
	}
	if err := fn(c.writer); err != nil {
		c.log.Warn("sse write failed", "error", err)
		c.once.Do(func() { close(c.closed) })
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the stream as closed.
func (c *SSEClient) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Done is closed once the stream can no longer be written.
func (c *SSEClient) Done() <-chan struct{} {
	return c.closed
}
