package api

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp"

	"unisoncomms/comms"
	"unisoncomms/utils"
)

const keepaliveInterval = 30 * time.Second

// StreamHandler exposes the unison event stream over long-lived connections:
// Server-Sent Events and WebSocket.
type StreamHandler struct {
	stream *comms.EventStream
}

// NewStreamHandler creates the stream HTTP handler.
func NewStreamHandler(stream *comms.EventStream) *StreamHandler {
	return &StreamHandler{stream: stream}
}

// HandleSSE delivers stream events as Server-Sent Events until the client
// disconnects or the subscriber is dropped for falling behind.
func (h *StreamHandler) HandleSSE(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	id, events := h.stream.Subscribe()
	ctx := c.Context()

	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.stream.Unsubscribe(id)

		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					// Dropped by the publisher for falling behind.
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					utils.Log.Error("failed to encode stream event: %v", err)
					continue
				}
				w.WriteString("data: " + string(data) + "\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}))

	return nil
}

// HandleWebSocket delivers stream events over a WebSocket connection.
func (h *StreamHandler) HandleWebSocket(conn *websocket.Conn) {
	id, events := h.stream.Subscribe()
	defer func() {
		h.stream.Unsubscribe(id)
		conn.Close()
	}()

	// Reader loop only to observe client disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.stream.Unsubscribe(id)
				return
			}
		}
	}()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			utils.Log.Warn("failed to write stream event: %v", err)
			return
		}
	}
}

// UpgradeRequired gates the WebSocket route to upgrade requests.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
