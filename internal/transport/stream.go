package transport

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/observer"
	"go-image-grader/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	stateEvent = "state"
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamEvents sends the current state followed by every change of the
// session as server-sent events until the client goes away.
func streamEvents(b *observer.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := sessionFrom(c)

		// Subscribe before reading the state so no change is missed.
		updates, cancel := b.Subscribe(holder.ID())
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent(stateEvent, holder.State().Response(holder.ID()))
		c.Writer.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-updates:
				if !ok {
					return
				}
				c.SSEvent(stateEvent, st)
				c.Writer.Flush()
			}
		}
	}
}

// streamWebSocket mirrors streamEvents over a WebSocket. Clients may also
// submit by sending {"url": "..."}; a refused submission is answered with an
// ErrorResponse frame.
func streamWebSocket(b *observer.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := sessionFrom(c)
		log := logger.WithFields(logrus.Fields{
			"session_id": holder.ID(),
			"ip":         c.ClientIP(),
		})

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		updates, cancel := b.Subscribe(holder.ID())
		defer cancel()

		refused := make(chan models.ErrorResponse, 1)
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}

				var req models.AnalyzeRequest
				if err := json.Unmarshal(data, &req); err != nil {
					log.WithError(err).Debug("Ignoring malformed WebSocket message")
					continue
				}
				if _, err := holder.Submit(req.URL); err != nil {
					code := apperrors.GetStatusCode(err)
					select {
					case refused <- models.ErrorResponse{
						Error:   http.StatusText(code),
						Message: apperrors.UserMessage(err, apperrors.MsgInvalidURL),
					}:
					default:
					}
				}
			}
		}()

		write := func(v interface{}) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				log.WithError(err).Debug("WebSocket write failed")
				return false
			}
			return true
		}

		if !write(holder.State().Response(holder.ID())) {
			return
		}
		for {
			select {
			case <-closed:
				return
			case resp := <-refused:
				if !write(resp) {
					return
				}
			case st, ok := <-updates:
				if !ok || !write(st) {
					return
				}
			}
		}
	}
}
