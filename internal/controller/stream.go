package controller

import (
	"context"
	"net/http"
	"time"

	"reader-go/internal/service/reader"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

func newStreamUpgrader(checkOrigin func(*http.Request) bool) *websocket.Upgrader {
	// a nil CheckOrigin makes the upgrader accept same-host origins only
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}
}

// streamOutbound is either a rendered snapshot or the rejection of an
// inbound event.
type streamOutbound struct {
	Type    string       `json:"type"`
	View    *reader.View `json:"view,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

// StreamSession upgrades to a websocket that pushes a view after every
// change of the session. Clients send reader.Event messages on the same
// connection.
func (rc *ReaderController) StreamSession(c *gin.Context) {
	s, ok := rc.session(c)
	if !ok {
		return
	}

	conn, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rc.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := rc.logger.With(zap.String("session_id", s.ID()))
	logger.Info("Stream opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		logger.Warn("Stream set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	snapshots := s.Subscribe(ctx)
	errs := make(chan streamOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// unblocks the read loop once writing stops
		defer conn.Close()
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()

		write := func(out streamOutbound) error {
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return err
			}
			return conn.WriteJSON(out)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snapshots:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(streamWriteWait))
					return
				}
				view := reader.BuildView(snap)
				if err := write(streamOutbound{Type: "snapshot", View: &view}); err != nil {
					return
				}
			case out := <-errs:
				if err := write(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in reader.Event
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Stream read failed", zap.Error(err))
			}
			break
		}
		if _, err := s.Handle(in); err != nil {
			select {
			case errs <- streamOutbound{Type: "error", Code: string(in.Type), Message: err.Error()}:
			default:
			}
		}
	}
	cancel()
	<-writerDone
	logger.Info("Stream closed")
}
