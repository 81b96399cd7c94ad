package echoapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core/roster"
)

// Progress stream message types
const (
	messageProgress = "PROGRESS"
	messageOutcome  = "OUTCOME"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressMessage is sent on the progress stream: one PROGRESS per attempted record,
// then a final OUTCOME carrying the session status.
type ProgressMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Progress  *roster.Progress `json:"progress,omitempty"`
	Status    *roster.Status   `json:"status,omitempty"`
}

func (api *importApi) progress(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		return nil
	}
	defer conn.Close()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	// stop streaming when the client goes away
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for p := range updates {
		if err := writeMessage(conn, ProgressMessage{Type: messageProgress, Timestamp: time.Now().UTC(), Progress: &p}); err != nil {
			api.logger.Debug("progress stream closed", err)
			return nil
		}
	}

	status := sess.Status()
	if err := writeMessage(conn, ProgressMessage{Type: messageOutcome, Timestamp: time.Now().UTC(), Status: &status}); err != nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return nil
}

func writeMessage(conn *websocket.Conn, msg ProgressMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errors.Wrap(err, "setting write deadline")
	}
	return errors.Wrap(conn.WriteJSON(msg), "writing message")
}
