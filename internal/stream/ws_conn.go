package stream

import (
	"errors"

	"github.com/gorilla/websocket"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// wsConn adapts *websocket.Conn to rawReadWriter, matching the dial idiom
// the teacher uses for its exchange connections.
//
// gorilla/websocket answers control frames (ping/close) through handlers
// rather than returning them from ReadMessage, so the Ping→Pong rule in
// §4.D is wired via SetPingHandler at dial time instead of in the read
// loop's frame switch.
type wsConn struct {
	conn *websocket.Conn
}

func dialWebSocket(url string) (*wsConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ConnectionAbort, "failed to dial websocket")
	}
	w := &wsConn{conn: conn}
	conn.SetPingHandler(func(payload string) error {
		return conn.WriteMessage(websocket.PongMessage, nil)
	})
	return w, nil
}

// ReadFrame reads the next data frame and classifies it per §4.D's
// WebSocket housekeeping rules. Close frames and stream end surface as
// distinct, typed conditions so the caller can pick ConnectionAbort vs.
// ConnectionInterrupted.
func (w *wsConn) ReadFrame() (frameKind, []byte, error) {
	msgType, data, err := w.conn.ReadMessage()
	if err != nil {
		// gorilla reports a connection dropped without a close frame as
		// CloseAbnormalClosure; that is stream end, not a peer close.
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
			return frameClose, nil, xerrors.Newf(xerrors.ConnectionAbort, "websocket closed: %v", err)
		}
		return frameStreamEnd, nil, xerrors.Wrap(err, xerrors.ConnectionInterrupted, "websocket stream ended")
	}
	switch msgType {
	case websocket.TextMessage:
		return frameText, data, nil
	case websocket.BinaryMessage:
		return frameBinary, data, nil
	default:
		return frameBinary, data, nil
	}
}

// WriteText sends a text frame, used for the SUBSCRIBE protocol message.
func (w *wsConn) WriteText(payload []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

// WritePong replies with an empty Pong; unused in the read loop now that
// Ping is answered via the dial-time handler, kept to satisfy
// rawReadWriter for callers that drive pongs explicitly (e.g. tests).
func (w *wsConn) WritePong(payload []byte) error {
	return w.conn.WriteMessage(websocket.PongMessage, payload)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
