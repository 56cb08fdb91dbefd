package tieba

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gopkg.in/op/go-logging.v1"
)

// wsExtensions is the extension header the messaging server expects.
const wsExtensions = "im_version=2.3"

var wsConnNextSerialNumber uint32

// wsConn is one messaging socket together with its session state.
// The codec is replaced once the handshake has derived a key.
type wsConn struct {
	ws           *websocket.Conn
	codec        atomic.Pointer[Codec]
	negotiated   atomic.Bool
	writeTimeout time.Duration
	wmu          sync.Mutex // serializes writes
	disp         *dispatcher
	serialNumber uint32
}

func (wc *wsConn) String() string {
	return fmt.Sprintf("[wsConn %x]", wc.serialNumber)
}

// dialWebsocket connects to url and starts the dispatcher for the socket.
func dialWebsocket(ctx context.Context, dialer *websocket.Dialer, url string, pending *PendingTable, log *logging.Logger) (*wsConn, error) {
	// the dialer refuses the canonical key, so set it verbatim
	header := http.Header{"Sec-WebSocket-Extensions": {wsExtensions}}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	wc := &wsConn{
		ws:           ws,
		writeTimeout: DefaultWriteTimeout,
		serialNumber: atomic.AddUint32(&wsConnNextSerialNumber, 1),
	}
	plain, _ := NewCodec(nil)
	wc.codec.Store(plain)
	wc.disp = startDispatcher(wc, pending, log)
	return wc, nil
}

// writeFrame encodes payload with the current session codec and writes it.
func (wc *wsConn) writeFrame(payload []byte, cmd Cmd, requestID uint32, flags SendFlags) error {
	if !wc.disp.alive() {
		return ErrNotConnected
	}
	frame, err := wc.codec.Load().Encode(payload, cmd, requestID, flags.has(SendGzip), flags.has(SendEncrypt))
	if err != nil {
		return err
	}
	wc.wmu.Lock()
	defer wc.wmu.Unlock()
	if wc.writeTimeout != 0 {
		wc.ws.SetWriteDeadline(time.Now().Add(wc.writeTimeout))
	}
	if err = wc.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrap(err, "websocket write")
	}
	framesSent.WithLabelValues(cmd.String()).Inc()
	return nil
}

func (wc *wsConn) decode(frame []byte) ([]byte, Cmd, uint32, error) {
	return wc.codec.Load().Decode(frame)
}

// setKey installs the session key and marks the socket usable.
func (wc *wsConn) setKey(key []byte) error {
	codec, err := NewCodec(key)
	if err != nil {
		return err
	}
	wc.codec.Store(codec)
	wc.negotiated.Store(true)
	return nil
}

// available returns true if the handshake succeeded and the socket is
// still being read.
func (wc *wsConn) available() bool {
	return wc.negotiated.Load() && wc.disp.alive()
}

// close stops the dispatcher and closes the socket.
func (wc *wsConn) close() {
	wc.negotiated.Store(false)
	wc.disp.halt()
}
