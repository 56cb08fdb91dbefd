package tieba

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

const leaktestEnabled = true

// imTester is a minimal messaging server. It performs the key exchange
// with its own RSA key and hands every other frame to onFrame.
type imTester struct {
	t          *testing.T
	priv       *rsa.PrivateKey
	srv        *httptest.Server
	upgrader   websocket.Upgrader
	rejectCode int64 // nonzero rejects handshakes
	silent     bool  // never answer handshakes
	onFrame    func(ic *imConn, cmd Cmd, requestID uint32, payload []byte)

	mu         sync.Mutex
	conns      []*imConn
	handshakes int
	frames     int
	extensions []string
	wg         sync.WaitGroup
	start      sync.Once
}

// imConn is the server side of one socket.
type imConn struct {
	ws    *websocket.Conn
	codec *Codec
	wmu   sync.Mutex
}

func (ic *imConn) reply(cmd Cmd, requestID uint32, payload []byte, flags SendFlags) error {
	frame, err := ic.codec.Encode(payload, cmd, requestID, flags.has(SendGzip), flags.has(SendEncrypt))
	if err != nil {
		return err
	}
	ic.wmu.Lock()
	defer ic.wmu.Unlock()
	return ic.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (ic *imConn) writeRaw(frame []byte) error {
	ic.wmu.Lock()
	defer ic.wmu.Unlock()
	return ic.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func echoFrame(ic *imConn, cmd Cmd, requestID uint32, payload []byte) {
	ic.reply(cmd, requestID, payload, SendDefault)
}

func newIMTester(t *testing.T) *imTester {
	it := &imTester{
		t:       t,
		priv:    serverKey(t),
		onFrame: echoFrame,
	}
	it.srv = httptest.NewUnstartedServer(it)
	return it
}

func (it *imTester) URL() string {
	return "ws" + strings.TrimPrefix(it.srv.URL, "http")
}

// newClient starts the server, so the tester must be configured first.
func (it *imTester) newClient(opts ...Option) *Client {
	it.start.Do(it.srv.Start)
	c, err := NewClient(append([]Option{
		WithAccount("test-bduss", "test-stoken"),
		WithPublicKey(&it.priv.PublicKey),
		WithWebsocketURL(it.URL()),
	}, opts...)...)
	assert.NoError(it.t, err)
	return c
}

func (it *imTester) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := it.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	plain, _ := NewCodec(nil)
	ic := &imConn{ws: ws, codec: plain}
	it.mu.Lock()
	it.conns = append(it.conns, ic)
	it.extensions = append(it.extensions, r.Header.Get("Sec-WebSocket-Extensions"))
	it.wg.Add(1)
	it.mu.Unlock()
	defer it.wg.Done()
	defer ws.Close()

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		payload, cmd, requestID, err := ic.codec.Decode(frame)
		if !assert.NoError(it.t, err) {
			return
		}
		if cmd == CmdUpdateClientInfo {
			it.handshake(ic, requestID, payload)
			continue
		}
		it.mu.Lock()
		it.frames++
		it.mu.Unlock()
		it.onFrame(ic, cmd, requestID, payload)
	}
}

func (it *imTester) handshake(ic *imConn, requestID uint32, payload []byte) {
	it.mu.Lock()
	it.handshakes++
	it.mu.Unlock()
	if it.silent {
		return
	}
	req := parseClientInfoRequest(it.t, payload)
	assert.Equal(it.t, "test-bduss", req.BDUSS)
	password, err := rsa.DecryptPKCS1v15(rand.Reader, it.priv, req.SecretKey)
	assert.NoError(it.t, err)
	assert.Len(it.t, password, PasswordSize)

	reply := ic.codec
	if it.rejectCode == 0 {
		ic.codec, err = NewCodec(DeriveKey(password))
		assert.NoError(it.t, err)
	}
	frame, err := reply.Encode(errorReply(it.rejectCode, "rejected by test"), CmdUpdateClientInfo, requestID, false, false)
	assert.NoError(it.t, err)
	ic.writeRaw(frame)
}

func (it *imTester) Handshakes() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.handshakes
}

func (it *imTester) Frames() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.frames
}

func (it *imTester) Extensions() []string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return append([]string(nil), it.extensions...)
}

// DropAll closes every server side socket.
func (it *imTester) DropAll() {
	it.mu.Lock()
	conns := it.conns
	it.conns = nil
	it.mu.Unlock()
	for _, ic := range conns {
		ic.ws.Close()
	}
}

func (it *imTester) Close() {
	it.start.Do(it.srv.Start)
	it.DropAll()
	it.srv.Close()
	it.wg.Wait()
}

// waitFor polls cond for up to a second.
func waitFor(cond func() bool) bool {
	for i := 0; i < 100; i++ {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond * 10)
	}
	return cond()
}
