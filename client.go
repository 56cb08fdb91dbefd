package tieba

import (
	"context"
	"crypto/rsa"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gopkg.in/op/go-logging.v1"

	"github.com/geary0124/Tieba-Manager/log"
)

// SendFlags selects the payload processing of a websocket frame.
type SendFlags uint8

const (
	// SendGzip compresses the payload.
	SendGzip SendFlags = 1 << iota
	// SendEncrypt encrypts the payload with the session key.
	SendEncrypt
	// SendDefault is what requests other than the handshake use.
	SendDefault = SendGzip | SendEncrypt
)

func (f SendFlags) has(flag SendFlags) bool { return f&flag == flag }

// Client is a session with the forum: a pool of HTTP connections shared by
// the app, protobuf and web flavors, and one lazily established messaging
// websocket.
type Client struct {
	BDUSS  string
	STOKEN string

	ReadTimeout      time.Duration // default wait for a websocket reply
	HandshakeTimeout time.Duration // wait for the key exchange reply

	log       *logging.Logger
	dlog      *logging.Logger
	ident     *Identity
	pubKey    *rsa.PublicKey
	appBase   *url.URL
	webBase   *url.URL
	wsURL     string
	dial      DialContextFunc
	transport *http.Transport
	app       *http.Client
	appProto  *http.Client
	web       *http.Client
	dialer    *websocket.Dialer
	pending   *PendingTable
	fids      FidCache
	ownFids   bool

	closed atomic.Bool

	connMu sync.Mutex // serializes dial and handshake

	mu sync.Mutex // protects wc
	wc *wsConn

	userMu sync.Mutex // protects those below
	user   User
	tbs    string
}

// Option configures a Client.
type Option func(*Client) error

// WithAccount sets the BDUSS and STOKEN credentials.
func WithAccount(bduss, stoken string) Option {
	return func(c *Client) error {
		c.BDUSS, c.STOKEN = bduss, stoken
		return nil
	}
}

// WithLogBackend makes the Client log to b. A nil b discards the logs.
func WithLogBackend(b *log.Backend) Option {
	return func(c *Client) error {
		if b == nil {
			b = log.Discard()
		}
		c.log = b.GetLogger("tieba/client")
		c.dlog = b.GetLogger("tieba/dispatch")
		return nil
	}
}

// WithPublicKey replaces the key session passwords are wrapped with.
func WithPublicKey(pub *rsa.PublicKey) Option {
	return func(c *Client) error {
		c.pubKey = pub
		return nil
	}
}

// WithIdentity replaces the randomly generated device identity.
func WithIdentity(id *Identity) Option {
	return func(c *Client) error {
		c.ident = id
		return nil
	}
}

// WithFidCache makes the Client use fc for forum ids. The Client does not
// close it.
func WithFidCache(fc FidCache) Option {
	return func(c *Client) error {
		c.fids = fc
		return nil
	}
}

// WithAppBaseURL changes the base of the app endpoints.
func WithAppBaseURL(s string) Option {
	return func(c *Client) (err error) {
		c.appBase, err = url.Parse(s)
		return errors.Wrap(err, "app base url")
	}
}

// WithWebBaseURL changes the base of the web endpoints.
func WithWebBaseURL(s string) Option {
	return func(c *Client) (err error) {
		c.webBase, err = url.Parse(s)
		return errors.Wrap(err, "web base url")
	}
}

// WithWebsocketURL changes the address of the messaging socket.
func WithWebsocketURL(s string) Option {
	return func(c *Client) error {
		c.wsURL = s
		return nil
	}
}

// WithDialer routes all connections through dial, for example a SOCKS5
// proxy.
func WithDialer(dial DialContextFunc) Option {
	return func(c *Client) error {
		c.dial = dial
		return nil
	}
}

// NewClient returns a Client. No network connection is made until needed.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		ReadTimeout:      DefaultReadTimeout,
		HandshakeTimeout: HandshakeTimeout,
		wsURL:            DefaultWebsocketURL,
		pending:          NewPendingTable(),
	}
	c.appBase, _ = url.Parse(DefaultAppBaseURL)
	c.webBase, _ = url.Parse(DefaultWebBaseURL)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	var err error
	if c.log == nil {
		WithLogBackend(log.Discard())(c)
	}
	if c.ident == nil {
		if c.ident, err = NewIdentity(); err != nil {
			return nil, err
		}
	}
	if c.pubKey == nil {
		if c.pubKey, err = DefaultPublicKey(); err != nil {
			return nil, err
		}
	}
	if c.fids == nil {
		c.fids = NewMemFidCache()
		c.ownFids = true
	}

	c.transport = newTransport(c.dial)
	c.app = newAppClient(c.transport)
	c.appProto = newAppProtoClient(c.transport)
	if c.web, err = newWebClient(c.transport, c.webBase, c.BDUSS, c.STOKEN); err != nil {
		return nil, err
	}
	c.dialer = &websocket.Dialer{
		NetDialContext:   c.transport.DialContext,
		HandshakeTimeout: DefaultDialTimeout,
	}
	return c, nil
}

// Identity returns the device identity the Client presents.
func (c *Client) Identity() *Identity {
	return c.ident
}

// Close tears down the websocket and the HTTP connection pool. Requests
// still awaiting a reply are left to time out.
func (c *Client) Close() (err error) {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	wc := c.wc
	c.wc = nil
	c.mu.Unlock()
	if wc != nil {
		wc.close()
	}
	c.transport.CloseIdleConnections()
	if c.ownFids {
		err = c.fids.Close()
	}
	c.log.Debug("closed")
	return
}

func (c *Client) isClosed() bool {
	return c.closed.Load()
}

// IsWebsocketAvailable returns true if the messaging socket is connected,
// has a session key and is not closing.
func (c *Client) IsWebsocketAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.isClosed() && c.wc != nil && c.wc.available()
}

// InitWebsocket makes sure the messaging socket is usable, reconnecting
// and renegotiating the session key if needed.
func (c *Client) InitWebsocket(ctx context.Context) bool {
	if _, err := c.connect(ctx); err != nil {
		c.log.Warningf("failed to initialize websocket: %v", err)
		return false
	}
	return true
}

// current returns the socket if it is usable.
func (c *Client) current() *wsConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed() && c.wc != nil && c.wc.available() {
		return c.wc
	}
	return nil
}

// connect returns the current socket, replacing it if it is unusable.
// Only one caller dials at a time; c.mu is not held while dialing.
func (c *Client) connect(ctx context.Context) (*wsConn, error) {
	if wc := c.current(); wc != nil {
		return wc, nil
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	old := c.wc
	if old != nil && old.available() {
		c.mu.Unlock()
		return old, nil
	}
	c.wc = nil
	c.mu.Unlock()
	if old != nil {
		c.log.Infof("%v: replacing unusable socket", old)
		old.close()
	}

	wc, err := dialWebsocket(ctx, c.dialer, c.wsURL, c.pending, c.dlog)
	if err != nil {
		return nil, err
	}
	if err = c.negotiate(wc); err != nil {
		wc.close()
		return nil, err
	}

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		wc.close()
		return nil, ErrClosed
	}
	c.wc = wc
	c.mu.Unlock()
	c.log.Noticef("%v: connected to %s", wc, c.wsURL)
	return wc, nil
}

// negotiate runs the key exchange on a fresh socket. On success the
// socket encrypts with a new session key.
func (c *Client) negotiate(wc *wsConn) (err error) {
	defer func() { observeHandshake(err) }()
	hs, err := newHandshake()
	if err != nil {
		return err
	}
	req, err := hs.request(c.pubKey, c.BDUSS, c.ident)
	if err != nil {
		return err
	}
	p, err := c.send(wc, req, CmdUpdateClientInfo, 0)
	if err != nil {
		return err
	}
	reply, err := c.pending.Await(p, c.HandshakeTimeout)
	if err != nil {
		return errors.Wrap(err, "handshake")
	}
	if err = checkHandshakeReply(reply); err != nil {
		return err
	}
	return wc.setKey(hs.key)
}

// Send writes payload as a frame of type cmd over the messaging socket,
// connecting first if needed. The reply is collected with Await.
func (c *Client) Send(ctx context.Context, payload []byte, cmd Cmd, flags SendFlags) (*Pending, error) {
	wc, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	return c.send(wc, payload, cmd, flags)
}

func (c *Client) send(wc *wsConn, payload []byte, cmd Cmd, flags SendFlags) (*Pending, error) {
	p := c.pending.Register()
	if err := wc.writeFrame(payload, cmd, p.ID(), flags); err != nil {
		c.pending.Remove(p)
		return nil, err
	}
	c.log.Debugf("%v: sent %v %d (%d bytes)", wc, cmd, p.ID(), len(payload))
	return p, nil
}

// Await waits up to timeout for the reply to p.
func (c *Client) Await(p *Pending, timeout time.Duration) ([]byte, error) {
	b, err := c.pending.Await(p, timeout)
	if IsTimeout(err) {
		requestTimeouts.Inc()
	}
	return b, err
}

// Request sends payload with the default flags and waits ReadTimeout for
// the reply.
func (c *Client) Request(ctx context.Context, payload []byte, cmd Cmd) ([]byte, error) {
	p, err := c.Send(ctx, payload, cmd, SendDefault)
	if err != nil {
		return nil, err
	}
	return c.Await(p, c.ReadTimeout)
}
