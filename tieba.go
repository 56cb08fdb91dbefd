package tieba

import "time"

const (
	// FrameHeaderSize is the number of bytes in a frame header.
	FrameHeaderSize = 9
	// AESBlockSize is the cipher block size used for frame padding.
	AESBlockSize = 16
	// SessionKeySize is the length of the derived AES session key.
	SessionKeySize = 32
	// PasswordSize is the length of the random handshake password.
	PasswordSize = 36
	// GzipLevel is the compression level used for frame payloads.
	GzipLevel = 5
	// SignSecret is appended to the concatenated form fields before hashing.
	SignSecret = "tiebaclient!!!"

	// LatestVersion is the app version reported by form and protobuf requests.
	LatestVersion = "12.25.4.3"
	// PostVersion is the lite app version used for the websocket handshake.
	PostVersion = "9.1.0.0"

	// DefaultAppBaseURL is the base of the app REST endpoints.
	DefaultAppBaseURL = "http://c.tieba.baidu.com"
	// DefaultWebBaseURL is the base of the web endpoints.
	DefaultWebBaseURL = "http://tieba.baidu.com"
	// DefaultWebsocketURL is the address of the messaging socket.
	DefaultWebsocketURL = "ws://im.tieba.baidu.com:8000"

	// HandshakeTimeout is how long to wait for the handshake reply.
	HandshakeTimeout = time.Second * 5
	// DefaultReadTimeout is how long to wait for a websocket reply.
	DefaultReadTimeout = time.Second * 5
	// DefaultWriteTimeout is how long a websocket write may take.
	DefaultWriteTimeout = time.Second * 5
	// DefaultDialTimeout bounds establishing a connection.
	DefaultDialTimeout = time.Second * 8
	// DefaultSocketConnectTimeout bounds the TCP connect.
	DefaultSocketConnectTimeout = time.Second * 3
	// DefaultHTTPReadTimeout bounds reading a HTTP response.
	DefaultHTTPReadTimeout = time.Second * 12
	// DefaultKeepAlive is how long idle HTTP connections are kept.
	DefaultKeepAlive = time.Second * 60
)

var (
	// handshakeSalt is the fixed PBKDF2 salt for the session key.
	handshakeSalt = []byte{0xa4, 0x0b, 0xc8, 0x34, 0xd6, 0x95, 0xf3, 0x13}
	// handshakeIterations is the PBKDF2 iteration count.
	handshakeIterations = 5
)
