package tieba

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Codec packs and unpacks websocket frames. It owns the AES session key
// of one connection; a Codec without a key can only handle plain frames.
type Codec struct {
	block cipher.Block
}

// NewCodec returns a Codec using key for AES-ECB. A nil key gives a Codec
// that refuses encrypted frames.
func NewCodec(key []byte) (*Codec, error) {
	c := &Codec{}
	if key != nil {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		c.block = block
	}
	return c, nil
}

// HasKey returns true if the Codec can encrypt and decrypt.
func (c *Codec) HasKey() bool {
	return c != nil && c.block != nil
}

// Encode builds a frame: the payload is gzip compressed if useGzip is set,
// then padded and AES-ECB encrypted if useEncrypt is set, and finally
// prefixed with the header.
func (c *Codec) Encode(payload []byte, cmd Cmd, requestID uint32, useGzip, useEncrypt bool) ([]byte, error) {
	var err error
	if useGzip {
		if payload, err = gzipCompress(payload); err != nil {
			return nil, err
		}
	}
	if useEncrypt {
		if !c.HasKey() {
			return nil, errors.WithStack(ErrNoSessionKey)
		}
		payload = c.encrypt(pad(payload))
	}

	frame := make([]byte, FrameHeaderSize, FrameHeaderSize+len(payload))
	fh := FrameHeader(frame)
	fh.SetFlags(useGzip, useEncrypt)
	fh.SetCmd(cmd)
	fh.SetRequestID(requestID)
	return append(frame, payload...), nil
}

// Decode is the inverse of Encode. Input shorter than a header is returned
// unmodified with a zero cmd and request id.
func (c *Codec) Decode(frame []byte) (payload []byte, cmd Cmd, requestID uint32, err error) {
	if len(frame) < FrameHeaderSize {
		return frame, CmdInvalid, 0, nil
	}

	fh := FrameHeader(frame[:FrameHeaderSize])
	cmd, requestID = fh.Cmd(), fh.RequestID()
	payload = frame[FrameHeaderSize:]

	if fh.HasEncrypt() {
		if !c.HasKey() {
			return nil, cmd, requestID, ProtocolError{Header: fh, Err: ErrNoSessionKey}
		}
		if len(payload)%AESBlockSize != 0 {
			return nil, cmd, requestID, ProtocolError{Header: fh, Err: ErrBadCiphertext}
		}
		payload = unpad(c.decrypt(payload))
	}
	if fh.HasGzip() {
		if payload, err = gzipDecompress(payload); err != nil {
			return nil, cmd, requestID, ProtocolError{Header: fh, Err: err}
		}
	}
	return
}

func (c *Codec) encrypt(src []byte) []byte {
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += AESBlockSize {
		c.block.Encrypt(dst[i:i+AESBlockSize], src[i:i+AESBlockSize])
	}
	return dst
}

func (c *Codec) decrypt(src []byte) []byte {
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += AESBlockSize {
		c.block.Decrypt(dst[i:i+AESBlockSize], src[i:i+AESBlockSize])
	}
	return dst
}

// pad appends n bytes of value n, where n is 1..AESBlockSize.
func pad(b []byte) []byte {
	n := AESBlockSize - len(b)%AESBlockSize
	padded := make([]byte, len(b), len(b)+n)
	copy(padded, b)
	return append(padded, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad trims the trailing run of bytes equal to the last byte. Plaintext
// ending in the pad value loses those bytes too; the server pads the same
// way so frames from it round-trip.
func unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	last := b[len(b)-1]
	i := len(b)
	for i > 0 && b[i-1] == last {
		i--
	}
	return b[:i]
}

func gzipCompress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzipWriterAlloc(&buf)
	defer gzipWriterFree(zw)
	if _, err := zw.Write(b); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

func gzipDecompress(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}
