package tieba

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestCodec(t *testing.T) *Codec {
	c, err := NewCodec(DeriveKey([]byte("0123456789abcdefghijklmnopqrstuvwxyz")))
	assert.NoError(t, err)
	assert.True(t, c.HasKey())
	return c
}

func Test_Codec_EncodePlain(t *testing.T) {
	c, err := NewCodec(nil)
	assert.NoError(t, err)
	assert.False(t, c.HasKey())
	frame, err := c.Encode([]byte("hello"), Cmd(1001), 42, false, false)
	assert.NoError(t, err)
	expected := append([]byte{0x08, 0x00, 0x00, 0x03, 0xe9, 0x00, 0x00, 0x00, 0x2a}, "hello"...)
	assert.Equal(t, expected, frame)
}

func Test_Codec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	payloads := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte("exactly sixteen!"),
		bytes.Repeat([]byte("tieba"), 1000),
	}
	for _, payload := range payloads {
		for _, useGzip := range []bool{false, true} {
			for _, useEncrypt := range []bool{false, true} {
				name := fmt.Sprintf("len=%d,gzip=%v,encrypt=%v", len(payload), useGzip, useEncrypt)
				frame, err := c.Encode(payload, CmdCommitPersonalMsg, 0xdeadbeef, useGzip, useEncrypt)
				assert.NoError(t, err, name)
				fh := FrameHeader(frame[:FrameHeaderSize])
				assert.Equal(t, useGzip, fh.HasGzip(), name)
				assert.Equal(t, useEncrypt, fh.HasEncrypt(), name)
				if useEncrypt {
					assert.Zero(t, (len(frame)-FrameHeaderSize)%AESBlockSize, name)
				}
				got, cmd, id, err := c.Decode(frame)
				assert.NoError(t, err, name)
				assert.Equal(t, payload, got, name)
				assert.Equal(t, CmdCommitPersonalMsg, cmd, name)
				assert.Equal(t, uint32(0xdeadbeef), id, name)
			}
		}
	}
}

func Test_Codec_RoundTripRandomGzipEncrypt(t *testing.T) {
	c := newTestCodec(t)
	for i := 0; i < 64; i++ {
		payload := make([]byte, i*7)
		_, err := rand.Read(payload)
		assert.NoError(t, err)
		frame, err := c.Encode(payload, Cmd(i), uint32(i), true, true)
		assert.NoError(t, err)
		got, cmd, id, err := c.Decode(frame)
		assert.NoError(t, err)
		assert.Equal(t, payload, got)
		assert.Equal(t, Cmd(i), cmd)
		assert.Equal(t, uint32(i), id)
	}
}

func Test_Codec_ShortFrame(t *testing.T) {
	c := newTestCodec(t)
	for n := 0; n < FrameHeaderSize; n++ {
		in := bytes.Repeat([]byte{0xc8}, n)
		got, cmd, id, err := c.Decode(in)
		assert.NoError(t, err)
		assert.Equal(t, in, got)
		assert.Equal(t, CmdInvalid, cmd)
		assert.Equal(t, uint32(0), id)
	}
}

func Test_Codec_NoSessionKey(t *testing.T) {
	plain, _ := NewCodec(nil)
	_, err := plain.Encode([]byte("x"), CmdCommitPersonalMsg, 1, false, true)
	assert.Equal(t, ErrNoSessionKey, errors.Cause(err))

	frame, err := newTestCodec(t).Encode([]byte("x"), CmdCommitPersonalMsg, 1, false, true)
	assert.NoError(t, err)
	_, cmd, id, err := plain.Decode(frame)
	assert.Equal(t, ErrNoSessionKey, errors.Cause(err))
	assert.Equal(t, CmdCommitPersonalMsg, cmd)
	assert.Equal(t, uint32(1), id)
}

func Test_Codec_BadCiphertext(t *testing.T) {
	c := newTestCodec(t)
	frame, err := c.Encode([]byte("abc"), CmdCommitPersonalMsg, 3, false, true)
	assert.NoError(t, err)
	_, _, _, err = c.Decode(frame[:len(frame)-1])
	assert.Equal(t, ErrBadCiphertext, errors.Cause(err))
	_, isProtocolError := err.(ProtocolError)
	assert.True(t, isProtocolError)
}

func Test_Codec_BadGzip(t *testing.T) {
	c := newTestCodec(t)
	frame, err := c.Encode([]byte("not gzip"), CmdCommitPersonalMsg, 3, false, false)
	assert.NoError(t, err)
	frame[0] |= byte(FrameFlagGzip)
	_, _, _, err = c.Decode(frame)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "protocol error")
}

func Test_Codec_WrongKeyIsNotSilent(t *testing.T) {
	frame, err := newTestCodec(t).Encode([]byte("secret"), CmdCommitPersonalMsg, 9, true, true)
	assert.NoError(t, err)
	other, err := NewCodec(DeriveKey([]byte("another password")))
	assert.NoError(t, err)
	_, _, _, err = other.Decode(frame)
	assert.Error(t, err)
}

func Test_Codec_Pad(t *testing.T) {
	assert.Equal(t, bytes.Repeat([]byte{16}, 16), pad(nil))
	assert.Equal(t, append([]byte("abc"), bytes.Repeat([]byte{13}, 13)...), pad([]byte("abc")))
	assert.Equal(t, []byte("abc"), unpad(pad([]byte("abc"))))
	assert.Equal(t, []byte{}, unpad([]byte{}))
}

func Test_Codec_UnpadTrimsWholeRun(t *testing.T) {
	// a plaintext ending in the pad value loses that byte as well
	b := append([]byte("abcdefghijklmn"), 0x01)
	assert.Equal(t, []byte("abcdefghijklmn"), unpad(pad(b)))
}
