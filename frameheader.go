// frameheader.go

// A frame header consists of nine bytes. The first byte holds the flags,
// the next four bytes are the big-endian cmd and the last four bytes are the
// big-endian request id the frame answers or expects an answer for.

package tieba

import (
	"encoding/binary"
	"fmt"
)

/*

FrameHeader is 72 bits: an 8-bit flag field, a 32-bit cmd and a 32-bit
request id. Only three flag bits carry meaning:

* bit 7 (0x80) - Gzip, the payload was gzip compressed before encryption
* bit 6 (0x40) - Encrypt, the payload is AES-ECB encrypted with the session key
* bit 3 (0x08) - Marker, always set by the encoder

Decoding looks at the Encrypt bit first, then at the Gzip bit, mirroring the
order in which the encoder applied them.

*/
type FrameHeader []byte

// FrameFlag enumerates the bits of the flag byte.
type FrameFlag byte

const (
	// FrameFlagMarker is set on every frame we encode.
	FrameFlagMarker FrameFlag = 0x08
	// FrameFlagEncrypt indicates an AES-ECB encrypted payload.
	FrameFlagEncrypt FrameFlag = 0x40
	// FrameFlagGzip indicates a gzip compressed payload.
	FrameFlagGzip FrameFlag = 0x80
)

var frameFlagTexts = map[FrameFlag]string{
	(0):                                "..",
	(FrameFlagEncrypt):                 ".E",
	(FrameFlagGzip):                    "G.",
	(FrameFlagGzip | FrameFlagEncrypt): "GE",
}

// NewFrameHeader returns a zeroed header of FrameHeaderSize bytes.
func NewFrameHeader() FrameHeader {
	return make(FrameHeader, FrameHeaderSize)
}

func (fh FrameHeader) String() string {
	return fmt.Sprintf("[FrameHeader %s %v %d]",
		frameFlagTexts[fh.Flag()&(FrameFlagGzip|FrameFlagEncrypt)], fh.Cmd(), fh.RequestID())
}

// Flag returns the raw flag byte.
func (fh FrameHeader) Flag() FrameFlag {
	return FrameFlag(fh[0])
}

// SetFlags sets the flag byte from the payload transformations applied.
// The marker bit is always set.
func (fh FrameHeader) SetFlags(useGzip, useEncrypt bool) {
	flag := FrameFlagMarker
	if useGzip {
		flag |= FrameFlagGzip
	}
	if useEncrypt {
		flag |= FrameFlagEncrypt
	}
	fh[0] = byte(flag)
}

// HasGzip returns true if the Gzip bit is set.
func (fh FrameHeader) HasGzip() bool {
	return fh.Flag()&FrameFlagGzip == FrameFlagGzip
}

// HasEncrypt returns true if the Encrypt bit is set.
func (fh FrameHeader) HasEncrypt() bool {
	return fh.Flag()&FrameFlagEncrypt == FrameFlagEncrypt
}

// HasMarker returns true if the Marker bit is set.
func (fh FrameHeader) HasMarker() bool {
	return fh.Flag()&FrameFlagMarker == FrameFlagMarker
}

// Cmd returns the cmd stored in bytes 1 to 4.
func (fh FrameHeader) Cmd() Cmd {
	return Cmd(binary.BigEndian.Uint32(fh[1:5]))
}

// SetCmd stores the cmd in bytes 1 to 4.
func (fh FrameHeader) SetCmd(cmd Cmd) {
	binary.BigEndian.PutUint32(fh[1:5], uint32(cmd))
}

// RequestID returns the request id stored in bytes 5 to 8.
func (fh FrameHeader) RequestID() uint32 {
	return binary.BigEndian.Uint32(fh[5:9])
}

// SetRequestID stores the request id in bytes 5 to 8.
func (fh FrameHeader) SetRequestID(id uint32) {
	binary.BigEndian.PutUint32(fh[5:9], id)
}

// Clear zeroes out the frameheader bytes.
func (fh FrameHeader) Clear() {
	for i := range fh[:FrameHeaderSize] {
		fh[i] = 0
	}
}
