// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

//go:build race

package tieba

// sanity check the configuration
func init() {
	if FrameHeaderSize != 1+4+4 {
		panic("FrameHeaderSize != 9")
	}
	if AESBlockSize != 16 {
		panic("AESBlockSize != 16")
	}
	if SessionKeySize != 16 && SessionKeySize != 24 && SessionKeySize != 32 {
		panic("SessionKeySize is not a valid AES key size")
	}
	if GzipLevel < 1 || GzipLevel > 9 {
		panic("GzipLevel out of range")
	}
	if len(handshakeSalt) != 8 {
		panic("len(handshakeSalt) != 8")
	}
	if handshakeIterations < 1 {
		panic("handshakeIterations < 1")
	}
}
