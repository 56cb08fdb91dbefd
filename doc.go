// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

/*
Package tieba implements the transport core of an unofficial client for the
Tieba forum mobile API.

Form requests sent to the app endpoints carry a trailing "sign" field, an MD5
digest over the ordered fields and a fixed client secret. Protobuf requests
are posted as a single multipart part. Both ride a shared, pooled HTTP
transport.

Private messaging uses a persistent WebSocket. Every message on it is a frame:
a 9-byte header (flag, cmd, request id) followed by a payload that is
optionally gzip compressed and then AES-ECB encrypted. The AES key is derived
per connection from a random password which is handed to the server wrapped
in RSA during the handshake (cmd 1001).

Replies on the socket are matched to their callers by request id. A single
dispatcher goroutine per socket reads frames and completes the matching
Pending entry in the PendingTable; callers wait on their Pending with a
timeout. Whichever of completion or timeout removes the entry first decides
the outcome.
*/
package tieba
