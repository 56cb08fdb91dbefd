package tieba

import "fmt"

// Cmd enumerates the known websocket frame commands.
type Cmd uint32

const (
	// CmdInvalid is the cmd reported for frames too short to carry a header.
	CmdInvalid = Cmd(0)
	// CmdUpdateClientInfo is the handshake that registers the session key.
	CmdUpdateClientInfo = Cmd(1001)
	// CmdCommitPersonalMsg sends a private message.
	CmdCommitPersonalMsg = Cmd(205001)
)

// CmdReplyMe is the reply list endpoint. App protobuf commands travel in
// the query string of the HTTP request rather than in a frame header.
const CmdReplyMe = Cmd(303007)

var cmdTexts = map[Cmd]string{
	CmdInvalid:           "Invalid",
	CmdUpdateClientInfo:  "UpdateClientInfo",
	CmdCommitPersonalMsg: "CommitPersonalMsg",
	CmdReplyMe:           "ReplyMe",
}

func (c Cmd) String() string {
	if s, ok := cmdTexts[c]; ok {
		return s
	}
	return fmt.Sprintf("Cmd(%d)", uint32(c))
}
