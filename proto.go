package tieba

import (
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the websocket messages.
const (
	fieldReqData = 1
	fieldResErr  = 1
	fieldResData = 2

	fieldErrNo  = 1
	fieldErrMsg = 2

	fieldClientInfoBDUSS     = 2
	fieldClientInfoDevice    = 3
	fieldClientInfoSecretKey = 9
	fieldClientInfoCUID      = 2

	fieldPersonalMsgToUID   = 2
	fieldPersonalMsgContent = 3
	fieldPersonalMsgType    = 4
	fieldPersonalMsgBlock   = 5

	fieldBlockErrNo  = 1
	fieldBlockErrMsg = 2
)

// Field numbers of the app protobuf endpoints.
const (
	fieldCommonClientVersion = 1
	fieldCommonBDUSS         = 3

	fieldReplyMeCommon = 1
	fieldReplyMePn     = 2
)

// ErrorInfo is the status carried in every websocket reply.
type ErrorInfo struct {
	Code    int64
	Message string
}

// ClientInfoRequest is the handshake message sent with CmdUpdateClientInfo.
type ClientInfoRequest struct {
	BDUSS     string
	Device    string // JSON device descriptor
	SecretKey []byte // RSA encrypted session password
	CUID      string
}

// Marshal returns the protobuf encoding of r.
func (r *ClientInfoRequest) Marshal() []byte {
	var data []byte
	data = appendString(data, fieldClientInfoBDUSS, r.BDUSS)
	data = appendString(data, fieldClientInfoDevice, r.Device)
	data = appendBytes(data, fieldClientInfoSecretKey, r.SecretKey)

	var b []byte
	b = appendBytes(b, fieldReqData, data)
	b = appendString(b, fieldClientInfoCUID, r.CUID)
	return b
}

// PersonalMsgRequest is the private message sent with CmdCommitPersonalMsg.
type PersonalMsgRequest struct {
	ToUID   int64
	Content string
	MsgType int32
}

// Marshal returns the protobuf encoding of r.
func (r *PersonalMsgRequest) Marshal() []byte {
	var data []byte
	data = protowire.AppendTag(data, fieldPersonalMsgToUID, protowire.VarintType)
	data = protowire.AppendVarint(data, uint64(r.ToUID))
	data = appendString(data, fieldPersonalMsgContent, r.Content)
	data = protowire.AppendTag(data, fieldPersonalMsgType, protowire.VarintType)
	data = protowire.AppendVarint(data, uint64(r.MsgType))
	return appendBytes(nil, fieldReqData, data)
}

// CommonRequest is the account and version block the app endpoints expect
// inside every request.
type CommonRequest struct {
	ClientVersion string
	BDUSS         string
}

func (r *CommonRequest) marshal() []byte {
	var b []byte
	b = appendString(b, fieldCommonClientVersion, r.ClientVersion)
	return appendString(b, fieldCommonBDUSS, r.BDUSS)
}

// ReplyMeRequest asks for one page of replies to the account.
type ReplyMeRequest struct {
	Common CommonRequest
	Pn     int
}

// Marshal returns the protobuf encoding of r.
func (r *ReplyMeRequest) Marshal() []byte {
	var data []byte
	data = appendBytes(data, fieldReplyMeCommon, r.Common.marshal())
	data = appendString(data, fieldReplyMePn, strconv.Itoa(r.Pn))
	return appendBytes(nil, fieldReqData, data)
}

// ParseDataReply splits an app protobuf response into its status and its
// undecoded data message.
func ParseDataReply(b []byte) (ei ErrorInfo, data []byte, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldResErr:
			return parseErrorInfo(v, fieldErrNo, fieldErrMsg, &ei)
		case fieldResData:
			data = v
		}
		return nil
	})
	return
}

// PersonalMsgReply is the reply to a PersonalMsgRequest.
type PersonalMsgReply struct {
	Error ErrorInfo
	Block ErrorInfo // set when the receiver does not accept the message
}

// ParseErrorReply extracts the error field of a websocket reply.
func ParseErrorReply(b []byte) (ei ErrorInfo, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num == fieldResErr && typ == protowire.BytesType {
			return parseErrorInfo(v, fieldErrNo, fieldErrMsg, &ei)
		}
		return nil
	})
	return
}

// ParsePersonalMsgReply decodes the reply to a PersonalMsgRequest.
func ParsePersonalMsgReply(b []byte) (reply PersonalMsgReply, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldResErr:
			return parseErrorInfo(v, fieldErrNo, fieldErrMsg, &reply.Error)
		case fieldResData:
			return walkFields(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if num == fieldPersonalMsgBlock && typ == protowire.BytesType {
					return parseErrorInfo(v, fieldBlockErrNo, fieldBlockErrMsg, &reply.Block)
				}
				return nil
			})
		}
		return nil
	})
	return
}

func parseErrorInfo(b []byte, codeNum, msgNum protowire.Number, ei *ErrorInfo) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == codeNum && typ == protowire.VarintType:
			ei.Code = int64(x)
		case num == msgNum && typ == protowire.BytesType:
			ei.Message = string(v)
		}
		return nil
	})
}

// walkFields calls fn for each top level field in b. For varint fields x
// holds the value, for length delimited fields v holds the contents.
// Other wire types are skipped.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "protobuf tag")
		}
		b = b[n:]
		var v []byte
		var x uint64
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "protobuf field %d", num)
		}
		b = b[n:]
		if typ == protowire.VarintType || typ == protowire.BytesType {
			if err := fn(num, typ, v, x); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
