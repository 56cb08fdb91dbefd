package tieba

import (
	"context"
	"net/url"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

var jsonHandle = func() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}()

// User is the account a Client is logged in as.
type User struct {
	ID       int64
	Name     string
	Portrait string
}

// NewMsg tells which kinds of notification are unread.
type NewMsg struct {
	Fans          bool
	ReplyMe       bool
	AtMe          bool
	Agree         bool
	PrivateLetter bool
	Bookmark      bool
	Count         bool
}

// jsonObject is a decoded JSON object. The endpoints are inconsistent
// about quoting numbers, so accessors accept either form.
type jsonObject map[string]interface{}

func decodeJSON(b []byte) (jsonObject, error) {
	var v map[string]interface{}
	if err := codec.NewDecoderBytes(b, jsonHandle).Decode(&v); err != nil {
		return nil, errors.Wrap(err, "json")
	}
	return v, nil
}

func (o jsonObject) object(key string) jsonObject {
	m, _ := o[key].(map[string]interface{})
	return m
}

func (o jsonObject) str(key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (o jsonObject) int(key string) int64 {
	switch v := o[key].(type) {
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// apiError returns an *APIError if the object carries a nonzero code.
func (o jsonObject) apiError(codeKey, msgKey string) error {
	if code := o.int(codeKey); code != 0 {
		return &APIError{Code: code, Message: o.str(msgKey)}
	}
	return nil
}

func (c *Client) postFormJSON(ctx context.Context, path string, form Form) (jsonObject, error) {
	b, err := c.PostForm(ctx, path, form)
	if err != nil {
		return nil, err
	}
	o, err := decodeJSON(b)
	if err != nil {
		return nil, err
	}
	return o, o.apiError("error_code", "error_msg")
}

// Login fetches the account and the anti-CSRF token.
func (c *Client) Login(ctx context.Context) bool {
	var user User
	var tbs string
	o, err := c.postFormJSON(ctx, "/c/s/login", Form{
		{"_client_version", LatestVersion},
		{"bdusstoken", c.BDUSS},
	})
	if err == nil {
		u := o.object("user")
		user = User{ID: u.int("id"), Name: u.str("name"), Portrait: u.str("portrait")}
		tbs = o.object("anti").str("tbs")
	}

	c.userMu.Lock()
	c.user, c.tbs = user, tbs
	c.userMu.Unlock()

	if err != nil {
		c.log.Warningf("failed to login: %v", err)
		return false
	}
	c.log.Infof("logged in as %q (%d)", user.Name, user.ID)
	return true
}

// Tbs returns the anti-CSRF token, logging in if needed.
func (c *Client) Tbs(ctx context.Context) string {
	c.userMu.Lock()
	tbs := c.tbs
	c.userMu.Unlock()
	if tbs == "" {
		c.Login(ctx)
		c.userMu.Lock()
		tbs = c.tbs
		c.userMu.Unlock()
	}
	return tbs
}

// Self returns the logged in account, logging in if needed.
func (c *Client) Self(ctx context.Context) User {
	c.userMu.Lock()
	user := c.user
	c.userMu.Unlock()
	if user.ID == 0 {
		c.Login(ctx)
		c.userMu.Lock()
		user = c.user
		c.userMu.Unlock()
	}
	return user
}

// GetFid returns the forum id of fname, or 0 on failure.
func (c *Client) GetFid(ctx context.Context, fname string) uint64 {
	if fid, ok := c.fids.Fid(fname); ok {
		return fid
	}
	fid, err := c.fetchFid(ctx, fname)
	if err != nil {
		c.log.Warningf("failed to get fid of %s: %v", fname, err)
		return 0
	}
	if err = c.fids.PutFid(fname, fid); err != nil {
		c.log.Warningf("failed to cache fid of %s: %v", fname, err)
	}
	return fid
}

func (c *Client) fetchFid(ctx context.Context, fname string) (uint64, error) {
	b, err := c.GetWeb(ctx, "/f/commit/share/fnameShareApi", url.Values{
		"fname": {fname},
		"ie":    {"utf-8"},
	})
	if err != nil {
		return 0, err
	}
	o, err := decodeJSON(b)
	if err != nil {
		return 0, err
	}
	if err = o.apiError("no", "error"); err != nil {
		return 0, err
	}
	fid := o.object("data").int("fid")
	if fid <= 0 {
		return 0, errors.Errorf("no such forum")
	}
	return uint64(fid), nil
}

// postProtoCmd posts a protobuf request to path with cmd in the query
// string and returns the data message of the response.
func (c *Client) postProtoCmd(ctx context.Context, path string, cmd Cmd, payload []byte) ([]byte, error) {
	b, err := c.PostProto(ctx, path+"?cmd="+strconv.FormatUint(uint64(cmd), 10), payload)
	if err != nil {
		return nil, err
	}
	ei, data, err := ParseDataReply(b)
	if err != nil {
		return nil, err
	}
	if ei.Code != 0 {
		return nil, &APIError{Code: ei.Code, Message: ei.Message}
	}
	return data, nil
}

// GetReplies returns page pn of the replies to the account as the
// undecoded protobuf data message, or nil on failure.
func (c *Client) GetReplies(ctx context.Context, pn int) []byte {
	req := &ReplyMeRequest{
		Common: CommonRequest{ClientVersion: LatestVersion, BDUSS: c.BDUSS},
		Pn:     pn,
	}
	data, err := c.postProtoCmd(ctx, "/c/u/feed/replyme", CmdReplyMe, req.Marshal())
	if err != nil {
		c.log.Warningf("failed to get replies: %v", err)
		return nil
	}
	if data == nil {
		data = []byte{}
	}
	return data
}

// GetNewMsg returns the unread notification flags. All flags are false
// on failure.
func (c *Client) GetNewMsg(ctx context.Context) (msg NewMsg) {
	o, err := c.postFormJSON(ctx, "/c/s/msg", Form{{"BDUSS", c.BDUSS}})
	if err != nil {
		c.log.Warningf("failed to get new messages: %v", err)
		return
	}
	m := o.object("message")
	return NewMsg{
		Fans:          m.int("fans") != 0,
		ReplyMe:       m.int("replyme") != 0,
		AtMe:          m.int("atme") != 0,
		Agree:         m.int("agree") != 0,
		PrivateLetter: m.int("pletter") != 0,
		Bookmark:      m.int("bookmark") != 0,
		Count:         m.int("count") != 0,
	}
}

// SendMsg sends a private message over the messaging socket.
func (c *Client) SendMsg(ctx context.Context, toUID int64, content string) bool {
	if err := c.sendMsg(ctx, toUID, content); err != nil {
		c.log.Warningf("failed to send msg to %d: %v", toUID, err)
		return false
	}
	c.log.Infof("sent msg to %d", toUID)
	return true
}

func (c *Client) sendMsg(ctx context.Context, toUID int64, content string) error {
	req := &PersonalMsgRequest{ToUID: toUID, Content: content, MsgType: 1}
	b, err := c.Request(ctx, req.Marshal(), CmdCommitPersonalMsg)
	if err != nil {
		return err
	}
	reply, err := ParsePersonalMsgReply(b)
	if err != nil {
		return err
	}
	if reply.Error.Code != 0 {
		return &APIError{Code: reply.Error.Code, Message: reply.Error.Message}
	}
	if reply.Block.Code != 0 {
		return &APIError{Code: reply.Block.Code, Message: reply.Block.Message}
	}
	return nil
}
