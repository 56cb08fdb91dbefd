package tieba

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	webUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:101.0) Gecko/20100101 Firefox/101.0"

	// protoBoundaryPrefix is followed by one random digit.
	protoBoundaryPrefix = "*-672328094-42-"
)

// DialContextFunc dials a network connection.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// headerTransport sets a fixed set of headers on each request and counts
// the responses.
type headerTransport struct {
	base   http.RoundTripper
	header http.Header
	flavor string
}

func (ht *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range ht.header {
		if r.Header.Get(k) == "" {
			r.Header[k] = v
		}
	}
	resp, err := ht.base.RoundTrip(r)
	if err == nil {
		observeHTTP(ht.flavor, resp.StatusCode)
	}
	return resp, err
}

// newTransport returns the transport shared by all HTTP flavors. There is
// no limit on connections per host.
func newTransport(dial DialContextFunc) *http.Transport {
	if dial == nil {
		dial = (&net.Dialer{
			Timeout:   DefaultSocketConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext
	}
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           dial,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   64,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       DefaultKeepAlive,
		TLSHandshakeTimeout:   DefaultDialTimeout,
		ResponseHeaderTimeout: DefaultHTTPReadTimeout,
	}
}

func appHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "bdtb for Android "+LatestVersion)
	h.Set("Connection", "keep-alive")
	return h
}

func newAppClient(rt http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &headerTransport{base: rt, header: appHeader(), flavor: "app"},
	}
}

func newAppProtoClient(rt http.RoundTripper) *http.Client {
	h := appHeader()
	h.Set("x_bd_data_type", "protobuf")
	return &http.Client{
		Transport: &headerTransport{base: rt, header: h, flavor: "app_proto"},
	}
}

func newWebClient(rt http.RoundTripper, webBase *url.URL, bduss, stoken string) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var cookies []*http.Cookie
	if bduss != "" {
		cookies = append(cookies, &http.Cookie{Name: "BDUSS", Value: bduss})
	}
	if stoken != "" {
		cookies = append(cookies, &http.Cookie{Name: "STOKEN", Value: stoken})
	}
	jar.SetCookies(webBase, cookies)

	h := http.Header{}
	h.Set("User-Agent", webUserAgent)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &http.Client{
		Transport: &headerTransport{base: rt, header: h, flavor: "web"},
		Jar:       jar,
	}, nil
}

// NewProtoBody wraps a protobuf payload the way the app uploads it: a
// single multipart part named "data" with filename "file".
func NewProtoBody(payload []byte) (contentType string, body *bytes.Buffer) {
	boundary := protoBoundaryPrefix + string(rune('0'+rand.Intn(10)))
	body = &bytes.Buffer{}
	body.Grow(len(payload) + 2*len(boundary) + 96)
	fmt.Fprintf(body, "--%s\r\n", boundary)
	body.WriteString("Content-Disposition: form-data; name=\"data\"; filename=\"file\"\r\n\r\n")
	body.Write(payload)
	fmt.Fprintf(body, "\r\n--%s--\r\n", boundary)
	return "multipart/form-data; boundary=" + boundary, body
}

// PostForm signs form and posts it to path on the app endpoint.
func (c *Client) PostForm(ctx context.Context, path string, form Form) ([]byte, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.appURL(path), strings.NewReader(Sign(form).Encode()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(c.app, r)
}

// PostProto uploads a protobuf payload to path on the app endpoint.
// The path usually ends in "?cmd=N&format=protobuf".
func (c *Client) PostProto(ctx context.Context, path string, payload []byte) ([]byte, error) {
	contentType, body := NewProtoBody(payload)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.appURL(path), body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	r.Header.Set("Content-Type", contentType)
	return c.do(c.appProto, r)
}

// GetWeb fetches path from the web endpoint with the account cookies.
func (c *Client) GetWeb(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.webBase.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return c.do(c.web, r)
}

func (c *Client) appURL(path string) string {
	return strings.TrimSuffix(c.appBase.String(), "/") + path
}

func (c *Client) do(hc *http.Client, r *http.Request) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	resp, err := hc.Do(r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.Method, r.URL.Path)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.Method, r.URL.Path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s %s: %s", r.Method, r.URL.Path, resp.Status)
	}
	return b, nil
}
