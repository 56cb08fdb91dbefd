package tieba

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// defaultPublicKeyDER is the base64 PKIX encoding of the RSA key the
// messaging server decrypts session passwords with.
const defaultPublicKeyDER = "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAwQpwBZxXJV/JVRF/uNfyMSdu7YWwRNLM8+2xbniGp2iIQHOikPpTYQjlQgMi1uvq1kZpJ32rHo3hkwjy2l0lFwr3u4Hk2Wk7vnsqYQjAlYlK0TCzjpmiI+OiPOUNVtbWHQiLiVqFtzvpvi4AU7C1iKGvc/4IS45WjHxeScHhnZZ7njS4S1UgNP/GflRIbzgbBhyZ9kEW5/OO5YfG1fy6r4KSlDJw4o/mw5XhftyIpL+5ZBVBC6E1EIiP/dd9AbK62VV1PByfPMHMixpxI3GM2qwcmFsXcCcgvUXJBa9k6zP8dDQ3csCM2QNT+CQAOxthjtp/TFWaD7MzOdsIYb3THwIDAQAB"

var defaultPublicKey struct {
	once sync.Once
	key  *rsa.PublicKey
	err  error
}

// DefaultPublicKey returns the server's hardcoded RSA public key.
func DefaultPublicKey() (*rsa.PublicKey, error) {
	defaultPublicKey.once.Do(func() {
		defaultPublicKey.key, defaultPublicKey.err = ParsePublicKey(defaultPublicKeyDER)
	})
	return defaultPublicKey.key, defaultPublicKey.err
}

// ParsePublicKey parses a base64 encoded PKIX RSA public key.
func ParsePublicKey(s string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "public key")
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "public key")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("public key: unexpected type %T", pub)
	}
	return rsaPub, nil
}

// NewPassword returns a fresh random session password.
func NewPassword() ([]byte, error) {
	password := make([]byte, PasswordSize)
	if _, err := io.ReadFull(rand.Reader, password); err != nil {
		return nil, errors.WithStack(err)
	}
	return password, nil
}

// DeriveKey derives the AES session key from a session password.
func DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, handshakeSalt, handshakeIterations, SessionKeySize, sha1.New)
}

// deviceDescriptor is the device JSON the lite app reports.
func deviceDescriptor(cuidGalaxy2 string) string {
	return fmt.Sprintf(`{"subapp_type":"mini","_client_version":"%s","pversion":"1.0.3",`+
		`"_msg_status":"1","_phone_imei":"000000000000000","from":"1021099l",`+
		`"cuid_galaxy2":"%s","model":"LIO-AN00","_client_type":"2"}`, PostVersion, cuidGalaxy2)
}

// handshake is the client half of one key exchange.
type handshake struct {
	password []byte
	key      []byte
}

func newHandshake() (*handshake, error) {
	password, err := NewPassword()
	if err != nil {
		return nil, err
	}
	return &handshake{password: password, key: DeriveKey(password)}, nil
}

// request builds the CmdUpdateClientInfo payload, wrapping the password
// for pub.
func (hs *handshake) request(pub *rsa.PublicKey, bduss string, id *Identity) ([]byte, error) {
	secretKey, err := rsa.EncryptPKCS1v15(rand.Reader, pub, hs.password)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt session password")
	}
	req := &ClientInfoRequest{
		BDUSS:     bduss,
		Device:    deviceDescriptor(id.CUIDGalaxy2),
		SecretKey: secretKey,
		CUID:      fmt.Sprintf("%s|com.baidu.tieba_mini%s", id.CUID, PostVersion),
	}
	return req.Marshal(), nil
}

// checkHandshakeReply returns a *HandshakeError if the server rejected the key.
func checkHandshakeReply(b []byte) error {
	ei, err := ParseErrorReply(b)
	if err != nil {
		return ProtocolError{Err: err}
	}
	if ei.Code != 0 {
		return &HandshakeError{Code: ei.Code, Message: ei.Message}
	}
	return nil
}
