package tieba

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// SignField is the name of the field Sign appends.
const SignField = "sign"

// Field is a single form key/value pair.
type Field struct {
	Key   string
	Value string
}

// Form is an ordered list of form fields. The order is part of the
// request's identity since it determines the signature.
type Form []Field

// Sign returns a copy of form with the sign field appended. The digest is
// the MD5 of every "key=value" in order followed by SignSecret.
func Sign(form Form) Form {
	var sb strings.Builder
	for _, f := range form {
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(f.Value)
	}
	sb.WriteString(SignSecret)
	sum := md5.Sum([]byte(sb.String()))

	signed := make(Form, len(form), len(form)+1)
	copy(signed, form)
	return append(signed, Field{Key: SignField, Value: hex.EncodeToString(sum[:])})
}

// Get returns the value of the first field named key, or the empty string.
func (form Form) Get(key string) string {
	for _, f := range form {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Encode renders the form as application/x-www-form-urlencoded,
// keeping the field order.
func (form Form) Encode() string {
	var sb strings.Builder
	for i, f := range form {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return sb.String()
}
