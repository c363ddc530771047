package uploader

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// AuthScheme is the scheme name of the ifirma Authentication header.
const AuthScheme = "IAPIS"

// Signer computes ifirma request signatures.
//
// The signed message is URL + username + key name + body. The digest is
// HMAC-SHA1 keyed with the raw (hex-decoded) API key, written as lowercase
// hex.
type Signer struct {
	url      string
	username string
	keyName  string
	key      []byte
}

// NewSigner creates a Signer. key is the decoded API key.
func NewSigner(url, username, keyName string, key []byte) *Signer {
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{url: url, username: username, keyName: keyName, key: k}
}

// Message returns the bytes covered by the signature of body.
func (s *Signer) Message(body []byte) []byte {
	msg := make([]byte, 0, len(s.url)+len(s.username)+len(s.keyName)+len(body))
	msg = append(msg, s.url...)
	msg = append(msg, s.username...)
	msg = append(msg, s.keyName...)
	return append(msg, body...)
}

// Sign returns the lowercase hex HMAC-SHA1 digest for body.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha1.New, s.key)
	mac.Write(s.Message(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// AuthHeader returns the Authentication header value for body.
func (s *Signer) AuthHeader(body []byte) string {
	return fmt.Sprintf("%s user=%s, hmac-sha1=%s", AuthScheme, s.username, s.Sign(body))
}
