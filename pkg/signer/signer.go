// Package signer produces the request body and the X-Hub-Signature header of
// outbound webhooks. The signature is always computed over the bytes that go on
// the wire, never over a re-encoded structure.
package signer

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
)

const (
	Header = "X-Hub-Signature"
	Prefix = "sha256="

	rawMarker = "$signer:raw$"
)

// Canonicalize encodes v as RFC 8785 JSON: sorted keys, no insignificant whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize body: %w", err)
	}
	return out, nil
}

// CanonicalizeWithRaw is Canonicalize for v with the member key holding raw. raw is only
// compacted, its own key order and number spelling reach the receiver unchanged.
func CanonicalizeWithRaw(v any, key string, raw json.RawMessage) ([]byte, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &members); err != nil {
		return nil, fmt.Errorf("body is not an object: %w", err)
	}
	members[key] = json.RawMessage(`"` + rawMarker + `"`)

	out, err := Canonicalize(members)
	if err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("compact %s: %w", key, err)
	}
	quoted := []byte(`"` + rawMarker + `"`)
	if bytes.Count(out, quoted) != 1 {
		return nil, fmt.Errorf("canonicalize body: %s marker is not unique", key)
	}
	return bytes.Replace(out, quoted, compact.Bytes(), 1), nil
}

type HMAC struct{}

func New() HMAC {
	return HMAC{}
}

// Sign returns "sha256=<hex>" for body, or "" when secret is empty.
func (HMAC) Sign(body []byte, secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(body); err != nil {
		return "", fmt.Errorf("hmac write: %w", err)
	}
	return Prefix + hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify is the receiver side check, constant time.
func Verify(body []byte, secret, header string) bool {
	if secret == "" || !strings.HasPrefix(header, Prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, Prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
