package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// SchemeHMACSHA256 is the only supported signature scheme.
const SchemeHMACSHA256 = "hmac-sha256"

// Signer computes and checks envelope signatures.
// A Signer with an empty key signs with "" and accepts any signature.
type Signer struct {
	key []byte
}

// NewSigner returns a signer for the given key and scheme. An empty
// scheme is treated as hmac-sha256.
func NewSigner(key, scheme string) (*Signer, error) {
	if scheme != "" && scheme != SchemeHMACSHA256 {
		return nil, fmt.Errorf("unsupported signature scheme %q", scheme)
	}
	return &Signer{key: []byte(key)}, nil
}

// Enabled reports whether messages are signed.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.key) > 0
}

// Sign returns the lowercase hex HMAC of the four parts in order.
func (s *Signer) Sign(header, parent, metadata, content []byte) string {
	if !s.Enabled() {
		return ""
	}
	return hex.EncodeToString(s.mac(header, parent, metadata, content).Sum(nil))
}

// Verify checks the signature of f in constant time.
func (s *Signer) Verify(f *Frames) error {
	if !s.Enabled() {
		return nil
	}
	got, err := hex.DecodeString(string(f.Signature))
	if err != nil {
		return &MessageError{Kind: AuthenticationFailed, Msg: "signature is not hex", Err: err}
	}
	want := s.mac(f.Header, f.Parent, f.Metadata, f.Content).Sum(nil)
	if !hmac.Equal(got, want) {
		return &MessageError{Kind: AuthenticationFailed, Msg: "signature mismatch"}
	}
	return nil
}

func (s *Signer) mac(parts ...[]byte) hash.Hash {
	m := hmac.New(sha256.New, s.key)
	for _, p := range parts {
		m.Write(p)
	}
	return m
}
