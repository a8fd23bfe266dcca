// Package wire implements the Jupyter multi-part message envelope:
// delimiter location, HMAC signing and JSON encoding of the four parts.
package wire

import (
	"bytes"
)

// Delimiter separates routing identities from the signed envelope.
const Delimiter = "<IDS|MSG>"

// envelopeParts is the number of frames following the delimiter:
// signature, header, parent_header, metadata, content.
const envelopeParts = 5

var delimiter = []byte(Delimiter)

// DelimIndex returns the index of the first delimiter frame.
// Identities may be of any count, including zero.
func DelimIndex(frames [][]byte) (int, error) {
	for i, f := range frames {
		if bytes.Equal(f, delimiter) {
			return i, nil
		}
	}
	return -1, &MessageError{Kind: Malformed, Msg: "delimiter frame not found"}
}

// Frames is a multi-part message split at the delimiter.
// The byte slices alias the input frames.
type Frames struct {
	Identities [][]byte
	Signature  []byte
	Header     []byte
	Parent     []byte
	Metadata   []byte
	Content    []byte
}

// Parse splits raw frames into identities and envelope parts.
// Frames beyond content (extra buffers) are ignored.
func Parse(frames [][]byte) (*Frames, error) {
	idx, err := DelimIndex(frames)
	if err != nil {
		return nil, err
	}
	rest := frames[idx+1:]
	if len(rest) < envelopeParts {
		return nil, &MessageError{
			Kind: Truncated,
			Msg:  "expected 5 frames after delimiter",
		}
	}
	return &Frames{
		Identities: frames[:idx],
		Signature:  rest[0],
		Header:     rest[1],
		Parent:     rest[2],
		Metadata:   rest[3],
		Content:    rest[4],
	}, nil
}

// Prefix returns the identities followed by the delimiter. Replies reuse
// it verbatim so ROUTER sockets steer them back to the requester.
func (f *Frames) Prefix() [][]byte {
	prefix := make([][]byte, 0, len(f.Identities)+1)
	prefix = append(prefix, f.Identities...)
	return append(prefix, delimiter)
}

// PubPrefix is the prefix of IOPub messages: no topic, just the delimiter.
func PubPrefix() [][]byte {
	return [][]byte{delimiter}
}
