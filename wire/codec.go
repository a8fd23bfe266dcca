package wire

import (
	"bytes"
	"encoding/json"

	"github.com/pithecene-io/ikernel/types"
)

var emptyObject = []byte("{}")

// isEmptyObject reports whether a part is absent or the empty JSON object.
func isEmptyObject(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, emptyObject)
}

// Decode parses, authenticates and decodes a message.
func Decode[T any](frames [][]byte, signer *Signer) (*types.Message[T], error) {
	f, err := Parse(frames)
	if err != nil {
		return nil, err
	}
	if err := signer.Verify(f); err != nil {
		return nil, err
	}
	return DecodeFrames[T](f)
}

// DecodeFrames decodes already parsed frames without checking the
// signature.
func DecodeFrames[T any](f *Frames) (*types.Message[T], error) {
	msg := &types.Message[T]{Metadata: map[string]any{}}

	if err := json.Unmarshal(f.Header, &msg.Header); err != nil {
		return nil, &MessageError{Kind: DecodeFailed, Msg: "header", Err: err}
	}

	if !isEmptyObject(f.Parent) {
		var parent types.Header
		if err := json.Unmarshal(f.Parent, &parent); err != nil {
			return nil, &MessageError{Kind: DecodeFailed, Msg: "parent_header", Err: err}
		}
		msg.ParentHeader = &parent
	}

	if !isEmptyObject(f.Metadata) {
		if err := json.Unmarshal(f.Metadata, &msg.Metadata); err != nil {
			return nil, &MessageError{Kind: DecodeFailed, Msg: "metadata", Err: err}
		}
	}

	if !isEmptyObject(f.Content) {
		if err := json.Unmarshal(f.Content, &msg.Content); err != nil {
			return nil, &MessageError{Kind: DecodeFailed, Msg: "content", Err: err}
		}
	}

	return msg, nil
}

// PeekHeader decodes only the header part, for dispatch on msg_type
// before the content type is known.
func PeekHeader(f *Frames) (types.Header, error) {
	var h types.Header
	if err := json.Unmarshal(f.Header, &h); err != nil {
		return h, &MessageError{Kind: DecodeFailed, Msg: "header", Err: err}
	}
	return h, nil
}

// Encode serializes msg into frames: prefix, signature, header,
// parent_header, metadata, content. The prefix is copied as given.
func Encode[T any](msg *types.Message[T], prefix [][]byte, signer *Signer) ([][]byte, error) {
	header, err := json.Marshal(msg.Header)
	if err != nil {
		return nil, &MessageError{Kind: EncodeFailed, Msg: "encode header", Err: err}
	}

	parent := emptyObject
	if msg.ParentHeader != nil {
		if parent, err = json.Marshal(msg.ParentHeader); err != nil {
			return nil, &MessageError{Kind: EncodeFailed, Msg: "encode parent_header", Err: err}
		}
	}

	metadata := emptyObject
	if len(msg.Metadata) > 0 {
		if metadata, err = json.Marshal(msg.Metadata); err != nil {
			return nil, &MessageError{Kind: EncodeFailed, Msg: "encode metadata", Err: err}
		}
	}

	content, err := json.Marshal(msg.Content)
	if err != nil {
		return nil, &MessageError{Kind: EncodeFailed, Msg: "encode content", Err: err}
	}

	out := make([][]byte, 0, len(prefix)+envelopeParts)
	out = append(out, prefix...)
	out = append(out,
		[]byte(signer.Sign(header, parent, metadata, content)),
		header,
		parent,
		metadata,
		content,
	)
	return out, nil
}
