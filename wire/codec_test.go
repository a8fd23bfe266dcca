package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/ikernel/types"
)

func mustSigner(t *testing.T, key string) *Signer {
	t.Helper()
	s, err := NewSigner(key, SchemeHMACSHA256)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return s
}

func sampleRequest() *types.Message[types.ExecuteRequest] {
	return &types.Message[types.ExecuteRequest]{
		Header: types.Header{
			MsgID:    "abc",
			Session:  "client-session",
			Username: "user",
			Date:     "2024-01-15T10:00:00Z",
			MsgType:  types.MsgExecuteRequest,
			Version:  types.ProtocolVersion,
		},
		Metadata: map[string]any{},
		Content: types.ExecuteRequest{
			Code:            "1 + 1",
			StoreHistory:    true,
			UserExpressions: map[string]string{"x": "x"},
		},
	}
}

func TestDelimIndex(t *testing.T) {
	for n := 0; n < 4; n++ {
		frames := make([][]byte, 0, n+6)
		for i := 0; i < n; i++ {
			frames = append(frames, []byte{byte('a' + i)})
		}
		frames = append(frames, []byte(Delimiter), []byte("sig"), []byte("{}"), []byte("{}"), []byte("{}"), []byte("{}"))

		got, err := DelimIndex(frames)
		if err != nil {
			t.Fatalf("n=%d: DelimIndex failed: %v", n, err)
		}
		if got != n {
			t.Errorf("n=%d: DelimIndex = %d, want %d", n, got, n)
		}
	}
}

func TestDelimIndex_Missing(t *testing.T) {
	_, err := DelimIndex([][]byte{[]byte("a"), []byte("b")})
	if !IsMalformed(err) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	kind, ok := KindOf(err)
	if !ok || kind != Malformed {
		t.Errorf("KindOf = %v, %v; want Malformed", kind, ok)
	}
}

func TestParse_Truncated(t *testing.T) {
	frames := [][]byte{[]byte("id"), []byte(Delimiter), []byte("sig"), []byte("{}")}
	_, err := Parse(frames)
	kind, ok := KindOf(err)
	if !ok || kind != Truncated {
		t.Fatalf("expected Truncated, got %v", err)
	}
	if !IsMalformed(err) {
		t.Error("Truncated should satisfy IsMalformed")
	}
}

func TestRoundTrip(t *testing.T) {
	signer := mustSigner(t, "secret")
	msg := sampleRequest()
	prefix := [][]byte{[]byte("client-1"), []byte(Delimiter)}

	frames, err := Encode(msg, prefix, signer)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode[types.ExecuteRequest](frames, signer)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_PrefixReused(t *testing.T) {
	signer := mustSigner(t, "k")
	frames, err := Encode(sampleRequest(), [][]byte{[]byte("a"), []byte("b"), []byte(Delimiter)}, signer)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	f, err := Parse(frames)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := [][]byte{[]byte("a"), []byte("b"), []byte(Delimiter)}
	if diff := cmp.Diff(want, f.Prefix()); diff != "" {
		t.Errorf("prefix mismatch (-want +got):\n%s", diff)
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := mustSigner(t, "key")
	a := s.Sign([]byte("h"), []byte("p"), []byte("m"), []byte("c"))
	b := s.Sign([]byte("h"), []byte("p"), []byte("m"), []byte("c"))
	if a != b {
		t.Errorf("signatures differ: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64", len(a))
	}
	if a != string(bytes.ToLower([]byte(a))) {
		t.Errorf("signature %q is not lowercase", a)
	}
}

func TestSign_SensitiveToEveryPart(t *testing.T) {
	s := mustSigner(t, "key")
	base := s.Sign([]byte("h"), []byte("p"), []byte("m"), []byte("c"))
	variants := []string{
		s.Sign([]byte("H"), []byte("p"), []byte("m"), []byte("c")),
		s.Sign([]byte("h"), []byte("P"), []byte("m"), []byte("c")),
		s.Sign([]byte("h"), []byte("p"), []byte("M"), []byte("c")),
		s.Sign([]byte("h"), []byte("p"), []byte("m"), []byte("C")),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d produced the same signature", i)
		}
	}

	other := mustSigner(t, "other")
	if other.Sign([]byte("h"), []byte("p"), []byte("m"), []byte("c")) == base {
		t.Error("different key produced the same signature")
	}
}

func TestDecode_TamperedContent(t *testing.T) {
	signer := mustSigner(t, "secret")
	frames, err := Encode(sampleRequest(), PubPrefix(), signer)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	frames[len(frames)-1] = []byte(`{"code":"2 + 2"}`)

	_, err = Decode[types.ExecuteRequest](frames, signer)
	if !IsAuthError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestDecode_EmptyKeyAcceptsAnySignature(t *testing.T) {
	signer := mustSigner(t, "")
	frames, err := Encode(sampleRequest(), PubPrefix(), signer)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(frames[1]) != 0 {
		t.Errorf("empty key signature = %q, want empty", frames[1])
	}
	frames[1] = []byte("not-a-signature")

	if _, err := Decode[types.ExecuteRequest](frames, signer); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
}

func TestDecodeFrames_EmptyParts(t *testing.T) {
	tests := []struct {
		name    string
		parent  string
		meta    string
		content string
	}{
		{name: "empty objects", parent: "{}", meta: "{}", content: "{}"},
		{name: "zero length", parent: "", meta: "", content: ""},
		{name: "spaced", parent: " {} ", meta: "{}\n", content: "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frames{
				Header:   []byte(`{"msg_id":"1","msg_type":"shutdown_request"}`),
				Parent:   []byte(tt.parent),
				Metadata: []byte(tt.meta),
				Content:  []byte(tt.content),
			}
			msg, err := DecodeFrames[types.ShutdownRequest](f)
			if err != nil {
				t.Fatalf("DecodeFrames failed: %v", err)
			}
			if msg.ParentHeader != nil {
				t.Errorf("ParentHeader = %+v, want nil", msg.ParentHeader)
			}
			if msg.Metadata == nil || len(msg.Metadata) != 0 {
				t.Errorf("Metadata = %v, want empty map", msg.Metadata)
			}
			if msg.Content.Restart {
				t.Error("Content should be zero value")
			}
		})
	}
}

func TestDecodeFrames_BadJSON(t *testing.T) {
	f := &Frames{
		Header:  []byte(`{"msg_id":"1"}`),
		Content: []byte(`{"restart":"yes"}`),
	}
	_, err := DecodeFrames[types.ShutdownRequest](f)
	kind, ok := KindOf(err)
	if !ok || kind != DecodeFailed {
		t.Fatalf("expected DecodeFailed, got %v", err)
	}
	var me *MessageError
	if !errors.As(err, &me) || me.Unwrap() == nil {
		t.Error("expected wrapped json error")
	}
}

func TestEncode_NilParentAndMetadata(t *testing.T) {
	msg := &types.Message[types.StatusContent]{
		Header:  types.NewHeader("kernel-session", types.MsgStatus),
		Content: types.StatusContent{ExecutionState: types.StateIdle},
	}
	frames, err := Encode(msg, PubPrefix(), mustSigner(t, ""))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(frames) != 6 {
		t.Fatalf("frame count = %d, want 6", len(frames))
	}
	if string(frames[0]) != Delimiter {
		t.Errorf("first frame = %q, want delimiter", frames[0])
	}
	if string(frames[3]) != "{}" || string(frames[4]) != "{}" {
		t.Errorf("parent/metadata = %q/%q, want {}/{}", frames[3], frames[4])
	}
	if string(frames[5]) != `{"execution_state":"idle"}` {
		t.Errorf("content = %s", frames[5])
	}
}

func TestNewSigner_UnsupportedScheme(t *testing.T) {
	if _, err := NewSigner("k", "hmac-md5"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
