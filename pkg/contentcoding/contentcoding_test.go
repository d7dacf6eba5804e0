package contentcoding

import "testing"

func TestGzipRoundTrip(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog")
	encoded, err := Encode("gzip", original)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, err := Decode("gzip", encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if string(decoded) != string(original) {
		t.Fatalf("round trip mismatch: got %q", decoded)
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog")
	encoded, err := Encode("deflate", original)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, err := Decode("deflate", encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if string(decoded) != string(original) {
		t.Fatalf("round trip mismatch: got %q", decoded)
	}
}

func TestIdentityPassesThrough(t *testing.T) {
	original := []byte("raw bytes")
	out, err := Decode("identity", original)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if string(out) != string(original) {
		t.Fatalf("got %q", out)
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	if _, err := Decode("br", []byte("data")); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
	if _, err := Encode("br", []byte("data")); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}
