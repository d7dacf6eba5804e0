// Package contentcoding implements the Content-Encoding transforms needed
// by extensions that must inspect or rewrite a body (pkg/extensions/rewrite):
// decode on the way in, re-encode on the way out.
package contentcoding

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/proxycore/httprelay/pkg/perror"
)

// Decode returns data decompressed according to encoding ("gzip", "deflate",
// or "identity"/""). An unrecognized encoding is a RUNTIME_ERROR: the proxy
// has no way to safely transform a body it cannot decode.
func Decode(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "", "identity":
		return data, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, perror.NewRuntimeError("decode_content", "invalid gzip stream: "+err.Error())
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, perror.NewRuntimeError("decode_content", "gzip decompression failed: "+err.Error())
		}
		return out, nil
	case "deflate":
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, perror.NewRuntimeError("decode_content", "deflate decompression failed: "+err.Error())
		}
		return out, nil
	default:
		return nil, perror.NewRuntimeError("decode_content", "unsupported content-encoding: "+encoding)
	}
}

// Encode compresses data according to encoding, the inverse of Decode.
func Encode(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "", "identity":
		return data, nil
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, perror.NewRuntimeError("encode_content", "gzip compression failed: "+err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, perror.NewRuntimeError("encode_content", "gzip compression failed: "+err.Error())
		}
		return buf.Bytes(), nil
	case "deflate":
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, perror.NewRuntimeError("encode_content", "deflate compression failed: "+err.Error())
		}
		if _, err := w.Write(data); err != nil {
			return nil, perror.NewRuntimeError("encode_content", "deflate compression failed: "+err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, perror.NewRuntimeError("encode_content", "deflate compression failed: "+err.Error())
		}
		return buf.Bytes(), nil
	default:
		return nil, perror.NewRuntimeError("encode_content", "unsupported content-encoding: "+encoding)
	}
}
