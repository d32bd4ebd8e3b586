package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// ErrBodyTooLarge is returned when a raw or decoded body exceeds the size limit.
// A truncated page is never handed to the parsers.
var ErrBodyTooLarge = errors.New("response body too large")

// UnsupportedEncodingError is returned for a Content-Encoding this package cannot decode.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported content encoding %q", e.Encoding)
}

// Decode reverses the Content-Encoding chain of a body.
// Encodings are undone last-applied first.
func Decode(contentEncoding string, body []byte) ([]byte, error) {
	if strings.TrimSpace(contentEncoding) == "" {
		return body, nil
	}

	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		var err error
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			body, err = decodeGzip(body)
		case "deflate":
			body, err = decodeDeflate(body)
		case "br":
			body, err = readLimited(brotli.NewReader(bytes.NewReader(body)))
		default:
			return nil, &UnsupportedEncodingError{Encoding: coding}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s body: %w", coding, err)
		}
	}
	return body, nil
}

func decodeGzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr)
}

// decodeDeflate accepts both zlib-wrapped and raw deflate streams; servers send either.
func decodeDeflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		out, err := readLimited(zr)
		if err == nil || errors.Is(err, ErrBodyTooLarge) {
			return out, err
		}
	}
	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return readLimited(fr)
}

// readLimited reads r fully, failing once more than maxBodyBytes are seen.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	return data, nil
}
