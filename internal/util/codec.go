package util

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// GzipEncode compresses paste text for the Redis and Mongo stores.
func GzipEncode(s string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(zw, s); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// GzipDecode reverses GzipEncode. An empty input decodes to "" so records
// written without text stay readable.
func GzipDecode(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()
	var out strings.Builder
	if _, err := io.Copy(&out, zr); err != nil {
		return "", fmt.Errorf("gzip read: %w", err)
	}
	return out.String(), nil
}
