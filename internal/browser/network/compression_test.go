// internal/browser/network/compression_test.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "<html><body><button>在线咨询</button></body></html>"

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func brotlied(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := brotli.NewWriter(&b)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func zlibbed(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func rawDeflated(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w, err := flate.NewWriter(&b, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func response(body []byte, encodings ...string) *http.Response {
	h := http.Header{}
	for _, e := range encodings {
		h.Add("Content-Encoding", e)
	}
	h.Set("Content-Length", "123")
	return &http.Response{
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func TestDecompressResponse(t *testing.T) {
	plain := []byte(page)

	tests := []struct {
		name      string
		body      []byte
		encodings []string
	}{
		{"gzip", gzipped(t, plain), []string{"gzip"}},
		{"brotli", brotlied(t, plain), []string{"br"}},
		{"zlib deflate", zlibbed(t, plain), []string{"deflate"}},
		{"raw deflate", rawDeflated(t, plain), []string{"deflate"}},
		{"layered in one header", brotlied(t, gzipped(t, plain)), []string{"gzip, br"}},
		{"layered in two headers", gzipped(t, brotlied(t, plain)), []string{"br", "gzip"}},
		{"identity", plain, []string{"identity"}},
		{"upper case", gzipped(t, plain), []string{"GZIP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := response(tt.body, tt.encodings...)
			require.NoError(t, DecompressResponse(resp))

			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			assert.Equal(t, page, string(got))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
			assert.Empty(t, resp.Header.Get("Content-Length"))
			assert.True(t, resp.Uncompressed)
		})
	}
}

func TestDecompressResponse_Untouched(t *testing.T) {
	resp := response([]byte(page))
	require.NoError(t, DecompressResponse(resp))
	assert.False(t, resp.Uncompressed)

	empty := response(nil, "gzip")
	require.NoError(t, DecompressResponse(empty), "an empty body has nothing to decode")

	assert.NoError(t, DecompressResponse(nil))
}

func TestDecompressResponse_Errors(t *testing.T) {
	err := DecompressResponse(response([]byte(page), "compress"))
	assert.ErrorContains(t, err, "unsupported Content-Encoding layer: compress")

	err = DecompressResponse(response([]byte("not gzip at all"), "gzip"))
	assert.ErrorContains(t, err, "gzip initialization error")
}

func TestPooledReadersAreReusable(t *testing.T) {
	for i := 0; i < 3; i++ {
		for _, enc := range []string{"gzip", "br"} {
			body := gzipped(t, []byte(page))
			if enc == "br" {
				body = brotlied(t, []byte(page))
			}
			resp := response(body, enc)
			require.NoError(t, DecompressResponse(resp))
			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			assert.Equal(t, page, string(got), "%s round %d", enc, i)
		}
	}
}
