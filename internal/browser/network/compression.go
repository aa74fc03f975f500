// internal/browser/network/compression.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised when the caller has not set its own.
const acceptEncoding = "br, gzip, deflate"

// Pools for decompression readers; Reset is always called before reuse.
var (
	gzipReaderPool = sync.Pool{
		New: func() interface{} { return new(gzip.Reader) },
	}
	brotliReaderPool = sync.Pool{
		New: func() interface{} { return brotli.NewReader(nil) },
	}
)

func getGzipReader(r io.Reader) (*gzip.Reader, error) {
	zr := gzipReaderPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipReaderPool.Put(zr)
		return nil, err
	}
	return zr, nil
}

func putGzipReader(zr *gzip.Reader) {
	// Reset against an empty gzip stream fails, which is fine: the reader
	// only needs to drop its reference to the response body.
	_ = zr.Reset(strings.NewReader(""))
	gzipReaderPool.Put(zr)
}

func getBrotliReader(r io.Reader) *brotli.Reader {
	br := brotliReaderPool.Get().(*brotli.Reader)
	_ = br.Reset(r)
	return br
}

func putBrotliReader(br *brotli.Reader) {
	_ = br.Reset(strings.NewReader(""))
	brotliReaderPool.Put(br)
}

// compressionTransport advertises compressed encodings and decodes responses,
// so page documents reach the HTML parser as plain text.
type compressionTransport struct {
	next http.RoundTripper
}

func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

// closeWrapper closes the decoder and the original body, then returns any
// pooled reader.
type closeWrapper struct {
	io.ReadCloser
	originalBody io.ReadCloser
	release      func()
}

func (w *closeWrapper) Close() error {
	err := errors.Join(w.ReadCloser.Close(), w.originalBody.Close())
	if w.release != nil {
		w.release()
		w.release = nil
	}
	return err
}

// DecompressResponse wraps resp.Body with decoders for every layer listed in
// Content-Encoding, last applied first. It understands gzip, br and deflate
// (zlib-wrapped or raw). On success the encoding and length headers are
// removed and resp.Uncompressed is set.
//
// On error the body may be partly consumed; the caller must discard the
// response.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil || resp.ContentLength == 0 {
		return nil
	}
	var encodings []string
	for _, v := range resp.Header.Values("Content-Encoding") {
		for _, e := range strings.Split(v, ",") {
			encodings = append(encodings, strings.ToLower(strings.TrimSpace(e)))
		}
	}
	if len(encodings) == 0 {
		return nil
	}

	for i := len(encodings) - 1; i >= 0; i-- {
		var (
			reader  io.ReadCloser
			release func()
		)
		switch encodings[i] {
		case "gzip", "x-gzip":
			zr, err := getGzipReader(resp.Body)
			if err != nil {
				return fmt.Errorf("gzip initialization error: %w", err)
			}
			reader, release = zr, func() { putGzipReader(zr) }
		case "deflate":
			reader = tryDeflate(resp.Body)
		case "br":
			br := getBrotliReader(resp.Body)
			reader, release = io.NopCloser(br), func() { putBrotliReader(br) }
		case "identity", "":
			continue
		default:
			return fmt.Errorf("unsupported Content-Encoding layer: %s", encodings[i])
		}
		resp.Body = &closeWrapper{ReadCloser: reader, originalBody: resp.Body, release: release}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// replayReader records what it reads so the stream can be read again from
// the start after a failed header probe.
type replayReader struct {
	r      io.Reader
	buf    *bytes.Buffer
	source io.Reader
}

func newReplayReader(r io.Reader) *replayReader {
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	return &replayReader{r: io.TeeReader(r, buf), buf: buf, source: r}
}

func (rr *replayReader) Read(p []byte) (int, error) { return rr.r.Read(p) }

func (rr *replayReader) rewind() {
	rr.r = io.MultiReader(bytes.NewReader(rr.buf.Bytes()), rr.source)
}

// tryDeflate decodes zlib (RFC 1950) and falls back to raw deflate (RFC 1951),
// which some servers send under the same name.
func tryDeflate(r io.Reader) io.ReadCloser {
	rr := newReplayReader(r)
	if zr, err := zlib.NewReader(rr); err == nil {
		return zr
	}
	rr.rewind()
	return flate.NewReader(rr)
}
