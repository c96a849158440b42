package stdio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/zoof-lsp/internal/jsonrpc"
	"github.com/ggoodman/zoof-lsp/internal/metrics"
	"github.com/ggoodman/zoof-lsp/lsp"
)

// DefaultMaxContentLength bounds the body size accepted from the peer.
const DefaultMaxContentLength = 64 << 20

// MaxHeaderLineLength bounds a single header line, terminator included.
const MaxHeaderLineLength = 8 << 10

var (
	// ErrMissingContentLength reports a header block without a usable
	// Content-Length. The block has been consumed; reading can continue.
	ErrMissingContentLength = errors.New("stdio: missing Content-Length header")
	// ErrContentTooLarge reports a Content-Length above the configured limit.
	// The body is skipped.
	ErrContentTooLarge = errors.New("stdio: Content-Length exceeds limit")
	// ErrHeaderTooLong reports a header line longer than MaxHeaderLineLength.
	// The rest of the frame is skipped.
	ErrHeaderTooLong = errors.New("stdio: header line too long")
)

var expectedMediaType = contenttype.NewMediaType(lsp.ContentType)

// Framer splits a byte stream into message bodies. Each frame is a block of
// "Name: value\r\n" header lines, a blank line, then exactly Content-Length
// bytes of JSON.
//
// A Framer is not safe for concurrent use. It is meant to be driven by a
// single reader goroutine.
type Framer struct {
	r       *bufio.Reader
	log     *slog.Logger
	metrics *metrics.Metrics
	maxLen  int
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithFramerLogger sets the logger used for dropped frames and header
// warnings.
func WithFramerLogger(l *slog.Logger) FramerOption {
	return func(f *Framer) {
		if l != nil {
			f.log = l
		}
	}
}

// WithFramerMetrics counts read and dropped frames on m.
func WithFramerMetrics(m *metrics.Metrics) FramerOption {
	return func(f *Framer) { f.metrics = m }
}

// WithMaxContentLength overrides DefaultMaxContentLength.
func WithMaxContentLength(n int) FramerOption {
	return func(f *Framer) {
		if n > 0 {
			f.maxLen = n
		}
	}
}

// NewFramer reads frames from r.
func NewFramer(r io.Reader, opts ...FramerOption) *Framer {
	f := &Framer{
		r:      bufio.NewReader(r),
		log:    slog.Default(),
		maxLen: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// ReadFrame reads one header block and its body. It returns
// ErrMissingContentLength, ErrContentTooLarge or ErrHeaderTooLong for a frame
// that must be skipped, and io.EOF once the stream ends. A stream that ends
// inside a frame returns io.ErrUnexpectedEOF.
func (f *Framer) ReadFrame() ([]byte, error) {
	length := 0
	sawHeader := false
	tooLong := false

	for {
		line, err := f.readLine()
		if errors.Is(err, ErrHeaderTooLong) {
			sawHeader = true
			tooLong = true
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line == "" && !sawHeader {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		sawHeader = true
		f.header(line, &length)
	}

	if tooLong {
		if length > 0 {
			if _, err := io.CopyN(io.Discard, f.r, int64(length)); err != nil {
				return nil, io.ErrUnexpectedEOF
			}
		}
		return nil, ErrHeaderTooLong
	}
	if length <= 0 {
		return nil, ErrMissingContentLength
	}
	if length > f.maxLen {
		if _, err := io.CopyN(io.Discard, f.r, int64(length)); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %d > %d", ErrContentTooLarge, length, f.maxLen)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(f.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}

// readLine returns the next line including its terminator. A line longer
// than MaxHeaderLineLength is consumed without being buffered and reported as
// ErrHeaderTooLong.
func (f *Framer) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := f.r.ReadSlice('\n')
		if len(line)+len(chunk) > MaxHeaderLineLength {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = f.r.ReadSlice('\n')
			}
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			if err != nil {
				return "", err
			}
			return "", ErrHeaderTooLong
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(line), err
	}
}

func (f *Framer) header(line string, length *int) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		f.log.Warn("stdio.framer.header.malformed", slog.String("line", line))
		return
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	switch {
	case strings.EqualFold(name, "Content-Length"):
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			f.log.Warn("stdio.framer.header.bad_length", slog.String("value", value))
			return
		}
		// A repeated header overrides the earlier one.
		*length = n
	case strings.EqualFold(name, "Content-Type"):
		if !acceptableContentType(value) {
			f.log.Warn("stdio.framer.header.content_type",
				slog.String("got", value),
				slog.String("want", lsp.ContentType),
			)
		}
	default:
		f.log.Info("stdio.framer.header.unknown", slog.String("line", line))
	}
}

func acceptableContentType(value string) bool {
	mt, err := contenttype.ParseMediaType(value)
	if err != nil || !mt.Matches(expectedMediaType) {
		return false
	}
	charset, ok := mt.Parameters["charset"]
	if !ok {
		return true
	}
	// "utf8" is accepted for compatibility with older clients.
	return strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8")
}

// Next returns the next decodable message. Frames that cannot be read or
// decoded are logged and skipped. Next returns io.EOF when the stream ends,
// and any other error only when the underlying reader fails.
func (f *Framer) Next() (*jsonrpc.AnyMessage, error) {
	for {
		body, err := f.ReadFrame()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			f.log.Warn("stdio.framer.truncated")
			f.metrics.FrameDropped("truncated")
			return nil, io.EOF
		case errors.Is(err, ErrMissingContentLength):
			f.log.Error("stdio.framer.drop", slog.String("err", err.Error()))
			f.metrics.FrameDropped("missing_content_length")
			continue
		case errors.Is(err, ErrContentTooLarge):
			f.log.Error("stdio.framer.drop", slog.String("err", err.Error()))
			f.metrics.FrameDropped("too_large")
			continue
		case errors.Is(err, ErrHeaderTooLong):
			f.log.Error("stdio.framer.drop", slog.String("err", err.Error()))
			f.metrics.FrameDropped("header_too_long")
			continue
		default:
			return nil, err
		}

		var msg jsonrpc.AnyMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			f.log.Error("stdio.framer.decode.fail",
				slog.String("err", err.Error()),
				slog.Int("bytes", len(body)),
			)
			f.metrics.FrameDropped("decode")
			continue
		}
		f.metrics.FrameRead()
		return &msg, nil
	}
}
