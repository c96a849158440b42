package stdio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// countingHandler counts records per level.
type countingHandler struct {
	mu     sync.Mutex
	counts map[slog.Level]int
	msgs   []string
}

func newCountingHandler() *countingHandler {
	return &countingHandler{counts: make(map[slog.Level]int)}
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[level]
}

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestFramerYieldsBody(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"capabilities":{}}}`
	f := NewFramer(strings.NewReader(frame(body)))

	got, err := f.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if string(got) != body {
		t.Fatalf("ReadFrame() = %q, want %q", got, body)
	}
	if _, err := f.ReadFrame(); err != io.EOF {
		t.Fatalf("ReadFrame() at end = %v, want io.EOF", err)
	}
}

func TestFramerMultiByteBody(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"x","params":{"text":"héllo wörld ✓"}}`
	f := NewFramer(strings.NewReader(frame(body) + frame(body)))
	for i := 0; i < 2; i++ {
		msg, err := f.Next()
		if err != nil {
			t.Fatalf("Next() #%d failed: %v", i, err)
		}
		if msg.Method != "x" {
			t.Fatalf("method = %q", msg.Method)
		}
	}
}

func TestFramerHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"a"}`
	input := "Content-Length: 3\r\n" +
		"Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
		"X-Whatever: yes\r\n" +
		fmt.Sprintf("content-length: %d\r\n", len(body)) +
		"\r\n" + body

	h := newCountingHandler()
	f := NewFramer(strings.NewReader(input), WithFramerLogger(slog.New(h)))
	msg, err := f.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if msg.Method != "a" {
		t.Fatalf("method = %q", msg.Method)
	}
	if n := h.count(slog.LevelWarn); n != 0 {
		t.Fatalf("got %d warnings for an expected content type", n)
	}
	if n := h.count(slog.LevelError); n != 0 {
		t.Fatalf("got %d errors", n)
	}
}

func TestFramerWarnsOnUnexpectedContentType(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"a"}`
	input := "Content-Type: text/plain\r\n" + frame(body)
	h := newCountingHandler()
	f := NewFramer(strings.NewReader(input), WithFramerLogger(slog.New(h)))

	msg, err := f.Next()
	if err != nil || msg.Method != "a" {
		t.Fatalf("Next() = %+v, %v", msg, err)
	}
	if n := h.count(slog.LevelWarn); n != 1 {
		t.Fatalf("got %d warnings, want 1", n)
	}
}

func TestFramerMissingContentLength(t *testing.T) {
	good := `{"jsonrpc":"2.0","method":"after"}`
	for name, input := range map[string]string{
		"omitted": "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n" + frame(good),
		"zero":    "Content-Length: 0\r\n\r\n" + frame(good),
	} {
		t.Run(name, func(t *testing.T) {
			h := newCountingHandler()
			f := NewFramer(strings.NewReader(input), WithFramerLogger(slog.New(h)))

			msg, err := f.Next()
			if err != nil {
				t.Fatalf("Next() failed: %v", err)
			}
			if msg.Method != "after" {
				t.Fatalf("method = %q, want the frame after the dropped one", msg.Method)
			}
			if n := h.count(slog.LevelError); n != 1 {
				t.Fatalf("got %d logged errors, want 1", n)
			}
		})
	}
}

func TestFramerReadFrameMissingLength(t *testing.T) {
	f := NewFramer(strings.NewReader("X-Foo: bar\r\n\r\n"))
	if _, err := f.ReadFrame(); !errors.Is(err, ErrMissingContentLength) {
		t.Fatalf("ReadFrame() = %v, want %v", err, ErrMissingContentLength)
	}
}

func TestFramerSkipsUndecodableBodies(t *testing.T) {
	input := frame(`{not json`) + frame(`[1,2,3]`) + frame(`{"jsonrpc":"2.0","method":"ok"}`)
	h := newCountingHandler()
	f := NewFramer(strings.NewReader(input), WithFramerLogger(slog.New(h)))

	msg, err := f.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if msg.Method != "ok" {
		t.Fatalf("method = %q", msg.Method)
	}
	if n := h.count(slog.LevelError); n != 2 {
		t.Fatalf("got %d logged errors, want 2", n)
	}
	if _, err := f.Next(); err != io.EOF {
		t.Fatalf("Next() at end = %v, want io.EOF", err)
	}
}

func TestFramerTruncatedStreamEndsCleanly(t *testing.T) {
	f := NewFramer(strings.NewReader("Content-Length: 100\r\n\r\n{\"jsonrpc\""))
	if _, err := f.Next(); err != io.EOF {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
}

func TestFramerContentLimit(t *testing.T) {
	big := `{"jsonrpc":"2.0","method":"big","params":"` + strings.Repeat("x", 100) + `"}`
	small := `{"jsonrpc":"2.0","method":"small"}`
	f := NewFramer(strings.NewReader(frame(big)+frame(small)), WithMaxContentLength(64))

	msg, err := f.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if msg.Method != "small" {
		t.Fatalf("method = %q, want small", msg.Method)
	}
}

func TestFramerDropsOverlongHeaderLine(t *testing.T) {
	skipped := `{"jsonrpc":"2.0","method":"skipped"}`
	next := `{"jsonrpc":"2.0","method":"next"}`
	input := "X-Junk: " + strings.Repeat("a", 3*MaxHeaderLineLength) + "\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(skipped), skipped) +
		frame(next)

	h := newCountingHandler()
	f := NewFramer(strings.NewReader(input), WithFramerLogger(slog.New(h)))

	msg, err := f.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if msg.Method != "next" {
		t.Fatalf("method = %q, want the frame after the dropped one", msg.Method)
	}
	if n := h.count(slog.LevelError); n != 1 {
		t.Fatalf("got %d logged errors, want 1", n)
	}
}

func TestFramerReadFrameHeaderTooLong(t *testing.T) {
	input := strings.Repeat("b", MaxHeaderLineLength+1) + "\r\n\r\n"
	f := NewFramer(strings.NewReader(input))
	if _, err := f.ReadFrame(); !errors.Is(err, ErrHeaderTooLong) {
		t.Fatalf("ReadFrame() = %v, want %v", err, ErrHeaderTooLong)
	}
	if _, err := f.ReadFrame(); err != io.EOF {
		t.Fatalf("ReadFrame() after drop = %v, want io.EOF", err)
	}
}

func TestFramerUnterminatedHeaderEndsCleanly(t *testing.T) {
	// No newline ever arrives; the framer must not buffer it all.
	f := NewFramer(io.LimitReader(repeatReader('c'), 1<<20))
	if _, err := f.Next(); err != io.EOF {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
}

type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestAcceptableContentType(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"application/vscode-jsonrpc; charset=utf-8", true},
		{"application/vscode-jsonrpc; charset=utf8", true},
		{"application/vscode-jsonrpc", true},
		{"application/vscode-jsonrpc; charset=latin1", false},
		{"application/json", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := acceptableContentType(tt.in); got != tt.want {
			t.Errorf("acceptableContentType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
