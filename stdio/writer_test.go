package stdio

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
)

func TestWriterUsesByteLength(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	body := `{"jsonrpc":"2.0","id":1,"result":"ü✓"}`
	if err := w.WriteMessage(context.Background(), []byte(body)); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	want := "Content-Length: 41\r\n\r\n" + body
	if len(body) != 41 {
		t.Fatalf("test body is %d bytes", len(body))
	}
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriterFramerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	bodies := []string{
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
		`{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"method not found: ☃","data":null}}`,
	}
	for _, b := range bodies {
		if err := w.WriteMessage(context.Background(), []byte(b)); err != nil {
			t.Fatal(err)
		}
	}

	f := NewFramer(&buf)
	for _, want := range bodies {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() failed: %v", err)
		}
		if len(got) != len(want) || string(got) != want {
			t.Fatalf("ReadFrame() = %q, want %q", got, want)
		}
	}
}

func TestWriterConcurrentFramesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	body := `{"jsonrpc":"2.0","id":1,"result":"` + strings.Repeat("z", 5000) + `"}`
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteMessage(context.Background(), []byte(body))
		}()
	}
	wg.Wait()

	f := NewFramer(&buf)
	for i := 0; i < 20; i++ {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if string(got) != body {
			t.Fatalf("frame %d corrupted", i)
		}
	}
}
