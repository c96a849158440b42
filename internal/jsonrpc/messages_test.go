package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestRequestIDEchoesLiteral(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "small int", in: `1`, want: `1`},
		{name: "big int", in: `9007199254740993`, want: `9007199254740993`},
		{name: "string", in: `"abc-1"`, want: `"abc-1"`},
		{name: "float", in: `1.5`, want: `1.5`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id RequestID
			if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out, err := json.Marshal(&id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("got %s, want %s", out, tc.want)
			}
		})
	}
}

func TestRequestIDRejectsObjects(t *testing.T) {
	var id RequestID
	if err := json.Unmarshal([]byte(`{"a":1}`), &id); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestAnyMessageType(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{body: `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, want: "request"},
		{body: `{"jsonrpc":"2.0","method":"initialized"}`, want: "notification"},
		{body: `{"jsonrpc":"2.0","id":null,"method":"exit"}`, want: "notification"},
		{body: `{"jsonrpc":"2.0","id":3,"result":{}}`, want: "response"},
		{body: `{"id":4}`, want: "request"},
	}

	for _, tc := range cases {
		var msg AnyMessage
		if err := json.Unmarshal([]byte(tc.body), &msg); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.body, err)
		}
		if got := msg.Type(); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.body, got, tc.want)
		}
	}
}

func TestAnyMessageRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"str"`, `42`, `{"method":"x","result":1}`} {
		var msg AnyMessage
		if err := json.Unmarshal([]byte(body), &msg); err == nil {
			t.Errorf("%s: expected error", body)
		}
	}
}

func TestResponseNullID(t *testing.T) {
	b, err := json.Marshal(NewErrorResponse(nil, ErrorCodeInternalError, "boom", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"boom","data":null}}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestNewResultResponseMarshalFailure(t *testing.T) {
	if _, err := NewResultResponse(NewRequestID(1), map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected marshal failure")
	}
}
