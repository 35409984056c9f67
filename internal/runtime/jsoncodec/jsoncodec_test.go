package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

type envelope struct {
	Kind    string `json:"kind"`
	TrIndex int    `json:"tr_index"`
}

func TestRoundTrip(t *testing.T) {
	in := envelope{Kind: "data_received", TrIndex: 7}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// ConfigStd keeps encoding/json field order.
	if got := string(data); got != `{"kind":"data_received","tr_index":7}` {
		t.Fatalf("encoded = %s", got)
	}

	var out envelope
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %#v, want %#v", out, in)
	}
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(envelope{Kind: "complete"}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"kind\"") {
		t.Fatalf("output not indented: %s", data)
	}
}

func TestEncodeAndDecode(t *testing.T) {
	var buf bytes.Buffer
	in := envelope{Kind: "realtime", TrIndex: 0}

	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var out envelope
	if err := Decode(&buf, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %#v, want %#v", out, in)
	}
}
