package wmcaflow

import (
	"errors"
	"testing"
)

func TestServiceExportsPropagateErrors(t *testing.T) {
	if _, err := TryNewService(nil, nil, ServiceDependencies{}); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}
}

func TestLayoutRegistryExports(t *testing.T) {
	RegisterLayout(Layout{
		Name:   "facadeOutBlock",
		Fields: []FieldSpec{{Name: "value", Width: 4}},
	})
	layout, ok := LookupLayout("facadeOutBlock")
	if !ok {
		t.Fatal("registered layout not found")
	}
	if layout.RecordSize() != 4 {
		t.Fatalf("record size = %d", layout.RecordSize())
	}
}

func TestRequestEncodingExports(t *testing.T) {
	record, err := EncodeRecord([]RequestField{
		{Value: "hello", Width: 8},
		{Value: "1", Width: 1},
	})
	if err != nil {
		t.Fatalf("encode record failed: %v", err)
	}
	if len(record) != 9 {
		t.Fatalf("record length = %d", len(record))
	}

	if _, err := EncodeC8201Input("too-short", "1"); !errors.Is(err, ErrHashFailure) {
		t.Fatalf("expected hash failure, got %v", err)
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if _, err := MarshalIndent(payload, "", "  "); err != nil {
		t.Fatalf("marshal indent alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata("key", "value")
	if md["key"] != "value" {
		t.Fatalf("expected metadata to contain key, got %#v", md)
	}
}

func TestStatusErrorExport(t *testing.T) {
	var err error = &StatusError{Code: "00001", Text: "invalid password"}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatal("errors.As failed on StatusError")
	}
	if statusErr.Code != "00001" {
		t.Fatalf("code = %q", statusErr.Code)
	}
}
