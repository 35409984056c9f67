// Package blocks turns the raw fixed-width records the native transport
// delivers into structured payloads. A block name selects a Layout from the
// registry; unknown names pass through as raw bytes so callers can still see
// data for blocks nobody has described yet.
package blocks

import (
	"fmt"

	"github.com/quantbay/wmcaflow/internal/runtime/codec"
	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
)

// FieldSpec describes one field inside a record: its name, the bytes it
// occupies, and how many trailing bytes to skip afterwards (the protocol
// interleaves one attribute byte after most fields, and login account records
// end in a large filler).
type FieldSpec struct {
	Name  string
	Width int
	Skip  int
}

// Layout describes a named record. Array layouts repeat the record back to
// back for as many full copies as the payload length allows.
type Layout struct {
	Name   string
	Fields []FieldSpec
	Array  bool
}

// RecordSize returns the byte size of one record, attribute and filler bytes
// included.
func (l Layout) RecordSize() int {
	size := 0
	for _, f := range l.Fields {
		size += f.Width + f.Skip
	}
	return size
}

// FieldValue is one decoded field. Records keep fields as an ordered slice,
// not a map, so wire order survives serialization.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is a decoded record in wire field order.
type Record []FieldValue

// Get returns the value of the named field, or "" if the record has no such
// field.
func (r Record) Get(name string) string {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// StatusOK is the server code that means "no error".
const StatusOK = "00000"

// Status is a decoded server status message.
type Status struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// OK reports whether the status denotes success.
func (s Status) OK() bool { return s.Code == StatusOK }

// Kind discriminates the Payload union.
type Kind string

const (
	KindRaw     Kind = "raw"
	KindRecord  Kind = "record"
	KindRecords Kind = "records"
	KindStatus  Kind = "status"
	KindLogin   Kind = "login"
)

// Payload is the decoded form of one event. Exactly one of the value fields
// is set, selected by Kind.
type Payload struct {
	Kind    Kind          `json:"kind"`
	Raw     []byte        `json:"raw,omitempty"`
	Record  Record        `json:"record,omitempty"`
	Records []Record      `json:"records,omitempty"`
	Status  *Status       `json:"status,omitempty"`
	Login   *LoginSession `json:"login,omitempty"`
}

// RawPayload wraps a copy of data in a raw Payload. The copy matters: the
// transport owns the buffer only until the callback returns.
func RawPayload(data []byte) Payload {
	cloned := make([]byte, len(data))
	copy(cloned, data)
	return Payload{Kind: KindRaw, Raw: cloned}
}

// BlockName extracts the block name from the transport's name buffer.
// Realtime events carry exactly two name bytes with no terminator; everything
// else is NUL-terminated.
func BlockName(name []byte, realtime bool) string {
	if len(name) == 0 {
		return ""
	}
	if realtime {
		if len(name) < 2 {
			return codec.DecodeField(name)
		}
		return codec.DecodeField(name[:2])
	}
	for i, b := range name {
		if b == 0 {
			return codec.DecodeField(name[:i])
		}
	}
	return codec.DecodeField(name)
}

// Decode parses data according to the layout registered for blockName.
// length is the transport's declared payload length; it is never trusted past
// the end of the buffer. Unknown block names decode to a raw payload. Array
// layouts yield length/recordSize full records (possibly zero); single-record
// layouts require at least one full record.
func Decode(blockName string, data []byte, length int) (Payload, error) {
	if length > len(data) {
		length = len(data)
	}
	data = data[:length]

	layout, ok := Lookup(blockName)
	if !ok {
		return RawPayload(data), nil
	}
	size := layout.RecordSize()

	if layout.Array {
		count := length / size
		records := make([]Record, 0, count)
		for i := 0; i < count; i++ {
			records = append(records, decodeRecord(layout, data[i*size:(i+1)*size]))
		}
		return Payload{Kind: KindRecords, Records: records}, nil
	}

	if length < size {
		return Payload{}, fmt.Errorf("%w: block %q has %d bytes, layout %q needs %d",
			errs.ErrSizeMismatch, blockName, length, layout.Name, size)
	}
	return Payload{Kind: KindRecord, Record: decodeRecord(layout, data[:size])}, nil
}

// DecodeStatus parses a server status message. Status events always use the
// message header layout regardless of the block name they carry.
func DecodeStatus(data []byte, length int) (Payload, error) {
	if length > len(data) {
		length = len(data)
	}
	if length < statusSize {
		return Payload{}, fmt.Errorf("%w: status message has %d bytes, needs %d",
			errs.ErrSizeMismatch, length, statusSize)
	}
	rec := decodeRecord(statusLayout, data[:statusSize])
	return Payload{
		Kind:   KindStatus,
		Status: &Status{Code: rec.Get("msg_cd"), Text: rec.Get("user_msg")},
	}, nil
}

func decodeRecord(layout Layout, chunk []byte) Record {
	rec := make(Record, 0, len(layout.Fields))
	off := 0
	for _, f := range layout.Fields {
		rec = append(rec, FieldValue{
			Name:  f.Name,
			Value: codec.DecodeField(chunk[off : off+f.Width]),
		})
		off += f.Width + f.Skip
	}
	return rec
}
