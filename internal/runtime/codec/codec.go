// Package codec converts between Go strings and the fixed-width, blank-padded
// EUC-KR fields the wire protocol uses. Decoding is lossy on purpose: byte
// sequences that are not valid EUC-KR are dropped rather than failing the whole
// record. Encoding is strict and never writes NUL padding; the servers require
// 0x20-filled buffers.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
)

const pad = 0x20

// DecodeField converts a raw fixed-width field into a trimmed Go string.
// Undecodable bytes are discarded and padding (blanks and NULs) is stripped
// from both ends.
func DecodeField(raw []byte) string {
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		// The decoder only errs on destination issues; treat as empty.
		return ""
	}
	s := strings.Map(dropReplacement, string(decoded))
	return strings.Trim(s, " \x00")
}

func dropReplacement(r rune) rune {
	if r == utf8.RuneError {
		return -1
	}
	return r
}

// EncodeField renders value into a width-sized buffer: EUC-KR encoded,
// left-aligned, padded with blanks. Values whose encoded form exceeds the
// width are rejected.
func EncodeField(value string, width int) ([]byte, error) {
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(value))
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", value, err)
	}
	if len(encoded) > width {
		return nil, fmt.Errorf("%w: %q needs %d bytes, field holds %d",
			errs.ErrFieldOverflow, value, len(encoded), width)
	}
	buf := make([]byte, width)
	copy(buf, encoded)
	for i := len(encoded); i < width; i++ {
		buf[i] = pad
	}
	return buf, nil
}

// Field pairs a value with the width it occupies in a request record.
type Field struct {
	Value string
	Width int
}

// EncodeRecord lays consecutive fields into one blank-initialised buffer, the
// shape the native query call expects for its input block.
func EncodeRecord(fields []Field) ([]byte, error) {
	total := 0
	for _, f := range fields {
		total += f.Width
	}
	buf := make([]byte, total)
	for i := range buf {
		buf[i] = pad
	}
	off := 0
	for _, f := range fields {
		encoded, err := EncodeField(f.Value, f.Width)
		if err != nil {
			return nil, err
		}
		copy(buf[off:], encoded)
		off += f.Width
	}
	return buf, nil
}

// Stringify renders the value types callers commonly put into request fields.
// Everything on the wire is text, so numbers are converted before encoding.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
