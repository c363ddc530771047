package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Encode returns the wire form of inv: compact JSON, UTF-8, with non-ASCII and
// HTML characters (U+2028 and U+2029 included) written literally and every
// null-valued key removed.
//
// The returned slice is the exact byte sequence that must be both signed and
// transmitted.
func Encode(inv Invoice) ([]byte, error) {
	raw, err := marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice: %w", err)
	}

	pruned, err := PruneNulls(raw)
	if err != nil {
		return nil, err
	}

	return bytes.TrimSpace(pruned), nil
}

// PruneNulls re-encodes the JSON document data compactly, dropping every object
// key whose value is null at any depth. Null array elements are kept. Key order
// is preserved, and applying PruneNulls to its own output is a no-op.
func PruneNulls(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	var buf bytes.Buffer
	if err := pruneValue(dec, tok, &buf); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}

	return buf.Bytes(), nil
}

func pruneValue(dec *json.Decoder, tok json.Token, buf *bytes.Buffer) error {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return pruneObject(dec, buf)
		case '[':
			return pruneArray(dec, buf)
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(v.String())
	case string:
		s, err := marshal(v)
		if err != nil {
			return err
		}
		buf.Write(s)
	default:
		return fmt.Errorf("unexpected JSON token %T", tok)
	}
	return nil
}

func pruneObject(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read value of %q: %w", key, err)
		}
		if valTok == nil {
			continue
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false

		k, err := marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := pruneValue(dec, valTok, buf); err != nil {
			return err
		}
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close object: %w", err)
	}
	buf.WriteByte('}')
	return nil
}

func pruneArray(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('[')
	first := true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read array element: %w", err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := pruneValue(dec, tok, buf); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close array: %w", err)
	}
	buf.WriteByte(']')
	return nil
}

// marshal encodes v without HTML escaping and without the trailing newline
// json.Encoder appends.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

var (
	escapedLineSep = []byte(`\u2028`)
	escapedParaSep = []byte(`\u2029`)
)

// unescapeLineSeparators writes U+2028 and U+2029 back as literal UTF-8.
// json.Encoder escapes both regardless of SetEscapeHTML.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, escapedLineSep) && !bytes.Contains(b, escapedParaSep) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 == len(b) {
			out = append(out, b[i])
			continue
		}
		switch {
		case bytes.HasPrefix(b[i:], escapedLineSep):
			out = append(out, "\u2028"...)
			i += len(escapedLineSep) - 1
		case bytes.HasPrefix(b[i:], escapedParaSep):
			out = append(out, "\u2029"...)
			i += len(escapedParaSep) - 1
		default:
			// Copy the escape pair so an escaped backslash is never
			// mistaken for the start of a sequence.
			out = append(out, b[i], b[i+1])
			i++
		}
	}
	return out
}
