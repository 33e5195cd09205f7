package vault

import (
	"bytes"
	"strconv"
	"strings"
)

// separator ends every record: the secret line's newline plus one blank line.
const separator = "\n\n"

// terminator returns the bytes to write after tail, the end of existing
// content, so that the next record starts a chunk of its own.
func terminator(tail []byte) []byte {
	switch {
	case len(tail) == 0,
		bytes.HasSuffix(tail, []byte(separator)),
		bytes.HasSuffix(tail, []byte("\r\n\r\n")):
		return nil
	case tail[len(tail)-1] == '\n':
		return []byte("\n")
	default:
		return []byte(separator)
	}
}

// Encode returns the on-disk form of r: label line, secret line, blank line.
func Encode(r Record) ([]byte, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.Grow(len(r.Label) + len(r.Secret) + 3)
	b.WriteString(r.Label)
	b.WriteByte('\n')
	b.WriteString(r.Secret)
	b.WriteString(separator)
	return []byte(b.String()), nil
}

// Validate checks that r can be framed as two lines.
func Validate(r Record) error {
	if r.Secret == "" {
		return &CodecError{Index: -1, Reason: "secret is empty"}
	}
	if strings.ContainsAny(r.Label, "\r\n") {
		return &CodecError{Index: -1, Reason: "label contains a line break"}
	}
	if strings.ContainsAny(r.Secret, "\r\n") {
		return &CodecError{Index: -1, Reason: "secret contains a line break"}
	}
	return nil
}

// Decode parses the working copy. Malformed chunks are reported as
// *CodecError values and skipped; the remaining records keep their order.
func Decode(data []byte) ([]Record, []error) {
	var (
		records []Record
		errs    []error
	)

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	chunks := strings.Split(text, separator)
	for i, chunk := range chunks {
		// A missing final blank line leaves a trailing newline on the last chunk
		chunk = strings.TrimRight(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		lines := strings.Split(chunk, "\n")
		if len(lines) != 2 {
			errs = append(errs, &CodecError{
				Index:  i,
				Reason: "expected 2 lines, found " + strconv.Itoa(len(lines)),
			})
			continue
		}

		secret := strings.TrimSuffix(lines[1], "\r")
		if secret == "" {
			errs = append(errs, &CodecError{Index: i, Reason: "secret line is empty"})
			continue
		}

		records = append(records, Record{
			Label:  strings.TrimSuffix(lines[0], "\r"),
			Secret: secret,
		})
	}

	return records, errs
}

// EncodeAll encodes records in order.
func EncodeAll(records []Record) ([]byte, error) {
	var out []byte
	for _, r := range records {
		data, err := Encode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}
