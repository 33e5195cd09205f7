package vault

import (
	"errors"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	data, err := Encode(Record{Label: "example.com", Secret: "Xk9!mP2vQs"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := "example.com\nXk9!mP2vQs\n\n"; string(data) != want {
		t.Errorf("Encode = %q, want %q", data, want)
	}
}

func TestEncodeEmptyLabel(t *testing.T) {
	data, err := Encode(Record{Secret: "Xk9!mP2vQs"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := "\nXk9!mP2vQs\n\n"; string(data) != want {
		t.Errorf("Encode = %q, want %q", data, want)
	}

	records, errs := Decode(data)
	if len(errs) != 0 {
		t.Fatalf("Unexpected decode errors: %v", errs)
	}
	if len(records) != 1 || records[0].Label != "" || records[0].Secret != "Xk9!mP2vQs" {
		t.Errorf("Decode = %+v", records)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"valid", Record{Label: "example.com", Secret: "s3cret"}, false},
		{"empty label", Record{Secret: "s3cret"}, false},
		{"empty secret", Record{Label: "example.com"}, true},
		{"newline in label", Record{Label: "exa\nmple", Secret: "s3cret"}, true},
		{"carriage return in label", Record{Label: "example\r", Secret: "s3cret"}, true},
		{"newline in secret", Record{Label: "example.com", Secret: "s3\ncret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.record)
			if tt.wantErr {
				var codecErr *CodecError
				if !errors.As(err, &codecErr) {
					t.Fatalf("Expected *CodecError, got %v", err)
				}
				if codecErr.Index != -1 {
					t.Errorf("Index = %d, want -1 for encode errors", codecErr.Index)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestEncodeRejectsWithoutLeakingSecret(t *testing.T) {
	_, err := Encode(Record{Label: "bank", Secret: "hunter2\nmore"})
	if err == nil {
		t.Fatal("Expected error for multi-line secret")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("Error message leaks the secret: %v", err)
	}
}

func TestDecodeOrderAndRoundTrip(t *testing.T) {
	in := []Record{
		{Label: "example.com", Secret: "Xk9!mP2vQs"},
		{Label: "", Secret: "aB3$dE6^gH"},
		{Label: "bank", Secret: "p@ss w0rd"},
	}

	data, err := EncodeAll(in)
	if err != nil {
		t.Fatalf("EncodeAll failed: %v", err)
	}

	out, errs := Decode(data)
	if len(errs) != 0 {
		t.Fatalf("Unexpected decode errors: %v", errs)
	}
	if len(out) != len(in) {
		t.Fatalf("Decoded %d records, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Record %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestDecodeSkipsMalformedChunks(t *testing.T) {
	data := "good.com\nsecret1\n\n" +
		"only-one-line\n\n" +
		"a\nb\nc\n\n" +
		"other.com\nsecret2\n\n"

	records, errs := Decode([]byte(data))
	if len(records) != 2 {
		t.Fatalf("Decoded %d records, want 2: %+v", len(records), records)
	}
	if records[0].Label != "good.com" || records[1].Label != "other.com" {
		t.Errorf("Unexpected records: %+v", records)
	}
	if len(errs) != 2 {
		t.Fatalf("Got %d errors, want 2: %v", len(errs), errs)
	}

	var codecErr *CodecError
	if !errors.As(errs[0], &codecErr) {
		t.Fatalf("Expected *CodecError, got %T", errs[0])
	}
	if codecErr.Index != 1 {
		t.Errorf("First malformed chunk index = %d, want 1", codecErr.Index)
	}
}

func TestDecodeTolerantInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Record
	}{
		{"empty file", "", nil},
		{"missing final blank line", "a.com\nsecret\n", []Record{{"a.com", "secret"}}},
		{"no trailing newline", "a.com\nsecret", []Record{{"a.com", "secret"}}},
		{"extra blank lines", "a.com\nsecret\n\n\n\nb.com\nother\n\n", []Record{{"a.com", "secret"}, {"b.com", "other"}}},
		{"crlf line endings", "a.com\r\nsecret\r\n\r\n", []Record{{"a.com", "secret"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := Decode([]byte(tt.input))
			if len(errs) != 0 {
				t.Fatalf("Unexpected errors: %v", errs)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decoded %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Record %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTerminator(t *testing.T) {
	tests := []struct {
		tail string
		want string
	}{
		{"", ""},
		{"m\n\n", ""},
		{"\r\n\r\n", ""},
		{"cret\n", "\n"},
		{"cret\r\n", "\n"},
		{"cret", "\n\n"},
	}

	for _, tt := range tests {
		if got := string(terminator([]byte(tt.tail))); got != tt.want {
			t.Errorf("terminator(%q) = %q, want %q", tt.tail, got, tt.want)
		}
	}
}
