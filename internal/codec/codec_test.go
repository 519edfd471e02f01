package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	record := map[string]any{
		"name":    "Test Site",
		"weight":  float64(10),
		"enabled": true,
		"nested":  map[string]any{"keys": []any{"a", "b"}},
		"empty":   nil,
	}
	data, err := Encode(record)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !reflect.DeepEqual(got, record) {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, record)
	}
}

func TestEncodeStoredForm(t *testing.T) {
	data, err := Encode(map[string]any{"name": "Test Site"})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	s := string(data)
	if !strings.HasSuffix(s, "\n") {
		t.Fatalf("stored form missing trailing newline: %q", s)
	}
	if !strings.Contains(s, "\n  \"name\": \"Test Site\"") {
		t.Fatalf("stored form not pretty-printed: %q", s)
	}
}

func TestEncodeRejectsUnrepresentableValues(t *testing.T) {
	_, err := Encode(map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatalf("expected encode error")
	}
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EncodeError, got %T: %v", err, err)
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"garbage":    "not json",
		"null":       "null",
		"empty":      "",
		"whitespace": "   \n",
		"scalar":     "42",
		"array":      `["a"]`,
	}
	for label, input := range cases {
		_, err := Decode([]byte(input))
		if err == nil {
			t.Fatalf("%s: expected decode error", label)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected *DecodeError, got %T: %v", label, err, err)
		}
	}
}

func TestValidate(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}}
	}`)
	if err := Validate(map[string]any{"name": "Test Site"}, schema); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if err := Validate(map[string]any{"name": 5}, schema); err == nil {
		t.Fatalf("expected schema violation")
	}
	if err := Validate(map[string]any{}, schema); err == nil {
		t.Fatalf("expected missing required field violation")
	}
}
