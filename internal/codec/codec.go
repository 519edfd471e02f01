/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package codec serializes configuration records to and from their stored
// JSON form. The stored form is pretty-printed with a trailing newline so
// that files on disk diff cleanly.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// EncodeError reports a record that cannot be represented as JSON.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode config record: %v", e.Err) }

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports stored bytes that do not form a valid record.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode config record: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode config record: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes a record to its canonical stored form.
func Encode(record map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return append(data, '\n'), nil
}

// Decode parses stored bytes back into a record. Empty input, malformed
// JSON, a JSON null, and non-object documents are all decode errors: an
// absent or empty configuration is never a legitimate stored state, even
// though "null" is technically valid JSON.
func Decode(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Reason: "empty input"}
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if v == nil {
		return nil, &DecodeError{Reason: "document decodes to null"}
	}
	record, ok := v.(map[string]any)
	if !ok {
		return nil, &DecodeError{Reason: "document is not a JSON object"}
	}
	return record, nil
}

// Validate checks a record against a JSON Schema document. A nil error
// means the record conforms.
func Validate(record map[string]any, schema []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(record),
	)
	if err != nil {
		return fmt.Errorf("validate config record: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("config record violates schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
