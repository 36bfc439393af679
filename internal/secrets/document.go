package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Document is a parsed secret payload: a tree of string-keyed fields whose
// shape is not controlled by this service.
type Document map[string]any

// ParseDocument decodes a JSON object payload. The returned error never
// includes payload content.
func ParseDocument(payload string) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, describeDecodeError(err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformedPayload)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedPayload)
	}
	return doc, nil
}

// describeDecodeError strips anything that could echo payload bytes.
func describeDecodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("%w: invalid JSON at offset %d", ErrMalformedPayload, syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Errorf("%w: document root is %s, want object", ErrMalformedPayload, typeErr.Value)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: unexpected end of document", ErrMalformedPayload)
	default:
		return fmt.Errorf("%w: decode failed", ErrMalformedPayload)
	}
}

// Has reports whether the field is present, whatever its value.
func (d Document) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Text returns the field's scalar value as text. Null, object and array
// values are not coercible and report false.
func (d Document) Text(name string) (string, bool) {
	v, ok := d[name]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// Credentials extracts the recognized keys into a fresh mapping.
func (d Document) Credentials() Credentials {
	creds := make(Credentials, len(RecognizedKeys))
	for _, key := range RecognizedKeys {
		if !d.Has(key) {
			continue
		}
		if text, ok := d.Text(key); ok {
			creds[key] = text
		}
	}
	return creds
}
