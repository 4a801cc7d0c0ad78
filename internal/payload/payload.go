// Package payload holds function input and output bytes together with a
// precomputed human-readable rendering.
package payload

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Kind identifies which side of a run a payload belongs to.
type Kind string

const (
	Input  Kind = "input"
	Output Kind = "output"
)

// Codec is the expected encoding of the payload bytes.
type Codec string

const (
	// JSON payloads are pretty-printed; decode failures are recorded.
	JSON Codec = "json"
	// Raw payloads are shown as text, or hex when not valid UTF-8.
	Raw Codec = "raw"
)

// ParseCodec maps a codec name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case JSON, "":
		return JSON, nil
	case Raw:
		return Raw, nil
	}
	return "", fmt.Errorf("unknown codec %q", name)
}

// Container is an immutable payload. Fields are exported for
// serialization only; build values with New.
type Container struct {
	Kind          Kind   `json:"kind"`
	Codec         Codec  `json:"codec"`
	Raw           []byte `json:"raw"`
	Humanized     string `json:"humanized"`
	EncodingError string `json:"encoding_error,omitempty"`
}

// New decodes raw according to codec and precomputes its rendering.
// Valid JSON is stored in its compact encoding, so Size counts the value
// rather than the caller's whitespace. A JSON decode failure is not an
// error: the bytes are kept as given and the failure is recorded.
func New(kind Kind, codec Codec, raw []byte) (Container, error) {
	c := Container{Kind: kind, Codec: codec, Raw: bytes.Clone(raw)}
	switch codec {
	case JSON:
		c.Humanized, c.EncodingError = humanizeJSON(raw)
		if c.EncodingError == "" {
			var buf bytes.Buffer
			if err := json.Compact(&buf, raw); err == nil {
				c.Raw = buf.Bytes()
			}
		}
	case Raw:
		c.Humanized = humanizeRaw(raw)
	default:
		return Container{}, fmt.Errorf("%s payload: unknown codec %q", kind, codec)
	}
	return c, nil
}

// Size returns the raw byte length.
func (c Container) Size() uint64 {
	return uint64(len(c.Raw))
}

// HasEncodingError reports whether the payload failed to decode.
func (c Container) HasEncodingError() bool {
	return c.EncodingError != ""
}

func humanizeJSON(raw []byte) (string, string) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return humanizeRaw(raw), err.Error()
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return humanizeRaw(raw), err.Error()
	}
	return string(out), ""
}

func humanizeRaw(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return hex.Dump(raw)
}
