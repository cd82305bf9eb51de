package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"workseald/internal/domain"
)

// CanonicalPackageBytes returns the canonical encoding of the package's wire
// mapping with the signature key removed. Signer and verifier both go
// through here, so the bytes they operate on are identical by construction.
//
// The encoding is JCS (RFC 8785 profile): object keys sorted
// lexicographically, strings minimally escaped, numbers formatted with the
// ES6 shortest-round-trip rules. Timestamps are float64 seconds, which makes
// the number formatting part of the signature contract.
func CanonicalPackageBytes(pkg domain.WorkloadPackage) ([]byte, error) {
	return Canonicalize(map[string]any{
		"encrypted_data":    pkg.EncryptedData,
		"client_public_key": pkg.ClientPublicKey,
		"cloud_region":      pkg.CloudRegion,
		"workload_type":     pkg.WorkloadType,
		"timestamp":         pkg.Timestamp,
		"encryption_time":   pkg.EncryptionTime,
	})
}

// CanonicalManifestBytes is the streaming-path counterpart of
// CanonicalPackageBytes.
func CanonicalManifestBytes(m domain.LargeWorkloadManifest) ([]byte, error) {
	return Canonicalize(map[string]any{
		"client_public_key":   m.ClientPublicKey,
		"cloud_region":        m.CloudRegion,
		"workload_type":       m.WorkloadType,
		"original_size":       m.OriginalSize,
		"ciphertext_location": m.CiphertextLocation,
		"timestamp":           m.Timestamp,
		"encryption_time":     m.EncryptionTime,
	})
}

// Canonicalize produces the JCS encoding of any JSON-marshalable value.
func Canonicalize(v any) ([]byte, error) {
	var decoded any
	switch value := v.(type) {
	case nil, bool, string, json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		map[string]any, []any:
		decoded = value
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return CanonicalizeJSON(raw)
	}
	buf := &bytes.Buffer{}
	if err := encodeCanonical(buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalizeJSON re-encodes a JSON document canonically.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("invalid JSON: trailing data")
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := encodeCanonical(buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case string:
		encodeString(buf, v)
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return fmt.Errorf("invalid JSON number: %w", err)
		}
		return encodeNumber(buf, f)
	case float64:
		return encodeNumber(buf, v)
	case float32:
		return encodeNumber(buf, float64(v))
	case int:
		return encodeNumber(buf, float64(v))
	case int8:
		return encodeNumber(buf, float64(v))
	case int16:
		return encodeNumber(buf, float64(v))
	case int32:
		return encodeNumber(buf, float64(v))
	case int64:
		return encodeNumber(buf, float64(v))
	case uint:
		return encodeNumber(buf, float64(v))
	case uint8:
		return encodeNumber(buf, float64(v))
	case uint16:
		return encodeNumber(buf, float64(v))
	case uint32:
		return encodeNumber(buf, float64(v))
	case uint64:
		return encodeNumber(buf, float64(v))
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported JSON type %T", value)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// encodeNumber writes f using the ES6 Number::toString algorithm: shortest
// digit string that round-trips, plain notation for exponents in (-7, 21),
// scientific notation outside.
func encodeNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("invalid JSON number")
	}
	if f == 0 {
		buf.WriteByte('0')
		return nil
	}
	if f < 0 {
		buf.WriteByte('-')
		f = -f
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expStr, ok := strings.Cut(sci, "e")
	if !ok {
		return fmt.Errorf("invalid float format: %q", sci)
	}
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return fmt.Errorf("invalid float exponent: %w", err)
	}
	digits := strings.ReplaceAll(mantissa, ".", "")

	switch {
	case exp <= -7 || exp >= 21:
		if len(digits) == 1 {
			buf.WriteString(digits)
		} else {
			buf.WriteString(digits[:1])
			buf.WriteByte('.')
			buf.WriteString(digits[1:])
		}
		buf.WriteByte('e')
		if exp >= 0 {
			buf.WriteByte('+')
		}
		buf.WriteString(strconv.Itoa(exp))
	case exp+1 >= len(digits):
		buf.WriteString(digits)
		buf.WriteString(strings.Repeat("0", exp+1-len(digits)))
	case exp < 0:
		buf.WriteString("0.")
		buf.WriteString(strings.Repeat("0", -exp-1))
		buf.WriteString(digits)
	default:
		buf.WriteString(digits[:exp+1])
		buf.WriteByte('.')
		buf.WriteString(digits[exp+1:])
	}
	return nil
}
