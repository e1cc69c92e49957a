package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/zarvd/token-signer/internal/key"
)

var (
	segmentEncoding = base64.RawURLEncoding
	segmentDecoding = base64.RawURLEncoding.Strict()
)

func encodeSegment(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return segmentEncoding.EncodeToString(b), nil
}

// decodeSegment tolerates trailing padding.
func decodeSegment(s string) ([]byte, error) {
	return segmentDecoding.DecodeString(strings.TrimRight(s, "="))
}

func decodeHeader(segment string) (Header, error) {
	var header Header
	if err := decodeJSON(segment, &header); err != nil || header == nil {
		return nil, invalid(reasonStructure)
	}
	return header, nil
}

func decodeClaims(segment string) (Claims, error) {
	var claims Claims
	if err := decodeJSON(segment, &claims); err != nil || claims == nil {
		return nil, invalid(reasonStructure)
	}
	return claims, nil
}

func decodeJSON(segment string, v any) error {
	b, err := decodeSegment(segment)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

// parseAlgorithm maps an untrusted alg header to a key family and hash.
// Unknown codes are invalid tokens, never configuration errors.
func parseAlgorithm(code string) (key.Algorithm, key.HashAlgorithm, error) {
	if code == "" {
		return 0, 0, invalid(reasonUnsupportedAlgorithm)
	}

	var alg key.Algorithm
	switch code[0] {
	case 'H':
		alg = key.AlgorithmHMAC
	case 'E':
		alg = key.AlgorithmEllipticCurve
	case 'R':
		alg = key.AlgorithmRSA
	default:
		return 0, 0, invalid(reasonUnsupportedAlgorithm)
	}

	var hash key.HashAlgorithm
	switch code[1:] {
	case "S256":
		hash = key.SHA256
	case "S384":
		hash = key.SHA384
	case "S512":
		hash = key.SHA512
	default:
		return 0, 0, invalid(reasonUnsupportedHash)
	}

	return alg, hash, nil
}
