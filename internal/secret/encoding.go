package secret

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

// Encoding is a text codec for key material.
type Encoding interface {
	// DecodeToSlice decodes src into dst and returns the number of bytes
	// written. dst must hold at least MaxDecodedLen(len(src)) bytes.
	DecodeToSlice(dst, src []byte) (int, error)
	// Encode returns a new allocation.
	Encode(src []byte) []byte
	MaxDecodedLen(n int) int
}

var (
	Hex    Encoding = hexEncoding{}
	Base64 Encoding = base64Encoding{}
	Base58 Encoding = base58Encoding{}
)

type hexEncoding struct{}

func (hexEncoding) DecodeToSlice(dst, src []byte) (int, error) {
	return hex.Decode(dst, src)
}

func (hexEncoding) Encode(src []byte) []byte { return hex.AppendEncode(nil, src) }

func (hexEncoding) MaxDecodedLen(n int) int { return hex.DecodedLen(n) }

type base64Encoding struct{}

func (base64Encoding) DecodeToSlice(dst, src []byte) (int, error) {
	return base64.StdEncoding.Decode(dst, src)
}

func (base64Encoding) Encode(src []byte) []byte { return base64.StdEncoding.AppendEncode(nil, src) }

func (base64Encoding) MaxDecodedLen(n int) int { return base64.StdEncoding.DecodedLen(n) }

type base58Encoding struct{}

func (base58Encoding) DecodeToSlice(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	decoded, err := base58.Decode(string(src))
	defer zero(decoded)
	if err != nil {
		return 0, err
	}
	if len(decoded) > len(dst) {
		return 0, fmt.Errorf("base58: decoded %d bytes into %d-byte buffer", len(decoded), len(dst))
	}
	return copy(dst, decoded), nil
}

func (base58Encoding) Encode(src []byte) []byte { return []byte(base58.Encode(src)) }

// Each base58 digit decodes to less than one byte, and each leading '1' to
// exactly one.
func (base58Encoding) MaxDecodedLen(n int) int { return n }
