package nodeid

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ChecksumLen is the number of sha256 trailing bytes appended to a
// payload before encoding.
const ChecksumLen = 4

const hexPrefix = "0x"

// Encode returns the checksummed base58 form of b: every encoded
// string carries the last 4 bytes of sha256(b) so that transcription
// errors are caught at decode time.
func Encode(b []byte) string {
	return base58.Encode(appendChecksum(b))
}

// Decode reverses Encode, validating the embedded checksum.
func Decode(s string) ([]byte, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return splitChecksum(decoded)
}

// EncodeHex returns the checksummed hex form of b, 0x-prefixed. The
// checksum scheme is the same one Encode uses.
func EncodeHex(b []byte) string {
	return hexPrefix + hex.EncodeToString(appendChecksum(b))
}

// DecodeHex reverses EncodeHex, validating the embedded checksum. The
// 0x prefix is optional.
func DecodeHex(s string) ([]byte, error) {
	decoded, err := hex.DecodeString(strings.TrimPrefix(s, hexPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return splitChecksum(decoded)
}

func checksum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[sha256.Size-ChecksumLen:]
}

func appendChecksum(b []byte) []byte {
	out := make([]byte, 0, len(b)+ChecksumLen)
	out = append(out, b...)
	return append(out, checksum(b)...)
}

func splitChecksum(decoded []byte) ([]byte, error) {
	if len(decoded) < ChecksumLen {
		return nil, fmt.Errorf("%w: %d bytes is too short to carry a checksum", ErrMalformedInput, len(decoded))
	}
	payload := decoded[:len(decoded)-ChecksumLen]
	if !bytes.Equal(decoded[len(decoded)-ChecksumLen:], checksum(payload)) {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}
