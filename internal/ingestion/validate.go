package ingestion

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
)

// ValidBitcoinAddress reports whether s looks like a Bitcoin address.
// Legacy P2PKH ("1...") and P2SH ("3...") addresses get a full Base58Check
// verification; native segwit ("bc1...") gets a structural check only.
func ValidBitcoinAddress(s string) bool {
	if strings.HasPrefix(strings.ToLower(s), "bc1") {
		return validBech32Shape(s)
	}
	return validBase58Check(s)
}

// validBase58Check decodes the address and verifies the 4-byte double-SHA256
// checksum over the version byte and payload.
func validBase58Check(s string) bool {
	if len(s) < 26 || len(s) > 35 {
		return false
	}

	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	if len(decoded) != 25 {
		return false
	}

	version := decoded[0]
	if version != 0x00 && version != 0x05 {
		return false
	}

	first := sha256.Sum256(decoded[:21])
	second := sha256.Sum256(first[:])

	for i := 0; i < 4; i++ {
		if decoded[21+i] != second[i] {
			return false
		}
	}
	return true
}

// bech32Charset is the character set of the bech32 data part.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// validBech32Shape checks prefix, length and character set. It does not
// verify the bech32 checksum; segwit addresses are accepted on shape.
func validBech32Shape(s string) bool {
	// Mixed case is invalid in bech32.
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return false
	}
	s = strings.ToLower(s)

	if len(s) < 14 || len(s) > 74 {
		return false
	}

	data := s[len("bc1"):]
	for _, c := range data {
		if !strings.ContainsRune(bech32Charset, c) {
			return false
		}
	}
	return true
}

// ValidTransactionHash reports whether s is a 64-character lowercase or
// uppercase hex string, the display form of a Bitcoin txid.
func ValidTransactionHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
