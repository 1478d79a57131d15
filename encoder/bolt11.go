package encoder

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	fieldPaymentHash   = 1
	fieldExpiry        = 6
	fieldDescription   = 13
	fieldPaymentSecret = 16
	fieldMinFinalCLTV  = 24
)

// timestampWords packs a unix timestamp into BOLT11's fixed 35-bit (7
// five-bit word) field.
func timestampWords(unix int64) []byte {
	return uint64ToWords(uint64(unix), 7)
}

// uint64ToWords packs v into exactly minWords 5-bit words, most
// significant first.
func uint64ToWords(v uint64, minWords int) []byte {
	words := make([]byte, minWords)
	for i := minWords - 1; i >= 0; i-- {
		words[i] = byte(v & 0x1f)
		v >>= 5
	}

	return words
}

// bytesToWords converts a byte slice to 5-bit words, zero-padding the
// final partial group (BOLT11's convention for byte-aligned tagged field
// data such as payment_hash and payment_secret).
func bytesToWords(b []byte) []byte {
	words, _ := bech32.ConvertBits(b, 8, 5, true)
	return words
}

// encodeField returns a complete tagged field: 1 type word, 2 length
// words, then the data words themselves.
func encodeField(tag byte, data []byte) []byte {
	length := len(data)
	out := make([]byte, 0, 3+length)
	out = append(out, tag, byte(length/32), byte(length%32))
	out = append(out, data...)

	return out
}

// taggedFields assembles every tagged field this plugin populates, in a
// stable order, excluding the timestamp and signature.
func taggedFields(p Params) []byte {
	var out []byte

	out = append(out, encodeField(fieldPaymentHash, bytesToWords(p.PaymentHash[:]))...)
	out = append(out, encodeField(fieldPaymentSecret, bytesToWords(p.PaymentSecret[:]))...)
	out = append(out, encodeField(fieldMinFinalCLTV, minimalWords(uint64(p.MinFinalCLTVDelta)))...)

	if p.Expiry > 0 {
		out = append(out, encodeField(fieldExpiry, minimalWords(uint64(p.Expiry/time.Second)))...)
	}

	if p.Description != "" {
		out = append(out, encodeField(fieldDescription, bytesToWords([]byte(p.Description)))...)
	}

	return out
}

// minimalWords packs v into the fewest 5-bit words that represent it
// (BOLT11 tagged integer fields, unlike the fixed-width timestamp, use no
// more words than the value needs).
func minimalWords(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}

	var words []byte
	for v > 0 {
		words = append([]byte{byte(v & 0x1f)}, words...)
		v >>= 5
	}

	return words
}

// invoiceDigest computes the SHA256 digest the host daemon's identity key
// signs: hrp bytes concatenated with the bit-packed timestamp and tagged
// fields (everything that precedes the signature in the final encoding).
func invoiceDigest(hrpPrefix string, p Params) [32]byte {
	words := append(timestampWords(p.CreatedAt.Unix()), taggedFields(p)...)

	data, _ := bech32.ConvertBits(words, 5, 8, true)

	return sha256.Sum256(append([]byte(hrpPrefix), data...))
}

// assembleBolt11 bech32-encodes the final invoice: hrp, timestamp, tagged
// fields, and the signature (including its 1-byte recovery id) packed as
// 5-bit words.
func assembleBolt11(hrpPrefix string, p Params, sig [65]byte) (string, error) {
	words := append(timestampWords(p.CreatedAt.Unix()), taggedFields(p)...)
	words = append(words, bytesToWords(sig[:])...)

	invoice, err := bech32.Encode(hrpPrefix, words)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}

	return invoice, nil
}
