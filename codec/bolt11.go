package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
)

// defaultMinFinalCLTVExpiryDelta is BOLT11's fallback when the `c` tagged
// field is absent.
const defaultMinFinalCLTVExpiryDelta = 18

// Tagged field type codes, BOLT11 §"Tagged Fields".
const (
	fieldPaymentHash   = 1
	fieldDescription   = 13
	fieldPaymentSecret = 16
	fieldMinFinalCLTV  = 24
)

// signatureWords is the fixed trailing region (65-byte recoverable
// signature, 520 bits) that follows the tagged fields in every BOLT11
// payload.
const signatureWords = 104

// Bolt11Codec decodes BOLT11 invoice strings by walking the bech32 payload
// directly, rather than depending on a full BOLT11 library: spec.md §1
// names the BOLT11 decoder as an external collaborator contract, and this
// is the minimal adapter a plugin would write against it, reusing the
// pack-wide github.com/btcsuite/btcd/btcutil/bech32 primitive.
type Bolt11Codec struct{}

var _ Codec = Bolt11Codec{}

// Decode implements Codec.
func (Bolt11Codec) Decode(invoiceStr string) (*Decoded, error) {
	lower := strings.ToLower(strings.TrimSpace(invoiceStr))

	hrp, data, err := bech32.DecodeNoLimit(lower)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}

	amountMsat, err := parseAmount(hrp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}

	// First 7 words (35 bits) are the timestamp; unused by this plugin.
	if len(data) < 7+signatureWords {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidInvoice)
	}
	fields := data[7 : len(data)-signatureWords]

	decoded := &Decoded{
		AmountMsat:        amountMsat,
		MinFinalCLTVDelta: defaultMinFinalCLTVExpiryDelta,
	}

	var gotHash bool

	for i := 0; i+3 <= len(fields); {
		tag := fields[i]
		if i+3 > len(fields) {
			return nil, fmt.Errorf("%w: truncated tagged field", ErrInvalidInvoice)
		}
		length := int(fields[i+1])*32 + int(fields[i+2])
		start := i + 3
		end := start + length
		if end > len(fields) {
			return nil, fmt.Errorf("%w: truncated tagged field data", ErrInvalidInvoice)
		}
		value := fields[start:end]

		switch tag {
		case fieldPaymentHash:
			b, err := bitsToBytes(value)
			if err != nil || len(b) != lntypes.HashSize {
				return nil, fmt.Errorf("%w: bad payment_hash field", ErrInvalidInvoice)
			}
			hash, err := lntypes.MakeHash(b)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
			}
			decoded.PaymentHash = hash
			gotHash = true

		case fieldPaymentSecret:
			b, err := bitsToBytes(value)
			if err == nil && len(b) == lntypes.HashSize {
				secret, err := lntypes.MakeHash(b)
				if err == nil {
					decoded.PaymentSecret = &secret
				}
			}

		case fieldMinFinalCLTV:
			decoded.MinFinalCLTVDelta = uint32(wordsToUint64(value))

		case fieldDescription:
			b, err := bitsToBytes(value)
			if err == nil {
				decoded.Description = string(b)
			}
		}

		i = end
	}

	if !gotHash {
		return nil, fmt.Errorf("%w: missing payment_hash field", ErrInvalidInvoice)
	}

	return decoded, nil
}

// parseAmount extracts the optional amount from the human-readable part,
// e.g. "lnbc2500u" -> 2500 * 100000 msat. An hrp with no numeric amount
// (a "any amount" invoice) returns zero.
func parseAmount(hrp string) (lnwire.MilliSatoshi, error) {
	i := 0
	for i < len(hrp) && !(hrp[i] >= '0' && hrp[i] <= '9') {
		i++
	}
	if i == len(hrp) {
		return 0, nil
	}

	j := i
	for j < len(hrp) && hrp[j] >= '0' && hrp[j] <= '9' {
		j++
	}
	digits, err := strconv.ParseUint(hrp[i:j], 10, 64)
	if err != nil {
		return 0, err
	}

	if j == len(hrp) {
		// No multiplier suffix: bare BTC amount.
		return lnwire.MilliSatoshi(digits * 100_000_000_000), nil
	}

	switch hrp[j] {
	case 'm':
		return lnwire.MilliSatoshi(digits * 100_000_000), nil
	case 'u':
		return lnwire.MilliSatoshi(digits * 100_000), nil
	case 'n':
		return lnwire.MilliSatoshi(digits * 100), nil
	case 'p':
		return lnwire.MilliSatoshi(digits / 10), nil
	default:
		return 0, fmt.Errorf("unknown amount multiplier %q", hrp[j])
	}
}

func bitsToBytes(words []byte) ([]byte, error) {
	return bech32.ConvertBits(words, 5, 8, false)
}

func wordsToUint64(words []byte) uint64 {
	var v uint64
	for _, w := range words {
		v = v<<5 | uint64(w)
	}

	return v
}
