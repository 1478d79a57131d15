package pluginrpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lightninglabs/hold/handler"
	"github.com/lightninglabs/hold/internal/lntypes"
	"github.com/lightninglabs/hold/internal/lnwire"
	"github.com/lightninglabs/hold/messenger"
	"github.com/lightninglabs/hold/settler"
)

// htlcAcceptedParams is the "htlc_accepted" hook payload of spec.md §6.
type htlcAcceptedParams struct {
	Onion struct {
		PaymentSecret string `json:"payment_secret"`
	} `json:"onion"`
	Htlc struct {
		ShortChannelID     string `json:"short_channel_id"`
		ID                 uint64 `json:"id"`
		AmountMsat         string `json:"amount_msat"`
		CltvExpiry         uint32 `json:"cltv_expiry"`
		CltvExpiryRelative uint32 `json:"cltv_expiry_relative"`
		PaymentHash        string `json:"payment_hash"`
	} `json:"htlc"`
}

// DecodeHtlcAccepted parses the raw hook params into the handler's own
// Onion/Htlc request types.
func DecodeHtlcAccepted(params json.RawMessage) (handler.Onion, handler.Htlc, error) {
	var p htlcAcceptedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return handler.Onion{}, handler.Htlc{}, fmt.Errorf("parse htlc_accepted params: %w", err)
	}

	hash, err := hashFromHex(p.Htlc.PaymentHash)
	if err != nil {
		return handler.Onion{}, handler.Htlc{}, fmt.Errorf("parse payment_hash: %w", err)
	}

	onion := handler.Onion{PaymentHash: hash}
	if p.Onion.PaymentSecret != "" {
		secret, err := hashFromHex(p.Onion.PaymentSecret)
		if err != nil {
			return handler.Onion{}, handler.Htlc{}, fmt.Errorf("parse payment_secret: %w", err)
		}
		onion.PaymentSecret = &secret
	}

	amount, err := parseMsat(p.Htlc.AmountMsat)
	if err != nil {
		return handler.Onion{}, handler.Htlc{}, fmt.Errorf("parse amount_msat: %w", err)
	}

	htlc := handler.Htlc{
		Scid:               p.Htlc.ShortChannelID,
		ChannelID:          p.Htlc.ID,
		AmountMsat:         amount,
		CltvExpiryRelative: p.Htlc.CltvExpiryRelative,
		CltvExpiryAbsolute: p.Htlc.CltvExpiry,
	}

	return onion, htlc, nil
}

// hashFromHex decodes a hex-encoded 32-byte payment hash or secret.
func hashFromHex(s string) (lntypes.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return lntypes.Hash{}, err
	}

	return lntypes.MakeHash(b)
}

// parseMsat parses CLN's "<n>msat" amount encoding.
func parseMsat(s string) (lnwire.MilliSatoshi, error) {
	var n uint64
	if _, err := fmt.Sscanf(s, "%dmsat", &n); err != nil {
		return 0, err
	}

	return lnwire.MilliSatoshi(n), nil
}

// ContinueResult is the {"result":"continue"} reply of spec.md §6.
func ContinueResult() interface{} {
	return map[string]string{"result": "continue"}
}

// FailResult is the {"result":"fail","failure_message":"<4-hex>"} reply.
func FailResult(code settler.FailCode) interface{} {
	return map[string]string{
		"result":          "fail",
		"failure_message": fmt.Sprintf("%04x", uint16(code)),
	}
}

// ResolveResult is the {"result":"resolve","payment_key":"<hex>"} reply.
func ResolveResult(preimage lntypes.Preimage) interface{} {
	return map[string]string{
		"result":      "resolve",
		"payment_key": hex.EncodeToString(preimage[:]),
	}
}

// HookResultFor translates a handler.Outcome (already resolved, i.e. not
// Park) into its hook reply.
func HookResultFor(outcome handler.Outcome) interface{} {
	switch outcome.Kind {
	case handler.Fail:
		return FailResult(outcome.Code)
	default:
		return ContinueResult()
	}
}

// ResolutionResult translates a settler.Resolution - what a Park outcome's
// resolver eventually delivers - into its hook reply.
func ResolutionResult(res settler.Resolution) interface{} {
	if res.Settled {
		return ResolveResult(res.Preimage)
	}

	return FailResult(res.Code)
}

// blockAddedParams is the "block_added" notification payload of
// spec.md §6.
type blockAddedParams struct {
	BlockAdded struct {
		Height uint32 `json:"height"`
	} `json:"block_added"`
}

// DecodeBlockAdded parses the raw notification params into a block height.
func DecodeBlockAdded(params json.RawMessage) (uint32, error) {
	var p blockAddedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return 0, fmt.Errorf("parse block_added params: %w", err)
	}

	return p.BlockAdded.Height, nil
}

// onionMessageParams is the "onion_message_recv"/"onion_message_recv_secret"
// hook payload: the plugin only needs the raw bytes to compute a stable
// message_id and to forward to Messenger subscribers.
type onionMessageParams struct {
	Payload string `json:"payload"`
}

// DecodeOnionMessage parses the raw hook params into the message payload
// bytes.
func DecodeOnionMessage(params json.RawMessage) ([]byte, error) {
	var p onionMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("parse onion message params: %w", err)
	}

	return hex.DecodeString(p.Payload)
}

// OnionMessageResult translates a messenger.Decision into its hook reply.
func OnionMessageResult(d messenger.Decision) interface{} {
	if d.Resolve {
		return map[string]string{"result": "resolve"}
	}

	return map[string]string{"result": "continue"}
}
