// Package classifier maps errors from wallets, contracts and plain strings onto
// the small set of categories shown to users.
package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vitwit/ticketmint/types"
)

var (
	insufficientFundsMarkers = []string{
		"insufficient funds", // wallet can't cover value + gas
		"insufficient eth",   // contract revert
	}
	rateLimitMarkers = []string{
		"24h",
		"24 hours",
		"daily",
		"mint cap",
		"window cap",
	}
)

// Classify returns the category of raw, which may be an error, a string or any
// other value.
func Classify(raw any) types.ErrorKind {
	if raw == nil {
		return types.ErrorKindUnknown
	}

	if err, ok := raw.(error); ok {
		if code, ok := types.ProviderCode(err); ok && code == types.ProviderCodeUserRejected {
			return types.ErrorKindUserRejected
		}
		var me *types.MintError
		if errors.As(err, &me) && me.Kind != "" && me.Kind != types.ErrorKindUnknown {
			return me.Kind
		}
	}

	msg := strings.ToLower(BestMessage(raw))
	switch {
	case containsAny(msg, insufficientFundsMarkers):
		return types.ErrorKindInsufficientFunds
	case containsAny(msg, rateLimitMarkers):
		return types.ErrorKindRateLimited
	default:
		return types.ErrorKindUnknown
	}
}

// BestMessage returns the first non-empty of: the nested provider message, the
// nested data message, the contract revert reason, the top-level message and
// the stringified value.
func BestMessage(raw any) string {
	for _, m := range candidates(raw) {
		if strings.TrimSpace(m) != "" {
			return m
		}
	}
	return ""
}

func candidates(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case error:
		return errorCandidates(v)
	case fmt.Stringer:
		return []string{v.String()}
	default:
		return []string{fmt.Sprint(v)}
	}
}

func errorCandidates(err error) []string {
	var (
		nested  string
		data    string
		revert  string
		message string
	)

	var pe *types.ProviderError
	if errors.As(err, &pe) {
		if pe.Cause != nil {
			nested = pe.Cause.Error()
		}
		message = pe.Message
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		payload := de.ErrorData()
		data = dataMessage(payload)
		revert = revertReason(payload)
	}

	var rr interface{ RevertReason() string }
	if revert == "" && errors.As(err, &rr) {
		revert = rr.RevertReason()
	}

	return []string{nested, data, revert, message, err.Error()}
}

// dataMessage extracts a "message" carried in the error data payload.
func dataMessage(payload any) string {
	switch d := payload.(type) {
	case map[string]any:
		if m, ok := d["message"].(string); ok {
			return m
		}
	case error:
		return d.Error()
	}
	return ""
}

// revertReason decodes an Error(string) revert carried as hex data.
func revertReason(payload any) string {
	var raw []byte
	switch d := payload.(type) {
	case string:
		b, err := hexutil.Decode(d)
		if err != nil {
			return ""
		}
		raw = b
	case []byte:
		raw = d
	case map[string]any:
		if s, ok := d["data"].(string); ok {
			return revertReason(s)
		}
		return ""
	default:
		return ""
	}

	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return ""
	}
	return reason
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
