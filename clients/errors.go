package clients

import (
	"fmt"

	"github.com/vitwit/ticketmint/types"
)

// errUserRejected is returned when the Approver declines a request.
func errUserRejected(method string) error {
	return &types.ProviderError{
		Code:    types.ProviderCodeUserRejected,
		Message: "User rejected the request.",
		Data:    map[string]any{"method": method},
	}
}

func errUnrecognizedChain(id types.ChainID) error {
	return &types.ProviderError{
		Code:    types.ProviderCodeUnrecognizedChain,
		Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", id.Hex()),
	}
}

func errUnauthorized(method string) error {
	return &types.ProviderError{
		Code:    types.ProviderCodeUnauthorized,
		Message: fmt.Sprintf("%s: the requested account has not been authorized by the user", method),
	}
}

func errInternal(msg string, cause error) error {
	return &types.ProviderError{
		Code:    types.ProviderCodeInternal,
		Message: msg,
		Cause:   cause,
	}
}
