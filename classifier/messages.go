package classifier

import "github.com/vitwit/ticketmint/types"

var messages = map[types.ErrorKind]string{
	types.ErrorKindProviderUnavailable:  "No wallet found. Configure a wallet to mint.",
	types.ErrorKindUserRejected:         "Transaction rejected in wallet.",
	types.ErrorKindWrongNetwork:         "Please switch your wallet to the sale network.",
	types.ErrorKindChainUnregistered:    "Failed to add the sale network to your wallet. Please add it manually.",
	types.ErrorKindSwitchFailed:         "Failed to switch network in your wallet.",
	types.ErrorKindVerificationPending:  "Still checking your Proof of Humanity status. Please wait a moment and try again.",
	types.ErrorKindVerificationRejected: "You need to complete Proof of Humanity before minting.",
	types.ErrorKindInsufficientFunds:    "You need more ETH",
	types.ErrorKindRateLimited:          "Mint cap reached, come back tomorrow.",
	types.ErrorKindNotConnected:         "Connect your wallet first.",
	types.ErrorKindConfigUnavailable:    "Mint price not loaded yet.",
	types.ErrorKindInvalidQuantity:      "Invalid quantity.",
	types.ErrorKindBusy:                 "Another action is still in progress.",
	types.ErrorKindUnknown:              "Mint transaction failed.",
}

// Message returns the user-facing text for kind.
func Message(kind types.ErrorKind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[types.ErrorKindUnknown]
}

// Wrap classifies err and returns it as a MintError carrying the message for
// its category. A MintError that already has a kind is returned unchanged.
func Wrap(err error) *types.MintError {
	if err == nil {
		return nil
	}
	if me, ok := err.(*types.MintError); ok && me.Kind != "" {
		return me
	}
	kind := Classify(err)
	return &types.MintError{Kind: kind, Message: Message(kind), Err: err}
}

// Error returns a MintError of kind carrying the standard message.
func Error(kind types.ErrorKind) *types.MintError {
	return &types.MintError{Kind: kind, Message: Message(kind)}
}
