// Package network decides whether the wallet is on the sale's chain and moves
// it there when it is not.
package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/types"
)

// ErrInvalidChainID is returned for chain ids that are neither decimal nor 0x-hex.
var ErrInvalidChainID = errors.New("invalid chain id")

// ParseChainID accepts decimal ("59144") and hex ("0xe708", "0XE708") forms.
func ParseChainID(raw string) (types.ChainID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidChainID)
	}
	v, ok := math.ParseUint64(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChainID, raw)
	}
	return types.ChainID(v), nil
}

// SwitchResult reports how EnsureNetwork reached the required chain.
type SwitchResult struct {
	// Added is set when the chain had to be registered with the wallet first.
	Added bool
}

// Gate enforces the required chain.
type Gate struct {
	required types.ChainDescriptor
	provider clients.Provider
	logger   logger.Logger
}

func NewGate(required types.ChainDescriptor, provider clients.Provider, l logger.Logger) *Gate {
	return &Gate{
		required: required,
		provider: provider,
		logger:   logger.OrNoop(l),
	}
}

// Required returns the chain the sale lives on.
func (g *Gate) Required() types.ChainDescriptor {
	return g.required
}

// IsOnRequiredNetwork reports whether raw denotes the required chain.
func (g *Gate) IsOnRequiredNetwork(raw string) bool {
	id, err := ParseChainID(raw)
	if err != nil {
		return false
	}
	return id == g.required.ID
}

// EnsureNetwork asks the wallet to switch to the required chain. If the wallet
// does not know the chain it is added and the switch is retried once.
func (g *Gate) EnsureNetwork(ctx context.Context) (SwitchResult, error) {
	if g.provider == nil {
		return SwitchResult{}, types.NewMintError(types.ErrorKindProviderUnavailable, "No wallet found.")
	}

	err := g.provider.SwitchChain(ctx, g.required.ID)
	if err == nil {
		return SwitchResult{}, nil
	}

	code, _ := types.ProviderCode(err)
	switch code {
	case types.ProviderCodeUnrecognizedChain:
		g.logger.Info("chain unknown to wallet, adding it", map[string]any{"chainId": g.required.ID.String()})
		if err := g.addAndSwitch(ctx); err != nil {
			return SwitchResult{}, err
		}
		return SwitchResult{Added: true}, nil
	case types.ProviderCodeUserRejected:
		return SwitchResult{}, &types.MintError{
			Kind:    types.ErrorKindUserRejected,
			Message: "Network switch was rejected in your wallet.",
			Err:     err,
		}
	default:
		g.logger.Warn("network switch failed", map[string]any{"error": err})
		return SwitchResult{}, &types.MintError{
			Kind:    types.ErrorKindSwitchFailed,
			Message: "Failed to switch network in your wallet.",
			Err:     err,
		}
	}
}

func (g *Gate) addAndSwitch(ctx context.Context) error {
	err := g.provider.AddChain(ctx, g.required)
	if err == nil {
		err = g.provider.SwitchChain(ctx, g.required.ID)
	}
	if err != nil {
		g.logger.Warn("adding chain failed", map[string]any{"chainId": g.required.ID.String(), "error": err})
		return &types.MintError{
			Kind:    types.ErrorKindChainUnregistered,
			Message: fmt.Sprintf("Failed to add %s network to your wallet. Please add it manually.", g.required.Name),
			Err:     err,
		}
	}
	return nil
}
