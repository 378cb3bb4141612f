package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/vitwit/ticketmint/types"
)

var validate = validator.New()

// ValidateConfig checks a client configuration using its struct tags.
func ValidateConfig(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateChain checks a chain descriptor before it is registered with a wallet.
func ValidateChain(chain types.ChainDescriptor) error {
	if err := validate.Struct(chain); err != nil {
		return fmt.Errorf("invalid chain %q: %w", chain.Name, err)
	}
	return nil
}

// ValidateAddress checks that address is a 0x-prefixed 20-byte hex string.
func ValidateAddress(address string) (common.Address, error) {
	if address == "" {
		return common.Address{}, fmt.Errorf("address cannot be empty")
	}
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return common.Address{}, fmt.Errorf("address must start with 0x")
	}
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid EVM address %q", address)
	}
	return common.HexToAddress(address), nil
}

var (
	ErrQuantityTooLow   = errors.New("quantity must be at least 1")
	ErrQuantityAboveMax = errors.New("quantity exceeds max per transaction")
)

// ValidateQuantity checks a requested mint quantity against the per-transaction cap.
// A zero cap means the contract does not enforce one.
func ValidateQuantity(quantity, maxPerTx uint64) error {
	if quantity < 1 {
		return ErrQuantityTooLow
	}
	if maxPerTx > 0 && quantity > maxPerTx {
		return fmt.Errorf("%w: %d > %d", ErrQuantityAboveMax, quantity, maxPerTx)
	}
	return nil
}
