package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletSession is the single connected account and the chain its wallet reports.
type WalletSession struct {
	Address common.Address `json:"address"`

	// ChainID is kept exactly as the provider reported it (hex or decimal).
	ChainID string `json:"chainId"`
}

// VerificationStatus is the humanity-verification result for one address.
type VerificationStatus int

const (
	VerificationUnknown VerificationStatus = iota
	VerificationVerified
	VerificationRejected
)

func (s VerificationStatus) String() string {
	switch s {
	case VerificationVerified:
		return "verified"
	case VerificationRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Optional holds a value that may not have been read yet. The zero value is
// "unknown", which is distinct from a known zero.
type Optional[T any] struct {
	value T
	known bool
}

// Some returns a known value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, known: true}
}

// None returns an unknown value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is known.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.known
}

// Known reports whether the value has been read.
func (o Optional[T]) Known() bool {
	return o.known
}

// SaleConfig is the on-chain configuration of the ticket sale.
type SaleConfig struct {
	// UnitPrice is expressed in wei.
	UnitPrice         *big.Int `json:"unitPrice"`
	MaxPerTransaction uint64   `json:"maxPerTransaction"`
	MaxPerWallet      uint64   `json:"maxPerWallet"`
	MaxSupply         uint64   `json:"maxSupply"`
	TotalSupply       uint64   `json:"totalSupply"`
	PerWindowCap      uint64   `json:"perWindowCap"`
}

// Clone returns a deep copy so callers can't mutate the price.
func (c *SaleConfig) Clone() *SaleConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.UnitPrice != nil {
		out.UnitPrice = new(big.Int).Set(c.UnitPrice)
	}
	return &out
}

// SoldOut reports whether every ticket has been minted.
func (c *SaleConfig) SoldOut() bool {
	return c != nil && c.MaxSupply > 0 && c.TotalSupply >= c.MaxSupply
}

// WalletMintState is the per-address view of the sale.
type WalletMintState struct {
	MintsSoFar    uint64           `json:"mintsSoFar"`
	FreeRemaining Optional[uint64] `json:"-"`
}

// MintReceipt describes a confirmed mint.
type MintReceipt struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber *big.Int    `json:"blockNumber,omitempty"`
	Quantity    uint64      `json:"quantity"`
	FreeUsed    uint64      `json:"freeUsed"`
	PaidUsed    uint64      `json:"paidUsed"`
	Value       *big.Int    `json:"value"`
}

// Config contains the configuration of a ticketmint client.
type Config struct {
	Chain ChainDescriptor `toml:"chain"`

	ContractAddress string `toml:"contract_address" validate:"required,eth_addr"`

	// VerificationAPI is the base URL; the address is appended as a path segment.
	VerificationAPI    string `toml:"verification_api" validate:"required,url"`
	VerificationPortal string `toml:"verification_portal" validate:"required,url"`

	// KnownChains are additional chains the local wallet may switch to
	// without registering them first.
	KnownChains []ChainDescriptor `toml:"known_chains" validate:"dive"`

	// MaxQuantity bounds the quantity stepper while maxPerTx is unknown or zero.
	MaxQuantity uint64 `toml:"max_quantity" validate:"gte=1"`

	DefaultTimeout time.Duration `toml:"default_timeout"`
	LogLevel       string        `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat      string        `toml:"log_format" validate:"omitempty,oneof=json console"`
	EnableMetrics  bool          `toml:"enable_metrics"`
	AutoConnect    bool          `toml:"auto_connect"`
}
