package orchestrator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/ticketmint/quota"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

// State is the derived state of the mint flow.
type State int

const (
	StateDisconnected State = iota
	StateWrongNetwork
	StateUnverified
	StateVerifying
	StateReady
	StateMinting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateWrongNetwork:
		return "wrong-network"
	case StateUnverified:
		return "unverified"
	case StateVerifying:
		return "verifying"
	case StateReady:
		return "ready"
	case StateMinting:
		return "minting"
	default:
		return "unknown"
	}
}

// View is a consistent snapshot of everything a front end renders.
type View struct {
	State State `json:"state"`

	Action         Action `json:"action"`
	PrimaryLabel   string `json:"primaryLabel"`
	PrimaryEnabled bool   `json:"primaryEnabled"`

	// ShowSwitchNetwork is set when a dedicated switch control should be
	// offered next to the primary action.
	ShowSwitchNetwork bool `json:"showSwitchNetwork"`

	Connected    bool           `json:"connected"`
	Address      common.Address `json:"address"`
	AddressLabel string         `json:"addressLabel"`

	OnRequiredNetwork bool   `json:"onRequiredNetwork"`
	NetworkLabel      string `json:"networkLabel"`

	Verification      types.VerificationStatus `json:"verification"`
	VerificationLabel string                   `json:"verificationLabel"`

	Sale           *types.SaleConfig     `json:"sale,omitempty"`
	Wallet         types.WalletMintState `json:"wallet"`
	FreeMintsLabel string                `json:"freeMintsLabel"`
	SoldOut        bool                  `json:"soldOut"`

	Quantity    uint64      `json:"quantity"`
	MaxQuantity uint64      `json:"maxQuantity"`
	Quote       quota.Quote `json:"quote"`
	PriceLabel  string      `json:"priceLabel"`
	CostLabel   string      `json:"costLabel"`

	Banner Banner `json:"banner"`
}

// View derives the current view. It never blocks on I/O.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	required := o.gate.Required()
	cur := required.NativeCurrency

	v := View{
		Sale:        o.saleConfig.Clone(),
		Wallet:      o.wallet,
		SoldOut:     o.saleConfig.SoldOut(),
		Quantity:    o.quantity,
		MaxQuantity: o.maxQuantityLocked(),
		Banner:      o.banner,
		Action:      o.nextActionLocked(),
	}

	price := unitPrice(o.saleConfig)
	v.Quote = quota.NewQuote(o.quantity, o.wallet.FreeRemaining, price)
	v.PriceLabel = fmt.Sprintf("%s %s", utils.FormatUnits(price, cur.Decimals), cur.Symbol)
	if v.Quote.Value == nil {
		v.CostLabel = fmt.Sprintf("0 %s", cur.Symbol)
	} else {
		v.CostLabel = fmt.Sprintf("%s %s", utils.FormatUnits(v.Quote.Value, cur.Decimals), cur.Symbol)
	}

	if free, ok := o.wallet.FreeRemaining.Get(); ok {
		v.FreeMintsLabel = fmt.Sprintf("%d remaining", free)
	} else {
		v.FreeMintsLabel = "Checking free mints..."
	}

	if o.session == nil {
		v.State = StateDisconnected
		v.AddressLabel = "Not connected"
		v.NetworkLabel = "-"
		v.PrimaryLabel = "Connect Wallet"
		v.PrimaryEnabled = !o.busyLocked()
		return v
	}

	addr := o.session.Address
	v.Connected = true
	v.Address = addr
	v.AddressLabel = "Connected: " + utils.ShortAddress(addr)
	v.OnRequiredNetwork = o.gate.IsOnRequiredNetwork(o.session.ChainID)
	v.Verification = o.verifier.Status(addr)
	checking := o.verifier.Checking(addr)

	if v.OnRequiredNetwork {
		v.NetworkLabel = required.Name
	} else {
		v.NetworkLabel = "Wrong Network"
		v.ShowSwitchNetwork = true
	}

	switch {
	case checking:
		v.VerificationLabel = "Checking..."
	case v.Verification == types.VerificationVerified:
		v.VerificationLabel = "Verified"
	case v.Verification == types.VerificationRejected:
		v.VerificationLabel = "Not verified – required to mint"
	default:
		v.VerificationLabel = "Unknown"
	}

	switch {
	case !v.OnRequiredNetwork:
		v.State = StateWrongNetwork
	case o.minting:
		v.State = StateMinting
	case checking:
		v.State = StateVerifying
	case v.Verification == types.VerificationVerified:
		v.State = StateReady
	default:
		v.State = StateUnverified
	}

	switch {
	case !v.OnRequiredNetwork:
		v.PrimaryLabel = fmt.Sprintf("Switch to %s", required.Name)
	case checking:
		v.PrimaryLabel = "Checking verification…"
	case v.Verification == types.VerificationRejected:
		v.PrimaryLabel = "Verify humanity"
	case o.minting:
		v.PrimaryLabel = "Minting..."
	default:
		v.PrimaryLabel = "Mint Tickets"
	}
	v.PrimaryEnabled = !o.busyLocked()

	return v
}

func unitPrice(c *types.SaleConfig) *big.Int {
	if c == nil {
		return nil
	}
	return c.UnitPrice
}
