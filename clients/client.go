package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/ticketmint/types"
)

// Provider is the wallet capability set: account access, chain selection,
// balances and change notifications. Errors follow EIP-1193 and are returned as
// *types.ProviderError where the wallet decides the outcome.
type Provider interface {
	// RequestAccounts asks the user to expose accounts. The first account is the active one.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already-exposed accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// ChainID returns the current chain id in the wallet's own representation.
	ChainID(ctx context.Context) (string, error)
	SwitchChain(ctx context.Context, id types.ChainID) error
	AddChain(ctx context.Context, chain types.ChainDescriptor) error
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	// Subscribe registers l for change notifications until unsubscribe is called.
	Subscribe(l Listener) (unsubscribe func())
}

// Listener receives wallet change notifications.
type Listener interface {
	AccountsChanged(accounts []common.Address)
	ChainChanged(chainID string)
}

// SaleContract is the ticket sale contract. Reads have no side effects.
type SaleContract interface {
	MintPrice(ctx context.Context) (*big.Int, error)
	MaxPerTx(ctx context.Context) (uint64, error)
	MaxPerWallet(ctx context.Context) (uint64, error)
	MaxSupply(ctx context.Context) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	TicketsPerWindow(ctx context.Context) (uint64, error)
	WalletMints(ctx context.Context, account common.Address) (uint64, error)
	PreviewFreeMints(ctx context.Context, account common.Address) (uint64, error)

	// MintTickets signs and submits mintTickets(quantity) with value attached.
	MintTickets(ctx context.Context, from common.Address, quantity uint64, value *big.Int) (*gethtypes.Transaction, error)
	// WaitMined blocks until tx is included and fails if it reverted.
	WaitMined(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Receipt, error)
}

// ApprovalRequest describes an action the wallet asks its user to confirm.
type ApprovalRequest struct {
	Method  string
	Summary string
}

// Approver confirms wallet actions on behalf of the user.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) bool
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) bool

func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) bool {
	return f(ctx, req)
}

// AutoApprove approves every request.
var AutoApprove = ApproverFunc(func(context.Context, ApprovalRequest) bool { return true })
