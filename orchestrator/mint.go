package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/ticketmint/classifier"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/quota"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

const mintSuccessMessage = "Mint successful!"

// Action is what the primary action does in the current state.
type Action int

const (
	ActionConnect Action = iota
	ActionSwitchNetwork
	ActionVerify
	ActionMint
)

func (a Action) String() string {
	switch a {
	case ActionConnect:
		return "connect"
	case ActionSwitchNetwork:
		return "switch-network"
	case ActionVerify:
		return "verify"
	case ActionMint:
		return "mint"
	default:
		return "unknown"
	}
}

// ActionResult describes a completed primary action.
type ActionResult struct {
	Action  Action             `json:"action"`
	Message string             `json:"message,omitempty"`
	Added   bool               `json:"networkAdded,omitempty"`
	Receipt *types.MintReceipt `json:"receipt,omitempty"`
}

// PrimaryAction performs the single next step toward a mint: connect, switch
// network, open verification or mint. It fails with ErrorKindBusy while
// another action, a mint or a data load is in flight.
func (o *Orchestrator) PrimaryAction(ctx context.Context) (*ActionResult, error) {
	o.mu.Lock()
	if o.busyLocked() {
		o.mu.Unlock()
		return nil, classifier.Error(types.ErrorKindBusy)
	}
	action := o.nextActionLocked()
	o.acting = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.acting = false
		o.mu.Unlock()
	}()

	o.logger.Debug("primary action", map[string]any{"action": action.String()})

	switch action {
	case ActionConnect:
		if err := o.Connect(ctx); err != nil {
			return nil, err
		}
		return &ActionResult{Action: ActionConnect}, nil
	case ActionSwitchNetwork:
		return o.SwitchNetwork(ctx)
	case ActionVerify:
		return o.OpenVerificationPortal()
	default:
		receipt, err := o.Mint(ctx)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Action: ActionMint, Message: mintSuccessMessage, Receipt: receipt}, nil
	}
}

func (o *Orchestrator) nextActionLocked() Action {
	switch {
	case o.session == nil:
		return ActionConnect
	case !o.gate.IsOnRequiredNetwork(o.session.ChainID):
		return ActionSwitchNetwork
	case o.verifier.Status(o.session.Address) == types.VerificationRejected:
		return ActionVerify
	default:
		return ActionMint
	}
}

// SwitchNetwork moves the wallet to the sale chain, registering it first if
// the wallet does not know it, and reloads data for the session.
func (o *Orchestrator) SwitchNetwork(ctx context.Context) (*ActionResult, error) {
	o.clearBanner()

	start := time.Now()
	res, err := o.gate.EnsureNetwork(ctx)
	metrics.Since(o.metrics, "network_switch", start, err)
	if err != nil {
		o.logger.Warn("network switch failed", map[string]any{"error": err})
		return nil, o.reportError(classifier.Wrap(err))
	}

	name := o.gate.Required().Name
	msg := fmt.Sprintf("Switched to %s network.", name)
	if res.Added {
		msg = fmt.Sprintf("%s network added and switched in your wallet.", name)
	}

	// Wallets that notify synchronously have already updated the session.
	if o.provider != nil {
		if chainID, err := o.provider.ChainID(ctx); err == nil {
			o.mu.Lock()
			var (
				epoch   uint64
				addr    common.Address
				changed bool
			)
			if o.session != nil && o.session.ChainID != chainID {
				addr = o.session.Address
				epoch = o.beginSessionLocked(addr, chainID)
				changed = true
			}
			o.mu.Unlock()
			if changed {
				_ = o.refreshAll(ctx, epoch, addr)
			}
		}
	}

	o.setSuccess(msg)
	return &ActionResult{Action: ActionSwitchNetwork, Message: msg, Added: res.Added}, nil
}

// OpenVerificationPortal sends the user to the external verification flow.
func (o *Orchestrator) OpenVerificationPortal() (*ActionResult, error) {
	if o.portalURL == "" {
		return nil, o.reportError(types.NewMintError(types.ErrorKindUnknown, "No verification portal is configured."))
	}
	if o.portal != nil {
		if err := o.portal.Open(o.portalURL); err != nil {
			return nil, o.reportError(&types.MintError{
				Kind:    types.ErrorKindUnknown,
				Message: "Could not open the verification portal.",
				Err:     err,
			})
		}
	}
	return &ActionResult{
		Action:  ActionVerify,
		Message: fmt.Sprintf("Complete Proof of Humanity at %s, then refresh.", o.portalURL),
	}, nil
}

// Mint submits a mint for the selected quantity. The free/paid split is
// recomputed from a fresh read right before submission; the value attached is
// exactly unit price times the paid units.
func (o *Orchestrator) Mint(ctx context.Context) (*types.MintReceipt, error) {
	o.mu.Lock()
	if o.minting {
		o.mu.Unlock()
		return nil, classifier.Error(types.ErrorKindBusy)
	}
	if err := o.mintPreconditionsLocked(); err != nil {
		o.banner.setError(err.Message)
		o.mu.Unlock()
		return nil, err
	}
	addr := o.session.Address
	qty := o.quantity
	price := new(big.Int).Set(o.saleConfig.UnitPrice)
	epoch := o.epoch
	o.minting = true
	o.banner.clear()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.minting = false
		o.mu.Unlock()
	}()

	start := time.Now()
	receipt, err := o.submitMint(ctx, addr, qty, price)
	metrics.Since(o.metrics, "mint", start, err)
	if err != nil {
		me := classifier.Wrap(err)
		o.metrics.IncCounter("mint", map[string]string{"outcome": metrics.OutcomeFailure})
		o.logger.Warn("mint failed", map[string]any{
			"address":  addr.Hex(),
			"quantity": qty,
			"kind":     string(me.Kind),
			"error":    err,
		})
		o.reportError(me)
		o.refreshWallet(ctx, epoch, addr)
		return nil, me
	}

	o.metrics.IncCounter("mint", map[string]string{"outcome": metrics.OutcomeSuccess})
	o.logger.Info("mint confirmed", map[string]any{
		"address": addr.Hex(),
		"txHash":  receipt.TxHash.Hex(),
		"free":    receipt.FreeUsed,
		"paid":    receipt.PaidUsed,
	})
	o.setSuccess(mintSuccessMessage)
	_ = o.loadSaleData(ctx, epoch, addr)
	return receipt, nil
}

func (o *Orchestrator) mintPreconditionsLocked() *types.MintError {
	if o.session == nil {
		return classifier.Error(types.ErrorKindNotConnected)
	}
	if !o.gate.IsOnRequiredNetwork(o.session.ChainID) {
		return types.NewMintError(types.ErrorKindWrongNetwork, "Please switch your wallet to %s.", o.gate.Required().Name)
	}
	addr := o.session.Address
	switch {
	case o.verifier.Checking(addr):
		return classifier.Error(types.ErrorKindVerificationPending)
	case o.verifier.Status(addr) == types.VerificationRejected:
		return classifier.Error(types.ErrorKindVerificationRejected)
	case o.verifier.Status(addr) != types.VerificationVerified:
		return types.NewMintError(types.ErrorKindVerificationPending,
			"Proof of Humanity status is not known yet. Refresh and try again.")
	}
	if o.saleConfig == nil || o.saleConfig.UnitPrice == nil {
		return classifier.Error(types.ErrorKindConfigUnavailable)
	}
	if err := utils.ValidateQuantity(o.quantity, o.saleConfig.MaxPerTransaction); err != nil {
		msg := "Quantity must be at least 1."
		if errors.Is(err, utils.ErrQuantityAboveMax) {
			msg = fmt.Sprintf("Max per transaction is %d.", o.saleConfig.MaxPerTransaction)
		}
		return &types.MintError{Kind: types.ErrorKindInvalidQuantity, Message: msg, Err: err}
	}
	return nil
}

func (o *Orchestrator) submitMint(ctx context.Context, addr common.Address, qty uint64, price *big.Int) (*types.MintReceipt, error) {
	free, err := o.sale.PreviewFreeMints(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read free mints: %w", err)
	}
	quote := quota.NewQuote(qty, types.Some(free), price)

	if quote.Paid > 0 && o.provider != nil {
		balance, err := o.provider.BalanceAt(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance: %w", err)
		}
		if balance.Cmp(quote.Value) < 0 {
			cur := o.gate.Required().NativeCurrency
			return nil, types.NewMintError(types.ErrorKindInsufficientFunds,
				"You need more %s: %s required, %s available.",
				cur.Symbol,
				utils.FormatUnits(quote.Value, cur.Decimals),
				utils.FormatUnits(balance, cur.Decimals))
		}
	}

	o.logger.Debug("submitting mint", map[string]any{
		"address":  addr.Hex(),
		"quantity": qty,
		"free":     quote.Free,
		"paid":     quote.Paid,
		"value":    quote.Value.String(),
	})

	tx, err := o.sale.MintTickets(ctx, addr, qty, quote.Value)
	if err != nil {
		return nil, err
	}
	o.logger.Info("mint submitted", map[string]any{"address": addr.Hex(), "txHash": tx.Hash().Hex()})

	rcpt, err := o.sale.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &types.MintReceipt{
		TxHash:      tx.Hash(),
		BlockNumber: rcpt.BlockNumber,
		Quantity:    qty,
		FreeUsed:    quote.Free,
		PaidUsed:    quote.Paid,
		Value:       quote.Value,
	}, nil
}
