// Package orchestrator drives the mint flow: it reconciles the wallet session,
// the required network, humanity verification and the on-chain quota into a
// single primary action and submits the mint transaction.
package orchestrator

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/ticketmint/classifier"
	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/network"
	"github.com/vitwit/ticketmint/quota"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/verification"
)

const defaultMaxQuantity = 10

// Portal opens the external verification flow.
type Portal interface {
	Open(url string) error
}

// PortalFunc adapts a function to Portal.
type PortalFunc func(url string) error

func (f PortalFunc) Open(url string) error {
	return f(url)
}

var _ clients.Listener = (*Orchestrator)(nil)

// Orchestrator owns the session state. Its methods are safe for concurrent
// use; wallet notifications may arrive on any goroutine.
type Orchestrator struct {
	provider  clients.Provider
	sale      clients.SaleContract
	gate      *network.Gate
	verifier  *verification.Verifier
	portal    Portal
	portalURL string
	logger    logger.Logger
	metrics   metrics.Recorder

	mu          sync.Mutex
	session     *types.WalletSession
	epoch       uint64
	saleConfig  *types.SaleConfig
	wallet      types.WalletMintState
	quantity    uint64
	maxQuantity uint64
	minting     bool
	acting      bool
	loading     int
	banner      Banner
	autoConnect bool
	closed      bool
	unsubscribe func()

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics.OrNoop(r)
	}
}

// WithPortal sets how the verification portal at url is opened.
func WithPortal(p Portal, url string) Option {
	return func(o *Orchestrator) {
		o.portal = p
		o.portalURL = url
	}
}

// WithMaxQuantity bounds the quantity while the contract's maxPerTx is unknown.
func WithMaxQuantity(n uint64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxQuantity = n
		}
	}
}

// WithAutoConnect controls whether Start restores an already-authorized account.
func WithAutoConnect(enabled bool) Option {
	return func(o *Orchestrator) {
		o.autoConnect = enabled
	}
}

// New creates an orchestrator. provider may be nil, in which case every
// wallet action fails with ErrorKindProviderUnavailable.
func New(provider clients.Provider, sale clients.SaleContract, gate *network.Gate, verifier *verification.Verifier, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		provider:    provider,
		sale:        sale,
		gate:        gate,
		verifier:    verifier,
		logger:      logger.NoopLogger{},
		metrics:     metrics.NoopRecorder{},
		quantity:    1,
		maxQuantity: defaultMaxQuantity,
		autoConnect: true,
		bgCtx:       ctx,
		bgCancel:    cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start registers for wallet notifications and, when auto-connect is enabled,
// restores a session for an account the wallet has already exposed.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.provider == nil {
		return nil
	}

	o.mu.Lock()
	if o.unsubscribe == nil && !o.closed {
		o.unsubscribe = o.provider.Subscribe(o)
	}
	auto := o.autoConnect
	o.mu.Unlock()

	if !auto {
		return nil
	}

	accounts, err := o.provider.Accounts(ctx)
	if err != nil {
		o.logger.Warn("could not read authorized accounts", map[string]any{"error": err})
		return classifier.Wrap(err)
	}
	if len(accounts) == 0 {
		return nil
	}

	chainID, err := o.provider.ChainID(ctx)
	if err != nil {
		o.logger.Warn("could not read chain id", map[string]any{"error": err})
	}

	epoch := o.beginSession(accounts[0], chainID)
	o.logger.Info("restored wallet session", map[string]any{"address": accounts[0].Hex(), "chainId": chainID})
	o.refreshAll(ctx, epoch, accounts[0])
	return nil
}

// Close deregisters the wallet listener and waits for background refreshes.
// The orchestrator cannot be restarted.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.closed = true
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	o.bgCancel()
	o.bg.Wait()
}

// WaitForRefresh blocks until refreshes triggered by wallet notifications finish.
func (o *Orchestrator) WaitForRefresh() {
	o.bg.Wait()
}

// Connect requests wallet access and loads sale data and verification for the
// first account.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.clearBanner()

	if o.provider == nil {
		return o.reportError(types.NewMintError(types.ErrorKindProviderUnavailable,
			"No wallet found. Configure a wallet to mint."))
	}

	accounts, err := o.provider.RequestAccounts(ctx)
	if err != nil {
		o.metrics.IncCounter("connect", map[string]string{"outcome": metrics.OutcomeFailure})
		return o.reportError(connectError(err))
	}
	if len(accounts) == 0 {
		return o.reportError(types.NewMintError(types.ErrorKindProviderUnavailable, "Wallet returned no accounts."))
	}

	chainID, err := o.provider.ChainID(ctx)
	if err != nil {
		return o.reportError(connectError(err))
	}

	o.mu.Lock()
	o.autoConnect = true
	o.mu.Unlock()

	epoch := o.beginSession(accounts[0], chainID)
	o.metrics.IncCounter("connect", map[string]string{"outcome": metrics.OutcomeSuccess})
	o.logger.Info("wallet connected", map[string]any{"address": accounts[0].Hex(), "chainId": chainID})

	o.refreshAll(ctx, epoch, accounts[0])
	return nil
}

func connectError(err error) *types.MintError {
	if classifier.Classify(err) == types.ErrorKindUserRejected {
		return &types.MintError{
			Kind:    types.ErrorKindUserRejected,
			Message: "Connection request was rejected in your wallet.",
			Err:     err,
		}
	}
	return &types.MintError{Kind: types.ErrorKindUnknown, Message: "Failed to connect wallet.", Err: err}
}

// Disconnect drops the session and disables auto-connect until the next
// explicit Connect.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.session = nil
	o.epoch++
	o.wallet = types.WalletMintState{}
	o.banner.clear()
	o.autoConnect = false
	o.verifier.Reset()
}

// AccountsChanged implements clients.Listener.
func (o *Orchestrator) AccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		o.mu.Lock()
		o.session = nil
		o.epoch++
		o.wallet = types.WalletMintState{}
		o.verifier.Reset()
		o.mu.Unlock()
		o.logger.Info("wallet disconnected", nil)
		return
	}

	addr := accounts[0]
	o.mu.Lock()
	if o.session != nil && o.session.Address == addr {
		o.mu.Unlock()
		return
	}
	chainID := ""
	if o.session != nil {
		chainID = o.session.ChainID
	}
	epoch := o.beginSessionLocked(addr, chainID)
	o.mu.Unlock()

	o.logger.Info("active account changed", map[string]any{"address": addr.Hex()})
	o.spawn(func(ctx context.Context) {
		if chainID == "" {
			if cid, err := o.provider.ChainID(ctx); err == nil {
				o.applyIfCurrent(epoch, func() { o.session.ChainID = cid })
			}
		}
		o.refreshAll(ctx, epoch, addr)
	})
}

// ChainChanged implements clients.Listener.
func (o *Orchestrator) ChainChanged(chainID string) {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return
	}
	if o.session.ChainID == chainID {
		o.mu.Unlock()
		return
	}
	addr := o.session.Address
	epoch := o.beginSessionLocked(addr, chainID)
	o.mu.Unlock()

	o.logger.Info("chain changed", map[string]any{"chainId": chainID})
	o.spawn(func(ctx context.Context) {
		o.refreshAll(ctx, epoch, addr)
	})
}

func (o *Orchestrator) beginSession(addr common.Address, chainID string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.beginSessionLocked(addr, chainID)
}

// beginSessionLocked installs a session and invalidates everything read for
// the previous one. It returns the new epoch.
func (o *Orchestrator) beginSessionLocked(addr common.Address, chainID string) uint64 {
	o.session = &types.WalletSession{Address: addr, ChainID: chainID}
	o.epoch++
	o.wallet = types.WalletMintState{}
	o.verifier.Invalidate(addr)
	return o.epoch
}

// applyIfCurrent runs fn under the lock only if no session change happened
// since epoch was taken.
func (o *Orchestrator) applyIfCurrent(epoch uint64, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch || o.session == nil {
		return false
	}
	fn()
	return true
}

// spawn runs fn in the background, counted as a data load.
func (o *Orchestrator) spawn(fn func(ctx context.Context)) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.loading++
	o.bg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.bg.Done()
		defer o.endLoad()
		fn(o.bgCtx)
	}()
}

func (o *Orchestrator) beginLoad() {
	o.mu.Lock()
	o.loading++
	o.mu.Unlock()
}

func (o *Orchestrator) endLoad() {
	o.mu.Lock()
	o.loading--
	o.mu.Unlock()
}

// busyLocked reports whether the primary action must stay disabled.
func (o *Orchestrator) busyLocked() bool {
	if o.minting || o.acting || o.loading > 0 {
		return true
	}
	return o.session != nil && o.verifier.Checking(o.session.Address)
}

// SetQuantity clamps n to [1, maxPerTx] and returns the stored quantity.
func (o *Orchestrator) SetQuantity(n uint64) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quantity = quota.Clamp(n, o.maxQuantityLocked())
	return o.quantity
}

func (o *Orchestrator) Quantity() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quantity
}

func (o *Orchestrator) maxQuantityLocked() uint64 {
	if o.saleConfig != nil && o.saleConfig.MaxPerTransaction > 0 {
		return o.saleConfig.MaxPerTransaction
	}
	return o.maxQuantity
}

// Session returns a copy of the current session, or nil.
func (o *Orchestrator) Session() *types.WalletSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	s := *o.session
	return &s
}

// SaleConfig returns a copy of the last sale configuration read, or nil.
func (o *Orchestrator) SaleConfig() *types.SaleConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.saleConfig.Clone()
}

// WalletState returns the last per-address state read.
func (o *Orchestrator) WalletState() types.WalletMintState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wallet
}
