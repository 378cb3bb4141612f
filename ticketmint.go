// Package ticketmint mints tickets from an on-chain sale gated by network
// selection and Proof of Humanity verification.
package ticketmint

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"time"

	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/network"
	"github.com/vitwit/ticketmint/orchestrator"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
	"github.com/vitwit/ticketmint/verification"
)

// TicketMint is the main struct that provides all ticket minting functionality
type TicketMint struct {
	config       *types.Config
	wallet       *clients.KeyWallet
	orchestrator *orchestrator.Orchestrator

	logger      logger.Logger
	metrics     metrics.Recorder
	timeout     time.Duration
	httpClient  *http.Client
	keys        []*ecdsa.PrivateKey
	approver    clients.Approver
	portal      orchestrator.Portal
	walletChain *types.ChainDescriptor
}

// New validates cfg and wires the wallet, the sale contract, the network gate
// and the verifier into an orchestrator. Without keys there is no wallet and
// wallet actions fail with ErrorKindProviderUnavailable.
func New(ctx context.Context, cfg *types.Config, opts ...Option) (*TicketMint, error) {
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	t := &TicketMint{
		config:  cfg,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		timeout: 30 * time.Second,
	}
	if cfg.DefaultTimeout > 0 {
		t.timeout = cfg.DefaultTimeout
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: t.timeout}
	}

	contract, err := utils.ValidateAddress(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}

	var (
		provider clients.Provider
		sale     clients.SaleContract
	)
	if len(t.keys) > 0 {
		wallet, err := t.openWallet(ctx)
		if err != nil {
			return nil, err
		}
		ts, err := clients.NewTicketSale(contract, wallet)
		if err != nil {
			wallet.Close()
			return nil, err
		}
		t.wallet = wallet
		provider, sale = wallet, ts
	} else {
		t.logger.Warn("no wallet keys configured, wallet actions are unavailable", nil)
	}

	gate := network.NewGate(cfg.Chain, provider, t.logger)
	verifier := verification.NewVerifier(cfg.VerificationAPI,
		verification.WithHTTPClient(t.httpClient),
		verification.WithLogger(t.logger),
		verification.WithMetrics(t.metrics),
	)
	t.orchestrator = orchestrator.New(provider, sale, gate, verifier,
		orchestrator.WithLogger(t.logger),
		orchestrator.WithMetrics(t.metrics),
		orchestrator.WithPortal(t.portal, cfg.VerificationPortal),
		orchestrator.WithMaxQuantity(cfg.MaxQuantity),
		orchestrator.WithAutoConnect(cfg.AutoConnect),
	)
	return t, nil
}

func (t *TicketMint) openWallet(ctx context.Context) (*clients.KeyWallet, error) {
	initial := t.config.Chain
	if t.walletChain != nil {
		initial = *t.walletChain
	}

	walletOpts := []clients.WalletOption{
		clients.WithWalletLogger(t.logger),
		clients.WithKnownChains(t.config.KnownChains...),
	}
	if t.approver != nil {
		walletOpts = append(walletOpts, clients.WithApprover(t.approver))
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	wallet, err := clients.NewKeyWallet(dialCtx, t.keys, initial, walletOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet on %s: %w", initial.Name, err)
	}
	return wallet, nil
}

// Start subscribes to wallet notifications and restores an authorized session.
func (t *TicketMint) Start(ctx context.Context) error {
	return t.orchestrator.Start(ctx)
}

// PrimaryAction performs the next step toward a mint.
func (t *TicketMint) PrimaryAction(ctx context.Context) (*orchestrator.ActionResult, error) {
	return t.orchestrator.PrimaryAction(ctx)
}

func (t *TicketMint) Connect(ctx context.Context) error {
	return t.orchestrator.Connect(ctx)
}

func (t *TicketMint) Disconnect() {
	t.orchestrator.Disconnect()
}

func (t *TicketMint) SwitchNetwork(ctx context.Context) (*orchestrator.ActionResult, error) {
	return t.orchestrator.SwitchNetwork(ctx)
}

func (t *TicketMint) OpenVerificationPortal() (*orchestrator.ActionResult, error) {
	return t.orchestrator.OpenVerificationPortal()
}

// Mint mints the selected quantity.
func (t *TicketMint) Mint(ctx context.Context) (*types.MintReceipt, error) {
	return t.orchestrator.Mint(ctx)
}

// Refresh reloads sale data and verification for the connected account.
func (t *TicketMint) Refresh(ctx context.Context) error {
	return t.orchestrator.Refresh(ctx)
}

// SetQuantity clamps and stores the quantity to mint.
func (t *TicketMint) SetQuantity(n uint64) uint64 {
	return t.orchestrator.SetQuantity(n)
}

// View returns the current derived state.
func (t *TicketMint) View() orchestrator.View {
	return t.orchestrator.View()
}

// WaitForRefresh blocks until refreshes triggered by wallet notifications finish.
func (t *TicketMint) WaitForRefresh() {
	t.orchestrator.WaitForRefresh()
}

// Wallet returns the local wallet, or nil when no keys were configured.
func (t *TicketMint) Wallet() *clients.KeyWallet {
	return t.wallet
}

// Config returns the configuration the client was built with.
func (t *TicketMint) Config() *types.Config {
	return t.config
}

// Close stops the orchestrator and closes all RPC connections
func (t *TicketMint) Close() {
	t.orchestrator.Close()
	if t.wallet != nil {
		t.wallet.Close()
	}
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version": Version,
		"default_chain":   types.LineaMainnet.Name,
		"default_chainId": types.LineaMainnet.ID.String(),
	}
}
