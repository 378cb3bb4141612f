package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

var _ Provider = (*KeyWallet)(nil)

// KeyWallet is a local wallet holding private keys. It behaves like a browser
// wallet extension: accounts are exposed only after approval, it keeps a
// registry of chains it can switch to, and it notifies listeners when the
// active account or chain changes.
type KeyWallet struct {
	approver Approver
	logger   logger.Logger

	mu        sync.RWMutex
	keys      []*ecdsa.PrivateKey
	active    int
	connected bool
	chains    map[types.ChainID]types.ChainDescriptor
	current   types.ChainID
	clients   map[types.ChainID]*ethclient.Client

	lmu       sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

type WalletOption func(*KeyWallet)

// WithApprover sets who confirms wallet prompts. The default approves everything.
func WithApprover(a Approver) WalletOption {
	return func(w *KeyWallet) {
		w.approver = a
	}
}

func WithWalletLogger(l logger.Logger) WalletOption {
	return func(w *KeyWallet) {
		w.logger = logger.OrNoop(l)
	}
}

// WithKnownChains pre-registers chains the wallet may switch to.
func WithKnownChains(chains ...types.ChainDescriptor) WalletOption {
	return func(w *KeyWallet) {
		for _, c := range chains {
			w.chains[c.ID] = c
		}
	}
}

// NewKeyWallet connects to the RPC endpoint of initial and returns a wallet
// whose first key is the active account.
func NewKeyWallet(ctx context.Context, keys []*ecdsa.PrivateKey, initial types.ChainDescriptor, opts ...WalletOption) (*KeyWallet, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one private key is required")
	}

	w := &KeyWallet{
		approver:  AutoApprove,
		logger:    logger.NoopLogger{},
		keys:      keys,
		chains:    map[types.ChainID]types.ChainDescriptor{initial.ID: initial},
		clients:   make(map[types.ChainID]*ethclient.Client),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(w)
	}

	client, err := dialChain(ctx, initial)
	if err != nil {
		return nil, err
	}
	w.clients[initial.ID] = client
	w.current = initial.ID

	return w, nil
}

func dialChain(ctx context.Context, chain types.ChainDescriptor) (*ethclient.Client, error) {
	url := chain.RPCURL()
	if url == "" {
		return nil, fmt.Errorf("chain %s has no RPC endpoint", chain.Name)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", chain.Name, err)
	}

	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id from %s: %w", url, err)
	}
	if !remote.IsUint64() || remote.Uint64() != uint64(chain.ID) {
		client.Close()
		return nil, fmt.Errorf("RPC %s serves chain %s, expected %s", url, remote, chain.ID)
	}
	return client, nil
}

// RequestAccounts implements Provider.
func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	w.mu.RLock()
	connected := w.connected
	w.mu.RUnlock()

	if !connected {
		if !w.approver.Approve(ctx, ApprovalRequest{
			Method:  "eth_requestAccounts",
			Summary: fmt.Sprintf("connect %s", w.activeAddress().Hex()),
		}) {
			return nil, errUserRejected("eth_requestAccounts")
		}
		w.mu.Lock()
		w.connected = true
		w.mu.Unlock()
	}

	return w.Accounts(ctx)
}

// Accounts implements Provider.
func (w *KeyWallet) Accounts(context.Context) ([]common.Address, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.connected {
		return []common.Address{}, nil
	}
	return w.accountsLocked(), nil
}

func (w *KeyWallet) accountsLocked() []common.Address {
	out := make([]common.Address, 0, len(w.keys))
	out = append(out, crypto.PubkeyToAddress(w.keys[w.active].PublicKey))
	for i, k := range w.keys {
		if i != w.active {
			out = append(out, crypto.PubkeyToAddress(k.PublicKey))
		}
	}
	return out
}

func (w *KeyWallet) activeAddress() common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return crypto.PubkeyToAddress(w.keys[w.active].PublicKey)
}

// ChainID implements Provider. The id is hex encoded, like browser wallets do.
func (w *KeyWallet) ChainID(context.Context) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Hex(), nil
}

// SwitchChain implements Provider. Unknown chains fail with code 4902.
func (w *KeyWallet) SwitchChain(ctx context.Context, id types.ChainID) error {
	w.mu.RLock()
	chain, known := w.chains[id]
	current := w.current
	client := w.clients[id]
	w.mu.RUnlock()

	if id == current {
		return nil
	}
	if !known {
		return errUnrecognizedChain(id)
	}
	if !w.approver.Approve(ctx, ApprovalRequest{
		Method:  "wallet_switchEthereumChain",
		Summary: fmt.Sprintf("switch to %s (%s)", chain.Name, id),
	}) {
		return errUserRejected("wallet_switchEthereumChain")
	}

	if client == nil {
		c, err := dialChain(ctx, chain)
		if err != nil {
			return errInternal(fmt.Sprintf("could not reach %s", chain.Name), err)
		}
		client = c
	}

	w.mu.Lock()
	if existing, ok := w.clients[id]; ok && existing != client {
		client.Close()
	} else {
		w.clients[id] = client
	}
	w.current = id
	w.mu.Unlock()

	w.logger.Info("switched chain", map[string]any{"chainId": id.String(), "chain": chain.Name})
	w.notifyChain(id.Hex())
	return nil
}

// AddChain implements Provider.
func (w *KeyWallet) AddChain(ctx context.Context, chain types.ChainDescriptor) error {
	if err := utils.ValidateChain(chain); err != nil {
		return &types.ProviderError{Code: -32602, Message: err.Error()}
	}
	if !w.approver.Approve(ctx, ApprovalRequest{
		Method:  "wallet_addEthereumChain",
		Summary: fmt.Sprintf("add %s (%s) via %s", chain.Name, chain.ID, chain.RPCURL()),
	}) {
		return errUserRejected("wallet_addEthereumChain")
	}

	w.mu.Lock()
	w.chains[chain.ID] = chain
	w.mu.Unlock()

	w.logger.Info("registered chain", map[string]any{"chainId": chain.ID.String(), "chain": chain.Name})
	return nil
}

// BalanceAt implements Provider.
func (w *KeyWallet) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return w.Backend().BalanceAt(ctx, account, nil)
}

// Subscribe implements Provider.
func (w *KeyWallet) Subscribe(l Listener) func() {
	w.lmu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	w.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.lmu.Lock()
			delete(w.listeners, id)
			w.lmu.Unlock()
		})
	}
}

// SelectAccount makes addr the active account and notifies listeners.
func (w *KeyWallet) SelectAccount(addr common.Address) error {
	w.mu.Lock()
	idx := -1
	for i, k := range w.keys {
		if crypto.PubkeyToAddress(k.PublicKey) == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return fmt.Errorf("account %s is not in this wallet", addr.Hex())
	}
	w.active = idx
	connected := w.connected
	accounts := w.accountsLocked()
	w.mu.Unlock()

	if connected {
		w.notifyAccounts(accounts)
	}
	return nil
}

// Revoke withdraws account access, as when the user disconnects the site in
// their wallet. Listeners receive an empty account list.
func (w *KeyWallet) Revoke() {
	w.mu.Lock()
	was := w.connected
	w.connected = false
	w.mu.Unlock()

	if was {
		w.notifyAccounts([]common.Address{})
	}
}

// Backend returns the RPC client of the current chain.
func (w *KeyWallet) Backend() *ethclient.Client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clients[w.current]
}

// TransactOpts returns signing options for from on the current chain. Every
// signature is confirmed through the Approver.
func (w *KeyWallet) TransactOpts(ctx context.Context, from common.Address, value *big.Int) (*bind.TransactOpts, error) {
	w.mu.RLock()
	connected := w.connected
	chainID := new(big.Int).SetUint64(uint64(w.current))
	var key *ecdsa.PrivateKey
	for _, k := range w.keys {
		if crypto.PubkeyToAddress(k.PublicKey) == from {
			key = k
			break
		}
	}
	w.mu.RUnlock()

	if !connected || key == nil {
		return nil, errUnauthorized("eth_sendTransaction")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	sign := opts.Signer
	opts.Signer = func(addr common.Address, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
		to := "contract creation"
		if tx.To() != nil {
			to = tx.To().Hex()
		}
		if !w.approver.Approve(ctx, ApprovalRequest{
			Method:  "eth_sendTransaction",
			Summary: fmt.Sprintf("send %s wei to %s (gas %d)", tx.Value(), to, tx.Gas()),
		}) {
			return nil, errUserRejected("eth_sendTransaction")
		}
		return sign(addr, tx)
	}
	return opts, nil
}

// Close closes every RPC connection.
func (w *KeyWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, c := range w.clients {
		c.Close()
		delete(w.clients, id)
	}
}

func (w *KeyWallet) snapshotListeners() []Listener {
	w.lmu.Lock()
	defer w.lmu.Unlock()
	out := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		out = append(out, l)
	}
	return out
}

func (w *KeyWallet) notifyAccounts(accounts []common.Address) {
	for _, l := range w.snapshotListeners() {
		l.AccountsChanged(accounts)
	}
}

func (w *KeyWallet) notifyChain(chainID string) {
	for _, l := range w.snapshotListeners() {
		l.ChainChanged(chainID)
	}
}
