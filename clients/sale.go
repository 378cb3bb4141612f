package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const ticketSaleABI = `[
  {"name":"mintPrice","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"maxPerTx","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"maxPerWallet","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"maxSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"ticketsPer24h","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"walletMints","type":"function","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"previewFreeMints","type":"function","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"mintTickets","type":"function","stateMutability":"payable","inputs":[{"name":"quantity","type":"uint256"}],"outputs":[]}
]`

// TransactorSource supplies the RPC backend and signing options for the sale.
// KeyWallet implements it.
type TransactorSource interface {
	Backend() *ethclient.Client
	TransactOpts(ctx context.Context, from common.Address, value *big.Int) (*bind.TransactOpts, error)
}

var _ SaleContract = (*TicketSale)(nil)

// TicketSale calls the ticket sale contract through the wallet's current chain.
type TicketSale struct {
	address common.Address
	abi     abi.ABI
	source  TransactorSource
}

func NewTicketSale(address common.Address, source TransactorSource) (*TicketSale, error) {
	parsed, err := abi.JSON(strings.NewReader(ticketSaleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticket sale ABI: %w", err)
	}
	return &TicketSale{
		address: address,
		abi:     parsed,
		source:  source,
	}, nil
}

// Address returns the contract address.
func (t *TicketSale) Address() common.Address {
	return t.address
}

func (t *TicketSale) contract() (*bind.BoundContract, error) {
	backend := t.source.Backend()
	if backend == nil {
		return nil, fmt.Errorf("no RPC backend for ticket sale %s", t.address.Hex())
	}
	return bind.NewBoundContract(t.address, t.abi, backend, backend, backend), nil
}

func (t *TicketSale) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	c, err := t.contract()
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (t *TicketSale) callUint(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	v, err := t.callBig(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s: value %s overflows uint64", method, v)
	}
	return v.Uint64(), nil
}

func (t *TicketSale) MintPrice(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, "mintPrice")
}

func (t *TicketSale) MaxPerTx(ctx context.Context) (uint64, error) {
	return t.callUint(ctx, "maxPerTx")
}

func (t *TicketSale) MaxPerWallet(ctx context.Context) (uint64, error) {
	return t.callUint(ctx, "maxPerWallet")
}

func (t *TicketSale) MaxSupply(ctx context.Context) (uint64, error) {
	return t.callUint(ctx, "maxSupply")
}

func (t *TicketSale) TotalSupply(ctx context.Context) (uint64, error) {
	return t.callUint(ctx, "totalSupply")
}

// TicketsPerWindow reads the rolling 24h cap across all wallets.
func (t *TicketSale) TicketsPerWindow(ctx context.Context) (uint64, error) {
	return t.callUint(ctx, "ticketsPer24h")
}

func (t *TicketSale) WalletMints(ctx context.Context, account common.Address) (uint64, error) {
	return t.callUint(ctx, "walletMints", account)
}

func (t *TicketSale) PreviewFreeMints(ctx context.Context, account common.Address) (uint64, error) {
	return t.callUint(ctx, "previewFreeMints", account)
}

// MintTickets implements SaleContract.
func (t *TicketSale) MintTickets(ctx context.Context, from common.Address, quantity uint64, value *big.Int) (*gethtypes.Transaction, error) {
	c, err := t.contract()
	if err != nil {
		return nil, err
	}
	opts, err := t.source.TransactOpts(ctx, from, value)
	if err != nil {
		return nil, err
	}

	tx, err := c.Transact(opts, "mintTickets", new(big.Int).SetUint64(quantity))
	if err != nil {
		return nil, fmt.Errorf("mintTickets: %w", err)
	}
	return tx, nil
}

// WaitMined implements SaleContract.
func (t *TicketSale) WaitMined(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Receipt, error) {
	backend := t.source.Backend()
	if backend == nil {
		return nil, fmt.Errorf("no RPC backend to wait for %s", tx.Hash().Hex())
	}

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}
