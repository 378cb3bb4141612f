package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/quota"
	"github.com/vitwit/ticketmint/types"
)

const (
	loadFailedMessage         = "Error loading contract data. Check network & contract."
	verificationFailedMessage = "Could not check Proof of Humanity status. Try again shortly."
)

// Refresh reloads sale data and verification for the current session.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return types.NewMintError(types.ErrorKindNotConnected, "Connect your wallet first.")
	}
	epoch := o.epoch
	addr := o.session.Address
	o.mu.Unlock()

	return o.refreshAll(ctx, epoch, addr)
}

// refreshAll loads sale data and checks verification concurrently. Results
// are discarded if the session changed while they were in flight.
func (o *Orchestrator) refreshAll(ctx context.Context, epoch uint64, addr common.Address) error {
	var g errgroup.Group
	g.Go(func() error {
		return o.loadSaleData(ctx, epoch, addr)
	})
	g.Go(func() error {
		return o.checkVerification(ctx, epoch, addr)
	})
	return g.Wait()
}

func (o *Orchestrator) loadSaleData(ctx context.Context, epoch uint64, addr common.Address) error {
	o.beginLoad()
	defer o.endLoad()

	start := time.Now()
	cfg, err := o.readSaleConfig(ctx)
	metrics.Since(o.metrics, "sale_config_load", start, err)
	if err != nil {
		o.logger.Error("failed to load sale configuration", map[string]any{"error": err})
		o.applyIfCurrent(epoch, func() { o.banner.setError(loadFailedMessage) })
		return err
	}

	mints, free, err := o.readWalletState(ctx, addr)
	o.applyIfCurrent(epoch, func() {
		o.saleConfig = cfg
		o.quantity = quota.Clamp(o.quantity, o.maxQuantityLocked())
		o.applyWalletLocked(mints, free)
	})
	return err
}

// readSaleConfig reads every sale parameter; any failure fails the whole read.
func (o *Orchestrator) readSaleConfig(ctx context.Context) (*types.SaleConfig, error) {
	if o.sale == nil {
		return nil, errors.New("no sale contract configured")
	}

	var (
		cfg   types.SaleConfig
		price *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		price, err = o.sale.MintPrice(gctx)
		return err
	})
	g.Go(func() (err error) {
		cfg.MaxPerTransaction, err = o.sale.MaxPerTx(gctx)
		return err
	})
	g.Go(func() (err error) {
		cfg.MaxPerWallet, err = o.sale.MaxPerWallet(gctx)
		return err
	})
	g.Go(func() (err error) {
		cfg.MaxSupply, err = o.sale.MaxSupply(gctx)
		return err
	})
	g.Go(func() (err error) {
		cfg.TotalSupply, err = o.sale.TotalSupply(gctx)
		return err
	})
	g.Go(func() (err error) {
		cfg.PerWindowCap, err = o.sale.TicketsPerWindow(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cfg.UnitPrice = price
	return &cfg, nil
}

// readWalletState reads the per-address counters. Each read may fail on its
// own; a failed read comes back unknown.
func (o *Orchestrator) readWalletState(ctx context.Context, addr common.Address) (types.Optional[uint64], types.Optional[uint64], error) {
	if o.sale == nil {
		return types.None[uint64](), types.None[uint64](), errors.New("no sale contract configured")
	}

	var (
		mints, free       types.Optional[uint64]
		mintsErr, freeErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		var n uint64
		if n, mintsErr = o.sale.WalletMints(ctx, addr); mintsErr == nil {
			mints = types.Some(n)
		}
		return nil
	})
	g.Go(func() error {
		var n uint64
		if n, freeErr = o.sale.PreviewFreeMints(ctx, addr); freeErr == nil {
			free = types.Some(n)
		}
		return nil
	})
	_ = g.Wait()

	if mintsErr != nil {
		o.logger.Warn("failed to read wallet mints", map[string]any{"address": addr.Hex(), "error": mintsErr})
	}
	if freeErr != nil {
		o.logger.Warn("failed to read free mints", map[string]any{"address": addr.Hex(), "error": freeErr})
	}
	return mints, free, errors.Join(mintsErr, freeErr)
}

// applyWalletLocked stores the wallet reads. An unknown mint count keeps the
// last value; an unknown free allowance is stored as unknown.
func (o *Orchestrator) applyWalletLocked(mints, free types.Optional[uint64]) {
	if n, ok := mints.Get(); ok {
		o.wallet.MintsSoFar = n
	}
	o.wallet.FreeRemaining = free
}

// refreshWallet re-reads only the per-address state.
func (o *Orchestrator) refreshWallet(ctx context.Context, epoch uint64, addr common.Address) {
	o.beginLoad()
	defer o.endLoad()

	mints, free, _ := o.readWalletState(ctx, addr)
	o.applyIfCurrent(epoch, func() { o.applyWalletLocked(mints, free) })
}

func (o *Orchestrator) checkVerification(ctx context.Context, epoch uint64, addr common.Address) error {
	// A refresh for a replaced session must not take the verifier over.
	var gen uint64
	if !o.applyIfCurrent(epoch, func() { gen = o.verifier.Begin(addr) }) {
		return nil
	}
	if _, err := o.verifier.Resolve(ctx, addr, gen); err != nil {
		o.applyIfCurrent(epoch, func() { o.banner.advise(verificationFailedMessage) })
		return err
	}
	return nil
}
