package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vitwit/ticketmint"
	"github.com/vitwit/ticketmint/config"
	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

const defaultMetricsAddr = "127.0.0.1:9464"

var (
	cfgFile       string
	keystorePaths []string
	account       string
	walletChainID uint64
	assumeYes     bool
	metricsAddr   string
	logLevel      string
	jsonOutput    bool
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:     "ticketmint",
		Short:   "Mint tickets from the Proof of Humanity gated sale",
		Long:    `ticketmint connects a local wallet to the ticket sale, checks network and Proof of Humanity status, and mints tickets.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (TOML, optional)")
	rootCmd.PersistentFlags().StringArrayVar(&keystorePaths, "keystore", nil, "encrypted keystore file (repeatable); TICKETMINT_PRIVATE_KEY is also read")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "account to use when several keys are loaded")
	rootCmd.PersistentFlags().Uint64Var(&walletChainID, "wallet-chain", 0, "chain id the wallet starts on (must be listed in known_chains)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve wallet prompts without asking")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(createStatusCmd())
	rootCmd.AddCommand(createQuoteCmd())
	rootCmd.AddCommand(createMintCmd())
	rootCmd.AddCommand(createSwitchNetworkCmd())
	rootCmd.AddCommand(createVerifyCmd())

	return rootCmd.Execute()
}

// app is one CLI invocation's client plus the resources it owns.
type app struct {
	tm      *ticketmint.TicketMint
	log     *logger.ZapLogger
	metrics *http.Server
	out     io.Writer
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	zl, err := logger.NewZapLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{log: zl, out: cmd.OutOrStdout()}
	opts := []ticketmint.Option{
		ticketmint.WithLogger(zl),
		ticketmint.WithApprover(newTerminalApprover(bufio.NewReader(os.Stdin), cmd.ErrOrStderr(), assumeYes)),
		ticketmint.WithPortal(printPortal{out: a.out}),
	}

	if addr := metricsAddr; addr != "" || cfg.EnableMetrics {
		if addr == "" {
			addr = defaultMetricsAddr
		}
		reg := prometheus.NewRegistry()
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		a.metrics = serveMetrics(addr, reg, zl)
		opts = append(opts, ticketmint.WithMetrics(rec))
	}

	keys, err := loadKeys(keystorePaths, cmd.ErrOrStderr())
	if err != nil {
		a.Close()
		return nil, err
	}
	opts = append(opts, ticketmint.WithKeys(keys...))

	if walletChainID != 0 {
		chain, err := findChain(cfg, types.ChainID(walletChainID))
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, ticketmint.WithWalletChain(chain))
	}

	tm, err := ticketmint.New(cmd.Context(), cfg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tm = tm
	return a, nil
}

func findChain(cfg *types.Config, id types.ChainID) (types.ChainDescriptor, error) {
	if cfg.Chain.ID == id {
		return cfg.Chain, nil
	}
	for _, c := range cfg.KnownChains {
		if c.ID == id {
			return c, nil
		}
	}
	return types.ChainDescriptor{}, fmt.Errorf("chain %s is not in known_chains", id)
}

func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", map[string]any{"addr": addr, "error": err})
		}
	}()
	log.Info("serving metrics", map[string]any{"addr": addr})
	return srv
}

// connect asks the wallet for access and selects --account when given.
func (a *app) connect(ctx context.Context) error {
	if err := a.tm.Start(ctx); err != nil {
		return err
	}
	if err := a.tm.Connect(ctx); err != nil {
		return err
	}
	if account == "" {
		return nil
	}

	addr, err := utils.ValidateAddress(account)
	if err != nil {
		return fmt.Errorf("--account: %w", err)
	}
	if a.tm.Wallet() == nil {
		return errors.New("--account needs a wallet key")
	}
	if err := a.tm.Wallet().SelectAccount(addr); err != nil {
		return err
	}
	a.tm.WaitForRefresh()
	if s := a.tm.View(); s.Address != addr {
		return fmt.Errorf("wallet did not switch to %s", addr.Hex())
	}
	return nil
}

func (a *app) Close() {
	if a.tm != nil {
		a.tm.Close()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	_ = a.log.Sync()
}
