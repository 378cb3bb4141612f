package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vitwit/ticketmint/orchestrator"
	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

// maxSteps bounds the primary-action loop: connect, switch, mint.
const maxSteps = 4

func createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show wallet, network, verification and sale status",
		Long: `Connect the wallet and print everything needed to decide whether a mint can go through.

EXAMPLES:
  TICKETMINT_PRIVATE_KEY=0x... ticketmint status
  ticketmint status --keystore ./key.json --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.tm.Wallet() != nil {
				if err := a.connect(cmd.Context()); err != nil {
					return err
				}
			}
			return printView(a.out, a.tm.View())
		},
	}
}

func createQuoteCmd() *cobra.Command {
	var quantity uint64

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the free/paid split and cost of a mint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			a.tm.SetQuantity(quantity)
			v := a.tm.View()

			if jsonOutput {
				return writeJSON(a.out, v.Quote)
			}
			fmt.Fprintf(a.out, "Quantity:   %d (max %d)\n", v.Quantity, v.MaxQuantity)
			fmt.Fprintf(a.out, "Free mints: %s\n", v.FreeMintsLabel)
			fmt.Fprintf(a.out, "Split:      %d free, %d paid\n", v.Quote.Free, v.Quote.Paid)
			fmt.Fprintf(a.out, "Price:      %s each\n", v.PriceLabel)
			fmt.Fprintf(a.out, "Total:      %s\n", v.CostLabel)
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&quantity, "quantity", "n", 1, "number of tickets")
	return cmd
}

func createMintCmd() *cobra.Command {
	var quantity uint64

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Connect, switch network if needed, and mint tickets",
		Long: `Run the primary action until the tickets are minted. Every wallet prompt
is confirmed on the terminal unless --yes is given.

EXAMPLES:
  ticketmint mint -n 3 --keystore ./key.json
  TICKETMINT_PRIVATE_KEY=0x... ticketmint mint -n 1 --yes
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			a.tm.SetQuantity(quantity)

			for step := 0; step < maxSteps; step++ {
				a.tm.WaitForRefresh()
				res, err := a.tm.PrimaryAction(ctx)
				if err != nil {
					return err
				}
				if res.Message != "" {
					fmt.Fprintln(a.out, res.Message)
				}

				switch res.Action {
				case orchestrator.ActionMint:
					return printReceipt(a.out, res.Receipt, a.tm.Config().Chain)
				case orchestrator.ActionVerify:
					return errors.New("Proof of Humanity is required before minting")
				}
			}
			return errors.New("could not reach a mintable state")
		},
	}

	cmd.Flags().Uint64VarP(&quantity, "quantity", "n", 1, "number of tickets")
	return cmd
}

func createSwitchNetworkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch-network",
		Short: "Switch the wallet to the sale network, adding it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			res, err := a.tm.SwitchNetwork(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Message)
			return nil
		},
	}
}

func createVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check Proof of Humanity status and point to the portal when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			v := a.tm.View()
			fmt.Fprintf(a.out, "%s: %s\n", utils.ShortAddress(v.Address), v.VerificationLabel)
			if v.Verification != types.VerificationRejected {
				return nil
			}
			_, err = a.tm.OpenVerificationPortal()
			return err
		},
	}
}

func printView(w io.Writer, v orchestrator.View) error {
	if jsonOutput {
		return writeJSON(w, v)
	}

	fmt.Fprintf(w, "Wallet:       %s\n", v.AddressLabel)
	fmt.Fprintf(w, "Network:      %s\n", v.NetworkLabel)
	if v.Connected {
		fmt.Fprintf(w, "Verification: %s\n", v.VerificationLabel)
		fmt.Fprintf(w, "Minted:       %d\n", v.Wallet.MintsSoFar)
		fmt.Fprintf(w, "Free mints:   %s\n", v.FreeMintsLabel)
	}
	if v.Sale != nil {
		fmt.Fprintf(w, "Price:        %s\n", v.PriceLabel)
		fmt.Fprintf(w, "Supply:       %d / %d\n", v.Sale.TotalSupply, v.Sale.MaxSupply)
		fmt.Fprintf(w, "Max per tx:   %d\n", v.Sale.MaxPerTransaction)
		fmt.Fprintf(w, "Per wallet:   %d\n", v.Sale.MaxPerWallet)
		fmt.Fprintf(w, "24h cap:      %d\n", v.Sale.PerWindowCap)
		if v.SoldOut {
			fmt.Fprintln(w, "Sold out")
		}
	}
	fmt.Fprintf(w, "Next step:    %s (%s)\n", v.PrimaryLabel, enabledLabel(v.PrimaryEnabled))
	if v.Banner.Error != "" {
		fmt.Fprintf(w, "Error:        %s\n", v.Banner.Error)
	}
	if v.Banner.Success != "" {
		fmt.Fprintf(w, "Info:         %s\n", v.Banner.Success)
	}
	return nil
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "ready"
	}
	return "busy"
}

func printReceipt(w io.Writer, r *types.MintReceipt, chain types.ChainDescriptor) error {
	if r == nil {
		return errors.New("mint finished without a receipt")
	}
	if jsonOutput {
		return writeJSON(w, r)
	}

	cur := chain.NativeCurrency
	fmt.Fprintf(w, "Minted %d ticket(s): %d free, %d paid, %s %s\n",
		r.Quantity, r.FreeUsed, r.PaidUsed, utils.FormatUnits(r.Value, cur.Decimals), cur.Symbol)
	fmt.Fprintf(w, "Transaction: %s\n", r.TxHash.Hex())
	if len(chain.ExplorerURLs) > 0 {
		fmt.Fprintf(w, "Explorer:    %s/tx/%s\n", chain.ExplorerURLs[0], r.TxHash.Hex())
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
