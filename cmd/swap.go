package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"instant-swap/config"
	"instant-swap/pkg/instant"
	"instant-swap/pkg/parser"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
	"instant-swap/pkg/wallet"
)

var (
	noConfirm   bool
	quoteWait   int
	confirmWait int
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <sell-token> to <buy-token>",
	Short: "Quote and execute an ERC-20 token swap",
	Long: `Swap tokens through the aggregated liquidity quote API.

The command quotes the pair, asks for confirmation, grants a token allowance
if the sell token needs one, and broadcasts the swap from the configured
signing key.

Examples:
  instant-swap swap 1.5 ETH to USDC
  instant-swap swap 100 USDC to DAI --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompts")
	swapCmd.Flags().IntVar(&quoteWait, "quote-timeout", 30, "Seconds to wait for a quote")
	swapCmd.Flags().IntVar(&confirmWait, "confirm-timeout", 600, "Seconds to wait for transaction confirmation")
}

func runSwap(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	swapReq, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if cfg.PrivateKey == "" {
		printError(fmt.Errorf("private key not configured. Set INSTANT_SWAP_PRIVATE_KEY to swap"))
		os.Exit(1)
	}

	logger := buildLogger(verbose)
	defer logger.Sync()

	ctx := context.Background()

	provider, err := wallet.NewEthProvider(cfg.RPCURL, cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer provider.Close()

	widget, err := buildWidget(ctx, cfg, provider, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := widget.Connect(ctx); err != nil {
		printError(fmt.Errorf("failed to connect account: %w", err))
		os.Exit(1)
	}

	tokenIn, err := resolveToken(widget, cfg.ChainID, swapReq.SellToken)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	tokenOut, err := resolveToken(widget, cfg.ChainID, swapReq.BuyToken)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	widget.SelectTokenIn(ctx, tokenIn)
	widget.SelectTokenOut(ctx, tokenOut)

	unitAmount, err := decimal.NewFromString(swapReq.Amount)
	if err != nil || unitAmount.Sign() <= 0 {
		printError(fmt.Errorf("invalid amount: %s", swapReq.Amount))
		os.Exit(1)
	}
	widget.EditAmount(ctx, tokenIn.BaseUnitAmount(unitAmount), true)

	// Wait out the debounce and the quote round trip.
	snap, err := waitForQuote(widget)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	displayQuote(snap, tokenIn, tokenOut)

	if !noConfirm && !confirm("Proceed with swap?") {
		fmt.Println("\nSwap cancelled.")
		os.Exit(0)
	}

	// First press routes the flow: straight to review, or through approval.
	if err := widget.PrimaryAction(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}

	if widget.State().Step == types.StepApprove {
		if err := runApprovalStep(ctx, widget, tokenIn); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	if err := runSwapStep(ctx, widget, cfg.ChainID); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func runApprovalStep(ctx context.Context, widget *instant.Widget, tokenIn types.Token) error {
	snap := widget.State()
	fmt.Printf("\n%s needs a one-time allowance before it can be swapped.\n", color.YellowString(tokenIn.Symbol))
	if snap.ApprovalGasEstimate != nil {
		cost := decimal.NewFromBigInt(snap.ApprovalGasEstimate, -18)
		fmt.Printf("Estimated approval cost: ~%s ETH\n", cost.StringFixed(6))
	}

	if !noConfirm && !confirm("Grant allowance?") {
		return fmt.Errorf("approval declined")
	}

	if err := widget.PrimaryAction(ctx); err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for approval confirmation..."
	s.Start()
	snap, err := waitForTerminal(widget, func(st store.State) types.TxState { return st.ApproveState })
	s.Stop()
	if err != nil {
		return err
	}

	if snap.ApproveState.Phase() == types.ProcessFailure {
		return fmt.Errorf("approval transaction failed: %s", types.TxHashOf(snap.ApproveState))
	}
	color.Green("\n✓ Allowance granted")
	fmt.Printf("  Transaction: %s\n", color.CyanString(types.TxHashOf(snap.ApproveState)))
	return nil
}

func runSwapStep(ctx context.Context, widget *instant.Widget, chainID int64) error {
	if widget.State().Step != types.StepReviewOrder {
		return fmt.Errorf("unexpected step: %s", widget.State().Step)
	}

	if err := widget.PrimaryAction(ctx); err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for swap confirmation..."
	s.Start()
	snap, err := waitForTerminal(widget, func(st store.State) types.TxState { return st.OrderState })
	s.Stop()
	if err != nil {
		return err
	}

	txHash := types.TxHashOf(snap.OrderState)
	if snap.OrderState.Phase() == types.ProcessFailure {
		return fmt.Errorf("swap transaction failed: %s", txHash)
	}

	printSuccess(color.GreenString("✓ Swap confirmed!"))
	fmt.Printf("  Transaction: %s\n", color.CyanString(txHash))
	if url := explorerTxURL(chainID, txHash); url != "" {
		fmt.Printf("  View:        %s\n\n", color.HiBlackString(url))
	}
	return nil
}

// waitForQuote polls until the scheduled quote lands or fails.
func waitForQuote(widget *instant.Widget) (store.State, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(time.Duration(quoteWait) * time.Second)
	for time.Now().Before(deadline) {
		snap := widget.State()
		switch snap.QuoteState {
		case types.AsyncSuccess:
			return snap, nil
		case types.AsyncFailure:
			msg := snap.ErrorMessage
			if msg == "" {
				msg = "quote request failed"
			}
			return snap, fmt.Errorf("%s", msg)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return store.State{}, fmt.Errorf("timed out waiting for quote")
}

// waitForTerminal polls one transaction machine slot until it reaches
// Success or Failure.
func waitForTerminal(widget *instant.Widget, slot func(store.State) types.TxState) (store.State, error) {
	deadline := time.Now().Add(time.Duration(confirmWait) * time.Second)
	for time.Now().Before(deadline) {
		snap := widget.State()
		state := slot(snap)
		switch state.Phase() {
		case types.ProcessSuccess, types.ProcessFailure:
			return snap, nil
		case types.ProcessNone:
			// The machine reset without broadcasting: submission was refused.
			msg := snap.ErrorMessage
			if msg == "" {
				msg = "transaction was not submitted"
			}
			return snap, fmt.Errorf("%s", msg)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return store.State{}, fmt.Errorf("timed out waiting for confirmation")
}

func displayQuote(snap store.State, tokenIn, tokenOut types.Token) {
	quote := snap.LatestQuote

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Sell:             %s %s\n",
		tokenIn.UnitAmount(quote.SellAmount).String(), color.YellowString(tokenIn.Symbol))
	fmt.Printf("  Receive:          ~%s %s\n",
		tokenOut.UnitAmount(quote.BuyAmount).String(), color.YellowString(tokenOut.Symbol))
	fmt.Printf("  Price:            %s %s per %s\n",
		quote.Price.String(), tokenOut.Symbol, tokenIn.Symbol)
	fmt.Printf("  Guaranteed Price: %s\n", quote.GuaranteedPrice.String())
	if quote.GasPrice != nil {
		gwei := decimal.NewFromBigInt(quote.GasPrice, -9)
		fmt.Printf("  Gas Price:        %s gwei\n", gwei.StringFixed(2))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

var explorerHosts = map[int64]string{
	1:        "https://etherscan.io",
	10:       "https://optimistic.etherscan.io",
	56:       "https://bscscan.com",
	137:      "https://polygonscan.com",
	42161:    "https://arbiscan.io",
	43114:    "https://snowtrace.io",
	11155111: "https://sepolia.etherscan.io",
}

func explorerTxURL(chainID int64, txHash string) string {
	host, ok := explorerHosts[chainID]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", host, txHash)
}
