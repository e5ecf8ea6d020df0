package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"instant-swap/config"
	"instant-swap/pkg/wallet"
)

var statusWait bool

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a swap transaction",
	Long: `Check whether a broadcast swap transaction has been mined and whether it
succeeded.

Examples:
  instant-swap status 0x1234...abcd
  instant-swap status 0x1234...abcd --wait`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWait, "wait", "w", false, "Block until the transaction is mined")
}

func runStatus(cmd *cobra.Command, args []string) {
	txHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		printError(fmt.Errorf("invalid transaction hash: %s", txHash))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Status checks never sign anything; a throwaway key keeps the provider
	// constructor satisfied when none is configured.
	key := cfg.PrivateKey
	if key == "" {
		key = "0000000000000000000000000000000000000000000000000000000000000001"
	}
	provider, err := wallet.NewEthProvider(cfg.RPCURL, key, cfg.ChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer provider.Close()

	ctx := context.Background()
	if !statusWait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	ok, err := provider.AwaitConfirmation(ctx, common.HexToHash(txHash))
	if !jsonOutput {
		s.Stop()
	}

	status := "PENDING"
	if err == nil {
		if ok {
			status = "SUCCESS"
		} else {
			status = "FAILED"
		}
	} else if err != context.DeadlineExceeded && !strings.Contains(err.Error(), "deadline exceeded") {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		out := map[string]string{"tx_hash": txHash, "status": status}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayTxStatus(txHash, status, cfg.ChainID)
}

func displayTxStatus(txHash, status string, chainID int64) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction: %s\n", color.CyanString(txHash))
	fmt.Printf("  Status:      %s\n", coloredStatus(status))
	if url := explorerTxURL(chainID, txHash); url != "" {
		fmt.Printf("  View:        %s\n", color.HiBlackString(url))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func coloredStatus(status string) string {
	switch status {
	case "SUCCESS":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "FAILED":
		return color.RedString(status)
	default:
		return status
	}
}
