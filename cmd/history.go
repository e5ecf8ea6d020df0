package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"instant-swap/pkg/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past swaps",
	Long: `List the swaps previously executed from this machine, newest first.

Examples:
  instant-swap history
  instant-swap history --limit 5`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := history.NewStore("")
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	entries := store.List()
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(entries) == 0 {
		fmt.Println("\nNo swaps recorded yet.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SWAP HISTORY")
	fmt.Println(strings.Repeat("=", 90))
	fmt.Println()

	for _, entry := range entries {
		fmt.Printf("  %s  %s → %s  %s\n",
			entry.Timestamp.Format("2006-01-02 15:04"),
			color.YellowString(entry.SellSymbol),
			color.YellowString(entry.BuySymbol),
			color.HiBlackString(entry.TxHash))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d swaps (stored in %s)\n\n", store.Count(), store.FilePath())
}
