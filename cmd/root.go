package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "instant-swap",
	Short: "A CLI for ERC-20 token swaps via aggregated on-chain liquidity",
	Long: `instant-swap is a command-line tool for swapping ERC-20 tokens through an
aggregated liquidity quote API. It quotes, approves, and broadcasts swaps from
a local signing key, and can also run as an HTTP service exposing the full
swap widget state machine.

Examples:
  instant-swap swap 1.5 ETH to USDC
  instant-swap list-tokens
  instant-swap status <tx-hash>
  instant-swap serve`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
