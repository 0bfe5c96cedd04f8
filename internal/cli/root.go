// Package cli wires the cobra commands to the harvesting pipeline.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geospider",
	Short: "Harvest OGC service and layer metadata from a CSW catalog",
	Long: `geospider queries a CSW catalog for geospatial web services (WMS, WFS,
WCS, WMTS, OGC API Tiles, OGC API Features), fetches their capability
documents and writes a normalized service/layer inventory as JSON or YAML.

Output destinations: "-" for stdout, a local file path, or
azure://container/blob for Azure Blob Storage.

Exit Codes:
  0  - Success (including runs with per-service failures)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Catalog unreachable or returned inconsistent results
  12 - Sorting-rules file invalid`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for geospider")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
