package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acquirelab/threedsflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of threedsflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("threedsflow version %s\n", strings.TrimSpace(threedsflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
