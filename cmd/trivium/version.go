package main

import (
	"fmt"

	"github.com/aretw0/trivium"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of trivium",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trivium version %s\n", trivium.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
