package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or repair the persisted workflow state",
}

var stateInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the workflow state as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		status, err := stack.Engine.Status(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Abandon the pending paragraph",
	Long: `Clears the pending paragraph so another one can be written. Its artifacts stay on
disk; writing the same paragraph again reuses them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		abandoned, err := stack.Engine.Reset(cmd.Context())
		if err != nil {
			return err
		}
		if abandoned == nil {
			fmt.Println("No pending paragraph.")
			return nil
		}
		fmt.Printf("Abandoned %s (last step %s, round %d).\n", abandoned.BatchID, abandoned.Step, abandoned.Round)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateInspectCmd)
	stateCmd.AddCommand(stateResetCmd)
}
