package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workflow state and the pending paragraph",
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

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		p := termenv.ColorProfile()
		good := func(s string) termenv.Style { return termenv.String(s).Foreground(p.Color("2")) }
		warn := func(s string) termenv.Style { return termenv.String(s).Foreground(p.Color("3")) }

		fmt.Printf("Workspace:  %s\n", status.Workspace)
		if status.InitCompleted {
			fmt.Printf("Foundation: %s\n", good("ready"))
		} else {
			fmt.Printf("Foundation: %s (run 'trivium init --code-dir <path>')\n", warn("missing"))
		}
		fmt.Printf("Agents:     %s (max %d rounds)\n", strings.Join(status.Agents, ", "), status.MaxRounds)

		if b := status.CurrentBatch; b != nil {
			fmt.Printf("Pending:    %s %q\n", warn(b.BatchID), b.Instruction)
			if b.Step != "" {
				fmt.Printf("            last step %s, round %d\n", b.Step, b.Round)
			}
		} else {
			fmt.Printf("Pending:    %s\n", good("none"))
		}
		fmt.Printf("Completed:  %d", len(status.CompletedBatches))
		if len(status.CompletedBatches) > 0 {
			fmt.Printf(" (%s)", strings.Join(status.CompletedBatches, ", "))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Print the status as JSON")
}
