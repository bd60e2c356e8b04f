package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/trivium/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [batch-id [artifact]]",
	Short: "Render the output document or a batch artifact",
	Long: `Without arguments, renders the output document.
With a batch id, lists the batch artifacts; with an artifact path, renders it.

  trivium show
  trivium show ch1_p2
  trivium show ch1_p2 round_1/issues.md`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		ctx := cmd.Context()
		eng := stack.Engine

		var text string
		switch len(args) {
		case 0:
			text, err = eng.Output(ctx)
			if err == nil && text == "" {
				fmt.Println("The output document is empty.")
				return nil
			}
		case 1:
			names, err := eng.BatchArtifacts(ctx, args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("no artifacts for batch %s", args[0])
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		default:
			text, err = eng.Artifact(ctx, args[0], args[1])
			if err == nil && json.Valid([]byte(text)) {
				var buf bytes.Buffer
				if json.Indent(&buf, []byte(text), "", "  ") == nil {
					text = "```json\n" + buf.String() + "\n```\n"
				}
			}
		}
		if err != nil {
			return err
		}

		out, err := tui.NewRenderer(os.Stdout)(text)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
