package main

import (
	"context"
	"errors"

	"github.com/aretw0/trivium"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write one paragraph through the consensus pipeline",
	Long: `Runs draft, synthesis and up to max_rounds debate rounds for the paragraph,
then appends the accepted text to the output document.

Running write for a paragraph that is already pending continues it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chapter, _ := cmd.Flags().GetInt("chapter")
		paragraph, _ := cmd.Flags().GetInt("paragraph")
		instruction, _ := cmd.Flags().GetString("instruction")
		if instruction == "" {
			return errors.New("--instruction is required")
		}
		return runBatch(cmd, func(ctx context.Context, eng *trivium.Engine) (domain.BatchOutcome, error) {
			return eng.Write(ctx, chapter, paragraph, instruction)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the pending paragraph from its last checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, func(ctx context.Context, eng *trivium.Engine) (domain.BatchOutcome, error) {
			return eng.Resume(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(resumeCmd)

	writeCmd.Flags().IntP("chapter", "c", 0, "Chapter number")
	writeCmd.Flags().IntP("paragraph", "p", 0, "Paragraph number within the chapter")
	writeCmd.Flags().StringP("instruction", "i", "", "What the paragraph must say")
	_ = writeCmd.MarkFlagRequired("chapter")
	_ = writeCmd.MarkFlagRequired("paragraph")
	addListenFlag(writeCmd)
	addListenFlag(resumeCmd)
}
