package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/trivium"
	"github.com/aretw0/trivium/internal/cli"
	"github.com/aretw0/trivium/internal/config"
	"github.com/aretw0/trivium/internal/presentation/tui"
	"github.com/aretw0/trivium/pkg/workflow"
	"github.com/spf13/cobra"
)

const sampleAgents = `# Collaborators available to trivium. The first one is the primary
# (synthesizer, reviser, polisher); the others review, validate and vote.
# Args may use {prompt}, {prompt_file} and {workdir}.
agents:
  - name: claude
    command: claude
    args: ["-p", "{prompt}", "--output-format", "json"]
    description: Primary writer
  - name: codex
    command: codex
    args: ["exec", "{prompt}"]
    description: Code consistency reviewer
  - name: gemini
    command: gemini
    args: ["-p", "{prompt}"]
    description: Style reviewer
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace and build the flow document",
	Long: `Writes a default trivium.yaml and a sample agents.yaml when they are missing.
With --code-dir, every agent then analyses the code base and the primary merges the
analyses into foundation/flow_document.md, which every paragraph is checked against.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		codeDir, _ := cmd.Flags().GetString("code-dir")
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			tui.PrintBanner(os.Stdout)
		}

		cfgPath, _ := cmd.Flags().GetString("config")
		if cfgPath == "" {
			cfgPath = filepath.Join(dir, config.DefaultFile)
		}
		if err := writeIfMissing(cfgPath, func() error { return config.WriteDefault(cfgPath, config.Default()) }); err != nil {
			return err
		}
		agentsPath := filepath.Join(dir, trivium.AgentsFile)
		if err := writeIfMissing(agentsPath, func() error { return os.WriteFile(agentsPath, []byte(sampleAgents), 0o644) }); err != nil {
			return err
		}

		if codeDir == "" {
			fmt.Println("Edit agents.yaml, then run 'trivium init --code-dir <path>' to build the flow document.")
			return nil
		}
		absCode, err := filepath.Abs(codeDir)
		if err != nil {
			return err
		}
		if info, err := os.Stat(absCode); err != nil || !info.IsDir() {
			return fmt.Errorf("code directory %s does not exist", codeDir)
		}

		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		if err := stack.Engine.Init(sc, absCode); err != nil {
			return err
		}
		fmt.Printf("Flow document ready: %s\n", filepath.Join(stack.Engine.Workspace(), workflow.FlowDocumentPath()))
		return nil
	},
}

func writeIfMissing(path string, write func() error) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("code-dir", "", "Code base to analyse into the flow document")
	initCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner")
}
