package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/trivium"
	"github.com/aretw0/trivium/internal/cli"
	"github.com/aretw0/trivium/internal/presentation/tui"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/spf13/cobra"
)

type batchFunc func(ctx context.Context, eng *trivium.Engine) (domain.BatchOutcome, error)

// runBatch drives one write or resume operation and prints its outcome.
// Exhaustion is not an error: the batch stays pending for manual review.
func runBatch(cmd *cobra.Command, fn batchFunc) error {
	stack, _, logger, err := buildStack(cmd)
	if err != nil {
		return err
	}
	defer stack.Close()

	sc := cli.NewSignalContext(cmd.Context())
	defer sc.Cancel()

	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		go func() {
			if err := cli.Serve(sc, addr, stack.HTTPHandler(logger), logger, nil); err != nil {
				logger.Error("Status API failed", "err", err)
			}
		}()
	}

	outcome, err := fn(sc, stack.Engine)
	if err != nil {
		if sig := sc.Signal(); sig != nil {
			fmt.Fprintf(os.Stderr, "Interrupted (%v). Finished steps are checkpointed; run 'trivium resume' to continue.\n", sig)
			return nil
		}
		return err
	}

	render := tui.NewRenderer(os.Stdout)
	text, err := render(tui.FormatOutcome(outcome))
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func addListenFlag(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "Serve the status API on this address while the batch runs")
}
