/*
Package trivium is a resumable multi-agent consensus engine for writing documents one
paragraph at a time.

Every paragraph ("batch") goes through a fixed pipeline run by a panel of external
collaborators (command-line AI agents):

	draft -> synthesize -> (review -> validate -> revise -> vote)* -> append

The round loop is bounded. A batch that reaches consensus is appended to the output
document exactly once; a batch that exhausts its rounds stays pending for manual review.

# Durability

Every sub-step writes its artifact to the batch workspace (drafts/<batch>/...) before the
next one starts, and the existence of that artifact is the only thing resumption trusts.
Interrupting the process at any point and running Resume re-enters the pipeline at the
first missing artifact without re-invoking collaborators whose output is already on disk.

# Usage

	eng, err := trivium.New("./paper")
	if err != nil {
		log.Fatal(err)
	}

	outcome, err := eng.Write(ctx, 1, 1, "Introduce the problem")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(outcome.Status)

By default the engine reads collaborators from agents.yaml in the workspace and keeps its
state, artifacts and output under the same directory. Every store can be replaced with
the With* options.
*/
package trivium
