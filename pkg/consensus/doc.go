/*
Package consensus holds the arithmetic of a debate round.

Aggregate numbers reviewer issues, Tally counts validator votes against a
threshold, and Evaluate folds voter verdicts into a pass/fail decision under a
ConsensusPolicy. All functions are pure; persistence and collaborator calls live
in the workflow package.
*/
package consensus
