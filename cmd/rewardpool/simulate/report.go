package simulate

import (
	"fmt"
	"io"
	"slices"

	"github.com/Overclock-Validator/rewardpool/pkg/base58"
	"github.com/segmentio/textio"
)

// WriteReport prints one block per step, followed by the final balance of
// every named account.
func WriteReport(w io.Writer, r *Runner, results []*StepResult, showLogs bool) error {
	for _, result := range results {
		if err := writeStep(w, result, showLogs); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "balances:\n")
	pw := textio.NewPrefixWriter(w, "  ")
	names := make([]string, 0, len(r.keys))
	for name := range r.keys {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		balance, err := r.Balance(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(pw, "%-16s %12d  %s\n", name, balance, r.keys[name])
	}
	return pw.Flush()
}

func writeStep(w io.Writer, result *StepResult, showLogs bool) error {
	mark := "ok"
	if !result.Passed() {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "[%s] slot %d: %s\n", mark, result.Slot, result.Name)

	pw := textio.NewPrefixWriter(w, "    ")
	tx := result.Tx
	if tx.Succeeded() {
		fmt.Fprintf(pw, "committed, %d CUs, %d accounts modified\n", tx.ComputeUnitsUsed, len(tx.Modified))
	} else {
		fmt.Fprintf(pw, "failed at instruction %d: %s\n", tx.FailedInstrIdx, tx.Err)
	}
	for _, report := range tx.Distributions {
		fmt.Fprintf(pw, "distribution: %s, %d lamports over %d positions\n", report.Outcome, report.Distributed, report.Positions)
	}
	fmt.Fprintf(pw, "bankhash %s\n", base58.Encode(result.BankHash[:]))

	if showLogs {
		logs := textio.NewPrefixWriter(pw, "| ")
		for _, line := range tx.Logs {
			fmt.Fprintln(logs, line)
		}
		if err := logs.Flush(); err != nil {
			return err
		}
	}

	for _, failure := range result.Failures {
		fmt.Fprintf(pw, "expectation failed: %s\n", failure)
	}
	return pw.Flush()
}
