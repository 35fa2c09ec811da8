package simulate

import (
	"os"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a reward pool scenario against a local ledger",
		Args:  cobra.ExactArgs(1),
		Run:   run,
	}

	ledgerDir   string
	metricsAddr string
	showLogs    bool
)

func init() {
	Cmd.Flags().StringVarP(&ledgerDir, "ledger-dir", "l", "", "LevelDB directory to keep the ledger in (in-memory if unset)")
	Cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090")
	Cmd.Flags().BoolVar(&showLogs, "logs", false, "Print program logs for every step")
}

func run(c *cobra.Command, args []string) {
	ctx := c.Context()

	scenario, err := LoadScenario(args[0])
	if err != nil {
		klog.Exitf("failed to load scenario: %s", err)
	}

	var accts accounts.Accounts
	if ledgerDir != "" {
		klog.Infof("opening ledger at %s", ledgerDir)
		db, err := accounts.OpenAccountsDb(ledgerDir)
		if err != nil {
			klog.Exitf("unable to open ledger %s: %s", ledgerDir, err)
		}
		defer db.Close()
		accts = db
	} else {
		accts = accounts.NewMemAccounts()
	}

	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr); err != nil {
				klog.Errorf("metrics server: %s", err)
			}
		}()
	}

	runner, err := NewRunner(scenario, accts)
	if err != nil {
		klog.Exitf("%s", err)
	}

	results, runErr := runner.Run(ctx)
	if err := WriteReport(os.Stdout, runner, results, showLogs); err != nil {
		klog.Errorf("writing report: %s", err)
	}
	if runErr != nil {
		klog.Exitf("scenario %s aborted: %s", scenario.Name, runErr)
	}

	var failed int
	for _, result := range results {
		if !result.Passed() {
			failed++
		}
	}
	if failed > 0 {
		klog.Exitf("scenario %s: %d of %d steps failed their expectations", scenario.Name, failed, len(results))
	}
	klog.Infof("scenario %s: all %d steps passed", scenario.Name, len(results))
}
