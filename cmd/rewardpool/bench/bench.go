package bench

import (
	"io"
	"os"
	"runtime"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/base58"
	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "bench",
		Short: "Replay concurrent distributions over many independent pools",
		Args:  cobra.NoArgs,
		Run:   run,
	}

	numPools     int
	numPositions int
	numRounds    int
	reward       uint64
	parallelism  int
	policy       string
	ledgerDir    string
	metricsAddr  string
)

func init() {
	Cmd.Flags().IntVar(&numPools, "pools", 64, "Number of independent pools")
	Cmd.Flags().IntVar(&numPositions, "positions", 8, "Staking positions per pool")
	Cmd.Flags().IntVar(&numRounds, "rounds", 100, "Number of distribution rounds, one slot each")
	Cmd.Flags().Uint64Var(&reward, "reward", 1_000_003, "Lamports paid into each pool per round")
	Cmd.Flags().IntVarP(&parallelism, "parallelism", "j", runtime.NumCPU(), "Transactions executed concurrently")
	Cmd.Flags().StringVar(&policy, "policy", "remainder-to-last", "Remainder policy of the pools")
	Cmd.Flags().StringVarP(&ledgerDir, "ledger-dir", "l", "", "LevelDB directory to keep the ledger in (in-memory if unset)")
	Cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090")
}

func run(c *cobra.Command, args []string) {
	ctx := c.Context()

	remainderPolicy, err := rewards.ParseRemainderPolicy(policy)
	if err != nil {
		klog.Exitf("%s", err)
	}

	var accts accounts.Accounts
	if ledgerDir != "" {
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

	var progress io.Writer = io.Discard
	if isatty.IsTerminal(os.Stderr.Fd()) {
		progress = os.Stderr
	}

	cfg := Config{
		Pools:       numPools,
		Positions:   numPositions,
		Rounds:      numRounds,
		Reward:      reward,
		Parallelism: parallelism,
		Policy:      remainderPolicy,
	}
	summary, err := Run(ctx, cfg, accts, progress)
	if err != nil {
		klog.Exitf("bench failed: %s", err)
	}

	klog.Infof("transactions: %d (%d failed)", summary.Transactions, summary.Failed)
	klog.Infof("distributed: %d lamports, paid out: %d lamports", summary.Distributed, summary.Paid)
	klog.Infof("compute units: %d", summary.ComputeUnits)
	klog.Infof("throughput: %.0f tx/s (ewma), elapsed %s", summary.TxPerSecond, summary.Elapsed)
	klog.Infof("final bankhash: %s", base58.Encode(summary.FinalBankHash[:]))

	if summary.Failed > 0 {
		klog.Exitf("bench finished with %d failed transactions", summary.Failed)
	}
	if summary.Distributed != summary.Paid {
		klog.Exitf("distributed %d lamports but position owners hold %d", summary.Distributed, summary.Paid)
	}
}
