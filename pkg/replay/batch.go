package replay

import (
	"context"
	"time"

	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// ProcessBatch executes txs concurrently, at most parallelism at a time.
// Transactions touching a common account serialize on locks; their relative
// order is not defined. Results are returned in the order of txs.
func ProcessBatch(ctx context.Context, slotCtx *sealevel.SlotCtx, locks *AccountLocks, txs []*solana.Transaction, parallelism int) ([]*TxResult, error) {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([]*TxResult, len(txs))

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for idx, tx := range txs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			guard, err := locks.LockTransaction(tx)
			if err != nil {
				return err
			}
			defer guard.Unlock()

			result, err := ProcessTransaction(slotCtx, tx)
			if err != nil {
				klog.Errorf("transaction %d could not be executed: %s", idx, err)
				return err
			}
			results[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	klog.V(2).Infof("batch of %d transactions finished in %s", len(txs), time.Since(start))
	return results, nil
}
