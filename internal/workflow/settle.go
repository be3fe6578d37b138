package workflow

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jwalitptl/ecare-e2e/internal/model"
)

var errNotVisible = errors.New("target slot not visible yet")

// settle holds the run until the slot listing shows the target slot, or
// sleeps the configured fixed wait when polling is off. A settle that times
// out is logged and the run continues; the availability check will then
// record the failure.
func (o *Orchestrator) settle(ctx context.Context, rc *runContext) error {
	start := o.now()
	defer func() {
		if o.metrics != nil {
			o.metrics.SettleWait.Observe(o.now().Sub(start).Seconds())
		}
	}()

	cfg := o.cfg.Settle
	if !cfg.Poll {
		wait := cfg.FixedWait
		if wait > maxFixedWait {
			wait = maxFixedWait
		}
		return o.sleep(ctx, wait)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = maxFixedWait
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s := rc.state
	op := func() error {
		resp, err := rc.client.ListSlots(pollCtx, s.Provider.UUID, s.Slot.Date, s.Slot.Zone.Name)
		if err != nil {
			if pollCtx.Err() != nil {
				return backoff.Permanent(pollCtx.Err())
			}
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return errNotVisible
		}
		var slots []model.Slot
		if err := resp.Decode(&slots); err != nil {
			return errNotVisible
		}
		if findSlot(slots, s.Slot.UTCStart, s.Slot.UTCEnd) == nil {
			return errNotVisible
		}
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		exp.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		exp.MaxInterval = cfg.MaxInterval
	}
	exp.MaxElapsedTime = timeout
	err := backoff.Retry(op, backoff.WithContext(exp, pollCtx))
	switch {
	case err == nil:
		o.log.Info("availability settled", "run_id", s.RunID, "waited", o.now().Sub(start).String())
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		o.log.Warn("availability did not settle, continuing", "run_id", s.RunID, "error", err.Error(), "waited", o.now().Sub(start).String())
		return nil
	}
}

func findSlot(slots []model.Slot, start, end time.Time) *model.Slot {
	for i := range slots {
		if slots[i].StartTime.Equal(start) && slots[i].EndTime.Equal(end) {
			return &slots[i]
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
