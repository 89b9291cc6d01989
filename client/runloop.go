package client

import (
	"context"
	"time"
)

// RunLoop ticks a Controller at period, feeding it the driver's latest
// motion snapshot and submitting whatever envelope it returns, until ctx
// is cancelled or the state machine leaves Active. It is the generalized
// form of the teacher's NodeProcessor.main ticker loop, dispatching to a
// user-supplied Controller instead of CANopen's fixed NMT states.
func (p *Piper) RunLoop(ctx context.Context, controller Controller, period time.Duration) error {
	if p.State() != Active {
		return ErrWrongState
	}
	drv := p.Driver()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.State() != Active {
				return nil
			}
			snapshot, ok := drv.Store.Motion.Load()
			if !ok {
				continue
			}
			envelope := controller.Step(snapshot)
			if envelope == nil {
				continue
			}
			if err := drv.Queue.Send(envelope); err != nil {
				return err
			}
		}
	}
}
