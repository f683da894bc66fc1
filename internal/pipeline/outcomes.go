package pipeline

import (
	"context"

	"github.com/ziadkadry99/supportdesk/internal/audit"
	"github.com/ziadkadry99/supportdesk/internal/events"
)

// RecordOutcomes returns an observer that writes the final outcome of every
// run to the activity log and publishes it as an event. Either may be nil.
// Recording outlives cancellation of the run's context.
func RecordOutcomes(l audit.Log, pub events.Publisher) Observer {
	return func(ctx context.Context, tr Transition) {
		ctx = context.WithoutCancel(ctx)
		switch {
		case tr.To == StateCommunicationDone && tr.Result != nil:
			d := tr.Result.Diagnosis
			if l != nil {
				audit.Processed(ctx, l, tr.TicketID, d.Risk, d.ShouldEscalate)
			}
			if pub != nil {
				events.Processed(ctx, pub, tr.TicketID, d.Risk, d.ShouldEscalate)
			}
		case tr.To == StateFailed && tr.Err != nil:
			stage, kind := string(tr.Err.Stage), tr.Err.Kind()
			if l != nil {
				audit.ProcessFailed(ctx, l, tr.TicketID, stage, kind)
			}
			if pub != nil {
				events.ProcessFailed(ctx, pub, tr.TicketID, stage, kind)
			}
		}
	}
}
