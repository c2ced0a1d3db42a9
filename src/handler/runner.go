package handler

import (
	"context"
	"sync/atomic"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// -----------------------------------------------------------------------------
// Runner is the event loop: it drains the session queue, runs each response
// through the handler and hands the records to the sink.
// -----------------------------------------------------------------------------

type Runner struct {
	Handler *SymbolListHandler
	Sink    interfaces.IRecordSink
	Errors  *helpers.ErrorHandler
	Logger  *logger.Logger

	published atomic.Int64
}

func NewRunner(h *SymbolListHandler, sink interfaces.IRecordSink, log *logger.Logger) *Runner {
	return &Runner{
		Handler: h,
		Sink:    sink,
		Errors:  helpers.NewErrorHandler(),
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Run processes events until ctx is cancelled or queue is closed.
func (r *Runner) Run(ctx context.Context, queue <-chan models.MEvent) error {
	r.Logger.Info("Event loop started")
	defer r.Logger.Info("Event loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-queue:
			if !ok {
				return nil
			}
			r.Dispatch(ev)
		}
	}
}

// Dispatch handles a single event.
func (r *Runner) Dispatch(ev models.MEvent) {
	records := r.Handler.ProcessResponse(ev.Message, ev.Handle)
	if len(records) == 0 || r.Sink == nil {
		return
	}
	if err := r.Sink.Publish(records); err != nil {
		r.Errors.Handle(err, "publish records")
		return
	}
	r.published.Add(int64(len(records)))
}

// Published returns the number of records accepted by the sink.
func (r *Runner) Published() int64 {
	return r.published.Load()
}
