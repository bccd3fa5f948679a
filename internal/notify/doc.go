// Package notify delivers order confirmations without blocking order placement.
//
// A Notifier sends one confirmation. Three providers exist:
//   - log: writes the confirmation to the structured log (default)
//   - webhook: POSTs {"event":"order.confirmed","order":{...}} to a URL
//   - smtp: sends a plain text mail through an SMTP relay
//
// A Dispatcher owns a bounded queue and a pool of workers. Enqueue never
// blocks: when the queue is full the confirmation is dropped and logged.
// Each delivery is retried with exponential backoff; the final failure is
// logged and discarded, so a committed order is never affected.
//
//	d, err := notify.NewDispatcherFromConfig(cfg.Notify, logger)
//	if err != nil {
//	    return err
//	}
//	defer d.Close(shutdownCtx)
//
//	_ = d.Enqueue(order)
package notify
