// Package notify delivers registration summaries to the configured channels
// after the change has been committed. Delivery is best effort.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-membership/internal/logger"
	"ms-membership/internal/models"
	"ms-membership/internal/monitoring"
)

type Notifier interface {
	Name() string
	Notify(ctx context.Context, n models.Notification) error
}

// Dispatcher fans a notification out to every notifier in the background,
// each bounded by Timeout. Failures are logged and counted, never returned.
type Dispatcher struct {
	Notifiers []Notifier
	Timeout   time.Duration
	Logger    *logger.Logger

	wg sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, log *logger.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{Notifiers: notifiers, Timeout: timeout, Logger: log}
}

// Dispatch returns immediately.
func (d *Dispatcher) Dispatch(n models.Notification) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	for _, nt := range d.Notifiers {
		d.wg.Add(1)
		go func(nt Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
			defer cancel()

			if err := nt.Notify(ctx, n); err != nil {
				monitoring.NotificationFailures.WithLabelValues(nt.Name()).Inc()
				d.Logger.Warn("NOTIFY", fmt.Sprintf("%s delivery failed for event %s (%s): %v", nt.Name(), n.EventID, n.Kind, err))
				return
			}
			d.Logger.LogNotify(nt.Name(), n.EventID, n.Summary)
		}(nt)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Summary renders the one-line text carried by a notification.
func Summary(kind models.NotificationKind, name string, role models.Role) string {
	switch kind {
	case models.NotifyRegistered:
		return fmt.Sprintf("%s registered as %s", name, role)
	case models.NotifyLeave:
		return fmt.Sprintf("%s requested leave", name)
	case models.NotifyCancelled:
		return fmt.Sprintf("%s cancelled", name)
	case models.NotifySpeakerBooked:
		return fmt.Sprintf("%s booked as speaker", name)
	}
	return name
}
