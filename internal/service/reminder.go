package service

import (
	"context"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"go.uber.org/zap"
)

// Reminder periodically sweeps the schedule and mails whoever needs nudging:
// delayed deliveries, stale pending submittals, overdue payments and AI
// suggestions waiting for review.
type Reminder struct {
	repos  *repository.Repositories
	mailer *Mailer
	logger *zap.Logger

	interval     time.Duration
	stalePending time.Duration
}

func NewReminder(repos *repository.Repositories, mailer *Mailer, logger *zap.Logger) *Reminder {
	return &Reminder{
		repos:        repos,
		mailer:       mailer,
		logger:       logger,
		interval:     24 * time.Hour,
		stalePending: 14 * 24 * time.Hour,
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep fires
// immediately so a restart does not postpone overdue alerts a full interval.
func (r *Reminder) Start(ctx context.Context) {
	go func() {
		r.Sweep(ctx)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs every check once. Errors are logged, never fatal; a broken
// reminder must not take the service down.
func (r *Reminder) Sweep(ctx context.Context) {
	now := time.Now()
	r.sweepDeliveries(ctx, now)
	r.sweepMaterials(ctx, now)
	r.sweepPayments(ctx, now)
	r.sweepSuggestions(ctx)
}

func (r *Reminder) sweepDeliveries(ctx context.Context, now time.Time) {
	items, _, err := r.repos.Delivery.FindAll(ctx, 1, 500, map[string]string{"is_delayed": "true"})
	if err != nil {
		r.logger.Warn("Reminder sweep: deliveries", zap.Error(err))
		return
	}
	for i := range items {
		d := &items[i]
		if d.DeliveryStatus == entity.DeliveryStatusCompleted {
			continue
		}
		poRef := ""
		if d.PurchaseOrder != nil {
			poRef = d.PurchaseOrder.PORef
		}
		r.mailer.DelayAlert(d, poRef)
	}
}

func (r *Reminder) sweepMaterials(ctx context.Context, now time.Time) {
	items, _, err := r.repos.Material.FindAll(ctx, 1, 500, map[string]string{"approval_status": entity.ApprovalPending})
	if err != nil {
		r.logger.Warn("Reminder sweep: materials", zap.Error(err))
		return
	}
	for i := range items {
		m := &items[i]
		pending := now.Sub(m.CreatedAt)
		if pending < r.stalePending {
			continue
		}
		r.mailer.ApprovalReminder(m, int(pending.Hours()/24))
	}
}

func (r *Reminder) sweepPayments(ctx context.Context, now time.Time) {
	items, _, err := r.repos.Payment.FindAll(ctx, 1, 500, map[string]string{"payment_status": entity.PaymentStatusPending})
	if err != nil {
		r.logger.Warn("Reminder sweep: payments", zap.Error(err))
		return
	}
	for i := range items {
		p := &items[i]
		if p.PaymentDate == nil || p.PaymentDate.After(now) {
			continue
		}
		poRef := ""
		if p.PurchaseOrder != nil {
			poRef = p.PurchaseOrder.PORef
		}
		r.mailer.PaymentReminder(p, poRef)
	}
}

func (r *Reminder) sweepSuggestions(ctx context.Context) {
	items, _, err := r.repos.Suggestion.FindAll(ctx, 1, 100, map[string]string{"status": entity.SuggestionPending})
	if err != nil {
		r.logger.Warn("Reminder sweep: suggestions", zap.Error(err))
		return
	}
	for i := range items {
		r.mailer.SuggestionReview(&items[i])
	}
}
