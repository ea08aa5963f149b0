package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"xuibot/internal/monitor"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

// Sender is the slice of the transport adapter the dispatcher needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// Report is the outcome of one fan-out.
type Report struct {
	Succeeded []int64
	Failed    []int64
}

func (r Report) Total() int { return len(r.Succeeded) + len(r.Failed) }

type Config struct {
	// RatePerSec caps outbound sends (Telegram flood control). Default 10.
	RatePerSec int
}

// Dispatcher fans change events and composed messages out to recipients.
//
// Delivery is best-effort by policy: each recipient is attempted exactly once
// per event, one recipient's failure never blocks the others, and failures
// are counted but not retried. A send that fails for a change that never
// recurs is lost; that trade-off is deliberate and keeps notification volume
// predictable.
type Dispatcher struct {
	sender  Sender
	admins  *AdminSet
	limiter *rate.Limiter
	log     logx.Logger
}

func NewDispatcher(cfg Config, sender Sender, admins *AdminSet, log logx.Logger) *Dispatcher {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		sender:  sender,
		admins:  admins,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// DispatchChange routes one monitor change to its recipients.
func (d *Dispatcher) DispatchChange(ctx context.Context, ch monitor.Change) {
	switch ch.Kind {
	case monitor.ChangeConfig:
		if ch.OwnerID == 0 {
			// Unowned account: nobody to tell.
			return
		}
		text := fmt.Sprintf("🚨 Config for %s was updated\n\n```\n%s\n```", ch.Email, ch.Config)
		if err := d.sendOne(ctx, ch.OwnerID, text, markdownOpts()); err != nil {
			d.log.Warn("config change notification failed",
				logx.Int64("owner", ch.OwnerID),
				logx.String("email", ch.Email),
				logx.Err(err),
			)
		} else {
			d.log.Info("config change notified",
				logx.Int64("owner", ch.OwnerID),
				logx.String("email", ch.Email),
			)
		}

	case monitor.ChangeNewAccount:
		c := ch.Client
		text := fmt.Sprintf("🆕 New account on the panel\n\nEmail: %s\nOwner: %s\nQuota: %s\nExpires: %s\nEnabled: %t",
			c.Email, ownerLabel(c.TgID), quotaLabel(c.TotalGB), expiryLabel(c.ExpiryTime), c.Enable)
		if c.Comment != "" {
			text += "\nComment: " + c.Comment
		}
		rep := d.NotifyAdmins(ctx, text)
		if len(rep.Failed) > 0 {
			d.log.Warn("new account alert partially failed",
				logx.String("email", c.Email),
				logx.Int("failed", len(rep.Failed)),
			)
		}
	}
}

// NotifyAdmins fans a message out to every configured administrator.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, text string) Report {
	return d.fanOut(ctx, d.admins.IDs(), text, nil)
}

// Broadcast fans a message out to the given subscriber ids and returns the
// per-recipient outcome for the caller to report back to the operator.
func (d *Dispatcher) Broadcast(ctx context.Context, text string, recipients []int64) Report {
	return d.fanOut(ctx, recipients, text, nil)
}

// fanOut delivers to each recipient independently: no short-circuit, no retry.
func (d *Dispatcher) fanOut(ctx context.Context, recipients []int64, text string, opt *transport.SendOptions) Report {
	var rep Report
	for _, id := range recipients {
		if err := d.sendOne(ctx, id, text, opt); err != nil {
			rep.Failed = append(rep.Failed, id)
			d.log.Warn("delivery failed", logx.Int64("recipient", id), logx.Err(err))
			continue
		}
		rep.Succeeded = append(rep.Succeeded, id)
	}
	return rep
}

func (d *Dispatcher) sendOne(ctx context.Context, recipient int64, text string, opt *transport.SendOptions) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := d.sender.SendText(ctx, transport.ChatTarget{ChatID: recipient}, text, opt)
	return err
}

func markdownOpts() *transport.SendOptions {
	return &transport.SendOptions{ParseMode: "Markdown"}
}

func ownerLabel(tgID int64) string {
	if tgID == 0 {
		return "unassigned"
	}
	return fmt.Sprintf("%d", tgID)
}

func quotaLabel(totalBytes int64) string {
	if totalBytes == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%.2f GB", float64(totalBytes)/(1<<30))
}

func expiryLabel(epochMs int64) string {
	if epochMs == 0 {
		return "never"
	}
	return time.UnixMilli(epochMs).UTC().Format("2006-01-02 15:04")
}
