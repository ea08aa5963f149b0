package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xuibot/internal/notify"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

var (
	ErrNotAdmin      = errors.New("broadcast requires administrator rights")
	ErrNotSubscriber = errors.New("reporting requires an account on the panel")
)

// Sender is the slice of the transport adapter the engine needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
	EditReplyMarkup(ctx context.Context, ref transport.MessageRef, kb transport.InlineKeyboard) error
}

// Broadcaster is the dispatcher surface used on flow completion.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string, recipients []int64) notify.Report
	NotifyAdmins(ctx context.Context, text string) notify.Report
}

// Directory answers who may report and who receives broadcasts.
type Directory interface {
	Subscribers(ctx context.Context) ([]int64, error)
	IsSubscriber(ctx context.Context, userID int64) (bool, error)
}

// Engine drives the multi-step dialogs: broadcast composition/confirmation
// and structured incident reports. Each dialog is a small state machine keyed
// by (user, kind); see types.go for the closed step set.
type Engine struct {
	sessions *sessionStore
	sender   Sender
	disp     Broadcaster
	dir      Directory
	admins   *notify.AdminSet
	log      logx.Logger
}

func NewEngine(sender Sender, disp Broadcaster, dir Directory, admins *notify.AdminSet, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		sessions: newSessionStore(),
		sender:   sender,
		disp:     disp,
		dir:      dir,
		admins:   admins,
		log:      log,
	}
}

// ---- entry points ----

// StartBroadcast begins the broadcast dialog for an administrator.
// Non-administrators get a rejection and no session is created.
func (e *Engine) StartBroadcast(ctx context.Context, userID int64) error {
	if !e.admins.Contains(userID) {
		e.reply(ctx, userID, "⛔ Only administrators can send broadcasts.")
		return ErrNotAdmin
	}

	s := e.sessions.begin(userID, KindBroadcast)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Step = StepAwaitingMessage
	e.prompt(ctx, s, "📢 Send the broadcast text as a message.")
	return nil
}

// StartReport begins the incident report dialog for a panel subscriber.
func (e *Engine) StartReport(ctx context.Context, userID int64, username string) error {
	ok, err := e.dir.IsSubscriber(ctx, userID)
	if err != nil {
		e.reply(ctx, userID, "⚠️ The panel is unavailable right now, try again later.")
		return fmt.Errorf("subscriber check: %w", err)
	}
	if !ok {
		e.reply(ctx, userID, "⛔ Reporting is available to panel users only. Contact the administrator.")
		return ErrNotSubscriber
	}

	s := e.sessions.begin(userID, KindReport)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Step = StepAwaitingProvider
	s.setField("submitter", submitterLabel(userID, username))
	e.prompt(ctx, s, "🧾 Incident report.\n\nWhich provider are you on?")
	return nil
}

// CancelAll cancels every active dialog of the user and returns how many
// sessions were discarded.
func (e *Engine) CancelAll(ctx context.Context, userID int64) int {
	n := 0
	for _, s := range e.sessions.active(userID) {
		s.mu.Lock()
		if s.Step != StepIdle {
			e.cancelLocked(ctx, s)
			n++
		}
		s.mu.Unlock()
	}
	if n > 0 {
		e.reply(ctx, userID, "❌ Cancelled.")
	}
	return n
}

// ---- inbound events ----

// HandleText feeds a text message into the user's most recent dialog step
// that consumes text. Returns false when no dialog wanted the message.
func (e *Engine) HandleText(ctx context.Context, msg *transport.Message) bool {
	for _, s := range e.sessions.active(msg.FromID) {
		s.mu.Lock()
		if !consumesText(s.Step) {
			s.mu.Unlock()
			continue
		}
		e.handleTextLocked(ctx, s, msg.Text)
		s.mu.Unlock()
		return true
	}
	return false
}

// HandleCallback feeds a button press into the engine. Returns false when the
// callback data doesn't belong to a flow.
func (e *Engine) HandleCallback(ctx context.Context, cb *transport.Callback) bool {
	kind, action, ok := parseCallback(cb.Data)
	if !ok {
		return false
	}

	s := e.sessions.get(cb.FromID, kind)
	if s == nil {
		e.reply(ctx, cb.FromID, "Nothing in progress.")
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case actionCancel:
		if s.Step == StepIdle {
			return true
		}
		e.cancelLocked(ctx, s)
		e.reply(ctx, cb.FromID, "❌ Cancelled.")
	case actionConfirm:
		if kind != KindBroadcast || s.Step != StepAwaitingConfirmation {
			e.reply(ctx, cb.FromID, "Nothing to confirm.")
			return true
		}
		e.confirmBroadcastLocked(ctx, s)
	default:
		e.log.Debug("unknown flow callback action", logx.String("action", action))
	}
	return true
}

// ---- broadcast flow ----

func (e *Engine) handleTextLocked(ctx context.Context, s *Session, text string) {
	text = strings.TrimSpace(text)

	switch s.Step {
	case StepAwaitingMessage:
		if text == "" {
			e.prompt(ctx, s, "✏️ The message is empty. Send the broadcast text.")
			return
		}
		recipients, err := e.dir.Subscribers(ctx)
		if err != nil {
			e.log.Warn("recipient lookup failed", logx.Err(err))
			e.prompt(ctx, s, "⚠️ The panel is unavailable right now. Send the text again to retry.")
			return
		}
		e.retractLast(ctx, s)
		s.setField("message", text)
		s.Recipients = recipients
		s.Step = StepAwaitingConfirmation

		preview := fmt.Sprintf("📢 Broadcast to %d subscriber(s):\n\n%s\n\nSend it?", len(recipients), text)
		e.promptWith(ctx, s, preview, transport.Row(
			transport.InlineButton{Text: "✅ Send", Data: callbackData(KindBroadcast, actionConfirm)},
			transport.InlineButton{Text: "✖️ Cancel", Data: callbackData(KindBroadcast, actionCancel)},
		))

	case StepAwaitingProvider:
		e.collectLocked(ctx, s, "provider", text, StepAwaitingDevice, "📱 Which device are you using?")
	case StepAwaitingDevice:
		e.collectLocked(ctx, s, "device", text, StepAwaitingComments, "💬 Describe the problem.")
	case StepAwaitingComments:
		if text == "" {
			e.prompt(ctx, s, "✏️ Please describe the problem.")
			return
		}
		e.retractLast(ctx, s)
		s.setField("comments", text)
		e.finishReportLocked(ctx, s)
	}
}

func (e *Engine) collectLocked(ctx context.Context, s *Session, name, value string, next Step, nextPrompt string) {
	if value == "" {
		e.prompt(ctx, s, "✏️ Please answer with text.")
		return
	}
	e.retractLast(ctx, s)
	s.setField(name, value)
	s.Step = next
	e.prompt(ctx, s, nextPrompt)
}

func (e *Engine) confirmBroadcastLocked(ctx context.Context, s *Session) {
	text := s.field("message")
	recipients := s.Recipients
	e.retractAll(ctx, s)
	s.Step = StepIdle
	e.sessions.remove(s)

	rep := e.disp.Broadcast(ctx, text, recipients)
	e.log.Info("broadcast finished",
		logx.Int64("initiator", s.UserID),
		logx.Int("delivered", len(rep.Succeeded)),
		logx.Int("failed", len(rep.Failed)),
	)
	e.reply(ctx, s.UserID, fmt.Sprintf("✅ Broadcast sent: %d delivered, %d failed.",
		len(rep.Succeeded), len(rep.Failed)))
}

// ---- report flow ----

func (e *Engine) finishReportLocked(ctx context.Context, s *Session) {
	s.Step = StepIdle
	e.sessions.remove(s)

	report := fmt.Sprintf("🧾 New incident report\n\nFrom: %s\nProvider: %s\nDevice: %s\nComments: %s\nAt: %s",
		s.field("submitter"),
		s.field("provider"),
		s.field("device"),
		s.field("comments"),
		time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
	)
	rep := e.disp.NotifyAdmins(ctx, report)
	e.log.Info("incident report delivered",
		logx.Int64("submitter", s.UserID),
		logx.Int("delivered", len(rep.Succeeded)),
		logx.Int("failed", len(rep.Failed)),
	)
	e.reply(ctx, s.UserID, "✅ Report sent. Thank you!")
}

// ---- shared helpers ----

// cancelLocked retracts every tracked prompt and discards the session.
// Retractions are best-effort: a failure is logged, never fatal.
func (e *Engine) cancelLocked(ctx context.Context, s *Session) {
	e.retractAll(ctx, s)
	s.Step = StepIdle
	s.Fields = nil
	s.Recipients = nil
	e.sessions.remove(s)
}

func (e *Engine) retractAll(ctx context.Context, s *Session) {
	for _, ref := range s.Prompts {
		if err := e.sender.EditReplyMarkup(ctx, ref, nil); err != nil {
			e.log.Warn("prompt retraction failed",
				logx.Int64("chat", ref.ChatID),
				logx.Int("message", ref.MessageID),
				logx.Err(err),
			)
		}
	}
	s.Prompts = nil
}

func (e *Engine) retractLast(ctx context.Context, s *Session) {
	if len(s.Prompts) == 0 {
		return
	}
	ref := s.Prompts[len(s.Prompts)-1]
	if err := e.sender.EditReplyMarkup(ctx, ref, nil); err != nil {
		e.log.Warn("prompt retraction failed",
			logx.Int64("chat", ref.ChatID),
			logx.Int("message", ref.MessageID),
			logx.Err(err),
		)
	}
}

// prompt sends a step prompt with a cancel button and tracks it for
// later retraction.
func (e *Engine) prompt(ctx context.Context, s *Session, text string) {
	e.promptWith(ctx, s, text, transport.Row(
		transport.InlineButton{Text: "✖️ Cancel", Data: callbackData(s.Kind, actionCancel)},
	))
}

func (e *Engine) promptWith(ctx context.Context, s *Session, text string, kb transport.InlineKeyboard) {
	ref, err := e.sender.SendText(ctx, transport.ChatTarget{ChatID: s.UserID}, text, &transport.SendOptions{Keyboard: kb})
	if err != nil {
		e.log.Warn("prompt send failed", logx.Int64("user", s.UserID), logx.Err(err))
		return
	}
	s.Prompts = append(s.Prompts, ref)
}

func (e *Engine) reply(ctx context.Context, userID int64, text string) {
	if _, err := e.sender.SendText(ctx, transport.ChatTarget{ChatID: userID}, text, nil); err != nil {
		e.log.Warn("reply send failed", logx.Int64("user", userID), logx.Err(err))
	}
}

func consumesText(s Step) bool {
	switch s {
	case StepAwaitingMessage, StepAwaitingProvider, StepAwaitingDevice, StepAwaitingComments:
		return true
	default:
		return false
	}
}

func submitterLabel(userID int64, username string) string {
	if username != "" {
		return fmt.Sprintf("@%s (%d)", username, userID)
	}
	return fmt.Sprintf("%d", userID)
}
