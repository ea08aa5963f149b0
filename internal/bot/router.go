package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"xuibot/internal/flow"
	"xuibot/internal/notify"
	"xuibot/internal/panel"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

// handlerTimeout bounds one inbound update's processing, including its
// outbound sends.
const handlerTimeout = 30 * time.Second

// Router consumes inbound updates and routes them to commands, the menu
// callbacks, or the conversation engine. Handlers for different updates run
// concurrently; per-dialog serialization happens inside the engine.
type Router struct {
	adapter transport.Adapter
	engine  *flow.Engine
	store   panel.Store
	admins  *notify.AdminSet
	log     logx.Logger

	wg sync.WaitGroup
}

func NewRouter(adapter transport.Adapter, engine *flow.Engine, store panel.Store, admins *notify.AdminSet, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		adapter: adapter,
		engine:  engine,
		store:   store,
		admins:  admins,
		log:     log,
	}
}

// DispatchLoop drains the update channel until ctx is done. It returns after
// all in-flight handlers finished.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.wg.Add(1)
			go func(up transport.Update) {
				defer r.wg.Done()
				r.handle(ctx, up)
			}(up)
		}
	}
}

func (r *Router) handle(ctx context.Context, up transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic recovered",
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()

	hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			r.handleMessage(hctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(hctx, up.Callback)
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *transport.Message) {
	if cmd, ok := parseCommand(msg.Text); ok {
		r.handleCommand(ctx, msg, cmd)
		return
	}
	// Plain text goes to whichever dialog is waiting for it.
	r.engine.HandleText(ctx, msg)
}

func (r *Router) handleCommand(ctx context.Context, msg *transport.Message, cmd string) {
	log := r.log.With(logx.Int64("from", msg.FromID), logx.String("cmd", cmd))

	switch cmd {
	case "start":
		clients, err := r.userClients(ctx, msg.FromID)
		if err != nil {
			log.Warn("panel read failed", logx.Err(err))
			r.reply(ctx, msg.ChatID, "⚠️ The panel is unavailable right now, try again later.")
			return
		}
		if len(clients) == 0 {
			r.reply(ctx, msg.ChatID, fmt.Sprintf(
				"Hi! 👋\n\nYour Telegram ID: %d\n\n❌ No account is linked to you.\nContact the administrator to get one.",
				msg.FromID))
			return
		}
		r.sendMenu(ctx, msg.ChatID, clients)

	case "menu":
		clients, err := r.userClients(ctx, msg.FromID)
		if err != nil {
			log.Warn("panel read failed", logx.Err(err))
			r.reply(ctx, msg.ChatID, "⚠️ The panel is unavailable right now, try again later.")
			return
		}
		if len(clients) == 0 {
			r.reply(ctx, msg.ChatID, "❌ You are not authorized. Contact the administrator.")
			return
		}
		r.sendMenu(ctx, msg.ChatID, clients)

	case "broadcast":
		if err := r.engine.StartBroadcast(ctx, msg.FromID); err != nil && !errors.Is(err, flow.ErrNotAdmin) {
			log.Warn("broadcast entry failed", logx.Err(err))
		}

	case "report":
		err := r.engine.StartReport(ctx, msg.FromID, msg.FromUsername)
		if err != nil && !errors.Is(err, flow.ErrNotSubscriber) {
			log.Warn("report entry failed", logx.Err(err))
		}

	case "cancel":
		if n := r.engine.CancelAll(ctx, msg.FromID); n == 0 {
			r.reply(ctx, msg.ChatID, "Nothing to cancel.")
		}

	case "help":
		r.reply(ctx, msg.ChatID, helpText(r.admins.Contains(msg.FromID)))

	default:
		log.Debug("unknown command ignored")
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	// Always stop the button spinner, whatever happens next.
	if err := r.adapter.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.log.Debug("callback answer failed", logx.Err(err))
	}

	if r.engine.HandleCallback(ctx, cb) {
		return
	}
	r.handleMenuCallback(ctx, cb)
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, nil); err != nil {
		r.log.Warn("reply failed", logx.Int64("chat", chatID), logx.Err(err))
	}
}

func (r *Router) userClients(ctx context.Context, userID int64) ([]panel.Client, error) {
	clients, err := r.store.Clients(ctx)
	if err != nil {
		return nil, err
	}
	var out []panel.Client
	for _, c := range clients {
		if c.TgID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// parseCommand extracts "cmd" from "/cmd args" or "/cmd@botname args".
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", false
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", false
	}
	return strings.ToLower(cmd), true
}

func helpText(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("/menu — your accounts and traffic\n")
	b.WriteString("/report — report a connection problem\n")
	b.WriteString("/cancel — abort the current dialog\n")
	if isAdmin {
		b.WriteString("/broadcast — message all subscribers\n")
	}
	return b.String()
}
