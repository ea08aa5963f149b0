package bot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"xuibot/internal/panel"
	"xuibot/internal/transport"
	logx "xuibot/pkg/logx"
)

// Menu callbacks are formatted "menu:<action>:<payload>".
const (
	menuDataOpen    = "menu:open:"
	menuDataRefresh = "menu:refresh:"
	menuDataConfig  = "menu:config:" // payload is the client email
)

// sendMenu sends one card per client: traffic stats plus config/refresh
// buttons, following the panel bot's classic layout.
func (r *Router) sendMenu(ctx context.Context, chatID int64, clients []panel.Client) {
	for _, c := range clients {
		text := r.clientCard(ctx, c)
		kb := transport.InlineKeyboard{
			{transport.InlineButton{Text: "📄 My config", Data: menuDataConfig + c.Email}},
			{transport.InlineButton{Text: "🔄 Refresh", Data: menuDataRefresh}},
		}
		_, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text,
			&transport.SendOptions{ParseMode: "Markdown", Keyboard: kb})
		if err != nil {
			r.log.Warn("menu send failed", logx.Int64("chat", chatID), logx.Err(err))
		}
	}
}

func (r *Router) clientCard(ctx context.Context, c panel.Client) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 **%s**\n\n", c.Email)

	if t, ok, err := r.store.Traffic(ctx, c.Email); err != nil {
		r.log.Warn("traffic read failed", logx.String("email", c.Email), logx.Err(err))
		b.WriteString("📊 Traffic stats unavailable")
	} else if !ok {
		b.WriteString("📊 Traffic stats unavailable")
	} else {
		up := bytesToGB(t.Up)
		down := bytesToGB(t.Down)
		fmt.Fprintf(&b, "🔼 Upload: ↑%.2f GB\n", up)
		fmt.Fprintf(&b, "🔽 Download: ↓%.2f GB\n", down)
		fmt.Fprintf(&b, "📊 Total: ↑↓%.2f GB", up+down)
	}

	fmt.Fprintf(&b, "\n\n📋🔄 Updated: %s", time.Now().Format("2006-01-02 15:04:05"))
	return b.String()
}

func (r *Router) handleMenuCallback(ctx context.Context, cb *transport.Callback) {
	switch {
	case strings.HasPrefix(cb.Data, menuDataConfig):
		email := strings.TrimPrefix(cb.Data, menuDataConfig)
		r.sendClientConfig(ctx, cb.FromID, cb.ChatID, email)

	case strings.HasPrefix(cb.Data, menuDataRefresh), strings.HasPrefix(cb.Data, menuDataOpen):
		clients, err := r.userClients(ctx, cb.FromID)
		if err != nil {
			r.log.Warn("panel read failed", logx.Err(err))
			r.reply(ctx, cb.ChatID, "⚠️ The panel is unavailable right now, try again later.")
			return
		}
		if len(clients) == 0 {
			r.reply(ctx, cb.ChatID, "❌ No accounts found.")
			return
		}
		r.sendMenu(ctx, cb.ChatID, clients)

	default:
		r.log.Debug("unknown callback ignored", logx.String("data", cb.Data))
	}
}

// sendClientConfig renders and sends the caller's config for the given email.
// Ownership is re-checked: the email travels through callback data, which any
// client can forge.
func (r *Router) sendClientConfig(ctx context.Context, userID, chatID int64, email string) {
	clients, err := r.userClients(ctx, userID)
	if err != nil {
		r.log.Warn("panel read failed", logx.Err(err))
		r.reply(ctx, chatID, "⚠️ The panel is unavailable right now, try again later.")
		return
	}
	var owned *panel.Client
	for i := range clients {
		if clients[i].Email == email {
			owned = &clients[i]
			break
		}
	}
	if owned == nil {
		r.reply(ctx, chatID, "❌ Account not found.")
		return
	}

	meta, err := r.store.Inbound(ctx)
	if err != nil {
		r.log.Warn("inbound read failed", logx.Err(err))
		r.reply(ctx, chatID, "⚠️ The panel is unavailable right now, try again later.")
		return
	}

	text := fmt.Sprintf("📄 Your config:\n\n```\n%s\n```", panel.Render(meta, *owned))
	kb := transport.Row(transport.InlineButton{Text: "📋 Menu", Data: menuDataOpen})
	_, err = r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text,
		&transport.SendOptions{ParseMode: "Markdown", Keyboard: kb})
	if err != nil {
		r.log.Warn("config send failed", logx.Int64("chat", chatID), logx.Err(err))
	}
}

func bytesToGB(b int64) float64 {
	return math.Round(float64(b)/(1<<30)*100) / 100
}
