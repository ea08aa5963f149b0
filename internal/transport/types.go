package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID int64
}

// MessageRef identifies a previously sent message, e.g. for editing its
// inline keyboard away after a dialog step is consumed.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// InlineButton is one inline-keyboard button. Data is delivered back verbatim
// in the resulting Callback.
type InlineButton struct {
	Text string
	Data string
}

// InlineKeyboard is rows of buttons. A nil keyboard means "no keyboard".
type InlineKeyboard [][]InlineButton

// Row is a convenience constructor for a single keyboard row.
func Row(btns ...InlineButton) InlineKeyboard {
	return InlineKeyboard{btns}
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Keyboard       InlineKeyboard
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	// EditReplyMarkup replaces the inline keyboard of a sent message.
	// Passing a nil keyboard removes it.
	EditReplyMarkup(ctx context.Context, ref MessageRef, kb InlineKeyboard) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}
