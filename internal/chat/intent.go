// Package chat holds the transport-neutral vocabulary exchanged between the
// Telegram adapter and the dispatcher.
package chat

import "context"

// Kind classifies an inbound intent.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindButton
	KindText
	KindPhoto
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	default:
		return "unknown"
	}
}

// Intent is one normalised user interaction.
type Intent struct {
	UserID int64
	ChatID int64
	Handle string
	Kind   Kind

	// Command is the slash command name without the slash, for KindCommand.
	Command string
	// Text is the typed text, or the caption of a photo.
	Text string
	// Action is the decoded button payload, for KindButton. Nil when the
	// payload was not recognised.
	Action Action
	// PressID identifies the button press to acknowledge.
	PressID string
	// PhotoRef is the platform reference of the largest photo size.
	PhotoRef string
}

// Button is one inline button.
type Button struct {
	Label  string
	Action Action
}

// Keyboard is the optional markup attached to an outbound message. Either
// Menu (a persistent reply keyboard of labels) or Inline rows are set.
type Keyboard struct {
	Menu   [][]string
	Inline [][]Button
}

// Notifier sends outbound messages. Implementations must be safe for
// concurrent use.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, kb *Keyboard) error
	AckButton(ctx context.Context, pressID, text string) error
}
