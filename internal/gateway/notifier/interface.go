package notifier

// TextNotifier defines a minimal text notification interface.
// The recipient is fixed when the implementation is constructed.
type TextNotifier interface {
	SendText(text string) error
}

// ChatSender replies to a specific chat, used for command answers.
type ChatSender interface {
	SendTo(chatID, text string) error
}

// Nop discards everything; used when notifications are disabled.
type Nop struct{}

func (Nop) SendText(string) error { return nil }
func (Nop) SendTo(string, string) error { return nil }

var (
	_ TextNotifier = Nop{}
	_ ChatSender   = Nop{}
	_ TextNotifier = (*Telegram)(nil)
	_ ChatSender   = (*Telegram)(nil)
)
