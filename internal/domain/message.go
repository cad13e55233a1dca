package domain

// InboundMessage is a provider-agnostic view of a message delivered to the bot.
type InboundMessage struct {
	UpdateID int64
	SenderID int64
	Username string
	ChatID   int64
	Text     string
	HasPhoto bool
}
