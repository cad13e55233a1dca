package telegram

import (
	"encoding/json"

	"steelcraft-site/internal/domain"
)

// Update is the webhook payload delivered by the Bot API. Only the fields the
// site uses are decoded.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Inbound converts the update into the bot's message view. It reports false
// for updates without a message.
func (u Update) Inbound() (domain.InboundMessage, bool) {
	if u.Message == nil {
		return domain.InboundMessage{}, false
	}
	m := u.Message
	in := domain.InboundMessage{
		UpdateID: u.UpdateID,
		ChatID:   m.Chat.ID,
		Text:     m.Text,
		HasPhoto: len(m.Photo) > 0,
	}
	if m.From != nil {
		in.SenderID = m.From.ID
		in.Username = m.From.Username
	}
	return in, true
}

// WebhookConfig is the setWebhook request.
type WebhookConfig struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// WebhookInfo is the getWebhookInfo result.
type WebhookInfo struct {
	URL                  string `json:"url"`
	PendingUpdateCount   int    `json:"pending_update_count"`
	LastErrorDate        int64  `json:"last_error_date,omitempty"`
	LastErrorMessage     string `json:"last_error_message,omitempty"`
	MaxConnections       int    `json:"max_connections,omitempty"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}
