// Package conversation implements the article authoring dialogue as a pure
// transition function over domain.Session. It performs no I/O.
package conversation

import (
	"strings"
	"time"

	"steelcraft-site/internal/domain"
)

// SkipWord leaves an optional field unset.
const SkipWord = "skip"

// Effect tells the caller what to do after a transition.
type Effect int

const (
	// EffectPrompt means the session advanced and Prompt should be sent.
	EffectPrompt Effect = iota + 1
	// EffectCreate means the draft is complete and the article should be created.
	EffectCreate
)

// Transition is the result of feeding one message to a session.
type Transition struct {
	Session domain.Session
	Effect  Effect
	Prompt  string
}

const (
	PromptTitle   = "📝 Создание новой статьи.\n\nОтправьте <b>заголовок</b> статьи.\n\n/cancel - отменить"
	PromptContent = "Отправьте <b>текст</b> статьи (поддерживается Markdown)."
	PromptExcerpt = "Отправьте <b>краткое описание</b> статьи или «skip», чтобы пропустить."
	PromptImage   = "Отправьте <b>ссылку на обложку</b> или «skip», чтобы использовать изображение по умолчанию."
)

// Start opens a new session at the title step.
func Start(operatorID, chatID int64, username string, now time.Time) Transition {
	return Transition{
		Session: domain.Session{
			OperatorID: operatorID,
			ChatID:     chatID,
			Username:   username,
			Step:       domain.StepAwaitingTitle,
			StartedAt:  now.UTC(),
		},
		Effect: EffectPrompt,
		Prompt: PromptTitle,
	}
}

// Advance applies text to the session's current step.
func Advance(s domain.Session, text string) Transition {
	text = strings.TrimSpace(text)
	switch s.Step {
	case domain.StepAwaitingTitle:
		s.Draft.Title = text
		s.Step = domain.StepAwaitingContent
		return Transition{Session: s, Effect: EffectPrompt, Prompt: PromptContent}
	case domain.StepAwaitingContent:
		s.Draft.Content = text
		s.Step = domain.StepAwaitingExcerpt
		return Transition{Session: s, Effect: EffectPrompt, Prompt: PromptExcerpt}
	case domain.StepAwaitingExcerpt:
		if !IsSkip(text) {
			s.Draft.Excerpt = text
		}
		s.Step = domain.StepAwaitingImage
		return Transition{Session: s, Effect: EffectPrompt, Prompt: PromptImage}
	default:
		// awaiting_image, and any unknown step persisted by an older build.
		if !IsSkip(text) {
			s.Draft.CoverImageURL = text
		}
		return Transition{Session: s, Effect: EffectCreate}
	}
}

// IsSkip reports whether text is the skip sentinel.
func IsSkip(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), SkipWord)
}
