package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"steelcraft-site/internal/conversation"
	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/slug"
)

const recentArticlesLimit = 10

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
}

type SessionStore interface {
	Get(ctx context.Context, operatorID int64) (domain.Session, bool, error)
	Set(ctx context.Context, operatorID int64, s domain.Session) error
	Delete(ctx context.Context, operatorID int64) error
}

type ArticleWriter interface {
	FindBySlug(ctx context.Context, slug string) (domain.Article, bool, error)
	Create(ctx context.Context, a domain.Article) error
	ListRecent(ctx context.Context, limit int) ([]domain.Article, error)
}

type BotConfig struct {
	AdminUsernames []string
	SiteURL        string
}

// Bot drives the operator chat: command dispatch and the article authoring
// conversation.
type Bot struct {
	notifier Notifier
	sessions SessionStore
	articles ArticleWriter
	log      logger.Logger
	admins   map[string]struct{}
	siteURL  string
	commands map[string]commandFunc

	now   func() time.Time
	newID func() string
}

func NewBot(n Notifier, s SessionStore, a ArticleWriter, log logger.Logger, cfg BotConfig) (*Bot, error) {
	if n == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if a == nil {
		return nil, errors.New("usecase: article store must not be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	b := &Bot{
		notifier: n,
		sessions: s,
		articles: a,
		log:      log,
		admins:   make(map[string]struct{}, len(cfg.AdminUsernames)),
		siteURL:  strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, name := range cfg.AdminUsernames {
		if name = normalizeHandle(name); name != "" {
			b.admins[name] = struct{}{}
		}
	}
	b.commands = b.commandTable()
	return b, nil
}

// ErrUnauthorized is returned by HandleMessage for senders outside the
// operator allow-list, after the refusal has been sent.
var ErrUnauthorized = errors.New("usecase: sender is not an operator")

// HandleMessage processes one inbound message. Replies are best effort; the
// returned error is ErrUnauthorized or a session store failure.
func (b *Bot) HandleMessage(ctx context.Context, msg domain.InboundMessage) error {
	log := b.log.With(logger.Int64("update_id", msg.UpdateID), logger.Int64("operator_id", msg.SenderID))

	if !b.Authorized(msg.Username) {
		log.Warn("bot: unauthorized sender", logger.String("username", msg.Username))
		b.reply(ctx, msg.ChatID, replyUnauthorized)
		return ErrUnauthorized
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return b.dispatch(ctx, msg, text)
	}

	sess, ok, err := b.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		b.reply(ctx, msg.ChatID, replySessionFailed)
		return fmt.Errorf("usecase: load session: %w", err)
	}
	if !ok {
		log.Debug("bot: no open conversation, ignoring message")
		return nil
	}

	if text == "" {
		if msg.HasPhoto && sess.Step == domain.StepAwaitingImage {
			b.reply(ctx, msg.ChatID, replyPhotoHint)
		}
		return nil
	}

	tr := conversation.Advance(sess, text)
	if tr.Effect == conversation.EffectCreate {
		b.createArticle(ctx, log, tr.Session)
		if err := b.sessions.Delete(ctx, msg.SenderID); err != nil {
			return fmt.Errorf("usecase: delete session: %w", err)
		}
		return nil
	}

	if err := b.sessions.Set(ctx, msg.SenderID, tr.Session); err != nil {
		b.reply(ctx, msg.ChatID, replySessionFailed)
		return fmt.Errorf("usecase: save session: %w", err)
	}
	b.reply(ctx, msg.ChatID, tr.Prompt)
	return nil
}

// Authorized reports whether username is on the operator allow-list.
func (b *Bot) Authorized(username string) bool {
	name := normalizeHandle(username)
	if name == "" {
		return false
	}
	_, ok := b.admins[name]
	return ok
}

func (b *Bot) createArticle(ctx context.Context, log logger.Logger, sess domain.Session) {
	draft := sess.Draft
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Content) == "" {
		b.reply(ctx, sess.ChatID, replyMissingFields)
		return
	}

	articleSlug := slug.Make(draft.Title)
	if articleSlug == "" {
		log.Warn("bot: title yields empty slug", logger.String("title", draft.Title))
		b.reply(ctx, sess.ChatID, replyEmptySlug)
		return
	}

	_, exists, err := b.articles.FindBySlug(ctx, articleSlug)
	if err != nil {
		log.Error("bot: article lookup failed", logger.String("slug", articleSlug), logger.Error(err))
		b.reply(ctx, sess.ChatID, replyCreateFailed)
		return
	}
	if exists {
		b.reply(ctx, sess.ChatID, slugConflictReply(articleSlug))
		return
	}

	article := newArticle(draft, articleSlug, sess.Username, b.newID(), b.now().UTC())
	if err := b.articles.Create(ctx, article); err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			b.reply(ctx, sess.ChatID, slugConflictReply(articleSlug))
			return
		}
		log.Error("bot: article create failed", logger.String("slug", articleSlug), logger.Error(err))
		b.reply(ctx, sess.ChatID, replyCreateFailed)
		return
	}

	log.Info("bot: article created", logger.String("slug", articleSlug))
	b.reply(ctx, sess.ChatID, createdReply(article, b.articleURL(articleSlug)))
}

func newArticle(d domain.Draft, articleSlug, author, id string, now time.Time) domain.Article {
	a := domain.Article{
		ID:              id,
		Slug:            articleSlug,
		Title:           strings.TrimSpace(d.Title),
		Content:         d.Content,
		Excerpt:         d.Excerpt,
		CoverImage:      d.CoverImageURL,
		MetaTitle:       strings.TrimSpace(d.Title),
		MetaDescription: d.Excerpt,
		Published:       true,
		PublishedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
		AuthorUsername:  author,
	}
	if a.MetaDescription == "" {
		a.MetaDescription = a.Title
	}
	if a.CoverImage == "" {
		a.CoverImage = domain.DefaultCoverImage
	}
	return a
}

func (b *Bot) articleURL(articleSlug string) string {
	return b.siteURL + "/article/" + articleSlug
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.notifier.SendMessage(ctx, chatID, text); err != nil {
		b.log.Error("bot: send reply failed", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

func normalizeHandle(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
