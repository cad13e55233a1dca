package usecase

import (
	"context"
	"fmt"
	"strings"

	"steelcraft-site/internal/conversation"
	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
)

type commandFunc func(ctx context.Context, msg domain.InboundMessage) error

func (b *Bot) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"/start":         b.cmdStart,
		"/help":          b.cmdHelp,
		"/new_article":   b.cmdNewArticle,
		"/list_articles": b.cmdListArticles,
		"/cancel":        b.cmdCancel,
	}
}

func (b *Bot) dispatch(ctx context.Context, msg domain.InboundMessage, text string) error {
	name := commandName(text)
	cmd, ok := b.commands[name]
	if !ok {
		b.reply(ctx, msg.ChatID, replyUnknownCommand)
		return nil
	}
	b.log.Debug("bot: command", logger.String("command", name), logger.Int64("operator_id", msg.SenderID))
	return cmd(ctx, msg)
}

// commandName returns the first token of text, lower-cased, without a
// "@botname" suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}

func (b *Bot) cmdStart(ctx context.Context, msg domain.InboundMessage) error {
	b.reply(ctx, msg.ChatID, startReply())
	return nil
}

func (b *Bot) cmdHelp(ctx context.Context, msg domain.InboundMessage) error {
	b.reply(ctx, msg.ChatID, helpReply())
	return nil
}

func (b *Bot) cmdNewArticle(ctx context.Context, msg domain.InboundMessage) error {
	tr := conversation.Start(msg.SenderID, msg.ChatID, msg.Username, b.now())
	if err := b.sessions.Set(ctx, msg.SenderID, tr.Session); err != nil {
		b.reply(ctx, msg.ChatID, replySessionFailed)
		return fmt.Errorf("usecase: start session: %w", err)
	}
	b.reply(ctx, msg.ChatID, tr.Prompt)
	return nil
}

func (b *Bot) cmdCancel(ctx context.Context, msg domain.InboundMessage) error {
	_, ok, err := b.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		b.reply(ctx, msg.ChatID, replySessionFailed)
		return fmt.Errorf("usecase: load session: %w", err)
	}
	if !ok {
		b.reply(ctx, msg.ChatID, replyNothingToStop)
		return nil
	}
	if err := b.sessions.Delete(ctx, msg.SenderID); err != nil {
		b.reply(ctx, msg.ChatID, replySessionFailed)
		return fmt.Errorf("usecase: delete session: %w", err)
	}
	b.reply(ctx, msg.ChatID, replyCancelled)
	return nil
}

func (b *Bot) cmdListArticles(ctx context.Context, msg domain.InboundMessage) error {
	articles, err := b.articles.ListRecent(ctx, recentArticlesLimit)
	if err != nil {
		b.log.Error("bot: list articles failed", logger.Error(err))
		b.reply(ctx, msg.ChatID, replyListFailed)
		return nil
	}
	if len(articles) == 0 {
		b.reply(ctx, msg.ChatID, replyNoArticles)
		return nil
	}
	b.reply(ctx, msg.ChatID, articleListReply(articles))
	return nil
}
