package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/conversation"
	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
)

const (
	operatorID = int64(1001)
	chatID     = int64(2002)
)

var fixedNow = time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

type botFixture struct {
	bot      *Bot
	notifier *fakeNotifier
	sessions *fakeSessions
	articles *fakeArticles
}

func newBotFixture(t *testing.T, seed ...domain.Article) *botFixture {
	t.Helper()
	f := &botFixture{
		notifier: &fakeNotifier{},
		sessions: newFakeSessions(),
		articles: newFakeArticles(seed...),
	}
	bot, err := NewBot(f.notifier, f.sessions, f.articles, logger.NewNop(), BotConfig{
		AdminUsernames: []string{" @Operator ", "second"},
		SiteURL:        "https://example.ru/",
	})
	require.NoError(t, err)
	bot.now = func() time.Time { return fixedNow }
	ids := 0
	bot.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	f.bot = bot
	return f
}

func (f *botFixture) send(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, f.bot.HandleMessage(context.Background(), domain.InboundMessage{
		UpdateID: 1,
		SenderID: operatorID,
		Username: "operator",
		ChatID:   chatID,
		Text:     text,
	}))
}

func TestNewBot_ValidatesDependencies(t *testing.T) {
	_, err := NewBot(nil, newFakeSessions(), newFakeArticles(), nil, BotConfig{})
	require.Error(t, err)
	_, err = NewBot(&fakeNotifier{}, nil, newFakeArticles(), nil, BotConfig{})
	require.Error(t, err)
	_, err = NewBot(&fakeNotifier{}, newFakeSessions(), nil, nil, BotConfig{})
	require.Error(t, err)
}

func TestBot_Authorized(t *testing.T) {
	f := newBotFixture(t)
	require.True(t, f.bot.Authorized("operator"))
	require.True(t, f.bot.Authorized("@OPERATOR"))
	require.True(t, f.bot.Authorized("second"))
	require.False(t, f.bot.Authorized(""))
	require.False(t, f.bot.Authorized("stranger"))
}

func TestBot_UnauthorizedSenderGetsRefusal(t *testing.T) {
	f := newBotFixture(t)
	err := f.bot.HandleMessage(context.Background(), domain.InboundMessage{
		SenderID: 5, Username: "stranger", ChatID: 55, Text: "/new_article",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, []sentMessage{{chatID: 55, text: replyUnauthorized}}, f.notifier.messages)
	require.Empty(t, f.sessions.items)
}

func TestBot_FullConversationCreatesArticle(t *testing.T) {
	f := newBotFixture(t)

	f.send(t, "/new_article")
	require.Equal(t, conversation.PromptTitle, f.notifier.last())
	f.send(t, "Title")
	require.Equal(t, conversation.PromptContent, f.notifier.last())
	f.send(t, "Content")
	require.Equal(t, conversation.PromptExcerpt, f.notifier.last())
	f.send(t, "skip")
	require.Equal(t, conversation.PromptImage, f.notifier.last())
	f.send(t, "skip")

	require.Equal(t, 1, f.articles.creates)
	require.Len(t, f.articles.items, 1)
	got := f.articles.items["title"]
	require.Equal(t, domain.Article{
		ID:              "id-1",
		Slug:            "title",
		Title:           "Title",
		Content:         "Content",
		CoverImage:      domain.DefaultCoverImage,
		MetaTitle:       "Title",
		MetaDescription: "Title",
		Published:       true,
		PublishedAt:     fixedNow,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
		AuthorUsername:  "operator",
	}, got)
	require.Empty(t, f.sessions.items)
	require.Contains(t, f.notifier.last(), "✅ Статья опубликована!")
	require.Contains(t, f.notifier.last(), "https://example.ru/article/title")
}

func TestBot_ExcerptAndCoverAreStored(t *testing.T) {
	f := newBotFixture(t)
	for _, text := range []string{"/new_article", "Шестерни цилиндрические", "Текст", "Кратко", "https://cdn.example.ru/g.jpg"} {
		f.send(t, text)
	}
	got, ok := f.articles.items["shesterni-tsilindricheskie"]
	require.True(t, ok)
	require.Equal(t, "Кратко", got.Excerpt)
	require.Equal(t, "Кратко", got.MetaDescription)
	require.Equal(t, "https://cdn.example.ru/g.jpg", got.CoverImage)
}

func TestBot_SecondArticleWithSameTitleIsRejected(t *testing.T) {
	f := newBotFixture(t)
	for i := 0; i < 2; i++ {
		for _, text := range []string{"/new_article", "Title", "Content", "skip", "skip"} {
			f.send(t, text)
		}
	}
	require.Len(t, f.articles.items, 1)
	require.Equal(t, 1, f.articles.creates)
	require.Equal(t, slugConflictReply("title"), f.notifier.last())
	require.Empty(t, f.sessions.items)
}

func TestBot_StoreLevelConflictIsReportedAsConflict(t *testing.T) {
	f := newBotFixture(t)
	f.articles.createErr = fmt.Errorf("repository: Create: %w", domain.ErrSlugTaken)
	for _, text := range []string{"/new_article", "Title", "Content", "skip", "skip"} {
		f.send(t, text)
	}
	require.Equal(t, slugConflictReply("title"), f.notifier.last())
	require.Empty(t, f.sessions.items)
}

func TestBot_CancelClearsSession(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/new_article")
	f.send(t, "Title")
	f.send(t, "/cancel")
	require.Equal(t, replyCancelled, f.notifier.last())
	require.Empty(t, f.sessions.items)

	sent := len(f.notifier.messages)
	f.send(t, "Content")
	require.Len(t, f.notifier.messages, sent)
	require.Empty(t, f.sessions.items)
	require.Zero(t, f.articles.creates)
}

func TestBot_CancelWithoutSession(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/cancel")
	require.Equal(t, replyNothingToStop, f.notifier.last())
}

func TestBot_PlainTextWithoutSessionIsIgnored(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "hello")
	f.send(t, "")
	require.Empty(t, f.notifier.messages)
}

func TestBot_CommandMidConversationDoesNotAdvance(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/new_article")
	f.send(t, "/help")
	require.Equal(t, helpReply(), f.notifier.last())
	require.Equal(t, domain.StepAwaitingTitle, f.sessions.items[operatorID].Step)
	require.Empty(t, f.sessions.items[operatorID].Draft.Title)
}

func TestBot_NewArticleRestartsConversation(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/new_article")
	f.send(t, "Old title")
	f.send(t, "/new_article")
	s := f.sessions.items[operatorID]
	require.Equal(t, domain.StepAwaitingTitle, s.Step)
	require.Empty(t, s.Draft.Title)
	require.Equal(t, chatID, s.ChatID)
}

func TestBot_Commands(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/start")
	require.Equal(t, startReply(), f.notifier.last())
	f.send(t, "/HELP@steelcraft_bot extra")
	require.Equal(t, helpReply(), f.notifier.last())
	f.send(t, "/unknown")
	require.Equal(t, replyUnknownCommand, f.notifier.last())
}

func TestBot_ListArticles(t *testing.T) {
	f := newBotFixture(t,
		domain.Article{Slug: "old", Title: "Old", Published: true, CreatedAt: fixedNow.Add(-time.Hour)},
		domain.Article{Slug: "draft", Title: "Draft <b>", Published: false, CreatedAt: fixedNow},
	)
	f.send(t, "/list_articles")
	want := "<b>📚 Последние статьи:</b>\n" +
		"\n1. 📝 Draft &lt;b&gt;\n   /article/draft" +
		"\n2. ✅ Old\n   /article/old"
	require.Equal(t, want, f.notifier.last())
}

func TestBot_ListArticlesLimitsToTen(t *testing.T) {
	var seed []domain.Article
	for i := 0; i < 15; i++ {
		seed = append(seed, domain.Article{Slug: fmt.Sprintf("a-%d", i), Title: "A", CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute)})
	}
	f := newBotFixture(t, seed...)
	f.send(t, "/list_articles")
	require.Contains(t, f.notifier.last(), "\n10. ")
	require.NotContains(t, f.notifier.last(), "\n11. ")
}

func TestBot_ListArticlesEmptyAndError(t *testing.T) {
	f := newBotFixture(t)
	f.send(t, "/list_articles")
	require.Equal(t, replyNoArticles, f.notifier.last())

	f.articles.listErr = errBoom
	f.send(t, "/list_articles")
	require.Equal(t, replyListFailed, f.notifier.last())
}

func TestBot_MissingFieldsAreReported(t *testing.T) {
	f := newBotFixture(t)
	for _, text := range []string{"/new_article", "Title"} {
		f.send(t, text)
	}
	s := f.sessions.items[operatorID]
	s.Draft.Content = ""
	s.Step = domain.StepAwaitingImage
	f.sessions.items[operatorID] = s

	f.send(t, "skip")
	require.Equal(t, replyMissingFields, f.notifier.last())
	require.Zero(t, f.articles.creates)
	require.Empty(t, f.sessions.items)
}

func TestBot_EmptySlugIsRejected(t *testing.T) {
	f := newBotFixture(t)
	for _, text := range []string{"/new_article", "!!!", "Content", "skip", "skip"} {
		f.send(t, text)
	}
	require.Equal(t, replyEmptySlug, f.notifier.last())
	require.Zero(t, f.articles.creates)
	require.Empty(t, f.sessions.items)
}

func TestBot_DatastoreErrorsAreReportedGenerically(t *testing.T) {
	f := newBotFixture(t)
	f.articles.findErr = errBoom
	for _, text := range []string{"/new_article", "Title", "Content", "skip", "skip"} {
		f.send(t, text)
	}
	require.Equal(t, replyCreateFailed, f.notifier.last())
	require.Empty(t, f.sessions.items)

	f.articles.findErr = nil
	f.articles.createErr = errBoom
	for _, text := range []string{"/new_article", "Title", "Content", "skip", "skip"} {
		f.send(t, text)
	}
	require.Equal(t, replyCreateFailed, f.notifier.last())
	require.Empty(t, f.sessions.items)
}

func TestBot_PhotoWhileAwaitingImageGetsHint(t *testing.T) {
	f := newBotFixture(t)
	for _, text := range []string{"/new_article", "Title", "Content", "skip"} {
		f.send(t, text)
	}
	require.NoError(t, f.bot.HandleMessage(context.Background(), domain.InboundMessage{
		SenderID: operatorID, Username: "operator", ChatID: chatID, HasPhoto: true,
	}))
	require.Equal(t, replyPhotoHint, f.notifier.last())
	require.Equal(t, domain.StepAwaitingImage, f.sessions.items[operatorID].Step)
}

func TestBot_SessionStoreErrorsAreReturned(t *testing.T) {
	f := newBotFixture(t)
	f.sessions.setErr = errBoom
	err := f.bot.HandleMessage(context.Background(), domain.InboundMessage{
		SenderID: operatorID, Username: "operator", ChatID: chatID, Text: "/new_article",
	})
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, replySessionFailed, f.notifier.last())

	f.sessions.setErr = nil
	f.sessions.getErr = errBoom
	err = f.bot.HandleMessage(context.Background(), domain.InboundMessage{
		SenderID: operatorID, Username: "operator", ChatID: chatID, Text: "Title",
	})
	require.ErrorIs(t, err, errBoom)
}

func TestBot_ReplyFailuresAreSwallowed(t *testing.T) {
	f := newBotFixture(t)
	f.notifier.textErr = errBoom
	f.send(t, "/new_article")
	require.Contains(t, f.sessions.items, operatorID)
}

func TestCommandName(t *testing.T) {
	require.Equal(t, "/start", commandName("/start"))
	require.Equal(t, "/help", commandName("  /Help@SomeBot now"))
	require.Equal(t, "", commandName("   "))
}
