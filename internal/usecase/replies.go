package usecase

import (
	"fmt"
	"html"
	"strings"

	"steelcraft-site/internal/domain"
)

const (
	replyUnauthorized   = "❌ У вас нет доступа к управлению ботом."
	replyUnknownCommand = "Неизвестная команда. Используйте /help для справки."
	replyCancelled      = "❌ Создание статьи отменено."
	replyNothingToStop  = "Нет активного создания статьи."
	replyNoArticles     = "Статей пока нет."
	replyListFailed     = "❌ Не удалось получить список статей."
	replyMissingFields  = "❌ Не хватает данных: заголовок и текст статьи обязательны.\nНачните заново: /new_article"
	replyEmptySlug      = "❌ Не удалось сформировать адрес статьи из заголовка. Используйте в заголовке буквы или цифры.\nНачните заново: /new_article"
	replyCreateFailed   = "❌ Не удалось создать статью. Попробуйте позже."
	replyPhotoHint      = "Отправьте ссылку на изображение текстом или «skip»."
	replySessionFailed  = "❌ Не удалось сохранить состояние диалога. Попробуйте ещё раз."
)

func commandList() string {
	return strings.Join([]string{
		"/new_article - Создать статью",
		"/list_articles - Последние статьи",
		"/cancel - Отменить создание статьи",
		"/help - Справка",
	}, "\n")
}

func startReply() string {
	return "👋 Привет! Я бот для сайта СТИЛКРАФТ.\n\nДоступные команды:\n" + commandList()
}

func helpReply() string {
	return "<b>📖 Справка по боту</b>\n\n" +
		"Этот бот используется для получения заявок с сайта СТИЛКРАФТ и публикации статей.\n" +
		"Новые заявки будут автоматически отправляться в этот чат.\n\n" +
		commandList()
}

func slugConflictReply(slug string) string {
	return fmt.Sprintf("⚠️ Статья с адресом <code>%s</code> уже существует. Измените заголовок и начните заново: /new_article",
		html.EscapeString(slug))
}

func createdReply(a domain.Article, url string) string {
	return fmt.Sprintf("✅ Статья опубликована!\n\n<b>%s</b>\n%s", html.EscapeString(a.Title), url)
}

func articleListReply(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString("<b>📚 Последние статьи:</b>\n")
	for i, a := range articles {
		marker := "📝"
		if a.Published {
			marker = "✅"
		}
		fmt.Fprintf(&b, "\n%d. %s %s\n   /article/%s", i+1, marker, html.EscapeString(a.Title), a.Slug)
	}
	return b.String()
}
