package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"steelcraft-site/internal/domain"
)

type sentMessage struct {
	chatID int64
	text   string
}

type sentDocument struct {
	chatID  int64
	name    string
	caption string
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	docs     []sentDocument
	textErr  error
	docErr   error
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatID int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return 0, f.textErr
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return int64(len(f.messages)), nil
}

func (f *fakeNotifier) SendDocument(_ context.Context, chatID int64, doc domain.Attachment, caption string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return 0, f.docErr
	}
	f.docs = append(f.docs, sentDocument{chatID: chatID, name: doc.Name, caption: caption})
	return int64(len(f.docs)), nil
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1].text
}

type fakeSessions struct {
	items  map[int64]domain.Session
	getErr error
	setErr error
	delErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{items: map[int64]domain.Session{}}
}

func (f *fakeSessions) Get(_ context.Context, id int64) (domain.Session, bool, error) {
	if f.getErr != nil {
		return domain.Session{}, false, f.getErr
	}
	s, ok := f.items[id]
	return s, ok, nil
}

func (f *fakeSessions) Set(_ context.Context, id int64, s domain.Session) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.items[id] = s
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id int64) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.items, id)
	return nil
}

type fakeArticles struct {
	items     map[string]domain.Article
	findErr   error
	createErr error
	listErr   error
	creates   int
}

func newFakeArticles(seed ...domain.Article) *fakeArticles {
	f := &fakeArticles{items: map[string]domain.Article{}}
	for _, a := range seed {
		f.items[a.Slug] = a
	}
	return f
}

func (f *fakeArticles) FindBySlug(_ context.Context, slug string) (domain.Article, bool, error) {
	if f.findErr != nil {
		return domain.Article{}, false, f.findErr
	}
	a, ok := f.items[slug]
	return a, ok, nil
}

func (f *fakeArticles) Create(_ context.Context, a domain.Article) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.items[a.Slug]; ok {
		return domain.ErrSlugTaken
	}
	f.items[a.Slug] = a
	return nil
}

func (f *fakeArticles) ListRecent(_ context.Context, limit int) ([]domain.Article, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeArticles) ListPublished(_ context.Context) ([]domain.Article, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(), nil
}

func (f *fakeArticles) sorted() []domain.Article {
	out := make([]domain.Article, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type fakeLeads struct {
	leads []domain.Lead
	err   error
}

func (f *fakeLeads) CreateLead(_ context.Context, lead domain.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.leads = append(f.leads, lead)
	return nil
}

var errBoom = errors.New("boom")
