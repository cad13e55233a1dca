// Package site renders the public HTML pages, the sitemap and robots.txt.
package site

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"steelcraft-site/internal/catalog"
	"steelcraft-site/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	CompanyName  = "СТИЛКРАФТ"
	defaultTitle = "Металлообработка и изготовление металлических изделий | " + CompanyName
	defaultDesc  = "Профессиональная металлообработка в Перми. Токарные, фрезерные, зуборезные работы. Изготовление деталей по чертежам. Компания " + CompanyName + " - создавая надежность."
	defaultImage = "/logo.png"
)

type Config struct {
	SiteURL         string
	GAMeasurementID string
	YandexMetrikaID string
	Company         Company
}

// Company holds the contact details printed in the footer and on /kontakty.
// Empty fields are not rendered.
type Company struct {
	City     string
	Address  string
	Phone    string
	Email    string
	Schedule string
}

// Head is the SEO metadata of one page.
type Head struct {
	Title       string
	Description string
	Canonical   string
	Image       string
	Type        string
	NoIndex     bool
}

type analytics struct {
	GA string
	YM int64
}

type view struct {
	Head      Head
	SiteName  string
	SiteURL   string
	Company   Company
	Analytics analytics
	Menu      []domain.Service
	Year      int
	Data      any
}

type Renderer struct {
	cfg     Config
	catalog *catalog.Catalog
	pages   map[string]*template.Template
	md      goldmark.Markdown
	now     func() time.Time
}

var pageNames = []string{"home", "services", "service", "articles", "article", "contacts", "gallery", "notfound"}

func New(cfg Config, cat *catalog.Catalog) (*Renderer, error) {
	if cat == nil {
		return nil, errors.New("site: catalog must not be nil")
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if cfg.Company.City == "" {
		cfg.Company.City = "Пермь"
	}
	r := &Renderer{
		cfg:     cfg,
		catalog: cat,
		pages:   make(map[string]*template.Template, len(pageNames)),
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:     time.Now,
	}
	funcs := template.FuncMap{
		"servicePath": cat.CanonicalPath,
		"children":    cat.Children,
		"date":        russianDate,
		"isoDate":     func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"telURL":      telURL,
	}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("site: parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) render(w io.Writer, name string, head Head, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("site: unknown page %q", name)
	}
	if head.Title == "" {
		head.Title = defaultTitle
	} else if !strings.Contains(head.Title, CompanyName) {
		head.Title += " | " + CompanyName
	}
	if head.Description == "" {
		head.Description = defaultDesc
	}
	if head.Image == "" {
		head.Image = defaultImage
	}
	head.Image = r.absolute(head.Image)
	if head.Canonical != "" {
		head.Canonical = r.absolute(head.Canonical)
	}
	if head.Type == "" {
		head.Type = "website"
	}

	v := view{
		Head:     head,
		SiteName: CompanyName,
		SiteURL:  r.cfg.SiteURL,
		Company:  r.cfg.Company,
		Analytics: analytics{
			GA: r.cfg.GAMeasurementID,
			YM: metrikaID(r.cfg.YandexMetrikaID),
		},
		Menu: r.catalog.Main(),
		Year: r.now().Year(),
		Data: data,
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", v); err != nil {
		return fmt.Errorf("site: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.cfg.SiteURL + path
}

// Home renders / with the main services and the latest articles.
func (r *Renderer) Home(w io.Writer, latest []domain.Article) error {
	if len(latest) > 3 {
		latest = latest[:3]
	}
	return r.render(w, "home", Head{Canonical: "/"}, struct {
		Services []domain.Service
		Articles []domain.Article
	}{r.catalog.Main(), latest})
}

func (r *Renderer) Services(w io.Writer) error {
	return r.render(w, "services", Head{
		Title:       "Услуги металлообработки",
		Description: "Услуги металлообработки в Перми: токарные и фрезерные работы, изготовление деталей и шестерён, термообработка, шлифование.",
		Canonical:   "/services",
	}, r.catalog.Main())
}

// Service renders a main service with its children or a sub-service with its
// parent breadcrumb.
func (r *Renderer) Service(w io.Writer, s domain.Service) error {
	parent, hasParent := r.catalog.Parent(s)
	data := struct {
		Service   domain.Service
		Parent    domain.Service
		HasParent bool
		Children  []domain.Service
		Others    []domain.Service
	}{
		Service:   s,
		Parent:    parent,
		HasParent: hasParent,
		Others:    r.catalog.Others(s, 3),
	}
	if s.IsMainService {
		data.Children = r.catalog.Children(s)
	}
	return r.render(w, "service", Head{
		Title:       firstNonEmpty(s.MetaTitle, s.Title),
		Description: firstNonEmpty(s.MetaDescription, s.ShortDescription),
		Canonical:   r.catalog.CanonicalPath(s),
		Image:       s.Image,
	}, data)
}

func (r *Renderer) Articles(w io.Writer, list []domain.Article) error {
	return r.render(w, "articles", Head{
		Title:       "Статьи",
		Description: "Статьи о металлообработке, материалах и технологиях изготовления деталей.",
		Canonical:   "/article",
	}, list)
}

// Article renders one article. The body is Markdown; raw HTML in it is not
// passed through.
func (r *Renderer) Article(w io.Writer, a domain.Article) error {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(a.Content), &body); err != nil {
		return fmt.Errorf("site: convert markdown for %s: %w", a.Slug, err)
	}
	return r.render(w, "article", Head{
		Title:       a.SEOTitle(),
		Description: a.SEODescription(),
		Canonical:   "/article/" + a.Slug,
		Image:       a.CoverImage,
		Type:        "article",
	}, struct {
		Article domain.Article
		Body    template.HTML
	}{a, template.HTML(body.String())}) //nolint:gosec // goldmark escapes raw HTML without html.WithUnsafe
}

func (r *Renderer) Contacts(w io.Writer) error {
	return r.render(w, "contacts", Head{
		Title:       "Контакты",
		Description: "Контакты компании " + CompanyName + ". Оставьте заявку на расчёт стоимости металлообработки.",
		Canonical:   "/kontakty",
	}, nil)
}

// GalleryItem is one photo on /gallery.
type GalleryItem struct {
	Title string
	Image string
}

const galleryPlaceholder = "/example.jpg.webp"

// defaultGallery lists the work categories shown until real photos are
// uploaded. Every entry uses the placeholder image.
var defaultGallery = []GalleryItem{
	{"Шестерни", galleryPlaceholder},
	{"Валы", galleryPlaceholder},
	{"Зубчатые колеса", galleryPlaceholder},
	{"Фрезерные работы", galleryPlaceholder},
	{"Токарные работы", galleryPlaceholder},
	{"Готовые изделия", galleryPlaceholder},
	{"Металлоконструкции", galleryPlaceholder},
	{"Детали по чертежам", galleryPlaceholder},
	{"Зуборезные работы", galleryPlaceholder},
	{"Нестандартное оборудование", galleryPlaceholder},
	{"Муфты", galleryPlaceholder},
	{"Венцы", galleryPlaceholder},
}

func (r *Renderer) Gallery(w io.Writer) error {
	return r.render(w, "gallery", Head{
		Title:       "Наши работы - Галерея выполненных работ",
		Description: "Примеры выполненных работ компании " + CompanyName + ". Фотографии готовых изделий и процессов металлообработки.",
		Canonical:   "/gallery",
	}, defaultGallery)
}

func (r *Renderer) NotFound(w io.Writer) error {
	return r.render(w, "notfound", Head{Title: "Страница не найдена", NoIndex: true}, r.catalog.Main())
}

var russianMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// russianDate formats t as "12 марта 2026".
func russianDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), russianMonths[t.Month()-1], t.Year())
}

// telURL builds a tel: link from a display phone number. html/template
// rejects the tel scheme in plain strings.
func telURL(phone string) template.URL {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return template.URL("tel:" + b.String()) //nolint:gosec // digits and a leading plus only
}

// metrikaID returns 0 unless id is a positive integer counter id.
func metrikaID(id string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
