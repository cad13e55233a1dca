package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/usecase"
)

const homeArticleCount = 3

func (h *Handler) routePage(ctx context.Context, req *request, segs []string) (string, events.APIGatewayProxyResponse) {
	switch {
	case len(segs) == 0:
		latest := h.articles.List(ctx)
		if len(latest) > homeArticleCount {
			latest = latest[:homeArticleCount]
		}
		return "/", h.page(req, http.StatusOK, func(w io.Writer) error { return h.pages.Home(w, latest) })
	case req.path == "/sitemap.xml":
		return "/sitemap.xml", h.sitemap(ctx, req)
	case req.path == "/robots.txt":
		return "/robots.txt", h.robots(req)
	case req.path == "/healthz":
		return "/healthz", textResponse(http.StatusOK, "text/plain; charset=utf-8", "ok")
	case segs[0] == "services" && len(segs) == 1:
		return "/services", h.page(req, http.StatusOK, h.pages.Services)
	case segs[0] == "services" && len(segs) <= 3:
		s, ok := h.catalog.Resolve(segs[1:]...)
		if !ok {
			return "/services/:slug", h.notFound(req)
		}
		return "/services/:slug", h.page(req, http.StatusOK, func(w io.Writer) error { return h.pages.Service(w, s) })
	case segs[0] == "article" && len(segs) == 1:
		list := h.articles.List(ctx)
		return "/article", h.page(req, http.StatusOK, func(w io.Writer) error { return h.pages.Articles(w, list) })
	case segs[0] == "article" && len(segs) == 2:
		a, ok := h.articles.Get(ctx, segs[1])
		if !ok {
			return "/article/:slug", h.notFound(req)
		}
		return "/article/:slug", h.page(req, http.StatusOK, func(w io.Writer) error { return h.pages.Article(w, a) })
	case segs[0] == "kontakty" && len(segs) == 1:
		return "/kontakty", h.page(req, http.StatusOK, h.pages.Contacts)
	case segs[0] == "gallery" && len(segs) == 1:
		return "/gallery", h.page(req, http.StatusOK, h.pages.Gallery)
	}
	return "not_found", h.notFound(req)
}

// page renders an HTML page, falling back to a bare 500 when the template
// fails.
func (h *Handler) page(req *request, status int, fn func(w io.Writer) error) events.APIGatewayProxyResponse {
	resp, err := render(status, fn)
	if err != nil {
		req.log.Error("handler: page render failed", logger.Error(err))
		return textResponse(http.StatusInternalServerError, "text/plain; charset=utf-8", "internal error")
	}
	return resp
}

func (h *Handler) notFound(req *request) events.APIGatewayProxyResponse {
	return h.page(req, http.StatusNotFound, h.pages.NotFound)
}

func (h *Handler) sitemap(ctx context.Context, req *request) events.APIGatewayProxyResponse {
	var buf bytes.Buffer
	if err := h.pages.Sitemap(&buf, h.articles.List(ctx)); err != nil {
		req.log.Error("handler: sitemap render failed", logger.Error(err))
		return textResponse(http.StatusInternalServerError, "text/plain; charset=utf-8", "internal error")
	}
	return textResponse(http.StatusOK, "application/xml; charset=utf-8", buf.String())
}

func (h *Handler) robots(req *request) events.APIGatewayProxyResponse {
	var buf bytes.Buffer
	if err := h.pages.Robots(&buf); err != nil {
		req.log.Error("handler: robots render failed", logger.Error(err))
		return textResponse(http.StatusInternalServerError, "text/plain; charset=utf-8", "internal error")
	}
	return textResponse(http.StatusOK, "text/plain; charset=utf-8", buf.String())
}

type articleView struct {
	domain.Article
	Path string `json:"path"`
}

type serviceView struct {
	domain.Service
	Path string `json:"path"`
}

func (h *Handler) listArticles(ctx context.Context) events.APIGatewayProxyResponse {
	list := h.articles.List(ctx)
	out := make([]articleView, 0, len(list))
	for _, a := range list {
		out = append(out, articleView{Article: a, Path: "/article/" + a.Slug})
	}
	return jsonResponse(http.StatusOK, map[string]any{"articles": out})
}

func (h *Handler) getArticle(ctx context.Context, articleSlug string) events.APIGatewayProxyResponse {
	a, ok := h.articles.Get(ctx, articleSlug)
	if !ok {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound), Message: "article not found"})
	}
	return jsonResponse(http.StatusOK, articleView{Article: a, Path: "/article/" + a.Slug})
}

func (h *Handler) listServices() events.APIGatewayProxyResponse {
	all := h.catalog.All()
	out := make([]serviceView, 0, len(all))
	for _, s := range all {
		out = append(out, serviceView{Service: s, Path: h.catalog.CanonicalPath(s)})
	}
	return jsonResponse(http.StatusOK, map[string]any{"services": out})
}
