// Package handler adapts API Gateway proxy events to the site's use cases:
// the Telegram webhook, the contact form, the JSON API and the HTML pages.
package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type BotService interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage) error
}

type ContactService interface {
	Submit(ctx context.Context, in usecase.ContactInput) (usecase.ContactOutput, error)
}

type ArticleService interface {
	List(ctx context.Context) []domain.Article
	Get(ctx context.Context, slug string) (domain.Article, bool)
}

type Catalog interface {
	All() []domain.Service
	Resolve(segments ...string) (domain.Service, bool)
	CanonicalPath(s domain.Service) string
	Redirect(path string) (string, bool)
}

type Pages interface {
	Home(w io.Writer, latest []domain.Article) error
	Services(w io.Writer) error
	Service(w io.Writer, s domain.Service) error
	Articles(w io.Writer, list []domain.Article) error
	Article(w io.Writer, a domain.Article) error
	Contacts(w io.Writer) error
	Gallery(w io.Writer) error
	NotFound(w io.Writer) error
	Sitemap(w io.Writer, articles []domain.Article) error
	Robots(w io.Writer) error
}

type Limiter interface {
	Allow(key string) bool
}

// Deps are the collaborators of a Handler. Limiter, Metrics and Log may be nil.
type Deps struct {
	Bot           BotService
	Contact       ContactService
	Articles      ArticleService
	Catalog       Catalog
	Pages         Pages
	Limiter       Limiter
	Metrics       *metrics.Metrics
	Log           logger.Logger
	WebhookSecret string
}

type Handler struct {
	bot           BotService
	contact       ContactService
	articles      ArticleService
	catalog       Catalog
	pages         Pages
	limiter       Limiter
	metrics       *metrics.Metrics
	log           logger.Logger
	webhookSecret string
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewHandler(d Deps) (*Handler, error) {
	switch {
	case d.Bot == nil:
		return nil, errors.New("handler: bot service must not be nil")
	case d.Contact == nil:
		return nil, errors.New("handler: contact service must not be nil")
	case d.Articles == nil:
		return nil, errors.New("handler: article service must not be nil")
	case d.Catalog == nil:
		return nil, errors.New("handler: catalog must not be nil")
	case d.Pages == nil:
		return nil, errors.New("handler: pages must not be nil")
	}
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		bot:           d.Bot,
		contact:       d.Contact,
		articles:      d.Articles,
		catalog:       d.Catalog,
		pages:         d.Pages,
		limiter:       d.Limiter,
		metrics:       d.Metrics,
		log:           log,
		webhookSecret: d.WebhookSecret,
	}, nil
}

// request is a decoded proxy event plus the per-request logger.
type request struct {
	method   string
	path     string
	headers  map[string]string
	body     []byte
	bodyErr  error
	clientIP string
	log      logger.Logger
}

func (r *request) header(name string) string {
	return headerValue(r.headers, name)
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	req := &request{
		method:   strings.ToUpper(event.HTTPMethod),
		path:     cleanPath(event.Path),
		headers:  event.Headers,
		clientIP: event.RequestContext.Identity.SourceIP,
	}
	req.log = h.log.With(
		logger.String("correlation_id", correlationID),
		logger.String("method", req.method),
		logger.String("path", req.path),
	)

	req.body, req.bodyErr = decodeBody(event)
	if req.bodyErr != nil {
		req.log.Warn("handler: undecodable body", logger.Error(req.bodyErr))
	}
	route, resp := h.route(ctx, req)

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[correlationHeader] = correlationID
	h.metrics.ObserveRequest(route, resp.StatusCode, time.Since(start))
	req.log.Debug("handler: request complete", logger.String("route", route), logger.Int("status", resp.StatusCode))
	return resp, nil
}

// route dispatches req and returns the route template used for metrics.
func (h *Handler) route(ctx context.Context, req *request) (string, events.APIGatewayProxyResponse) {
	segs := segments(req.path)

	if len(segs) > 0 && segs[0] == "api" {
		return h.routeAPI(ctx, req, segs[1:])
	}
	if req.bodyErr != nil {
		return "page", invalidBody()
	}
	if req.method != http.MethodGet && req.method != http.MethodHead {
		return "page", methodNotAllowed("GET, HEAD")
	}
	if target, ok := h.catalog.Redirect(req.path); ok {
		return "redirect", redirect(target)
	}
	if rest, ok := strings.CutPrefix(req.path, "/articles"); ok && (rest == "" || rest[0] == '/') {
		return "redirect", redirect("/article" + rest)
	}
	return h.routePage(ctx, req, segs)
}

func (h *Handler) routeAPI(ctx context.Context, req *request, segs []string) (string, events.APIGatewayProxyResponse) {
	if len(segs) == 1 && segs[0] == "telegram" {
		if req.method != http.MethodPost {
			return "/api/telegram", methodNotAllowed(http.MethodPost)
		}
		// The webhook acknowledges even an undecodable body.
		return "/api/telegram", h.handleWebhook(ctx, req)
	}
	if len(segs) == 1 && segs[0] == "contact" {
		if req.method != http.MethodPost {
			return "/api/contact", methodNotAllowed(http.MethodPost)
		}
		if req.bodyErr != nil {
			h.metrics.Contact(metrics.OutcomeInvalid)
			return "/api/contact", jsonResponse(http.StatusBadRequest, contactResponse{Message: msgContactInvalid})
		}
		return "/api/contact", h.handleContact(ctx, req)
	}
	if req.bodyErr != nil {
		return "/api", invalidBody()
	}

	if req.method != http.MethodGet && req.method != http.MethodHead {
		return "/api", methodNotAllowed("GET, HEAD")
	}
	switch {
	case len(segs) == 1 && segs[0] == "articles":
		return "/api/articles", h.listArticles(ctx)
	case len(segs) == 2 && segs[0] == "articles":
		return "/api/articles/:slug", h.getArticle(ctx, segs[1])
	case len(segs) == 1 && segs[0] == "services":
		return "/api/services", h.listServices()
	}
	return "/api", jsonResponse(http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound)})
}

func statusFromErr(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorNotFound:
		return http.StatusNotFound, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(b),
	}
}

func textResponse(status int, contentType, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": contentType},
		Body:       body,
	}
}

func redirect(target string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusMovedPermanently,
		Headers:    map[string]string{"Location": target},
	}
}

func methodNotAllowed(allow string) events.APIGatewayProxyResponse {
	resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
	resp.Headers["Allow"] = allow
	return resp
}

func invalidBody() events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)})
}

func decodeBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	return base64.StdEncoding.DecodeString(event.Body)
}

// headerValue looks name up case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// cleanPath drops a trailing slash, except for the root.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func render(status int, fn func(w io.Writer) error) (events.APIGatewayProxyResponse, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return textResponse(status, "text/html; charset=utf-8", buf.String()), nil
}
