package main

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/app"
	"steelcraft-site/internal/config"
	"steelcraft-site/internal/integrations/telegram"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/usecase"
	"steelcraft-site/migrations"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:     "error",
		SiteURL:      "https://example.ru",
		Timezone:     config.DefaultTimezone,
		ArticleStore: config.StoreMemory,
		SessionStore: config.StoreMemory,
		ContactRate:  config.RateConfig{RPS: 1, Burst: 1},
	}
}

func fixedLoad(cfg *config.Config) loadFunc {
	return func() (*config.Config, error) { return cfg, nil }
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewWith(reg, reg)
	a, err := app.New(context.Background(), testConfig(), app.Options{Logger: logger.NewNop(), Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	r, err := newRouter(a.Handler, m, logger.NewNop(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kontakty", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/gibka-metalla", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/services/gibka-metalla", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "steelcraft_http_request_duration_seconds")
}

func newTestRouter(t *testing.T, trusted []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := app.New(context.Background(), testConfig(), app.Options{Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	r, err := newRouter(a.Handler, a.Metrics, logger.NewNop(), trusted)
	require.NoError(t, err)
	return r
}

func contactRequest(remote, forwarded string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"phone":"+7 999 123-45-67"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	return req
}

func TestRouter_ForwardedForNeedsTrustedProxy(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, contactRequest("192.0.2.10:4000", "1.1.1.1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, contactRequest("192.0.2.10:4001", "2.2.2.2"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	r = newTestRouter(t, []string{"10.0.0.0/8"})
	for _, fwd := range []string{"1.1.1.1", "2.2.2.2"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, contactRequest("10.1.2.3:4000", fwd))
		require.Equal(t, http.StatusOK, rec.Code, fwd)
	}
}

func TestRouter_RejectsBadTrustedProxy(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(), app.Options{Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	_, err = newRouter(a.Handler, a.Metrics, logger.NewNop(), []string{"not-an-ip"})
	require.Error(t, err)
}

func multipartContact(t *testing.T, fileSize int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("phone", "+7 999 123-45-67"))
	fw, err := mw.CreateFormFile("files", "drawing.bin")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0xff}, fileSize))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_ContactAcceptsLargeUpload(t *testing.T) {
	r := newTestRouter(t, nil)
	body, contentType := multipartContact(t, 12<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"message":"Заявка успешно отправлена"}`, rec.Body.String())
}

func TestRouter_OversizeContactGetsEnvelope(t *testing.T) {
	r := newTestRouter(t, nil)
	body, contentType := multipartContact(t, usecase.MaxTotalSize+2<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t,
		`{"success":false,"message":"Ошибка валидации данных","errors":[{"field":"files","message":"Общий размер файлов превышает 100MB"}]}`,
		rec.Body.String())
}

type fakeWebhook struct {
	set     []telegram.WebhookConfig
	deleted int
	info    telegram.WebhookInfo
	err     error
}

func (f *fakeWebhook) SetWebhook(_ context.Context, cfg telegram.WebhookConfig) error {
	f.set = append(f.set, cfg)
	return f.err
}

func (f *fakeWebhook) DeleteWebhook(context.Context) error {
	f.deleted++
	return f.err
}

func (f *fakeWebhook) WebhookInfo(context.Context) (telegram.WebhookInfo, error) {
	return f.info, f.err
}

func useFakeWebhook(t *testing.T, f *fakeWebhook) {
	t.Helper()
	prev := telegramClient
	telegramClient = func(context.Context, *config.Config) (webhookClient, func() error, error) {
		return f, func() error { return nil }, nil
	}
	t.Cleanup(func() { telegramClient = prev })
}

func TestSetWebhook(t *testing.T) {
	f := &fakeWebhook{}
	useFakeWebhook(t, f)
	cfg := testConfig()
	cfg.Telegram.WebhookSecret = "s3cret"

	out, err := execute(t, newSetWebhookCommand(fixedLoad(cfg)))
	require.NoError(t, err)
	require.Contains(t, out, "https://example.ru/api/telegram")
	require.Equal(t, []telegram.WebhookConfig{{
		URL:            "https://example.ru/api/telegram",
		SecretToken:    "s3cret",
		AllowedUpdates: []string{"message"},
	}}, f.set)

	_, err = execute(t, newSetWebhookCommand(fixedLoad(cfg)), "--url", "https://hooks.example.ru/tg")
	require.NoError(t, err)
	require.Equal(t, "https://hooks.example.ru/tg", f.set[1].URL)
}

func TestWebhookURL(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, "https://example.ru/api/telegram", webhookURL(cfg))
	cfg.Telegram.WebhookURL = "https://gw.example.ru/prod/api/telegram"
	require.Equal(t, "https://gw.example.ru/prod/api/telegram", webhookURL(cfg))
}

func TestDeleteWebhook(t *testing.T) {
	f := &fakeWebhook{}
	useFakeWebhook(t, f)

	out, err := execute(t, newDeleteWebhookCommand(fixedLoad(testConfig())))
	require.NoError(t, err)
	require.Equal(t, "webhook deleted\n", out)
	require.Equal(t, 1, f.deleted)
}

func TestWebhookInfo(t *testing.T) {
	f := &fakeWebhook{info: telegram.WebhookInfo{URL: "https://example.ru/api/telegram", PendingUpdateCount: 2, LastErrorMessage: "Connection refused", LastErrorDate: 1700000000}}
	useFakeWebhook(t, f)

	out, err := execute(t, newWebhookInfoCommand(fixedLoad(testConfig())))
	require.NoError(t, err)
	require.Contains(t, out, "https://example.ru/api/telegram")
	require.Contains(t, out, "pending updates:  2")
	require.Contains(t, out, "Connection refused (2023-11-14T22:13:20Z)")
}

func TestWebhook_NotConfigured(t *testing.T) {
	useFakeWebhook(t, &fakeWebhook{err: telegram.ErrNotConfigured})

	_, err := execute(t, newDeleteWebhookCommand(fixedLoad(testConfig())))
	require.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
}

func TestMigrate(t *testing.T) {
	prev := runMigrations
	t.Cleanup(func() { runMigrations = prev })

	var got migrations.Direction
	runMigrations = func(url string, dir migrations.Direction) (bool, error) {
		require.Equal(t, "postgres://localhost/site", url)
		got = dir
		return true, nil
	}
	cfg := testConfig()
	cfg.DatabaseURL = "postgres://localhost/site"

	out, err := execute(t, newMigrateCommand(fixedLoad(cfg)), "up")
	require.NoError(t, err)
	require.Equal(t, migrations.Up, got)
	require.Equal(t, "migrated up\n", out)

	runMigrations = func(string, migrations.Direction) (bool, error) { return false, nil }
	out, err = execute(t, newMigrateCommand(fixedLoad(cfg)), "down")
	require.NoError(t, err)
	require.Equal(t, "no change\n", out)

	_, err = execute(t, newMigrateCommand(fixedLoad(cfg)), "sideways")
	require.Error(t, err)

	runMigrations = func(string, migrations.Direction) (bool, error) { return false, errors.New("dirty") }
	_, err = execute(t, newMigrateCommand(fixedLoad(cfg)), "up")
	require.ErrorContains(t, err, "dirty")

	_, err = execute(t, newMigrateCommand(fixedLoad(testConfig())), "up")
	require.ErrorContains(t, err, "DATABASE_URL")
}
