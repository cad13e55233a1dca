package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/config"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
)

func baseConfig() *config.Config {
	return &config.Config{
		Env:          "test",
		LogLevel:     "error",
		SiteURL:      "https://example.ru",
		Timezone:     config.DefaultTimezone,
		ArticleStore: config.StoreMemory,
		SessionStore: config.StoreMemory,
		ContactRate:  config.RateConfig{RPS: 1, Burst: 1},
	}
}

func testOptions(t *testing.T, loads *int) Options {
	t.Helper()
	reg := prometheus.NewRegistry()
	return Options{
		Logger:  logger.NewNop(),
		Metrics: metrics.NewWith(reg, reg),
		AWSConfig: func(context.Context) (aws.Config, error) {
			*loads++
			return aws.Config{Region: "eu-central-1"}, nil
		},
	}
}

func TestNew_MemoryStores(t *testing.T) {
	var loads int
	a, err := New(context.Background(), baseConfig(), testOptions(t, &loads))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	require.Zero(t, loads)

	resp, err := a.Handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Body, "СТИЛКРАФТ")

	resp, err = a.Handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/sitemap.xml"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Body, "https://example.ru/services/metalloobrabotka")
}

func TestNew_DynamoDBLoadsAWSOnce(t *testing.T) {
	cfg := baseConfig()
	cfg.ArticleStore = config.StoreDynamoDB
	cfg.SessionStore = config.StoreDynamoDB
	cfg.StateTable = "site-state"

	var loads int
	a, err := New(context.Background(), cfg, testOptions(t, &loads))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.Equal(t, 1, loads)
}

func TestNew_ParamStoreToken(t *testing.T) {
	cfg := baseConfig()
	cfg.ParamPrefix = "/steelcraft/prod"

	var loads int
	a, err := New(context.Background(), cfg, testOptions(t, &loads))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.Equal(t, 1, loads)

	cfg = baseConfig()
	cfg.ParamPrefix = "/steelcraft/prod"
	cfg.Telegram.BotToken = "123:ABC"
	loads = 0
	withToken, err := New(context.Background(), cfg, testOptions(t, &loads))
	require.NoError(t, err)
	t.Cleanup(func() { _ = withToken.Close() })
	require.Zero(t, loads)
}

func TestNew_AWSConfigError(t *testing.T) {
	cfg := baseConfig()
	cfg.SessionStore = config.StoreDynamoDB
	cfg.StateTable = "site-state"

	opts := testOptions(t, new(int))
	opts.AWSConfig = func(context.Context) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}
	_, err := New(context.Background(), cfg, opts)
	require.ErrorContains(t, err, "no credentials")
}

func TestNew_CatalogPathMissing(t *testing.T) {
	cfg := baseConfig()
	cfg.CatalogPath = t.TempDir() + "/missing.json"

	_, err := New(context.Background(), cfg, testOptions(t, new(int)))
	require.Error(t, err)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	require.Error(t, err)
}
