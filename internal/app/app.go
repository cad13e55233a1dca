// Package app assembles the site backend from configuration. Both the Lambda
// entry point and the local CLI build their handler here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"steelcraft-site/handler"
	"steelcraft-site/internal/catalog"
	"steelcraft-site/internal/config"
	"steelcraft-site/internal/content"
	"steelcraft-site/internal/integrations/paramstore"
	"steelcraft-site/internal/integrations/telegram"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/ratelimit"
	"steelcraft-site/internal/repository"
	"steelcraft-site/internal/site"
	"steelcraft-site/internal/usecase"
)

const tokenParamKey = "telegram-bot-token"

// Store is the article persistence used by both the bot and the pages.
type Store interface {
	usecase.ArticleReader
	usecase.ArticleWriter
}

// Options override parts of the assembly. The zero value is production.
type Options struct {
	// AWSConfig loads the SDK configuration. It is only called when a
	// DynamoDB store or the parameter store is in use.
	AWSConfig func(ctx context.Context) (aws.Config, error)
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

type App struct {
	Config   *config.Config
	Log      logger.Logger
	Metrics  *metrics.Metrics
	Telegram *telegram.Client
	Catalog  *catalog.Catalog
	Handler  *handler.Handler

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	a := &App{Config: cfg, Log: opts.Logger, Metrics: opts.Metrics}
	if a.Log == nil {
		log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.IsDevelopment()})
		if err != nil {
			return nil, fmt.Errorf("app: create logger: %w", err)
		}
		a.Log = log.With(logger.String("service", "steelcraft-site"))
	}
	if a.Metrics == nil {
		a.Metrics = metrics.New()
	}
	if opts.AWSConfig == nil {
		opts.AWSConfig = func(ctx context.Context) (aws.Config, error) {
			return awsconfig.LoadDefaultConfig(ctx)
		}
	}

	if err := a.build(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config
	cloud := &lazyAWS{load: opts.AWSConfig}

	tokens, err := tokenSource(ctx, cfg, cloud)
	if err != nil {
		return err
	}
	var tgOpts []telegram.Option
	if cfg.Telegram.APIURL != "" {
		tgOpts = append(tgOpts, telegram.WithBaseURL(cfg.Telegram.APIURL))
	}
	a.Telegram, err = telegram.NewClient(tokens, tgOpts...)
	if err != nil {
		return fmt.Errorf("app: create telegram client: %w", err)
	}

	store, leads, err := a.articleStore(ctx, cloud)
	if err != nil {
		return err
	}
	sessions, err := a.sessionStore(ctx, cloud)
	if err != nil {
		return err
	}

	if cfg.CatalogPath != "" {
		a.Catalog, err = catalog.LoadFile(cfg.CatalogPath)
	} else {
		a.Catalog, err = catalog.Default()
	}
	if err != nil {
		return fmt.Errorf("app: load catalog: %w", err)
	}

	pages, err := site.New(site.Config{
		SiteURL:         cfg.SiteURL,
		GAMeasurementID: cfg.Analytics.GAMeasurementID,
		YandexMetrikaID: cfg.Analytics.YandexMetrikaID,
		Company: site.Company{
			City:     cfg.Company.City,
			Address:  cfg.Company.Address,
			Phone:    cfg.Company.Phone,
			Email:    cfg.Company.Email,
			Schedule: cfg.Company.Schedule,
		},
	}, a.Catalog)
	if err != nil {
		return fmt.Errorf("app: create renderer: %w", err)
	}

	bot, err := usecase.NewBot(a.Telegram, sessions, store, a.Log, usecase.BotConfig{
		AdminUsernames: cfg.Telegram.AdminUsernames,
		SiteURL:        cfg.SiteURL,
	})
	if err != nil {
		return fmt.Errorf("app: create bot: %w", err)
	}
	contact, err := usecase.NewContact(a.Telegram, leads, a.Log, usecase.ContactConfig{
		ChatID:   cfg.Telegram.ChatID,
		Location: cfg.Location(),
	})
	if err != nil {
		return fmt.Errorf("app: create contact service: %w", err)
	}
	articles, err := usecase.NewArticles(store, a.Log)
	if err != nil {
		return fmt.Errorf("app: create article service: %w", err)
	}

	a.Handler, err = handler.NewHandler(handler.Deps{
		Bot:           bot,
		Contact:       contact,
		Articles:      articles,
		Catalog:       a.Catalog,
		Pages:         pages,
		Limiter:       ratelimit.New(cfg.ContactRate.RPS, cfg.ContactRate.Burst),
		Metrics:       a.Metrics,
		Log:           a.Log,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})
	if err != nil {
		return fmt.Errorf("app: create handler: %w", err)
	}

	a.Log.Info("app: assembled",
		logger.String("article_store", cfg.ArticleStore),
		logger.String("session_store", cfg.SessionStore),
		logger.Bool("telegram_chat", cfg.Telegram.ChatID != 0),
		logger.Int("admins", len(cfg.Telegram.AdminUsernames)),
	)
	return nil
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return errors.Join(errs...)
}

func tokenSource(ctx context.Context, cfg *config.Config, cloud *lazyAWS) (telegram.TokenSource, error) {
	if cfg.Telegram.BotToken != "" || cfg.ParamPrefix == "" {
		return telegram.StaticToken(cfg.Telegram.BotToken), nil
	}
	awsCfg, err := cloud.get(ctx)
	if err != nil {
		return nil, err
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create paramstore client: %w", err)
	}
	tokens, err := telegram.NewParamToken(ps, paramstore.Name(cfg.ParamPrefix, tokenParamKey))
	if err != nil {
		return nil, fmt.Errorf("app: create token source: %w", err)
	}
	return tokens, nil
}

// articleStore returns the configured article store and, for PostgreSQL, the
// lead writer backed by the same database.
func (a *App) articleStore(ctx context.Context, cloud *lazyAWS) (Store, usecase.LeadWriter, error) {
	switch a.Config.ArticleStore {
	case config.StoreDynamoDB:
		c, err := cloud.dynamo(ctx, a.Config)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	case config.StorePostgres:
		db, err := repository.ConnectPostgres(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		pg, err := repository.NewPostgres(db)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return pg, pg, nil
	default:
		seed, err := content.Articles()
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		return repository.NewMemoryArticles(seed), nil, nil
	}
}

func (a *App) sessionStore(ctx context.Context, cloud *lazyAWS) (usecase.SessionStore, error) {
	switch a.Config.SessionStore {
	case config.StoreDynamoDB:
		c, err := cloud.dynamo(ctx, a.Config)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.StoreRedis:
		client, err := repository.ConnectRedis(ctx, repository.RedisConfig{
			Address:  a.Config.Redis.Address,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := repository.NewRedisSessions(client, a.Config.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemorySessions(), nil
	}
}

// lazyAWS loads the SDK configuration at most once, on first use, and shares
// one DynamoDB table client between the article and session stores.
type lazyAWS struct {
	load   func(ctx context.Context) (aws.Config, error)
	cfg    *aws.Config
	client *repository.Client
}

func (l *lazyAWS) get(ctx context.Context) (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}
	cfg, err := l.load(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	l.cfg = &cfg
	return cfg, nil
}

func (l *lazyAWS) dynamo(ctx context.Context, cfg *config.Config) (*repository.Client, error) {
	if l.client != nil {
		return l.client, nil
	}
	awsCfg, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	client, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable, repository.WithSessionTTL(cfg.SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("app: create dynamodb client: %w", err)
	}
	l.client = client
	return client, nil
}
