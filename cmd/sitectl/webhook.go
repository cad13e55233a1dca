package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"steelcraft-site/internal/app"
	"steelcraft-site/internal/config"
	"steelcraft-site/internal/integrations/telegram"
	"steelcraft-site/internal/logger"
)

const webhookPath = "/api/telegram"

// webhookClient is the part of the Telegram client the webhook commands use.
type webhookClient interface {
	SetWebhook(ctx context.Context, cfg telegram.WebhookConfig) error
	DeleteWebhook(ctx context.Context) error
	WebhookInfo(ctx context.Context) (telegram.WebhookInfo, error)
}

// telegramClient builds the configured client through the regular app
// assembly so the token comes from the same source the bot uses.
var telegramClient = func(ctx context.Context, cfg *config.Config) (webhookClient, func() error, error) {
	a, err := app.New(ctx, cfg, app.Options{Logger: logger.NewNop()})
	if err != nil {
		return nil, nil, err
	}
	return a.Telegram, a.Close, nil
}

// webhookURL returns TELEGRAM_WEBHOOK_URL, or the webhook route under
// SITE_URL when it is unset.
func webhookURL(cfg *config.Config) string {
	if cfg.Telegram.WebhookURL != "" {
		return cfg.Telegram.WebhookURL
	}
	return cfg.SiteURL + webhookPath
}

func withClient(cmd *cobra.Command, load loadFunc, fn func(ctx context.Context, cfg *config.Config, c webhookClient) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	c, closeFn, err := telegramClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()
	return fn(ctx, cfg, c)
}

func newSetWebhookCommand(load loadFunc) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Point the bot's webhook at this site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, load, func(ctx context.Context, cfg *config.Config, c webhookClient) error {
				target := url
				if target == "" {
					target = webhookURL(cfg)
				}
				err := c.SetWebhook(ctx, telegram.WebhookConfig{
					URL:            target,
					SecretToken:    cfg.Telegram.WebhookSecret,
					AllowedUpdates: []string{"message"},
				})
				if err != nil {
					return explain(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "webhook URL (default TELEGRAM_WEBHOOK_URL or SITE_URL"+webhookPath+")")
	return cmd
}

func newDeleteWebhookCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-webhook",
		Short: "Remove the bot's webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, load, func(ctx context.Context, _ *config.Config, c webhookClient) error {
				if err := c.DeleteWebhook(ctx); err != nil {
					return explain(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
				return nil
			})
		},
	}
}

func newWebhookInfoCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "webhook-info",
		Short: "Show the bot's current webhook status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, load, func(ctx context.Context, _ *config.Config, c webhookClient) error {
				info, err := c.WebhookInfo(ctx)
				if err != nil {
					return explain(err)
				}
				printWebhookInfo(cmd.OutOrStdout(), info)
				return nil
			})
		},
	}
}

func printWebhookInfo(w io.Writer, info telegram.WebhookInfo) {
	url := info.URL
	if url == "" {
		url = "(not set)"
	}
	fmt.Fprintf(w, "url:              %s\n", url)
	fmt.Fprintf(w, "pending updates:  %d\n", info.PendingUpdateCount)
	if info.LastErrorMessage != "" {
		fmt.Fprintf(w, "last error:       %s (%s)\n", info.LastErrorMessage,
			time.Unix(info.LastErrorDate, 0).UTC().Format(time.RFC3339))
	}
}

func explain(err error) error {
	if errors.Is(err, telegram.ErrNotConfigured) {
		return errors.New("sitectl: no bot token: set TELEGRAM_BOT_TOKEN or PARAM_PREFIX")
	}
	return err
}
