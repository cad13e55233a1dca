package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"steelcraft-site/internal/integrations/telegram"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/usecase"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleWebhook always acknowledges the update. Telegram retries anything
// that is not a 2xx, and a retried update would replay the conversation step.
func (h *Handler) handleWebhook(ctx context.Context, req *request) events.APIGatewayProxyResponse {
	ack := jsonResponse(http.StatusOK, map[string]bool{"ok": true})

	if h.webhookSecret != "" {
		got := req.header(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			req.log.Warn("handler: webhook secret mismatch")
			h.metrics.Webhook(metrics.OutcomeRejected)
			return ack
		}
	}

	if req.bodyErr != nil {
		h.metrics.Webhook(metrics.OutcomeInvalid)
		return ack
	}

	var update telegram.Update
	if err := json.Unmarshal(req.body, &update); err != nil {
		req.log.Warn("handler: malformed telegram update", logger.Error(err))
		h.metrics.Webhook(metrics.OutcomeInvalid)
		return ack
	}

	msg, ok := update.Inbound()
	if !ok {
		req.log.Debug("handler: update without text message", logger.Int64("update_id", update.UpdateID))
		h.metrics.Webhook(metrics.OutcomeIgnored)
		return ack
	}

	err := h.bot.HandleMessage(ctx, msg)
	if errors.Is(err, usecase.ErrUnauthorized) {
		h.metrics.Webhook(metrics.OutcomeUnauthorized)
		return ack
	}
	if err != nil {
		req.log.Error("handler: bot failed", logger.Error(err), logger.Int64("chat_id", msg.ChatID))
		h.metrics.Webhook(metrics.OutcomeFailed)
		return ack
	}
	h.metrics.Webhook(metrics.OutcomeHandled)
	return ack
}
