package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/usecase"
)

const (
	msgContactOK          = "Заявка успешно отправлена"
	msgContactInvalid     = "Ошибка валидации данных"
	msgContactFailed      = "Произошла ошибка при отправке заявки"
	msgContactRateLimited = "Слишком много запросов. Попробуйте позже."
)

type contactResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Errors  []usecase.FieldError `json:"errors,omitempty"`
}

var errUnsupportedBody = errors.New("unsupported content type")

func (h *Handler) handleContact(ctx context.Context, req *request) events.APIGatewayProxyResponse {
	if h.limiter != nil && !h.limiter.Allow(req.clientIP) {
		req.log.Warn("handler: contact rate limited", logger.String("client_ip", req.clientIP))
		h.metrics.Contact(metrics.OutcomeRateLimited)
		return jsonResponse(http.StatusTooManyRequests, contactResponse{Message: msgContactRateLimited})
	}

	in, err := parseContact(req.header("Content-Type"), req.body)
	if err != nil {
		req.log.Warn("handler: unreadable contact body", logger.Error(err))
		h.metrics.Contact(metrics.OutcomeInvalid)
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			return jsonResponse(http.StatusBadRequest, contactResponse{Message: msgContactInvalid, Errors: ucErr.Fields})
		}
		return jsonResponse(http.StatusBadRequest, contactResponse{Message: msgContactInvalid})
	}

	out, err := h.contact.Submit(ctx, in)
	if err != nil {
		status, code := statusFromErr(err)
		if status == http.StatusBadRequest {
			var ucErr *usecase.Error
			errors.As(err, &ucErr)
			h.metrics.Contact(metrics.OutcomeInvalid)
			return jsonResponse(status, contactResponse{Message: msgContactInvalid, Errors: ucErr.Fields})
		}
		req.log.Error("handler: contact submit failed", logger.Error(err), logger.String("code", code))
		h.metrics.Contact(metrics.OutcomeFailed)
		return jsonResponse(http.StatusInternalServerError, contactResponse{Message: msgContactFailed})
	}

	req.log.Info("handler: contact accepted",
		logger.String("lead_id", out.LeadID),
		logger.Int("files", len(in.Files)),
	)
	h.metrics.Contact(metrics.OutcomeAccepted)
	return jsonResponse(http.StatusOK, contactResponse{Success: true, Message: msgContactOK})
}

// parseContact reads a JSON or multipart/form-data submission.
func parseContact(contentType string, body []byte) (usecase.ContactInput, error) {
	var in usecase.ContactInput
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil && contentType != "" {
		return in, fmt.Errorf("parse content type: %w", err)
	}

	switch {
	case mediaType == "" || mediaType == "application/json":
		return parseJSONContact(body)
	case mediaType == "multipart/form-data":
		return parseMultipart(body, params["boundary"])
	default:
		return in, fmt.Errorf("%w: %s", errUnsupportedBody, mediaType)
	}
}

// parseJSONContact decodes each field on its own so that a field of the wrong
// type is reported by name. Numbers are accepted as text, which covers a
// phone sent as 79991234567.
func parseJSONContact(body []byte) (usecase.ContactInput, error) {
	var in usecase.ContactInput
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return in, fmt.Errorf("decode json: %w", err)
	}
	fields := []struct {
		name string
		dst  *string
	}{
		{"name", &in.Name},
		{"phone", &in.Phone},
		{"email", &in.Email},
		{"message", &in.Message},
		{"source", &in.Source},
	}
	var bad []usecase.FieldError
	for _, f := range fields {
		v, ok := raw[f.name]
		if !ok {
			continue
		}
		text, ok := jsonText(v)
		if !ok {
			bad = append(bad, usecase.FieldError{Field: f.name, Message: "Некорректное значение поля"})
			continue
		}
		*f.dst = text
	}
	if len(bad) > 0 {
		return in, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "malformed_field", Fields: bad}
	}
	return in, nil
}

// jsonText reads a JSON string, number or null as text.
func jsonText(v json.RawMessage) (string, bool) {
	if string(bytes.TrimSpace(v)) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func parseMultipart(body []byte, boundary string) (usecase.ContactInput, error) {
	var in usecase.ContactInput
	if boundary == "" {
		return in, errors.New("multipart boundary missing")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		if err != nil {
			return in, fmt.Errorf("read part: %w", err)
		}
		if err := readPart(&in, part); err != nil {
			part.Close()
			return in, err
		}
		part.Close()
	}
}

func readPart(in *usecase.ContactInput, part *multipart.Part) error {
	if part.FileName() != "" {
		switch part.FormName() {
		case "files", "file", "files[]":
		default:
			return nil
		}
		// One file past the limit is enough for validation to reject the request.
		if len(in.Files) > usecase.MaxFileCount {
			return nil
		}
		// Reading one byte past the limit is enough for the size check.
		data, err := io.ReadAll(io.LimitReader(part, usecase.MaxFileSize+1))
		if err != nil {
			return fmt.Errorf("read file %q: %w", part.FileName(), err)
		}
		in.Files = append(in.Files, domain.Attachment{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
		return nil
	}

	value, err := io.ReadAll(io.LimitReader(part, 64<<10))
	if err != nil {
		return fmt.Errorf("read field %q: %w", part.FormName(), err)
	}
	v := strings.TrimSpace(string(value))
	switch part.FormName() {
	case "name":
		in.Name = v
	case "phone":
		in.Phone = v
	case "email":
		in.Email = v
	case "message":
		in.Message = v
	case "source":
		in.Source = v
	}
	return nil
}
