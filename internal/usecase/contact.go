package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
)

const (
	MaxFileCount = 10
	MaxFileSize  = 50 << 20
	MaxTotalSize = 100 << 20
)

// MsgTotalSizeExceeded is the field error for attachments over MaxTotalSize.
const MsgTotalSizeExceeded = "Общий размер файлов превышает 100MB"

type DocumentNotifier interface {
	Notifier
	SendDocument(ctx context.Context, chatID int64, doc domain.Attachment, caption string) (int64, error)
}

type LeadWriter interface {
	CreateLead(ctx context.Context, lead domain.Lead) error
}

type ContactInput struct {
	Name    string              `json:"name"`
	Phone   string              `json:"phone" validate:"required,ru_phone"`
	Email   string              `json:"email" validate:"omitempty,email"`
	Message string              `json:"message"`
	Source  string              `json:"source" validate:"oneof=website callback"`
	Files   []domain.Attachment `json:"files" validate:"max=10"`
}

type ContactOutput struct {
	LeadID string
}

type ContactConfig struct {
	ChatID   int64
	Location *time.Location
}

// Contact accepts contact form submissions and forwards them to the company
// chat. Only validation and the lead write can fail a submission.
type Contact struct {
	notifier DocumentNotifier
	leads    LeadWriter
	log      logger.Logger
	validate *validator.Validate
	chatID   int64
	loc      *time.Location

	now   func() time.Time
	newID func() string
}

// NewContact builds the service. leads may be nil when no relational store is
// configured.
func NewContact(n DocumentNotifier, leads LeadWriter, log logger.Logger, cfg ContactConfig) (*Contact, error) {
	if n == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	validate, err := newContactValidator()
	if err != nil {
		return nil, err
	}
	return &Contact{
		notifier: n,
		leads:    leads,
		log:      log,
		validate: validate,
		chatID:   cfg.ChatID,
		loc:      loc,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (c *Contact) Submit(ctx context.Context, in ContactInput) (ContactOutput, error) {
	in = normalizeContact(in)
	if fields := c.validateInput(in); len(fields) > 0 {
		return ContactOutput{}, &Error{Code: ErrorInvalidInput, Reason: "validation_failed", Fields: fields}
	}

	now := c.now()
	out := ContactOutput{LeadID: c.newID()}
	if c.leads != nil {
		lead := domain.Lead{
			ID:        out.LeadID,
			Name:      in.Name,
			Phone:     in.Phone,
			Email:     in.Email,
			Message:   in.Message,
			Source:    in.Source,
			FileCount: len(in.Files),
			CreatedAt: now.UTC(),
		}
		if err := c.leads.CreateLead(ctx, lead); err != nil {
			return ContactOutput{}, newError(ErrorInternal, "lead_write_error", err)
		}
	}

	c.notify(ctx, in, now)
	return out, nil
}

func (c *Contact) notify(ctx context.Context, in ContactInput, now time.Time) {
	log := c.log.With(logger.String("source", in.Source))
	if c.chatID == 0 {
		log.Warn("contact: telegram chat not configured, skipping notification")
		return
	}
	if _, err := c.notifier.SendMessage(ctx, c.chatID, formatContactMessage(in, now.In(c.loc))); err != nil {
		log.Error("contact: telegram send failed", logger.Error(err))
		return
	}
	for _, f := range in.Files {
		if _, err := c.notifier.SendDocument(ctx, c.chatID, f, fileCaption(f)); err != nil {
			log.Error("contact: telegram send file failed", logger.String("file", f.Name), logger.Error(err))
		}
	}
}

func normalizeContact(in ContactInput) ContactInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	in.Source = strings.TrimSpace(in.Source)
	if in.Source == "" {
		in.Source = domain.SourceWebsite
	}
	return in
}

// PhoneDigits strips everything but digits from a phone number.
func PhoneDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func validRuPhone(phone string) bool {
	digits := PhoneDigits(phone)
	return len(digits) == 11 && digits[0] == '7'
}

func newContactValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("ru_phone", func(fl validator.FieldLevel) bool {
		return validRuPhone(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("usecase: register phone validation: %w", err)
	}
	return v, nil
}

func (c *Contact) validateInput(in ContactInput) []FieldError {
	var fields []FieldError
	if err := c.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []FieldError{{Field: "form", Message: "Ошибка валидации данных"}}
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}
	return append(fields, fileSizeErrors(in.Files)...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() + "." + fe.Tag() {
	case "phone.required":
		return "Введите номер телефона"
	case "phone.ru_phone":
		return "Введите корректный номер телефона"
	case "email.email":
		return "Некорректный email"
	case "source.oneof":
		return "Неизвестный источник заявки"
	case "files.max":
		return fmt.Sprintf("Максимум %d файлов", MaxFileCount)
	default:
		return "Некорректное значение"
	}
}

func fileSizeErrors(files []domain.Attachment) []FieldError {
	var (
		out   []FieldError
		total int64
	)
	for _, f := range files {
		total += f.Size()
		if f.Size() > MaxFileSize {
			out = append(out, FieldError{Field: "files", Message: fmt.Sprintf("Файл %s превышает 50MB", f.Name)})
		}
	}
	if total > MaxTotalSize {
		out = append(out, FieldError{Field: "files", Message: MsgTotalSizeExceeded})
	}
	return out
}

func sourceLabel(source string) string {
	if source == domain.SourceCallback {
		return "Обратный звонок"
	}
	return "Форма на сайте"
}

func formatContactMessage(in ContactInput, at time.Time) string {
	name := in.Name
	if name == "" {
		name = "Не указано"
	}
	message := in.Message
	if message == "" {
		message = "Не указано"
	}

	parts := []string{
		"🔔 <b>Новая заявка с сайта!</b>",
		"",
		"👤 <b>Имя:</b> " + html.EscapeString(name),
		"📱 <b>Телефон:</b> " + html.EscapeString(in.Phone),
	}
	if in.Email != "" {
		parts = append(parts, "📧 <b>Email:</b> "+html.EscapeString(in.Email))
	}
	parts = append(parts,
		"📍 <b>Источник:</b> "+sourceLabel(in.Source),
		"",
		"💬 <b>Сообщение:</b>",
		html.EscapeString(message),
	)
	if len(in.Files) > 0 {
		parts = append(parts, "", fmt.Sprintf("📎 <b>Файлы:</b> %d шт.", len(in.Files)))
	}
	parts = append(parts, "", "🕐 "+at.Format("02.01.2006, 15:04:05"))
	return strings.Join(parts, "\n")
}

func fileCaption(f domain.Attachment) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, f.Name)
	return fmt.Sprintf("📎 %s (%.2f KB)", name, float64(f.Size())/1024)
}
