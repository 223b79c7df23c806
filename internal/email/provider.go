package email

import (
	"context"
	"errors"
	"sync"
)

var (
	errMissingHost   = errors.New("SMTP host is required")
	errInvalidPort   = errors.New("invalid SMTP port")
	errMissingSender = errors.New("sender email is required")
	errNoRecipients  = errors.New("no recipients specified")
)

// Provider определяет интерфейс для отправки email
type Provider interface {
	Send(ctx context.Context, email *Email) error
	// SendTemplate рендерит шаблон и отправляет письмо
	SendTemplate(ctx context.Context, to []string, subject, templateName string, data TemplateData) error
}

// NoopProvider ничего не отправляет, а запоминает письма; используется в тестах и когда email выключен
type NoopProvider struct {
	renderer *TemplateManager

	mu   sync.Mutex
	sent []Email
}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{renderer: NewTemplateManager()}
}

func (p *NoopProvider) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return errNoRecipients
	}
	p.mu.Lock()
	p.sent = append(p.sent, *email)
	p.mu.Unlock()
	return nil
}

func (p *NoopProvider) SendTemplate(ctx context.Context, to []string, subject, templateName string, data TemplateData) error {
	body, err := p.renderer.Render(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, &Email{To: to, Subject: subject, HTMLBody: body})
}

// Sent - копия отправленных писем
func (p *NoopProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Email(nil), p.sent...)
}
