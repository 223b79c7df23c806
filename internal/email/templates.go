package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// Имена встроенных шаблонов
const (
	TemplatePasswordReset   = "password_reset"
	TemplatePasswordChanged = "password_changed"
	TemplateFeaturedExpired = "featured_expired"
)

var builtinTemplates = map[string]string{
	TemplatePasswordReset: `<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. The link below is valid for {{.ValidHours}} hour(s).</p>
<p><a href="{{.ResetURL}}">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`,

	TemplatePasswordChanged: `<p>Hello {{.Name}},</p>
<p>Your password was changed. All active sessions have been signed out.</p>`,

	TemplateFeaturedExpired: `<p>Hello {{.Name}},</p>
<p>The featured placement for "{{.Title}}" has ended. The listing stays published.</p>`,
}

// TemplateManager хранит разобранные html-шаблоны писем
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{templates: make(map[string]*template.Template)}
	for name, body := range builtinTemplates {
		template.Must(tm.parse(name, body))
	}
	return tm
}

func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(name, templateStr string) error {
	_, err := tm.parse(name, templateStr)
	return err
}

func (tm *TemplateManager) parse(name, templateStr string) (*template.Template, error) {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return tpl, nil
}
