package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateManager_RendersPasswordReset(t *testing.T) {
	tm := NewTemplateManager()

	out, err := tm.Render(TemplatePasswordReset, TemplateData{
		"Name":       "Ann",
		"ResetURL":   "https://rentals.example/reset?token=abc",
		"ValidHours": 1,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hello Ann")
	assert.Contains(t, out, `href="https://rentals.example/reset?token=abc"`)
}

func TestTemplateManager_EscapesHTML(t *testing.T) {
	tm := NewTemplateManager()
	out, err := tm.Render(TemplateFeaturedExpired, TemplateData{"Name": "<b>x</b>", "Title": "Loft"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<b>x</b>")
}

func TestTemplateManager_UnknownTemplate(t *testing.T) {
	_, err := NewTemplateManager().Render("missing", nil)
	assert.Error(t, err)
}

func TestTemplateManager_AddTemplate(t *testing.T) {
	tm := NewTemplateManager()
	require.NoError(t, tm.AddTemplate("custom", "Hi {{.Name}}"))
	out, err := tm.Render("custom", TemplateData{"Name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Bo", out)

	assert.Error(t, tm.AddTemplate("broken", "{{.Name"))
}

func TestNoopProvider_RecordsTemplatedMail(t *testing.T) {
	p := NewNoopProvider()
	err := p.SendTemplate(context.Background(), []string{"ann@example.com"}, "Reset", TemplatePasswordChanged, TemplateData{"Name": "Ann"})
	require.NoError(t, err)

	sent := p.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ann@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTMLBody, "password was changed")
}

func TestNoopProvider_RequiresRecipients(t *testing.T) {
	assert.Error(t, NewNoopProvider().Send(context.Background(), &Email{Subject: "x"}))
}

func TestSMTPConfig_Validate(t *testing.T) {
	cfg := &SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "noreply@example.com"}
	assert.NoError(t, cfg.Validate())

	_, err := NewSMTPProvider(&SMTPConfig{Port: 587}, nil)
	assert.Error(t, err)

	_, err = NewSMTPProvider(&SMTPConfig{Host: "smtp.example.com", Port: 70000, FromEmail: "a@b.c"}, nil)
	assert.Error(t, err)
}
