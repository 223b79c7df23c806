package email

import "time"

// SMTPConfig содержит конфигурацию SMTP сервера
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	SSL       bool
	Timeout   time.Duration
}

func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return errMissingHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errInvalidPort
	}
	if c.FromEmail == "" {
		return errMissingSender
	}
	return nil
}
