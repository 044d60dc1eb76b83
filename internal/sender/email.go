package sender

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	gopkgmail "gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	SSL      bool
}

type EmailNotification struct {
	To       string
	Subject  string
	Template string         // имя шаблона (например, "order_confirmation")
	Data     map[string]any // данные для шаблона
}

// Dialer — отправка готовых писем; в проде *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gopkgmail.Message) error
}

type EmailSender struct {
	from    string
	tmplDir string
	dialer  Dialer
}

func NewEmailSender(cfg SMTPConfig, tmplDir string) *EmailSender {
	d := gopkgmail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	return NewEmailSenderWithDialer(cfg.From, tmplDir, d)
}

func NewEmailSenderWithDialer(from, tmplDir string, d Dialer) *EmailSender {
	return &EmailSender{from: from, tmplDir: tmplDir, dialer: d}
}

func (s *EmailSender) SendEmail(n EmailNotification) error {
	m, err := s.Build(n)
	if err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

// Build рендерит оба варианта письма и собирает сообщение.
func (s *EmailSender) Build(n EmailNotification) (*gopkgmail.Message, error) {
	htmlBody, err := s.renderHTML(n.Template, n.Data)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	plainBody, err := s.renderPlain(n.Template, n.Data)
	if err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if strings.Contains(htmlBody, "cid:logo") {
		iconPath := filepath.Join(s.tmplDir, "icon.png")
		if _, errStat := os.Stat(iconPath); errStat == nil {
			m.Embed(iconPath, gopkgmail.SetHeader(map[string][]string{"Content-ID": {"<logo>"}}))
		}
	}
	return m, nil
}

func (s *EmailSender) renderHTML(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.tmplDir, tmplName+".html"))
	if err != nil {
		return "", err
	}
	tmpl, err := htmltemplate.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// plain-версия без html-экранирования
func (s *EmailSender) renderPlain(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.tmplDir, tmplName+".txt"))
	if err != nil {
		return "", err
	}
	tmpl, err := texttemplate.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
