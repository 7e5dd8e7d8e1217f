package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	textTemplate "text/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

type Mailer struct {
	dialer *mail.Dialer
	sender string
}

func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return Mailer{
		dialer: dialer,
		sender: sender,
	}
}

type rendered struct {
	subject   string
	plainBody string
	htmlBody  string
}

func render(templateFile string, data any) (*rendered, error) {
	tmpl, err := textTemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}

	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}

	htmlTmpl, err := template.New("email").Funcs(funcs).ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	htmlBody := new(bytes.Buffer)
	if err := htmlTmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	return &rendered{
		subject:   subject.String(),
		plainBody: plainBody.String(),
		htmlBody:  htmlBody.String(),
	}, nil
}

func (m Mailer) Send(recipient, templateFile string, data any) error {
	r, err := render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", r.subject)
	msg.SetBody("text/plain", r.plainBody)
	msg.AddAlternative("text/html", r.htmlBody)

	// Retry a couple of times on transient SMTP failures.
	for i := 1; i <= 3; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		if i < 3 {
			time.Sleep(500 * time.Millisecond)
		}
	}

	return fmt.Errorf("send %s to %s: %w", templateFile, recipient, err)
}

var funcs = map[string]any{
	"shooting": func(made, attempted int, percent string) string {
		if attempted == 0 {
			return "-"
		}
		return fmt.Sprintf("%d/%d (%s)", made, attempted, percent)
	},
}
