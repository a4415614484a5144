package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"gopkg.in/gomail.v2"

	"www.github.com/Wanderer0074348/EventSync/src/config"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
	<h2>Confirm your email for {{.App}}</h2>
	<p>Open the link below to verify your address.</p>
	<p><a href="{{.Link}}">Verify email</a></p>
</div>
`))

// Sender delivers a composed message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailService struct {
	sender  Sender
	from    string
	appName string
}

func NewMailService(cfg *config.MailConfig, appName string) *MailService {
	return &MailService{
		sender:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		appName: appName,
	}
}

func NewMailServiceWithSender(sender Sender, from, appName string) *MailService {
	return &MailService{sender: sender, from: from, appName: appName}
}

func (m *MailService) compose(to, link string) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, struct{ App, Link string }{m.appName, link}); err != nil {
		return nil, fmt.Errorf("failed to render verification mail: %w", err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", "Verify your email for "+m.appName)
	message.SetBody("text/html", body.String())
	message.AddAlternative("text/plain", "Verify your email: "+link)
	return message, nil
}

func (m *MailService) SendVerificationMail(to, link string) error {
	message, err := m.compose(to, link)
	if err != nil {
		return err
	}
	return m.sender.DialAndSend(message)
}

// LogMailer prints verification links instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendVerificationMail(to, link string) error {
	log.Printf("⚠️  SMTP not configured, verification link for %s: %s", to, link)
	return nil
}
