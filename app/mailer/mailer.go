package mailer

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

const resetSubject = "Redefinição de senha"

// ResetLink appends token and email to the configured reset page.
func ResetLink(base, email, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}

	query := u.Query()
	query.Set("token", token)
	query.Set("email", email)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// LogMailer writes reset links to the log instead of delivering them. It is
// used when outbound mail is disabled and by the reset CLI.
type LogMailer struct {
	resetURL string
}

func NewLogMailer(resetURL string) *LogMailer {
	return &LogMailer{resetURL: resetURL}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, token string) error {
	fields := logrus.Fields{
		"email": to,
		"token": token,
	}
	if m.resetURL != "" {
		link, err := ResetLink(m.resetURL, to, token)
		if err != nil {
			return err
		}
		fields["link"] = link
	}

	logrus.WithFields(fields).Info("Password reset issued (mail delivery disabled)")
	return nil
}

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	sender   emailSender
	from     string
	resetURL string
}

func NewResendMailer(apiKey, from, resetURL string) *ResendMailer {
	client := resend.NewClient(apiKey)
	return newResendMailer(client.Emails, from, resetURL)
}

func newResendMailer(sender emailSender, from, resetURL string) *ResendMailer {
	return &ResendMailer{
		sender:   sender,
		from:     from,
		resetURL: resetURL,
	}
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link, err := ResetLink(m.resetURL, to, token)
	if err != nil {
		return err
	}

	res, err := m.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: resetSubject,
		Text:    "Para redefinir sua senha acesse: " + link,
		Html: fmt.Sprintf(
			`<p>Recebemos um pedido para redefinir sua senha.</p><p><a href="%s">Redefinir senha</a></p>`,
			html.EscapeString(link),
		),
	})
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"email":      to,
		"message_id": res.Id,
	}).Debug("Password reset email sent")
	return nil
}
