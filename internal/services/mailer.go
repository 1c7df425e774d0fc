package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers outbound notification email.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
	SendProjectInvitation(to, inviterName, projectName, inviteURL string) error
}

// SMTPMailer sends plain-text email over SMTP.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	return m.send(to, "Password Reset Request",
		"Click the following link to reset your password: "+resetURL+"\r\n\r\n"+
			"The link expires in 24 hours. If you did not request a reset, you can ignore this email.")
}

func (m *SMTPMailer) SendProjectInvitation(to, inviterName, projectName, inviteURL string) error {
	return m.send(to, "Project Invitation",
		inviterName+" invited you to collaborate on \""+projectName+"\".\r\n\r\n"+
			"Accept the invitation here: "+inviteURL)
}

// LogMailer logs instead of sending. Used in development when SMTP is not
// configured so reset links remain reachable from the server log.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(to, resetURL string) error {
	log.Printf("password reset for %s: %s", to, resetURL)
	return nil
}

func (LogMailer) SendProjectInvitation(to, inviterName, projectName, inviteURL string) error {
	log.Printf("project invitation for %s to %q from %s: %s", to, projectName, inviterName, inviteURL)
	return nil
}
