package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strings"
)

// Message is one outbound mail with both plain-text and HTML bodies.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers mail over SMTP using the EMAIL_* environment variables.
type Mailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

var ErrNotConfigured = errors.New("email credentials are not configured, populate EMAIL_* variables in your environment")

// FromEnv builds a Mailer from EMAIL_HOST, EMAIL_PORT, EMAIL_USER,
// EMAIL_PASSWORD and EMAIL_FROM.
func FromEnv() (*Mailer, error) {
	m := &Mailer{
		host:     os.Getenv("EMAIL_HOST"),
		port:     os.Getenv("EMAIL_PORT"),
		user:     os.Getenv("EMAIL_USER"),
		password: os.Getenv("EMAIL_PASSWORD"),
		from:     os.Getenv("EMAIL_FROM"),
	}
	if m.host == "" || m.port == "" || m.user == "" || m.password == "" {
		return nil, ErrNotConfigured
	}
	if m.from == "" {
		m.from = "no-reply@pensioncrm.test"
	}
	return m, nil
}

// Send delivers the message. Port 465 uses implicit TLS; any other port
// connects plain and upgrades with STARTTLS.
func (m *Mailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("no recipients")
	}

	addr := net.JoinHostPort(m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	tlsConfig := &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}

	var (
		client *smtp.Client
		err    error
	)
	if m.port == "465" {
		conn, dialErr := tls.Dial("tcp", addr, tlsConfig)
		if dialErr != nil {
			return fmt.Errorf("smtp dial: %w", dialErr)
		}
		client, err = smtp.NewClient(conn, m.host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(m.build(msg)); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

// build assembles a multipart/alternative MIME message so clients render the
// HTML part and fall back to plain text.
func (m *Mailer) build(msg Message) []byte {
	boundary := "=_digest_boundary_1"

	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + boundary + "\"\r\n")
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
