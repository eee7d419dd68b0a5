package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"mime"
	"net/smtp"
	"strings"
)

// GenerateRandomCode generates a random numeric code of specified length
func GenerateRandomCode(length int) (string, error) {
	const charset = "0123456789"
	code := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// SMTPMailer sends HTML mail through an authenticated relay
type SMTPMailer struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	SenderName  string
}

// Configured reports whether credentials are present
func (m *SMTPMailer) Configured() bool {
	return m != nil && m.Username != "" && m.Password != ""
}

// Send delivers one HTML message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := []byte(buildMessage(m.SenderName, m.SenderEmail, to, subject, htmlBody))
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	if err := smtp.SendMail(addr, auth, m.SenderEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func buildMessage(senderName, senderEmail, to, subject, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "From: %s <%s>\r\n", senderName, senderEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}
