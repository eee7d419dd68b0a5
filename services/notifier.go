package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"codegalaxy/models"

	"go.uber.org/zap"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// WeeklyStats is the activity summary in the weekly report email
type WeeklyStats struct {
	CodesGenerated   int64
	FavoriteModel    string
	FavoriteLanguage string
	LeaderboardRank  int
}

const emailLayout = `{{define "layout"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #0f0c29; color: #ffffff; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background: #1a1a2e; border-radius: 10px; padding: 30px;">
{{template "content" .}}
<div style="margin-top: 30px; font-size: 12px; color: #aaaaaa; text-align: center;">
<p>{{.Footer}}</p>
{{with .FooterNote}}<p>{{.}}</p>{{end}}
<p>&copy; {{.Year}} CodeGalaxy. All rights reserved.</p>
</div>
</div>
</body>
</html>{{end}}`

var emailTemplates = map[string]string{
	"otp": `{{define "content"}}<h1>{{.Title}}</h1>
<p>{{.Text}}</p>
<div style="font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center; margin: 20px 0;">{{.Code}}</div>
<p>This code expires in 10 minutes.</p>
<p>If you didn't request this, you can ignore this email.</p>{{end}}`,

	"welcome": `{{define "content"}}<h1>Welcome to CodeGalaxy! 🚀🌌</h1>
<p>Hi {{.Name}},</p>
<p>We're thrilled to have you join our community of developers! CodeGalaxy is your AI-powered code generation platform that makes coding faster and smarter.</p>
<strong>What you can do:</strong>
<ul>
<li>✨ Generate code with 3 AI models (Gemma-2B, Phi-2, CodeBERT)</li>
<li>📝 Explain and improve existing code</li>
<li>🕒 Save and manage your code history</li>
<li>🏆 Compete on the leaderboard</li>
<li>⚡ Complete daily coding challenges</li>
<li>💬 Share feedback and reviews</li>
</ul>
<p style="text-align: center;"><a href="{{.AppURL}}">Start Generating Code</a></p>{{end}}`,

	"weekly": `{{define "content"}}<h1>Hi {{.Name}}! 👋</h1>
<p>Here's your weekly CodeGalaxy activity summary:</p>
<table style="width: 100%; text-align: center;">
<tr><td><strong>{{.Stats.CodesGenerated}}</strong><br>Codes Generated</td>
<td><strong>#{{.Stats.LeaderboardRank}}</strong><br>Your Rank</td></tr>
<tr><td><strong>{{.Stats.FavoriteModel}}</strong><br>Favorite Model</td>
<td><strong>{{.Stats.FavoriteLanguage}}</strong><br>Favorite Language</td></tr>
</table>
<p style="text-align: center;"><a href="{{.AppURL}}">Generate More Code</a> <a href="{{.AppURL}}?page=challenges">Try Daily Challenge</a></p>{{end}}`,

	"review_response": `{{define "content"}}<h1>Hi {{.Name}}! 👋</h1>
<p>Thank you for your feedback! Our admin team has responded to your review.</p>
<div><strong>Your Review:</strong><p>{{.ReviewTitle}}</p></div>
<div><strong>Admin Response:</strong><p>{{.Response}}</p></div>
<p style="text-align: center;"><a href="{{.AppURL}}">Visit CodeGalaxy</a></p>{{end}}`,

	"admin_alert": `{{define "content"}}<h1>⚠️ Alert: {{.AlertType}}</h1>
<p><strong>Message:</strong> {{.Message}}</p>
<p><strong>Time:</strong> {{.Time}}</p>
{{range .Details}}<p><strong>{{.Key}}:</strong> {{.Value}}</p>
{{end}}{{end}}`,

	"reset_success": `{{define "content"}}<h1>Password Reset Successful</h1>
<p>Hi {{.Name}},</p>
<p>Your password has been successfully reset. You can now log in with your new password.</p>
<p>If you didn't make this change, please contact us immediately.</p>{{end}}`,

	"test": `{{define "content"}}<h1>Test Email</h1>
<p>This is a test email from CodeGalaxy. SMTP delivery is working.</p>{{end}}`,
}

var otpCopy = map[string]struct{ subject, title, text string }{
	models.OTPSignup: {
		"Verify Your Email - CodeGalaxy 🚀",
		"Welcome to CodeGalaxy!",
		"Thank you for signing up. Please use the OTP code below to verify your email address.",
	},
	models.OTPPasswordReset: {
		"Reset Your Password - CodeGalaxy 🚀",
		"Password Reset Request",
		"You requested to reset your password. Use the OTP code below to proceed.",
	},
	models.OTPLogin: {
		"Your Login Code - CodeGalaxy 🚀",
		"Login Verification",
		"Use the OTP code below to complete your login.",
	},
}

type detail struct {
	Key   string
	Value interface{}
}

// Notifier renders and sends the transactional emails.
type Notifier struct {
	mailer     Mailer
	appURL     string
	adminEmail string
	log        *zap.Logger
	templates  map[string]*template.Template
	now        func() time.Time
}

func NewNotifier(mailer Mailer, appURL, adminEmail string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	base := template.Must(template.New("layout").Parse(emailLayout))
	templates := make(map[string]*template.Template, len(emailTemplates))
	for name, body := range emailTemplates {
		templates[name] = template.Must(template.Must(base.Clone()).Parse(body))
	}
	return &Notifier{
		mailer:     mailer,
		appURL:     appURL,
		adminEmail: adminEmail,
		log:        log,
		templates:  templates,
		now:        time.Now,
	}
}

func (n *Notifier) render(name string, data map[string]interface{}) (string, error) {
	tmpl, ok := n.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	if _, ok := data["Footer"]; !ok {
		data["Footer"] = "CodeGalaxy 🚀 - AI-Powered Code Generation"
	}
	data["Year"] = n.now().Year()
	data["AppURL"] = n.appURL

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func (n *Notifier) send(ctx context.Context, to, subject, name string, data map[string]interface{}) error {
	if n.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	body, err := n.render(name, data)
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.log.Warn("email delivery failed", zap.String("template", name), zap.Error(err))
		return err
	}
	return nil
}

// SendOTP mails a verification code. The subject depends on purpose.
func (n *Notifier) SendOTP(ctx context.Context, to, code, purpose string) error {
	c, ok := otpCopy[purpose]
	if !ok {
		c = otpCopy[models.OTPLogin]
	}
	return n.send(ctx, to, c.subject, "otp", map[string]interface{}{
		"Title": c.title,
		"Text":  c.text,
		"Code":  code,
	})
}

func (n *Notifier) SendWelcome(ctx context.Context, to, name string) error {
	return n.send(ctx, to, "Welcome to CodeGalaxy 🚀🌌", "welcome", map[string]interface{}{
		"Name":       name,
		"FooterNote": "Happy coding!",
	})
}

func (n *Notifier) SendWeeklyReport(ctx context.Context, to, name string, stats WeeklyStats) error {
	return n.send(ctx, to, "Your CodeGalaxy Weekly Report 🚀", "weekly", map[string]interface{}{
		"Name":       name,
		"Stats":      stats,
		"FooterNote": "You're receiving this because you enabled weekly reports in your settings.",
	})
}

func (n *Notifier) SendReviewResponse(ctx context.Context, to, name, reviewTitle, response string) error {
	return n.send(ctx, to, "Admin Response to Your Feedback - CodeGalaxy 🚀", "review_response", map[string]interface{}{
		"Name":        name,
		"ReviewTitle": reviewTitle,
		"Response":    response,
	})
}

// SendAdminAlert mails the configured admin address.
func (n *Notifier) SendAdminAlert(ctx context.Context, alertType, message string, details map[string]interface{}) error {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]detail, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, detail{Key: k, Value: details[k]})
	}

	upper := strings.ToUpper(alertType)
	subject := fmt.Sprintf("CodeGalaxy Alert: %s - %s", upper, message)
	return n.send(ctx, n.adminEmail, subject, "admin_alert", map[string]interface{}{
		"AlertType": upper,
		"Message":   message,
		"Time":      n.now().Format("2006-01-02 15:04:05"),
		"Details":   rows,
		"Footer":    "CodeGalaxy Admin System",
	})
}

func (n *Notifier) SendPasswordResetSuccess(ctx context.Context, to, name string) error {
	return n.send(ctx, to, "Password Reset Successful - CodeGalaxy 🚀", "reset_success", map[string]interface{}{
		"Name": name,
	})
}

func (n *Notifier) SendTest(ctx context.Context, to string) error {
	return n.send(ctx, to, "Test Email - CodeGalaxy 🚀", "test", map[string]interface{}{})
}
