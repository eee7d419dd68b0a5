package services

import (
	"context"
	"strings"

	"codegalaxy/db"

	"go.uber.org/zap"
)

// FAQ is one frequently asked question
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var supportFAQs = []FAQ{
	{"How do I generate code?", "Navigate to the Generate Code page, select a model, choose your language, and describe what you want to build."},
	{"Which model should I use?", "Gemma-2B is great for general purposes, Phi-2 is fast for quick tasks, and CodeBERT excels at code analysis."},
	{"How do I save my code?", "After generating code, click the 'Save to History' button. You can view all saved code in the History page."},
	{"What languages are supported?", "We support Python, JavaScript, Java, C++, C#, Go, Rust, and TypeScript."},
	{"How do I export my history?", "Go to the History page and click 'Export History' to download your code as CSV."},
}

type SupportRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SupportService forwards user support requests to the admin mailbox.
type SupportService struct {
	notifier *Notifier
	audit    auditor
	log      *zap.Logger
}

func NewSupportService(store db.Store, notifier *Notifier, log *zap.Logger) *SupportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SupportService{notifier: notifier, audit: newAuditor(store, nil, log), log: log}
}

func (s *SupportService) FAQs() []FAQ {
	return supportFAQs
}

// Submit logs the request and alerts the admin. A failed alert email
// does not fail the request.
func (s *SupportService) Submit(ctx context.Context, actor Actor, in SupportRequest) error {
	subject := strings.TrimSpace(in.Subject)
	message := strings.TrimSpace(in.Message)
	if subject == "" || message == "" {
		return invalid("Subject and message are required")
	}

	s.audit.userAction(ctx, actor.ID, "support_request", map[string]interface{}{"subject": subject}, actor.Client)
	if s.notifier == nil {
		return nil
	}
	err := s.notifier.SendAdminAlert(ctx, "support", subject, map[string]interface{}{
		"User":    actor.Name,
		"Email":   actor.Email,
		"Message": message,
	})
	if err != nil {
		s.log.Warn("failed to forward support request", zap.Error(err))
	}
	return nil
}
