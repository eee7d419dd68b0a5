package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	utils.SetJWTSecret("test-secret")
	os.Exit(m.Run())
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []GenerationRequest
	reply    func(ctx context.Context, req GenerationRequest) (string, error)
}

func replyWith(text string) *fakeGenerator {
	return &fakeGenerator{reply: func(context.Context, GenerationRequest) (string, error) { return text, nil }}
}

func failWith(err error) *fakeGenerator {
	return &fakeGenerator{reply: func(context.Context, GenerationRequest) (string, error) { return "", err }}
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(ctx, req)
}

func (f *fakeGenerator) calls() []GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenerationRequest(nil), f.requests...)
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: html})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeFeed struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (f *fakeFeed) Publish(event models.ActivityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeFeed) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func newGateway(gen TextGenerator, store *db.MemoryStore) *Gateway {
	g := NewGateway(gen, ModelEndpoints("huggingface", nil), store, time.Second, nil)
	g.batchPause = 0
	return g
}

func createUser(t *testing.T, store db.Store, name, email string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("Secret#123")
	require.NoError(t, err)
	now := time.Now()
	user := &models.User{
		Name:               name,
		Email:              email,
		Role:               models.RoleUser,
		Status:             models.StatusActive,
		AuthProvider:       models.ProviderEmail,
		Password:           hash,
		EmailVerified:      true,
		EmailNotifications: true,
		SignupDate:         now,
		UpdatedAt:          now,
		LoginHistory:       []models.LoginRecord{},
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func actorFor(u *models.User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Client: ClientInfo{IP: "203.0.113.7", UserAgent: "Mozilla/5.0 Chrome/120.0"}}
}

func saveCode(t *testing.T, store db.Store, owner *models.User, model, language, prompt string) {
	t.Helper()
	require.NoError(t, store.SaveCode(context.Background(), &models.GeneratedCode{
		UserID:     owner.ID,
		ModelName:  model,
		TaskType:   models.TaskGenerate,
		Language:   language,
		Prompt:     prompt,
		CodeOutput: "print('hi')",
		Metadata:   models.CodeMetadata{Success: true},
		CreatedAt:  time.Now(),
	}))
}
