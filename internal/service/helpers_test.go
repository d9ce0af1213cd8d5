package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/repository/memstore"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

const strongPassword = "Valid1!pass"

type sentMail struct {
	to   string
	link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendResetLink(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, link: link})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type recordingCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *recordingCounter) RecordTicketEvent(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[eventType]++
}

func (c *recordingCounter) get(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[eventType]
}

type testEnv struct {
	cfg       config.Config
	users     *memstore.Users
	tickets   *memstore.Tickets
	ledger    *memstore.ResetLedger
	creds     *auth.CredentialStore
	guard     *auth.Guard
	mailer    *fakeMailer
	counter   *recordingCounter
	accounts  *AccountService
	lifecycle *TicketService
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{
			Name:      "helpdesk-test",
			ClientURL: "http://client.test",
		},
		Auth: config.AuthConfig{
			SessionSecret:    "session-secret",
			SessionTTL:       24 * time.Hour,
			ResetSecret:      "reset-secret",
			ResetTTL:         20 * time.Minute,
			BcryptCost:       bcrypt.MinCost,
			ResetSingleUse:   true,
			AllowAdminSignup: true,
		},
		Mail: config.MailConfig{
			Transport:   "log",
			SendTimeout: time.Second,
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	tickets := memstore.NewTickets()
	users := memstore.NewUsers(tickets)
	ledger := memstore.NewResetLedger()
	creds := auth.NewCredentialStore(cfg.Auth)
	guard := auth.NewGuard(creds)
	mailer := &fakeMailer{}
	counter := &recordingCounter{}
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.NewNop(), counter).RegisterHandlers()

	accounts := NewAccountService(cfg, AccountDependencies{
		UserRepo:    users,
		ResetLedger: ledger,
		Credentials: creds,
		Mailer:      mailer,
		Dispatcher:  dispatcher,
	})
	lifecycle := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Guard:      guard,
		Dispatcher: dispatcher,
	})

	return &testEnv{
		cfg:       cfg,
		users:     users,
		tickets:   tickets,
		ledger:    ledger,
		creds:     creds,
		guard:     guard,
		mailer:    mailer,
		counter:   counter,
		accounts:  accounts,
		lifecycle: lifecycle,
	}
}

// signup registers an account and returns the actor resolved from its token.
func (e *testEnv) signup(t *testing.T, name, email string, role domain.Role) domain.Actor {
	t.Helper()
	_, token, err := e.accounts.Signup(context.Background(), SignupInput{
		Name:     name,
		Email:    email,
		Phone:    "555-0100",
		Password: strongPassword,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	actor, err := e.guard.ResolveActor(token)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	return actor
}

func statusOf(err error) int {
	if err == nil {
		return 0
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de.HTTPStatus
	}
	return -1
}

func expectStatus(t *testing.T, err error, want int) {
	t.Helper()
	if got := statusOf(err); got != want {
		t.Fatalf("status = %d (err %v), want %d", got, err, want)
	}
}
