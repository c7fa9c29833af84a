package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
	"github.com/kidpech/users_api/internal/infrastructure/auth"
	dbinfra "github.com/kidpech/users_api/internal/infrastructure/db"
)

type userSeed struct {
	Email    string
	Password string
	Name     string
	Verified bool
}

func main() {
	count := flag.Int("count", 5, "number of demo users to create")
	password := flag.String("password", "DemoPass123!", "password for every demo user")
	withSessions := flag.Bool("sessions", true, "create a session for each new user and print its bearer token")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := zap.NewNop()
	mgr, err := dbinfra.Connect(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if v := user.ValidatePassword(*password); !v.Empty() {
		log.Fatalf("password rejected: %v", v)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	hashed := string(hash)

	users := dbinfra.NewUserRepository(mgr.GormWrite, mgr.GormRead)
	sessionRepo := dbinfra.NewSessionRepository(mgr.Write)
	sessions := auth.NewSessionManager(cfg.Auth, sessionRepo, nil, logger)

	for i := 1; i <= *count; i++ {
		seed := userSeed{
			Email:    fmt.Sprintf("demo%02d@example.com", i),
			Password: *password,
			Name:     fmt.Sprintf("Demo User %02d", i),
			Verified: i%2 == 0,
		}
		if err := seedUser(ctx, users, sessionRepo, sessions, seed, hashed, *withSessions); err != nil {
			log.Fatalf("seed %s: %v", seed.Email, err)
		}
	}
	log.Println("demo seed completed")
}

func seedUser(ctx context.Context, users *dbinfra.UserRepository, sessionRepo *dbinfra.SessionRepository, sessions *auth.SessionManager, seed userSeed, hashed string, withSession bool) error {
	email, v := user.ValidateEmail(seed.Email)
	if !v.Empty() {
		return fmt.Errorf("invalid email: %v", v)
	}
	name, v := user.ValidateName(seed.Name)
	if !v.Empty() {
		return fmt.Errorf("invalid name: %v", v)
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		log.Printf("user %s already exists (%s), skipping", email, existing.ID)
		return nil
	case !errors.Is(err, user.ErrUserNotFound):
		return err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:            uuid.NewString(),
		Email:         email,
		Name:          &name,
		EmailVerified: seed.Verified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	account := user.Account{
		ID:         uuid.NewString(),
		AccountID:  u.ID,
		ProviderID: "credential",
		UserID:     u.ID,
		Password:   &hashed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := users.Seed(ctx, []user.User{u}, []user.Account{account}, nil); err != nil {
		return err
	}
	log.Printf("created user %s (%s)", email, u.ID)

	if !withSession {
		return nil
	}
	token, expiresAt := sessions.NewSessionToken()
	if err := sessionRepo.Create(ctx, &user.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	bearer, err := sessions.IssueSessionToken(token, u.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	log.Printf("  bearer token: %s", bearer)
	return nil
}
