package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"codegalaxy/config"
	"codegalaxy/db"
	"codegalaxy/internal/logger"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.uber.org/zap"
)

// addadmin creates an admin account, or promotes an existing one, so the
// dashboard can be used without the configured admin credentials.
func main() {
	email := flag.String("email", "", "Admin email (required)")
	password := flag.String("password", "", "Admin password (required)")
	name := flag.String("name", "", "Display name (defaults to the email local part)")
	configPath := flag.String("config", "config/config.yml", "Path to config file")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *name == "" {
		*name = utils.ExtractNameFromEmail(*email)
	}
	if !utils.ValidateEmail(*email) {
		fmt.Println("Error: invalid email format")
		os.Exit(1)
	}
	if ok, msgs := utils.ValidatePasswordStrength(*password, utils.DefaultPasswordPolicy); !ok {
		for _, m := range msgs {
			fmt.Println("Error:", m)
		}
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer db.DisconnectMongoDB(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := db.NewMongoStore(db.MongoDatabase, zl)
	user, err := upsertAdmin(ctx, store, *name, *email, *password, time.Now())
	if err != nil {
		zl.Fatal("Failed to create admin", zap.Error(err))
	}
	zl.Info("Admin ready", zap.String("id", user.ID.Hex()), zap.String("email", utils.MaskEmail(user.Email)))
}

func upsertAdmin(ctx context.Context, store db.Store, name, email, password string, now time.Time) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		role, verified, status := models.RoleAdmin, true, models.StatusActive
		patch := models.UserPatch{Role: &role, EmailVerified: &verified, Status: &status, Password: &hash}
		if err := store.UpdateUser(ctx, existing.ID, patch); err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		patch.Apply(existing)
		return existing, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &models.User{
		Name:            name,
		Email:           email,
		Role:            models.RoleAdmin,
		Status:          models.StatusActive,
		AuthProvider:    models.ProviderEmail,
		Password:        hash,
		EmailVerified:   true,
		ThemePreference: "dark",
		SignupDate:      now,
		UpdatedAt:       now,
		LoginHistory:    []models.LoginRecord{},
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, nil
}
