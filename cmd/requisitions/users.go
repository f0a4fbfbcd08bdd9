package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/erazemk/requisitions/internal/auth"
	"github.com/erazemk/requisitions/internal/config"
	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/store"
)

func runUserAdd(args []string) error {
	fs := config.NewFlagSet("requisitions useradd")
	username := fs.StringP("username", "u", "", "username (required)")
	role := fs.StringP("role", "r", model.RoleEndUser, "role: end_user or receiver")
	password := fs.StringP("password", "p", "", "password (default: generated and printed)")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("--username is required")
	}

	database, err := openDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	generated := *password == ""
	if generated {
		if *password, err = generatePassword(16); err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
	}

	u, err := addUser(context.Background(), database, *username, *password, *role)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s %s (%s)\n", u.Role, u.Username, u.ID)
	if generated {
		fmt.Printf("  Password: %s\n", *password)
		fmt.Println()
		fmt.Println("Save this password, it cannot be recovered.")
	}
	return nil
}

// runSeed creates demo accounts that all share one password. Existing
// usernames are left untouched.
func runSeed(args []string) error {
	fs := config.NewFlagSet("requisitions seed")
	receivers := fs.String("receivers", "", "space separated receiver usernames")
	endUsers := fs.String("end-users", "", "space separated end user usernames")
	password := fs.StringP("password", "p", "", "password for every seeded account (required)")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("--password is required")
	}

	database, err := openDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	created := 0
	for _, group := range []struct {
		role  string
		names string
	}{
		{model.RoleReceiver, *receivers},
		{model.RoleEndUser, *endUsers},
	} {
		for _, name := range strings.Fields(group.names) {
			existing, err := store.GetUserByUsername(ctx, database, name)
			if err != nil {
				return err
			}
			if existing != nil {
				slog.Warn("user exists, skipping", "user", name)
				continue
			}
			if _, err := addUser(ctx, database, name, *password, group.role); err != nil {
				return err
			}
			created++
		}
	}

	fmt.Printf("Seeded %d accounts.\n", created)
	return nil
}

func addUser(ctx context.Context, database *sql.DB, username, password, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := store.CreateUser(ctx, database, username, hash, role)
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", username, err)
	}
	slog.Info("user created", "user", u.Username, "role", u.Role)
	return u, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
