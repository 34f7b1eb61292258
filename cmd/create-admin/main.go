package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/database"
	"github.com/stemsi/roster-backend/internal/logger"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
	"github.com/stemsi/roster-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// Bootstrap never touches sessions or captchas, so no Redis client is needed.
	authService := service.NewAuthService(cfg, nil)
	identityService := service.NewIdentityService(repository.NewIdentityRepository(pool), authService, nil, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Identity ===")

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input

	fmt.Print("Enter Role (admin/guest, default admin): ")
	roleStr, _ := reader.ReadString('\n')
	roleStr = strings.TrimSpace(roleStr)
	if roleStr == "" {
		roleStr = model.RoleAdmin.String()
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	identity, err := identityService.Bootstrap(ctx, username, password, role)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			fmt.Printf("Error: %s %s\n", ve.Field, ve.Message)
			return
		case errors.Is(err, service.ErrDuplicateUsername):
			fmt.Printf("Error: username %q is already taken\n", username)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create identity")
	}

	fmt.Printf("\nSuccess! %s '%s' created with ID: %d\n", identity.Role, identity.Username, identity.ID)
}
