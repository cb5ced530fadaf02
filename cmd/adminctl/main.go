// adminctl provisions back-office admin accounts. Credentials are created
// out-of-band; the auth service itself has no registration surface.
//
// Usage: adminctl -username alice [-password -] (reads password from stdin
// when "-", otherwise generates one and prints it).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/database"
	infraPostgres "github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/database/postgres"
	"github.com/Modoufinance/healthyimc-sub001/internal/infrastructure/security"
)

func main() {
	username := flag.String("username", "", "admin username (required)")
	password := flag.String("password", "", `admin password; "-" reads from stdin, empty generates one`)
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "adminctl: -username is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}

	plain := *password
	switch plain {
	case "-":
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fatal("failed to read password", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	case "":
		plain, err = security.GenerateSessionToken()
		if err != nil {
			fatal("failed to generate password", err)
		}
	}

	passwordService, err := security.NewArgon2idPasswordService(cfg.Security.PasswordHash)
	if err != nil {
		fatal("failed to initialize password service", err)
	}
	hash, err := passwordService.HashPassword(plain)
	if err != nil {
		fatal("failed to hash password", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infraPostgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		fatal("failed to connect to postgres", err)
	}
	defer pool.Close()

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:           uuid.New(),
		Username:     *username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := database.NewPgxAdminRepository(pool).Create(ctx, admin); err != nil {
		fatal("failed to create admin", err)
	}

	fmt.Printf("created admin %s (%s)\n", admin.Username, admin.ID)
	if *password == "" {
		fmt.Printf("generated password: %s\n", plain)
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "adminctl: %s: %v\n", msg, err)
	os.Exit(1)
}
