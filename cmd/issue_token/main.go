// Command issue_token signs a bearer token for a school staff member. Login is handled by the
// school's identity provider, this is for operators and local development.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/school_ledger/internal/core/domain"
	"github.com/SscSPs/school_ledger/internal/middleware"
	"github.com/SscSPs/school_ledger/internal/platform/config"
)

func main() {
	userID := flag.String("user", "", "user id placed in the subject claim")
	schoolID := flag.String("school", "", "school id the user acts for")
	name := flag.String("name", "", "optional display name")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	token, err := middleware.IssueToken(domain.Identity{UserID: *userID, SchoolID: *schoolID, FullName: *name},
		cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiryDuration)
	if err != nil {
		logger.Error("Failed to issue token", slog.String("error", err.Error()))
		os.Exit(2)
	}
	fmt.Println(token)
}
