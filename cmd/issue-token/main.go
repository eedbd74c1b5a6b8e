// Command issue-token prints a signed access token for a user, for local
// development and smoke tests against the generation API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/service/auth"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	user := flag.String("user", "", "user ID to issue the token for (default: a new random ID)")
	flag.Parse()

	if err := run(os.Stdout, *configPath, *user); err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, configPath, user string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	return issue(out, cfg.Auth, user)
}

func issue(out io.Writer, cfg config.AuthConfig, user string) error {
	userID := uuid.New()
	if user != "" {
		parsed, err := uuid.Parse(user)
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", user, err)
		}
		userID = parsed
	}

	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(context.Background(), userID)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "user:  %s\ntoken: %s\n", userID, token)
	return err
}
