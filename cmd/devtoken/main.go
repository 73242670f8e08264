// Command devtoken mints bearer tokens for local development against a
// server sharing the same JWT_SIGNING_KEY and JWT_ISSUER.
//
//	devtoken -role admin -name "Admin User"
//	devtoken -user 6f1c... -ttl 15m
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "trustbank/internal/jwt_token"
	"trustbank/internal/platform/config"
	id "trustbank/pkg/domain"
	"trustbank/pkg/requestcontext"
)

func main() {
	os.Exit(run(os.Args[1:], config.FromEnv(), os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 2 on usage errors.
func run(args []string, cfg config.Server, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		user string
		role string
		name string
		ttl  time.Duration
	)
	cmd.StringVar(&user, "user", "", "User ID (UUID). A random one is generated when empty")
	cmd.StringVar(&role, "role", string(requestcontext.RoleCustomer), "Role: customer or admin")
	cmd.StringVar(&name, "name", "", "Display name recorded on overrides")
	cmd.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	r := requestcontext.Role(role)
	if !r.IsValid() {
		_, _ = fmt.Fprintf(stderr, "Error: -role must be customer or admin, got %q\n", role)
		return 2
	}
	if ttl <= 0 {
		_, _ = fmt.Fprintln(stderr, "Error: -ttl must be positive")
		return 2
	}

	userID := id.UserID(uuid.New())
	if user != "" {
		parsed, err := id.ParseUserID(user)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		userID = parsed
	}

	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer).GenerateAccessToken(userID, r, name, ttl)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: sign token: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, token)
	return 0
}
