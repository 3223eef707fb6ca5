package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/shared"
)

// MigrateCommand applies the Postgres credential store migrations.
func MigrateCommand(ctx context.Context, migrate func(context.Context, string) error, dsn string, streams Streams) int {
	streams = streams.withDefaults()
	if strings.TrimSpace(dsn) == "" {
		return streams.fail("migrate", errors.New("PG_DSN is required"))
	}
	if err := migrate(ctx, dsn); err != nil {
		return streams.fail("migrate", err)
	}
	fmt.Fprintln(streams.Stdout, "migrations applied")
	return 0
}

// Hasher hashes plaintext passwords.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// HashPasswordCommand prints the bcrypt hash of password, or of the first
// line of stdin when password is empty.
func HashPasswordCommand(hasher Hasher, password string, streams Streams) int {
	streams = streams.withDefaults()
	if password == "" {
		scanner := bufio.NewScanner(streams.Stdin)
		if scanner.Scan() {
			password = strings.TrimRight(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return streams.fail("hash-password", err)
		}
	}
	if password == "" {
		return streams.fail("hash-password", errors.New("password is required"))
	}
	hash, err := hasher.HashPassword(password)
	if err != nil {
		return streams.fail("hash-password", err)
	}
	fmt.Fprintln(streams.Stdout, hash)
	return 0
}

// UsersCLI registers accounts on behalf of an operator.
type UsersCLI struct {
	service *auth.Service

	mu   sync.Mutex
	last *auth.Contact
}

// NewUsersCLI builds the helper over repo. notify, when set, receives the
// contact the same way a self-service signup would.
func NewUsersCLI(repo auth.Repository, notify auth.SignupHook, opts ...auth.Option) *UsersCLI {
	c := &UsersCLI{}
	hook := auth.SignupHookFunc(func(ctx context.Context, contact auth.Contact) error {
		c.mu.Lock()
		c.last = &contact
		c.mu.Unlock()
		if notify != nil {
			return notify.AfterSignup(ctx, contact)
		}
		return nil
	})
	c.service = auth.NewService(repo, append(opts, auth.WithSignupHook(hook))...)
	return c
}

// CreateUserOptions configures CreateCommand.
type CreateUserOptions struct {
	Name    string
	Email   string
	Streams Streams
}

// CreateCommand registers a user with a generated password and prints the
// credentials. Exit code 2 means the email is already registered.
func (c *UsersCLI) CreateCommand(ctx context.Context, opts CreateUserOptions) int {
	streams := opts.Streams.withDefaults()
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()

	err := c.service.Signup(ctx, auth.SignupInput{Name: opts.Name, Email: opts.Email})
	switch {
	case errors.Is(err, shared.ErrConflict):
		fmt.Fprintf(streams.Stderr, "create-user: %s is already registered\n", auth.NormalizeEmail(opts.Email))
		return 2
	case err != nil:
		return streams.fail("create-user", err)
	}

	c.mu.Lock()
	contact := c.last
	c.mu.Unlock()
	if contact == nil {
		return streams.fail("create-user", errors.New("generated credentials were not captured"))
	}
	if err := writeJSON(streams.Stdout, contact); err != nil {
		return streams.fail("create-user", err)
	}
	return 0
}
