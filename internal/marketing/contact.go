// Package marketing delivers newly registered contacts, together with their
// generated credentials, to an outside channel.
package marketing

import (
	"context"
	"strings"
)

// Contact is a registered user as handed to a marketing channel.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Sink receives contacts after signup.
type Sink interface {
	SyncContact(ctx context.Context, contact Contact) error
}

// Noop discards contacts.
type Noop struct{}

// SyncContact implements Sink.
func (Noop) SyncContact(context.Context, Contact) error { return nil }

// SplitName splits a full name on the first space.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
