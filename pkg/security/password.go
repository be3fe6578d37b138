package security

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed      = errors.New("password hashing failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	MinPasswordLen        = 8
)

// Credentials holds bcrypt hashes of the accounts allowed to log in.
// Usernames are compared case-insensitively, like email addresses.
type Credentials struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
}

// NewCredentials creates an empty credential set hashed at cost.
func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{hashes: make(map[string][]byte), cost: cost}
}

// Add registers username with password.
func (c *Credentials) Add(username, password string) error {
	if len(password) < MinPasswordLen {
		return errors.New("password too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return ErrHashingFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[strings.ToLower(username)] = hash
	return nil
}

// Verify returns ErrInvalidCredentials unless password matches username's hash.
func (c *Credentials) Verify(username, password string) error {
	c.mu.RLock()
	hash, ok := c.hashes[strings.ToLower(username)]
	c.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
