// Package datagen produces randomized identities for the providers and
// patients a workflow run creates.
package datagen

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
)

const (
	firstNamePrefix = "AutoFN"
	letters         = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	phoneMin        = 1_000_000_000
	phoneMax        = 9_999_999_999
)

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones",
	"Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
	"Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
	"Thomas", "Taylor", "Moore", "Jackson", "Martin",
}

// LastNames returns a copy of the surname pool.
func LastNames() []string {
	return append([]string(nil), lastNames...)
}

// Generator creates identities. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	now    func() time.Time
	domain string
	seq    uint64
}

// Option configures a Generator
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSeed makes the random source deterministic.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithDomain sets the email domain, "example.com" by default.
func WithDomain(domain string) Option {
	return func(g *Generator) { g.domain = domain }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:    time.Now,
		domain: "example.com",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Identity returns a fresh identity. The email local part embeds the current
// millisecond timestamp and a per-generator sequence number, so two calls
// never produce the same address.
func (g *Generator) Identity() model.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	firstName := firstNamePrefix + g.randomString(6)
	return model.Identity{
		FirstName: firstName,
		LastName:  lastNames[g.rnd.IntN(len(lastNames))],
		Email:     fmt.Sprintf("%s_%d_%d@%s", firstName, g.now().UnixMilli(), g.seq, g.domain),
		Phone:     fmt.Sprintf("+1%d", phoneMin+g.rnd.Int64N(phoneMax-phoneMin+1)),
	}
}

// Tag returns a token unique to this generator, used for plus-addressing.
func (g *Generator) Tag(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s%dn%d", prefix, g.now().UnixMilli(), g.seq)
}

func (g *Generator) randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(letters[g.rnd.IntN(len(letters))])
	}
	return b.String()
}

// PlusAddress inserts +tag into mailbox's local part: "qa@x.com" -> "qa+tag@x.com".
// A mailbox without "@" is returned unchanged.
func PlusAddress(mailbox, tag string) string {
	at := strings.LastIndex(mailbox, "@")
	if at <= 0 {
		return mailbox
	}
	return mailbox[:at] + "+" + tag + mailbox[at:]
}
