package datagen

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	firstNameRE = regexp.MustCompile(`^AutoFN[A-Za-z]{6}$`)
	phoneRE     = regexp.MustCompile(`^\+1[1-9][0-9]{9}$`)
)

func TestIdentityFormat(t *testing.T) {
	g := New(WithSeed(42))
	id := g.Identity()

	assert.Regexp(t, firstNameRE, id.FirstName)
	assert.Contains(t, LastNames(), id.LastName)
	assert.Regexp(t, phoneRE, id.Phone)
	assert.True(t, strings.HasPrefix(id.Email, id.FirstName+"_"), id.Email)
	assert.True(t, strings.HasSuffix(id.Email, "@example.com"), id.Email)
}

func TestEmailsUniqueWithinSameMillisecond(t *testing.T) {
	frozen := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
	// A fixed seed and a frozen clock are the worst case for collisions.
	g := New(WithSeed(7), WithClock(func() time.Time { return frozen }))

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		email := g.Identity().Email
		_, dup := seen[email]
		require.False(t, dup, "duplicate email %s", email)
		seen[email] = struct{}{}
	}
}

func TestIdentityConcurrentUse(t *testing.T) {
	g := New()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]struct{})
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				email := g.Identity().Email
				mu.Lock()
				seen[email] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
}

func TestWithDomain(t *testing.T) {
	g := New(WithDomain("medarch.test"))
	assert.True(t, strings.HasSuffix(g.Identity().Email, "@medarch.test"))
}

func TestSeedIsDeterministic(t *testing.T) {
	clock := func() time.Time { return time.Unix(1_760_000_000, 0) }
	a := New(WithSeed(99), WithClock(clock)).Identity()
	b := New(WithSeed(99), WithClock(clock)).Identity()
	assert.Equal(t, a, b)
}

func TestPlusAddress(t *testing.T) {
	assert.Equal(t, "qa.team+AutoFNabc123@medarch.com", PlusAddress("qa.team@medarch.com", "AutoFNabc123"))
	assert.Equal(t, "not-an-email", PlusAddress("not-an-email", "x"))
	assert.Equal(t, "@nolocal.com", PlusAddress("@nolocal.com", "x"))
}

func TestTagUnique(t *testing.T) {
	g := New(WithClock(func() time.Time { return time.Unix(0, 0) }))
	assert.NotEqual(t, g.Tag("p"), g.Tag("p"))
}
