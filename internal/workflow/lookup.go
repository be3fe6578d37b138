package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
)

type listFunc func(ctx context.Context, page, size int) (*client.Response, error)

// errNoMatch is retried; every other error ends the lookup.
var errNoMatch = errors.New("no matching record")

// lookup scans up to MaxPages pages of a listing for records accepted by
// match, retrying with exponential backoff while nothing matches. It returns
// the chosen record and the listing response it was found in.
func lookup[T any](ctx context.Context, o *Orchestrator, resource string, list listFunc, match func(T) bool) (T, *client.Response, error) {
	var (
		found T
		last  *client.Response
	)
	cfg := o.cfg.Lookup

	attempt := 0
	op := func() error {
		attempt++
		if o.metrics != nil {
			o.metrics.LookupAttempts.WithLabelValues(resource).Inc()
		}

		var matches []T
		for page := 0; page < cfg.MaxPages; page++ {
			resp, err := list(ctx, page, cfg.PageSize)
			if err != nil {
				return backoff.Permanent(err)
			}
			last = resp
			if resp.StatusCode != http.StatusOK {
				return backoff.Permanent(apperrors.Validation("expected status 200 from %s listing, got %d", resource, resp.StatusCode))
			}
			var p model.Page[T]
			if err := resp.Decode(&p); err != nil {
				return backoff.Permanent(err)
			}
			for _, item := range p.Content {
				if match(item) {
					matches = append(matches, item)
				}
			}
			if p.Last() || len(p.Content) == 0 {
				break
			}
		}

		switch {
		case len(matches) == 0:
			o.log.Debug("lookup miss", "resource", resource, "attempt", attempt)
			return errNoMatch
		case len(matches) > 1 && cfg.Duplicates == DuplicateFail:
			return backoff.Permanent(apperrors.Validation("%d %s records match, expected exactly one", len(matches), resource))
		case len(matches) > 1:
			o.log.Warn("duplicate lookup matches, taking the first", "resource", resource, "matches", len(matches))
		}
		found = matches[0]
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.Attempts-1)), ctx)

	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		return found, last, nil
	case errors.Is(err, errNoMatch):
		return found, last, apperrors.Lookup(resource, fmt.Errorf("%w after %d attempts over %d pages", err, attempt, cfg.MaxPages))
	case apperrors.CodeOf(err) != 0:
		return found, last, err
	default:
		// Context expiry between attempts.
		return found, last, apperrors.Transport(resource+" lookup", err)
	}
}
