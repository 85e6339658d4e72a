package matching

import (
	"sort"
	"strings"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

type config struct {
	maxResults      int
	now             time.Time
	requireLocality bool
}

// Option tunes a single matching call.
type Option func(*config)

// WithMaxResults caps the number of matches. n <= 0 means unbounded.
func WithMaxResults(n int) Option {
	return func(c *config) {
		c.maxResults = n
	}
}

// WithNow sets the instant availability is evaluated at.
func WithNow(t time.Time) Option {
	return func(c *config) {
		c.now = t
	}
}

// WithRequireLocality rejects requests without both city and area.
func WithRequireLocality() Option {
	return func(c *config) {
		c.requireLocality = true
	}
}

type ranked struct {
	donor     Donor
	proximity Proximity
	key       string
}

// MatchDonorsForRequest filters candidates to compatible, available donors
// and ranks them by proximity tier, distance, then donor id. A malformed
// request fails without a partial result; zero matches is a non-nil
// Result whose Empty() is true.
func MatchDonorsForRequest(req Request, candidates []Donor, opts ...Option) (*Result, error) {
	cfg := config{now: time.Now()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if _, err := CompatibleDonors(req.RequiredBloodGroup); err != nil {
		return nil, err
	}
	if cfg.requireLocality {
		if err := requireLocality(req.Location); err != nil {
			return nil, err
		}
	}

	seen := make(map[id.DonorID]struct{}, len(candidates))
	survivors := make([]ranked, 0, len(candidates))
	for _, d := range candidates {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}

		if !CanDonateTo(d.BloodGroup, req.RequiredBloodGroup) {
			continue
		}
		if !IsAvailable(d, cfg.now) {
			continue
		}
		survivors = append(survivors, ranked{
			donor:     d,
			proximity: Score(req.Location, d.Location),
			key:       d.ID.String(),
		})
	}

	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		switch {
		case a.proximity.Less(b.proximity):
			return true
		case b.proximity.Less(a.proximity):
			return false
		}
		return a.key < b.key
	})

	if cfg.maxResults > 0 && len(survivors) > cfg.maxResults {
		survivors = survivors[:cfg.maxResults]
	}

	donors := make([]Donor, len(survivors))
	for i, r := range survivors {
		donors[i] = r.donor
	}
	return &Result{Donors: Format(donors), Considered: len(seen)}, nil
}

func requireLocality(loc Location) error {
	switch {
	case strings.TrimSpace(loc.City) == "":
		return &dErrors.Error{Code: dErrors.CodeInvalidLocation, Message: "request city is required"}
	case strings.TrimSpace(loc.Area) == "":
		return &dErrors.Error{Code: dErrors.CodeInvalidLocation, Message: "request area is required"}
	}
	return nil
}
