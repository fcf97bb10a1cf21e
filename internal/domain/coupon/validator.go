package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Validator resolves a coupon code to a usable coupon.
type Validator interface {
	Validate(ctx context.Context, code string) (*Coupon, error)
}

// RepoValidator implements Validator against a Repository. An optional
// CodeFilter short-circuits lookups for codes that definitely do not exist.
type RepoValidator struct {
	repo   Repository
	filter *CodeFilter
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// WithFilter attaches a negative-lookup filter and returns the validator.
func (v *RepoValidator) WithFilter(f *CodeFilter) *RepoValidator {
	v.filter = f
	return v
}

// Validate looks up the coupon for the given code and checks that it is
// still redeemable. Expiry is re-checked here rather than trusting the
// stored active flag, so a coupon that expired after its last write is
// rejected, and one whose stale flag says inactive but whose expiry is in
// the future is accepted.
func (v *RepoValidator) Validate(ctx context.Context, code string) (*Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}

	if v.filter != nil && !v.filter.MayContain(code) {
		return nil, ErrNotFound
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := c.Usable(v.now()); err != nil {
		return nil, err
	}
	return c, nil
}
