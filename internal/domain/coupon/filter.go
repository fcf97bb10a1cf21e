package coupon

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

const filterFPR = 0.001

// CodeFilter is an in-memory bloom filter over known coupon codes. It lets
// the validator reject garbage codes without a database round trip. False
// positives fall through to the repository, so correctness is unaffected.
type CodeFilter struct {
	f *bloom.BloomFilter
}

// NewCodeFilter builds a filter from the given codes. Codes are matched
// case-insensitively.
func NewCodeFilter(codes []string) *CodeFilter {
	capacity := uint(len(codes))
	if capacity < 1024 {
		capacity = 1024
	}
	f := bloom.NewWithEstimates(capacity, filterFPR)
	for _, code := range codes {
		f.AddString(strings.ToUpper(code))
	}
	return &CodeFilter{f: f}
}

// MayContain reports whether the code might exist. A false result is
// definitive: the code was never loaded into the filter.
func (cf *CodeFilter) MayContain(code string) bool {
	return cf.f.TestString(strings.ToUpper(code))
}

// Add registers a newly created code so later lookups pass the filter.
func (cf *CodeFilter) Add(code string) {
	cf.f.AddString(strings.ToUpper(code))
}
