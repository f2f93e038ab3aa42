package core

import (
	"github.com/Comcast/combinators/trace"
)

// Predicate is a test of a single site.
//
// Every Predicate here is false for a nil site.
type Predicate func(s *trace.Site) bool

// SiteFilter selects sites by address and site.
type SiteFilter = trace.Filter

func IsObserved(s *trace.Site) bool {
	return s != nil && s.IsObserved
}

func NotObserved(s *trace.Site) bool {
	return s != nil && !s.IsObserved
}

func IsSampleType(s *trace.Site) bool {
	return s != nil && s.Type == trace.SampleType
}

func IsReturnType(s *trace.Site) bool {
	return s != nil && s.Type == trace.ReturnType
}

// IsSubstituted reports whether the site's value was replayed from a
// reference trace.
func IsSubstituted(s *trace.Site) bool {
	return s != nil && s.Infer.Substituted
}

func NotSubstituted(s *trace.Site) bool {
	return s != nil && !s.Infer.Substituted
}

// IsAuxiliary reports whether an auxiliary program made the site.
func IsAuxiliary(s *trace.Site) bool {
	return s != nil && s.Infer.IsAuxiliary
}

func NotAuxiliary(s *trace.Site) bool {
	return s != nil && !s.Infer.IsAuxiliary
}

// Or is the disjunction of two Predicates.
func Or(p0, p1 Predicate) Predicate {
	return func(s *trace.Site) bool {
		return p0(s) || p1(s)
	}
}

// NodeFilter lifts a Predicate to a SiteFilter that ignores the
// address.
func NodeFilter(p Predicate) SiteFilter {
	return func(_ string, s *trace.Site) bool {
		return p(s)
	}
}

// SampleFilter is NodeFilter for sample sites only.
func SampleFilter(p Predicate) SiteFilter {
	return func(_ string, s *trace.Site) bool {
		return IsSampleType(s) && p(s)
	}
}

// AddrFilter lifts an address test to a SiteFilter.
func AddrFilter(p func(addr string) bool) SiteFilter {
	return func(addr string, _ *trace.Site) bool {
		return p(addr)
	}
}

// MembershipFilter accepts exactly the given addresses.
func MembershipFilter(addrs ...string) SiteFilter {
	members := make(map[string]bool, len(addrs))
	for _, addr := range addrs {
		members[addr] = true
	}
	return func(addr string, _ *trace.Site) bool {
		return members[addr]
	}
}

// All accepts every site.
func All(string, *trace.Site) bool {
	return true
}
