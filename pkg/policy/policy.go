// Package policy decides whether a stored asset is small enough to be
// uploaded directly or should be served as a link to its source.
package policy

import "github.com/kdeps/mediacmd/pkg/domain"

// Threshold is the largest size, in bytes, that is still served inline.
const Threshold int64 = 300000

// Decision is the outcome of the size policy.
type Decision int

const (
	ServeRemoteLink Decision = iota
	ServeInline
)

func (d Decision) String() string {
	if d == ServeInline {
		return "inline"
	}
	return "remote-link"
}

// Decide applies the threshold to a byte count.
func Decide(sizeBytes int64) Decision {
	if sizeBytes >= 0 && sizeBytes <= Threshold {
		return ServeInline
	}
	return ServeRemoteLink
}

// DecideRecord applies the threshold to a record. A record without a
// measured size is always served by link.
func DecideRecord(r *domain.Record) Decision {
	if r == nil {
		return ServeRemoteLink
	}
	n, ok := r.Size()
	if !ok {
		return ServeRemoteLink
	}
	return Decide(n)
}

// Oversize reports whether an add should carry an advisory.
func Oversize(r *domain.Record) bool {
	return DecideRecord(r) == ServeRemoteLink
}
