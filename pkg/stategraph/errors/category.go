// Package errors classifies node failures and retries transient ones.
//
// Nodes that call flaky dependencies (a clinical API, a model endpoint, a
// database) return typed errors; Categorize decides whether the engine's
// per-node retry policy should try again.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryPermanent means retrying will not help. Unclassified errors
	// land here.
	CategoryPermanent Category = iota

	// CategoryTransient means a later attempt may succeed: rate limits,
	// timeouts, 5xx responses.
	CategoryTransient

	// CategoryReview means a person has to look at it, for example a claim
	// no rule can settle.
	CategoryReview
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPermanent:
		return "permanent"
	case CategoryTransient:
		return "transient"
	case CategoryReview:
		return "review"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Categorizer is implemented by errors that know their own category.
type Categorizer interface {
	Category() Category
}

// Marked is an error tagged with a category by Transient, Permanent or
// Review.
type Marked struct {
	Op  string
	Err error
	cat Category
}

func (e *Marked) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v [%s]", e.Err, e.cat)
	}
	return fmt.Sprintf("%s: %v [%s]", e.Op, e.Err, e.cat)
}

func (e *Marked) Unwrap() error { return e.Err }

// Category implements Categorizer.
func (e *Marked) Category() Category { return e.cat }

// Transient marks err as worth retrying. op names the failed operation.
func Transient(op string, err error) error {
	return &Marked{Op: op, Err: err, cat: CategoryTransient}
}

// Permanent marks err as not worth retrying, overriding any category an
// inner error reports.
func Permanent(op string, err error) error {
	return &Marked{Op: op, Err: err, cat: CategoryPermanent}
}

// Review marks err as needing a human decision.
func Review(op string, err error) error {
	return &Marked{Op: op, Err: err, cat: CategoryReview}
}

// Categorize reports how err should be handled. The outermost Categorizer
// in the chain wins; otherwise deadlines and network timeouts are
// transient and everything else is permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var c Categorizer
	if errors.As(err, &c) {
		return c.Category()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}
	return CategoryPermanent
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// NeedsReview reports whether err asks for a human decision.
func NeedsReview(err error) bool {
	return Categorize(err) == CategoryReview
}
