package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ServiceError is a failed call to an outside service such as a patient
// registry or a model endpoint. Status is an HTTP-style code; zero means
// the call never got a response.
type ServiceError struct {
	Service string
	Op      string
	Status  int
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Service
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Category implements Categorizer. 429 and 5xx are transient, as is a call
// that got no response at all.
func (e *ServiceError) Category() Category {
	switch {
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return CategoryTransient
	case e.Status == 0:
		if e.Err != nil {
			return Categorize(e.Err)
		}
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// ValidationError describes the first field of an input that failed a
// constraint.
type ValidationError struct {
	Field   string
	Tag     string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Tag != "":
		return fmt.Sprintf("field %s failed %q: %s", e.Field, e.Tag, e.Message)
	case e.Field != "":
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	default:
		return "validation: " + e.Message
	}
}

// Category implements Categorizer.
func (e *ValidationError) Category() Category { return CategoryPermanent }

// TimeoutError reports an operation that ran past its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// Timeout lets TimeoutError satisfy net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

// Category implements Categorizer.
func (e *TimeoutError) Category() Category { return CategoryTransient }

// ReviewError asks for a human decision, offering the given choices.
type ReviewError struct {
	Question string
	Choices  []string
	Err      error
}

func (e *ReviewError) Error() string {
	if len(e.Choices) == 0 {
		return "needs review: " + e.Question
	}
	return fmt.Sprintf("needs review: %s %v", e.Question, e.Choices)
}

func (e *ReviewError) Unwrap() error { return e.Err }

// Category implements Categorizer.
func (e *ReviewError) Category() Category { return CategoryReview }
