package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPart   = errors.New("invalid part")
	ErrDuplicatePart = errors.New("duplicate part id")
	ErrUnresolved    = errors.New("no provider for required contract")
	ErrAmbiguous     = errors.New("multiple providers for single contract")
	ErrCycle         = errors.New("cycle through eager requirements")
	ErrNotSingleton  = errors.New("auto-loaded part must be a singleton")
	ErrMissingType   = errors.New("no factory for implementation type")
	ErrInconsistent  = errors.New("graph does not match declared requirements")
)

// Failure is one reason a part could not be resolved
type Failure struct {
	Part string
	Err  error
}

func (f Failure) Error() string {
	if f.Part == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.Part, f.Err)
}

// ResolutionError aggregates every failure found while resolving a graph
type ResolutionError struct {
	Failures []Failure
}

func (e *ResolutionError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("composition failed (%d problems): %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As
func (e *ResolutionError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Parts lists the distinct failing part IDs in report order
func (e *ResolutionError) Parts() []string {
	seen := make(map[string]bool)
	var parts []string
	for _, f := range e.Failures {
		if f.Part != "" && !seen[f.Part] {
			seen[f.Part] = true
			parts = append(parts, f.Part)
		}
	}
	return parts
}

// failures collects failures during resolution
type failures []Failure

func (fs *failures) add(part string, err error) {
	*fs = append(*fs, Failure{Part: part, Err: err})
}

func (fs failures) err() error {
	if len(fs) == 0 {
		return nil
	}
	return &ResolutionError{Failures: fs}
}
