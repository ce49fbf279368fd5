package action

import (
	"errors"
	"reflect"
	"syscall"

	"github.com/skeinlog/skein/record"
)

// FailureFielder is implemented by errors that want extra fields included
// in the failed end record of the action they abort. It is checked through
// wrapped error chains.
type FailureFielder interface {
	FailureFields() record.Fields
}

// Extractor inspects an error and returns fields to include in a failed end
// record, with ok reporting whether it applies to this error. Extractors
// must inspect only the error they are given; unwrapping is handled by the
// registry.
type Extractor func(err error) (fields record.Fields, ok bool)

// ErrorExtraction is a registry of Extractors consulted when an action
// finishes with an error. Extractors are tried in registration order
// against each error in the Unwrap chain, outermost first; the first match
// wins.
//
// Extraction must never abort an end record: a panicking extractor is
// treated as having produced no fields.
type ErrorExtraction struct {
	extractors []Extractor
}

// NewErrorExtraction creates a registry with the built-in rules: errors
// implementing FailureFielder contribute their own fields, and wrapped
// system errnos contribute an "errno" field.
func NewErrorExtraction() *ErrorExtraction {
	e := &ErrorExtraction{}
	e.Register(func(err error) (record.Fields, bool) {
		if f, ok := err.(FailureFielder); ok {
			return f.FailureFields(), true
		}
		return nil, false
	})
	e.Register(func(err error) (record.Fields, bool) {
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return record.Fields{"errno": int(errno)}, true
		}
		return nil, false
	})
	return e
}

// Register appends an extractor to the registry.
func (e *ErrorExtraction) Register(x Extractor) {
	e.extractors = append(e.extractors, x)
}

// FieldsFor returns the fields the registry extracts from err, or an empty
// mapping if no extractor applies or the matching extractor panics.
func (e *ErrorExtraction) FieldsFor(err error) (fields record.Fields) {
	defer func() {
		if recover() != nil {
			fields = record.Fields{}
		}
	}()
	for chain := err; chain != nil; chain = errors.Unwrap(chain) {
		for _, x := range e.extractors {
			if f, ok := x(chain); ok {
				if f == nil {
					return record.Fields{}
				}
				return f
			}
		}
	}
	return record.Fields{}
}

// DefaultExtraction is the registry actions use unless configured
// otherwise. Register application-wide extractors here during startup,
// before producer goroutines exist; the registry itself is not locked.
var DefaultExtraction = NewErrorExtraction()

// errorTypeName returns the fully-qualified type name of err for the
// exception field, e.g. "io/fs.PathError". Unnamed types fall back to
// their Go syntax.
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// safeErrorString stringifies err for the reason field, swallowing any
// panic from a misbehaving Error method.
func safeErrorString(err error) (s string) {
	defer func() {
		if recover() != nil {
			s = "skein: unknown, Error() panicked"
		}
	}()
	return err.Error()
}
