package validation

import (
	"errors"
	"fmt"
	"strings"

	"treepilot/family"
)

// ErrCycle is returned when a person turns out to be their own ancestor.
var ErrCycle = errors.New("circular ancestry")

// Severity grades a validation finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ValidationError represents a finding with the person it concerns.
type ValidationError struct {
	Severity Severity
	PersonID string
	Context  string // "ancestors", "descendants" or "children"
	Message  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s [%s in %s]", e.Severity, e.Message, e.PersonID, e.Context)
}

// RecordValidator checks provider records before they are shaped for display.
type RecordValidator struct {
	errors []ValidationError
	seen   map[string]string

	// Options
	allowDuplicates bool // pedigree collapse shows one ancestor on two branches
	checkDates      bool // birth after death, parents born after children
}

// NewRecordValidator creates a validator with default settings.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{
		allowDuplicates: true,
		checkDates:      true,
	}
}

// SetStrictMode turns duplicate ids into errors.
func (v *RecordValidator) SetStrictMode(strict bool) {
	v.allowDuplicates = !strict
}

// Validate walks the record and returns every finding.
func (v *RecordValidator) Validate(r *family.Record) []ValidationError {
	v.errors = nil
	v.seen = make(map[string]string)
	if r == nil {
		v.addError(SeverityError, "", "root", "no record")
		return v.errors
	}

	v.checkPerson(r, "root", nil)
	v.walk(r.Children, "children", r, 1)
	v.walk(r.Ancestors, "ancestors", r, -1)
	v.walk(r.Descendants, "descendants", r, 1)
	return v.errors
}

// HasErrors reports whether any finding is an error rather than a warning.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// generation is +1 when list entries are younger than their holder, -1 when older.
func (v *RecordValidator) walk(list []*family.Record, context string, holder *family.Record, generation int) {
	for _, r := range list {
		if r == nil {
			v.addError(SeverityError, holder.ID, context, "nil entry in list")
			continue
		}
		v.checkPerson(r, context, holder)
		if v.checkDates && holder.BirthYear != nil && r.BirthYear != nil {
			if generation > 0 && *r.BirthYear < *holder.BirthYear {
				v.addError(SeverityWarning, r.ID, context,
					"born %d, before parent %s (%d)", *r.BirthYear, holder.ID, *holder.BirthYear)
			}
			if generation < 0 && *r.BirthYear > *holder.BirthYear {
				v.addError(SeverityWarning, r.ID, context,
					"born %d, after child %s (%d)", *r.BirthYear, holder.ID, *holder.BirthYear)
			}
		}
		v.walk(r.Children, context, r, generation)
	}
}

func (v *RecordValidator) checkPerson(r *family.Record, context string, holder *family.Record) {
	if strings.TrimSpace(r.ID) == "" {
		owner := ""
		if holder != nil {
			owner = holder.ID
		}
		v.addError(SeverityError, owner, context, "person without identifier")
		return
	}
	if prev, dup := v.seen[r.ID]; dup {
		sev := SeverityWarning
		if !v.allowDuplicates {
			sev = SeverityError
		}
		v.addError(sev, r.ID, context, "appears more than once (first in %s)", prev)
	} else {
		v.seen[r.ID] = context
	}
	if v.checkDates && r.BirthYear != nil && r.DeathYear != nil && *r.DeathYear < *r.BirthYear {
		v.addError(SeverityWarning, r.ID, context, "death year %d before birth year %d", *r.DeathYear, *r.BirthYear)
	}
}

func (v *RecordValidator) addError(sev Severity, id, context, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Severity: sev,
		PersonID: id,
		Context:  context,
		Message:  fmt.Sprintf(format, args...),
	})
}

// CheckAncestry walks parent links and fails with ErrCycle if anyone is reachable
// from themselves.
func CheckAncestry(parents map[string][]string) error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(parents))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case active:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(path, " -> "), id)
		case done:
			return nil
		}
		state[id] = active
		path = append(path, id)
		for _, p := range parents[id] {
			if err := visit(p); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for id := range parents {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
