package lineage

import "fmt"

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func newValidationError(path, format string, args ...interface{}) error {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the structural integrity of a dataset: unique person ids,
// known genders, and relationships whose endpoints exist and are typed.
func (d *Dataset) Validate() []error {
	var errs []error

	ids := make(map[string]bool, len(d.People))
	for i, p := range d.People {
		path := fmt.Sprintf("people[%d]", i)
		if p.ID == "" {
			errs = append(errs, newValidationError(path, "ID is required"))
			continue
		}
		if ids[p.ID] {
			errs = append(errs, newValidationError(path, "duplicate person ID %q", p.ID))
		}
		ids[p.ID] = true
		switch p.Gender {
		case GenderMale, GenderFemale, GenderOther:
		default:
			errs = append(errs, newValidationError(path+".gender", "invalid gender %q", p.Gender))
		}
	}

	for i, r := range d.Relationships {
		path := fmt.Sprintf("relationships[%d]", i)
		switch r.Type {
		case RelMarriage, RelBioFather, RelBioMother:
		default:
			errs = append(errs, newValidationError(path+".type", "invalid relationship type %q", r.Type))
		}
		if !ids[r.PersonID] {
			errs = append(errs, newValidationError(path+".personId", "unknown person %q", r.PersonID))
		}
		if !ids[r.RelatedID] {
			errs = append(errs, newValidationError(path+".relatedId", "unknown person %q", r.RelatedID))
		}
		if r.PersonID == r.RelatedID {
			errs = append(errs, newValidationError(path, "self-referencing relationship"))
		}
	}

	return errs
}

// PersonIndex maps person id to position in People.
func (d *Dataset) PersonIndex() map[string]int {
	idx := make(map[string]int, len(d.People))
	for i, p := range d.People {
		idx[p.ID] = i
	}
	return idx
}
