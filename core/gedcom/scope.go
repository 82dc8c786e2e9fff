package gedcom

import "github.com/FocuswithJustin/Linegra/core/lineage"

// scope is the active sub-context of the current record. Each concrete
// type carries only what its handler needs.
type scope interface {
	// text returns the string a CONT/CONC line under this scope extends,
	// or nil when continuation is meaningless here.
	text() *string
}

// lifecycle identifies the singleton events promoted to Person fields.
type lifecycle int

const (
	lifeBirth lifecycle = iota
	lifeDeath
	lifeBurial
)

func (l lifecycle) label() string {
	switch l {
	case lifeBirth:
		return "Birth"
	case lifeDeath:
		return "Death"
	default:
		return "Burial"
	}
}

type (
	// nameScope is a NAME line; alt is nil for the primary name.
	nameScope struct{ alt *lineage.AlternateName }

	lifecycleScope struct{ which lifecycle }

	eventScope struct{ event *EventDraft }

	// citationScope is a SOUR reference. inline is the body of an inline
	// source, extended by continuation lines.
	citationScope struct {
		detail *CitationDetail
		inline *string
	}

	citationDataScope struct{ detail *CitationDetail }

	// textScope extends a single string: notes, citation text, source
	// fields, event descriptions.
	textScope struct{ target *string }

	marriageScope struct{ family *FamilyDraft }

	divorceScope struct{ family *FamilyDraft }

	repositoryScope struct{ source *SourceDraft }

	changeScope struct{}
)

func (nameScope) text() *string         { return nil }
func (lifecycleScope) text() *string    { return nil }
func (s eventScope) text() *string      { return &s.event.Description }
func (s citationScope) text() *string   { return s.inline }
func (citationDataScope) text() *string { return nil }
func (s textScope) text() *string       { return s.target }
func (marriageScope) text() *string     { return nil }
func (divorceScope) text() *string      { return nil }
func (repositoryScope) text() *string   { return nil }
func (changeScope) text() *string       { return nil }

type frame struct {
	level int
	scope scope
}

// scopeStack holds the open sub-contexts of the current record, innermost
// last. Levels strictly increase from bottom to top.
type scopeStack struct {
	frames []frame
}

func (s *scopeStack) reset() {
	s.frames = s.frames[:0]
}

func (s *scopeStack) push(level int, sc scope) {
	s.frames = append(s.frames, frame{level: level, scope: sc})
}

// closeAt pops every frame opened at level or deeper.
func (s *scopeStack) closeAt(level int) {
	n := len(s.frames)
	for n > 0 && s.frames[n-1].level >= level {
		n--
	}
	s.frames = s.frames[:n]
}

// parent returns the scope a line at level belongs to: the innermost frame,
// provided it was opened exactly one level above. Lines that skip a level
// have no parent.
func (s *scopeStack) parent(level int) scope {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	if f.level != level-1 {
		return nil
	}
	return f.scope
}

// continuationTarget returns the text extended by a continuation line at
// level: the innermost scope opened above that level. The stack is left
// untouched.
func (s *scopeStack) continuationTarget(level int) *string {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].level < level {
			return s.frames[i].scope.text()
		}
	}
	return nil
}

// appendText joins v onto *dst with sep, skipping sep when *dst is empty.
func appendText(dst *string, sep, v string) {
	if *dst == "" {
		*dst = v
		return
	}
	*dst += sep + v
}
