package gedcom

import (
	"io"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/lineage"
)

// Result is the outcome of parsing one document. Pointer ids in People and
// Relationships are only meaningful within this result.
type Result struct {
	People        []lineage.Person       `json:"people"`
	Relationships []lineage.Relationship `json:"relationships"`
	Warnings      []string               `json:"warnings"`
}

// Dataset returns the people and relationships of the result.
func (r *Result) Dataset() lineage.Dataset {
	return lineage.Dataset{People: r.People, Relationships: r.Relationships}
}

// Stats summarizes a result.
type Stats struct {
	People        int `json:"people"`
	Relationships int `json:"relationships"`
	Events        int `json:"events"`
	Sources       int `json:"sources"`
	Citations     int `json:"citations"`
	Notes         int `json:"notes"`
	Warnings      int `json:"warnings"`
}

// Stats counts the entities in the result.
func (r *Result) Stats() Stats {
	s := Stats{
		People:        len(r.People),
		Relationships: len(r.Relationships),
		Warnings:      len(r.Warnings),
	}
	for _, p := range r.People {
		s.Events += len(p.Events)
		s.Sources += len(p.Sources)
		s.Citations += len(p.Citations)
		s.Notes += len(p.Notes)
	}
	return s
}

type recordKind int

const (
	recordNone recordKind = iota
	recordIndividual
	recordFamily
	recordSource
)

// parser holds the draft tables of one Parse call.
type parser struct {
	kind   recordKind
	indi   *IndividualDraft
	fam    *FamilyDraft
	src    *SourceDraft
	scopes scopeStack

	individuals map[string]*IndividualDraft
	indiOrder   []string
	families    map[string]*FamilyDraft
	famOrder    []string
	sources     map[string]*SourceDraft
	inline      map[string]*SourceDraft
	familyRefs  []familyRef

	warnings warnings
}

func newParser() *parser {
	return &parser{
		individuals: make(map[string]*IndividualDraft),
		families:    make(map[string]*FamilyDraft),
		sources:     make(map[string]*SourceDraft),
		inline:      make(map[string]*SourceDraft),
	}
}

// Parse parses a GEDCOM document. It never fails: content problems are
// reported in Result.Warnings.
func Parse(text string) *Result {
	p := newParser()
	for _, s := range SplitLines(text) {
		if l, ok := MatchLine(s); ok {
			p.line(l)
		}
	}
	return p.finish()
}

// ParseBytes parses a GEDCOM document held in memory.
func ParseBytes(data []byte) *Result {
	return Parse(string(data))
}

// ParseReader reads the whole document and parses it. Only a read failure
// is returned as an error.
func ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	return ParseBytes(data), nil
}

func (p *parser) line(l RawLine) {
	if l.Level == 0 {
		p.openRecord(l)
		return
	}
	if p.kind == recordNone {
		return
	}
	if sep, ok := continuationSeparator(l.Tag); ok {
		if target := p.scopes.continuationTarget(l.Level); target != nil {
			appendText(target, sep, l.Value)
		}
		return
	}

	p.scopes.closeAt(l.Level)
	parent := p.scopes.parent(l.Level)
	if l.Level > 1 && parent == nil {
		return
	}

	switch p.kind {
	case recordIndividual:
		p.individualLine(l, parent)
	case recordFamily:
		p.familyLine(l, parent)
	case recordSource:
		p.sourceLine(l, parent)
	}
}

// openRecord handles every level-0 line.
func (p *parser) openRecord(l RawLine) {
	p.scopes.reset()
	p.kind = recordNone
	if !l.HasPointer() {
		return
	}
	switch l.Tag {
	case "INDI":
		p.indi = p.individual(l.Pointer)
		p.kind = recordIndividual
	case "FAM":
		p.fam = p.family(l.Pointer)
		p.kind = recordFamily
	case "SOUR":
		p.src = p.source(l.Pointer)
		p.kind = recordSource
	}
}

func (p *parser) individual(id string) *IndividualDraft {
	if d, ok := p.individuals[id]; ok {
		return d
	}
	d := &IndividualDraft{ID: id}
	p.individuals[id] = d
	p.indiOrder = append(p.indiOrder, id)
	return d
}

// family looks up or creates the draft for id. Every path that mentions a
// family goes through here.
func (p *parser) family(id string) *FamilyDraft {
	if f, ok := p.families[id]; ok {
		return f
	}
	f := &FamilyDraft{ID: id}
	p.families[id] = f
	p.famOrder = append(p.famOrder, id)
	return f
}

func (p *parser) source(id string) *SourceDraft {
	if s, ok := p.sources[id]; ok {
		return s
	}
	s := &SourceDraft{ID: id, Type: lineage.SourceUnknown}
	p.sources[id] = s
	return s
}

// noteText returns the value of a NOTE line, or false after warning when
// the note is a pointer to a shared NOTE record.
func (p *parser) noteText(l RawLine, recordID string) (string, bool) {
	if id, ok := pointerValue(l.Value); ok {
		p.warnings.noteReference(id, recordID)
		return "", false
	}
	return l.Value, true
}

func (p *parser) finish() *Result {
	p.applyFamilyRefs()
	p.checkFamilyMembers()

	people := make([]lineage.Person, 0, len(p.indiOrder))
	for _, id := range p.indiOrder {
		people = append(people, p.person(p.individuals[id]))
	}

	var rels []lineage.Relationship
	for i, id := range p.famOrder {
		rels = append(rels, ProjectFamily(p.families[id], i)...)
	}

	return &Result{
		People:        people,
		Relationships: Dedup(rels),
		Warnings:      p.warnings.strings(),
	}
}
