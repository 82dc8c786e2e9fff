package gedcom

import (
	"github.com/FocuswithJustin/Linegra/core/lineage"
)

func (p *parser) sourceLine(l RawLine, parent scope) {
	s := p.src
	if parent == nil {
		p.sourceTag(s, l)
		return
	}

	if sc, ok := parent.(repositoryScope); ok {
		switch l.Tag {
		case "CALN":
			sc.source.CallNumber = l.Value
		case "NAME":
			if sc.source.Repository == "" {
				sc.source.Repository = l.Value
			}
		}
	}
}

// sourceTag handles a level-1 line of a SOUR record.
func (p *parser) sourceTag(s *SourceDraft, l RawLine) {
	field := func(dst *string) {
		*dst = l.Value
		p.scopes.push(l.Level, textScope{target: dst})
	}

	switch canonicalTag(l.Tag) {
	case "TITL":
		field(&s.Title)
	case "AUTH":
		field(&s.Author)
	case "PUBL":
		field(&s.Publication)
	case "TEXT":
		field(&s.Text)
	case "NOTE":
		if text, ok := p.noteText(l, s.ID); ok {
			appendText(&s.Notes, "\n", text)
			p.scopes.push(l.Level, textScope{target: &s.Notes})
		}
	case "URL":
		s.URL = l.Value
	case "DATE":
		s.CitationDate = l.Value
	case "ABBR":
		s.Abbreviation = l.Value
	case "CALN":
		s.CallNumber = l.Value
	case "REPO":
		if _, ok := pointerValue(l.Value); !ok && l.Value != "" {
			s.Repository = l.Value
		}
		p.scopes.push(l.Level, repositoryScope{source: s})
	case "TYPE":
		if t := lineage.SourceType(l.Value); t.IsValid() {
			s.Type = t
		}
	case "DATA", "CHAN":
		p.scopes.push(l.Level, changeScope{})
	default:
		p.warnings.ignoredSourceTag(l.Tag, s.ID)
	}
}

// lookupSource resolves a source id against the record table or, for
// inline sources, the synthetic table.
func (p *parser) lookupSource(id string, inline bool) (*SourceDraft, bool) {
	if inline {
		s, ok := p.inline[id]
		return s, ok
	}
	s, ok := p.sources[id]
	return s, ok
}

// linkSources fills Sources and Citations of a person: pointer references
// first, then inline sources, then one row per resolved citation carrying
// its event label.
func (p *parser) linkSources(d *IndividualDraft, per *lineage.Person) {
	seen := make(map[string]bool)
	for _, inlinePass := range []bool{false, true} {
		for _, ref := range d.SourceRefs {
			if ref.Inline != inlinePass || seen[ref.SourceID] {
				continue
			}
			seen[ref.SourceID] = true
			src, ok := p.lookupSource(ref.SourceID, ref.Inline)
			if !ok {
				p.warnings.missingSource(d.ID, ref.SourceID)
				continue
			}
			per.Sources = append(per.Sources, sourceRow(src, src.ID, lineage.GeneralEvent, ref.Detail))
		}
	}

	for _, c := range d.Citations {
		src, ok := p.lookupSource(c.SourceID, c.Inline)
		if !ok {
			p.warnings.missingCitedSource(d.ID, c.SourceID, c.EventLabel)
			continue
		}
		per.Sources = append(per.Sources, sourceRow(src, src.ID+":"+c.ID, c.EventLabel, c.Detail))
		per.Citations = append(per.Citations, lineage.Citation{
			ID:         c.ID,
			SourceID:   src.ID,
			PersonID:   d.ID,
			EventLabel: c.EventLabel,
			Label:      src.Title,
			Page:       c.Detail.Page,
			DataDate:   c.Detail.DataDate,
			DataText:   c.Detail.DataText,
			Quality:    c.Detail.Quality,
			Note:       c.Detail.Note,
		})
	}
}

func sourceRow(src *SourceDraft, id, event string, detail CitationDetail) lineage.Source {
	repo := src.Repository
	if repo == "" {
		repo = src.Author
	}
	text := detail.DataText
	if text == "" {
		text = src.Text
	}
	return lineage.Source{
		ID:           id,
		ExternalID:   src.ID,
		Title:        src.Title,
		Type:         src.Type,
		URL:          src.URL,
		Repository:   repo,
		CitationDate: src.CitationDate,
		Page:         detail.Page,
		Reliability:  reliability(detail.Quality),
		ActualText:   text,
		Notes:        joinNonEmpty("\n", src.Publication, src.Notes, detail.Note),
		Abbreviation: src.Abbreviation,
		CallNumber:   src.CallNumber,
		Event:        event,
	}
}

// reliability maps a GEDCOM QUAY assessment (0-3) onto the 1-3 scale.
func reliability(quay string) int {
	switch quay {
	case "3":
		return 3
	case "2":
		return 2
	default:
		return 1
	}
}
