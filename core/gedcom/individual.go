package gedcom

import (
	"fmt"
	"strings"
	"time"

	"github.com/FocuswithJustin/Linegra/core/lineage"
)

func (p *parser) individualLine(l RawLine, parent scope) {
	d := p.indi
	if parent == nil {
		p.individualTag(d, l)
		return
	}

	switch sc := parent.(type) {
	case nameScope:
		p.nameDetail(d, sc, l)
	case lifecycleScope:
		p.lifecycleDetail(d, sc, l)
	case eventScope:
		p.eventDetail(d, sc.event, l)
	case citationScope:
		p.citationDetail(sc.detail, l)
	case citationDataScope:
		p.citationData(sc.detail, l)
	case changeScope:
		if l.Tag == "DATE" {
			d.UpdatedAt = changeTimestamp(l.Value)
		}
	}
}

// individualTag handles a level-1 line of an INDI record.
func (p *parser) individualTag(d *IndividualDraft, l RawLine) {
	tag := canonicalTag(l.Tag)

	if which, ok := lifecycleTags[tag]; ok {
		p.scopes.push(l.Level, lifecycleScope{which: which})
		return
	}
	if typ, ok := eventTypes[tag]; ok {
		ev := &EventDraft{
			ID:          fmt.Sprintf("evt-%s-%d", d.ID, len(d.Events)+1),
			Type:        typ,
			Description: l.Value,
		}
		d.Events = append(d.Events, ev)
		if tag == "OCCU" && l.Value != "" {
			d.Occupations = append(d.Occupations, l.Value)
		}
		p.scopes.push(l.Level, eventScope{event: ev})
		return
	}

	switch tag {
	case "NAME":
		p.name(d, l)
	case "SEX":
		d.Sex = strings.ToUpper(l.Value)
	case "SOUR":
		p.sourceReference(d, l)
	case "NOTE":
		p.personNote(d, l, lineage.GeneralEvent)
	case "FAMC", "FAMS":
		id := referenceID(l.Value)
		if id == "" {
			return
		}
		p.family(id)
		p.familyRefs = append(p.familyRefs, familyRef{familyID: id, personID: d.ID, spouse: tag == "FAMS"})
	case "CHAN":
		p.scopes.push(l.Level, changeScope{})
	default:
		p.warnings.ignoredIndividualTag(l.Tag, d.ID)
	}
}

// name handles NAME. The first NAME of a record is the primary name;
// later ones become alternate names.
func (p *parser) name(d *IndividualDraft, l RawLine) {
	first, last := splitName(l.Value)
	if !d.named {
		d.FirstName, d.LastName = first, last
		d.named = true
		p.scopes.push(l.Level, nameScope{})
		return
	}
	alt := &lineage.AlternateName{Type: lineage.NameAKA, FirstName: first, LastName: last}
	d.AlternateNames = append(d.AlternateNames, alt)
	p.scopes.push(l.Level, nameScope{alt: alt})
}

func (p *parser) nameDetail(d *IndividualDraft, sc nameScope, l RawLine) {
	first, last := &d.FirstName, &d.LastName
	if sc.alt != nil {
		first, last = &sc.alt.FirstName, &sc.alt.LastName
	}

	switch l.Tag {
	case "GIVN":
		if *first == "" {
			*first = l.Value
		}
	case "SURN":
		if *last == "" {
			*last = l.Value
		}
	case "TYPE":
		if sc.alt != nil {
			sc.alt.Type = alternateNameType(l.Value)
		}
	case "NICK":
		if l.Value != "" {
			d.AlternateNames = append(d.AlternateNames, &lineage.AlternateName{
				Type:      lineage.NameNickname,
				FirstName: l.Value,
			})
		}
	case "NOTE":
		if sc.alt != nil {
			if text, ok := p.noteText(l, d.ID); ok {
				appendText(&sc.alt.Notes, "\n", text)
				p.scopes.push(l.Level, textScope{target: &sc.alt.Notes})
			}
		}
	}
}

func (p *parser) lifecycleDetail(d *IndividualDraft, sc lifecycleScope, l RawLine) {
	date, place := d.lifecycleFields(sc.which)

	switch l.Tag {
	case "DATE":
		*date = l.Value
	case "PLAC":
		*place = l.Value
	case "CAUS":
		if sc.which == lifeDeath {
			d.DeathCause = l.Value
		}
	case "NOTE":
		p.personNote(d, l, sc.which.label())
	case "SOUR":
		p.citation(d, l, sc.which.label())
	}
}

func (d *IndividualDraft) lifecycleFields(which lifecycle) (date, place *string) {
	switch which {
	case lifeBirth:
		return &d.BirthDate, &d.BirthPlace
	case lifeDeath:
		return &d.DeathDate, &d.DeathPlace
	default:
		return &d.BurialDate, &d.BurialPlace
	}
}

func (p *parser) eventDetail(d *IndividualDraft, ev *EventDraft, l RawLine) {
	switch l.Tag {
	case "DATE":
		ev.Date = l.Value
	case "PLAC":
		ev.Place = l.Value
	case "AGNC":
		ev.Employer = l.Value
	case "TYPE":
		if ev.Type == otherEvent && l.Value != "" {
			ev.Type = l.Value
		}
		appendText(&ev.Description, "\n", "Type: "+l.Value)
	case "NOTE":
		if text, ok := p.noteText(l, d.ID); ok {
			appendText(&ev.Description, "\n", "Note: "+text)
			p.scopes.push(l.Level, textScope{target: &ev.Description})
		}
	case "SOUR":
		p.citation(d, l, ev.Type)
	}
}

func (p *parser) personNote(d *IndividualDraft, l RawLine, event string) {
	text, ok := p.noteText(l, d.ID)
	if !ok {
		return
	}
	n := &NoteDraft{Text: text, Event: event}
	d.Notes = append(d.Notes, n)
	p.scopes.push(l.Level, textScope{target: &n.Text})
}

// sourceReference handles a level-1 SOUR on an individual.
func (p *parser) sourceReference(d *IndividualDraft, l RawLine) {
	ref := &SourceReference{}
	var inline *string
	if id, ok := pointerValue(l.Value); ok {
		ref.SourceID = id
	} else if l.Value != "" {
		src := p.inlineSource(d, l.Value)
		ref.SourceID, ref.Inline = src.ID, true
		inline = &src.Text
	} else {
		return
	}
	d.SourceRefs = append(d.SourceRefs, ref)
	p.scopes.push(l.Level, citationScope{detail: &ref.Detail, inline: inline})
}

// citation handles a SOUR nested under a labelled scope of an individual.
func (p *parser) citation(d *IndividualDraft, l RawLine, label string) {
	c := &CitationDraft{
		ID:         fmt.Sprintf("cit-%s-%d", d.ID, len(d.Citations)+1),
		EventLabel: label,
	}
	var inline *string
	if id, ok := pointerValue(l.Value); ok {
		c.SourceID = id
	} else if l.Value != "" {
		src := p.inlineSource(d, l.Value)
		c.SourceID, c.Inline = src.ID, true
		inline = &src.Text
	} else {
		return
	}
	d.Citations = append(d.Citations, c)
	p.scopes.push(l.Level, citationScope{detail: &c.Detail, inline: inline})
}

func (p *parser) inlineSource(d *IndividualDraft, text string) *SourceDraft {
	d.inlineCount++
	src := &SourceDraft{
		ID:     fmt.Sprintf("inline-%s-%d", d.ID, d.inlineCount),
		Title:  text,
		Text:   text,
		Type:   lineage.SourceUnknown,
		Inline: true,
	}
	p.inline[src.ID] = src
	return src
}

func (p *parser) citationDetail(detail *CitationDetail, l RawLine) {
	switch l.Tag {
	case "PAGE":
		detail.Page = l.Value
	case "QUAY":
		detail.Quality = l.Value
	case "DATE":
		detail.DataDate = l.Value
	case "DATA":
		p.scopes.push(l.Level, citationDataScope{detail: detail})
	case "TEXT":
		appendText(&detail.DataText, "\n", l.Value)
		p.scopes.push(l.Level, textScope{target: &detail.DataText})
	case "NOTE":
		if _, ok := pointerValue(l.Value); ok {
			return
		}
		appendText(&detail.Note, "\n", l.Value)
		p.scopes.push(l.Level, textScope{target: &detail.Note})
	}
}

func (p *parser) citationData(detail *CitationDetail, l RawLine) {
	switch l.Tag {
	case "DATE":
		detail.DataDate = l.Value
	case "TEXT":
		appendText(&detail.DataText, "\n", l.Value)
		p.scopes.push(l.Level, textScope{target: &detail.DataText})
	}
}

// splitName splits "First /Last/ Suffix" on the slash-delimited surname.
func splitName(v string) (first, last string) {
	parts := strings.Split(v, "/")
	first = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		last = strings.TrimSpace(parts[1])
	}
	return first, last
}

func alternateNameType(v string) lineage.AlternateNameType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "birth", "maiden":
		return lineage.NameBirth
	case "married":
		return lineage.NameMarried
	case "nickname":
		return lineage.NameNickname
	case "religious":
		return lineage.NameReligious
	case "immigrant", "anglicized":
		return lineage.NameAnglicized
	case "legal":
		return lineage.NameLegal
	case "alias":
		return lineage.NameAlias
	default:
		return lineage.NameAKA
	}
}

// changeTimestamp converts a CHAN date to RFC 3339 when it is a full
// GEDCOM date, and keeps the raw value otherwise.
func changeTimestamp(v string) string {
	for _, layout := range []string{"2 Jan 2006", "02 Jan 2006"} {
		if t, err := time.Parse(layout, titleMonth(v)); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return v
}

// titleMonth rewrites "1 JAN 1900" as "1 Jan 1900" for time.Parse.
func titleMonth(v string) string {
	fields := strings.Fields(v)
	if len(fields) != 3 || len(fields[1]) != 3 {
		return v
	}
	m := fields[1]
	fields[1] = strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	return strings.Join(fields, " ")
}

// referenceID returns the id of a pointer value, tolerating values written
// without delimiters.
func referenceID(v string) string {
	if id, ok := pointerValue(v); ok {
		return id
	}
	return strings.TrimSpace(strings.ReplaceAll(v, "@", ""))
}
