package gedcom

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/Linegra/core/lineage"
)

func (p *parser) familyLine(l RawLine, parent scope) {
	f := p.fam
	if parent == nil {
		p.familyTag(f, l)
		return
	}

	switch sc := parent.(type) {
	case marriageScope:
		switch l.Tag {
		case "DATE":
			sc.family.MarriageDate = l.Value
		case "PLAC":
			sc.family.MarriagePlace = l.Value
		case "TYPE":
			sc.family.MarriageType = l.Value
		case "NOTE":
			if text, ok := p.noteText(l, f.ID); ok {
				appendText(&sc.family.MarriageNotes, "\n", text)
				p.scopes.push(l.Level, textScope{target: &sc.family.MarriageNotes})
			}
		}
	case divorceScope:
		switch l.Tag {
		case "DATE":
			sc.family.DivorceDate = l.Value
		case "NOTE":
			if text, ok := p.noteText(l, f.ID); ok {
				appendText(&sc.family.DivorceNotes, "\n", text)
				p.scopes.push(l.Level, textScope{target: &sc.family.DivorceNotes})
			}
		}
	}
}

// familyTag handles a level-1 line of a FAM record.
func (p *parser) familyTag(f *FamilyDraft, l RawLine) {
	switch l.Tag {
	case "HUSB":
		f.HusbandID = referenceID(l.Value)
	case "WIFE":
		f.WifeID = referenceID(l.Value)
	case "CHIL":
		f.addChild(referenceID(l.Value))
	case "MARR":
		p.scopes.push(l.Level, marriageScope{family: f})
	case "DIV":
		f.Divorced = true
		p.scopes.push(l.Level, divorceScope{family: f})
	case "NOTE":
		if text, ok := p.noteText(l, f.ID); ok {
			appendText(&f.Notes, "\n", text)
			p.scopes.push(l.Level, textScope{target: &f.Notes})
		}
	case "CHAN":
		p.scopes.push(l.Level, changeScope{})
	default:
		p.warnings.ignoredFamilyTag(l.Tag, f.ID)
	}
}

// applyFamilyRefs merges FAMC/FAMS back-references into the family drafts.
// Explicit FAM content wins: back-references only fill what is missing.
func (p *parser) applyFamilyRefs() {
	for _, ref := range p.familyRefs {
		f := p.families[ref.familyID]
		if !ref.spouse {
			f.addChild(ref.personID)
			continue
		}
		if f.HusbandID == ref.personID || f.WifeID == ref.personID {
			continue
		}

		husbandFirst := lineage.ParseGender(p.individuals[ref.personID].Sex) != lineage.GenderFemale
		switch {
		case husbandFirst && f.HusbandID == "":
			f.HusbandID = ref.personID
		case f.WifeID == "":
			f.WifeID = ref.personID
		case f.HusbandID == "":
			f.HusbandID = ref.personID
		default:
			p.warnings.spouseOverflow(f.ID, ref.personID)
		}
	}
}

// checkFamilyMembers drops family members that have no INDI record.
func (p *parser) checkFamilyMembers() {
	for _, id := range p.famOrder {
		f := p.families[id]
		if f.HusbandID != "" && p.individuals[f.HusbandID] == nil {
			p.warnings.missingMember(f.ID, f.HusbandID)
			f.HusbandID = ""
		}
		if f.WifeID != "" && p.individuals[f.WifeID] == nil {
			p.warnings.missingMember(f.ID, f.WifeID)
			f.WifeID = ""
		}
		children := f.ChildIDs[:0]
		for _, c := range f.ChildIDs {
			if p.individuals[c] == nil {
				p.warnings.missingMember(f.ID, c)
				continue
			}
			children = append(children, c)
		}
		f.ChildIDs = children
	}
}

// ProjectFamily converts a family into relationship edges: one marriage
// when both spouses are known, and a father and mother edge per child for
// each known parent. idx numbers the family within its document.
func ProjectFamily(f *FamilyDraft, idx int) []lineage.Relationship {
	var rels []lineage.Relationship

	if f.HusbandID != "" && f.WifeID != "" {
		m := lineage.Relationship{
			ID:         fmt.Sprintf("rel-m-%d", idx),
			Type:       lineage.RelMarriage,
			PersonID:   f.HusbandID,
			RelatedID:  f.WifeID,
			Date:       f.MarriageDate,
			Place:      f.MarriagePlace,
			Notes:      joinNonEmpty("\n", f.MarriageType, f.MarriageNotes, f.Notes, divorceSummary(f)),
			Confidence: lineage.ConfidenceConfirmed,
		}
		if f.Divorced {
			m.Status = lineage.StatusDivorced
		}
		rels = append(rels, m)
	}

	for c, child := range f.ChildIDs {
		if f.HusbandID != "" {
			rels = append(rels, lineage.Relationship{
				ID:         fmt.Sprintf("rel-f-%d-%d", idx, c),
				Type:       lineage.RelBioFather,
				PersonID:   f.HusbandID,
				RelatedID:  child,
				Confidence: lineage.ConfidenceConfirmed,
			})
		}
		if f.WifeID != "" {
			rels = append(rels, lineage.Relationship{
				ID:         fmt.Sprintf("rel-mo-%d-%d", idx, c),
				Type:       lineage.RelBioMother,
				PersonID:   f.WifeID,
				RelatedID:  child,
				Confidence: lineage.ConfidenceConfirmed,
			})
		}
	}

	return rels
}

func divorceSummary(f *FamilyDraft) string {
	if !f.Divorced {
		return ""
	}
	summary := "Divorced"
	if f.DivorceDate != "" {
		summary += ": " + f.DivorceDate
	}
	return joinNonEmpty("\n", summary, f.DivorceNotes)
}

// Dedup removes relationships whose (type, personId, relatedId) was seen
// earlier in the list. It is idempotent.
func Dedup(rels []lineage.Relationship) []lineage.Relationship {
	seen := make(map[lineage.RelationshipKey]bool, len(rels))
	out := make([]lineage.Relationship, 0, len(rels))
	for _, r := range rels {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}
