package gedcom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/Linegra/core/lineage"
)

// Header is the fixed preamble of every exported document.
const Header = "0 HEAD\n" +
	"1 SOUR LINEGRA\n" +
	"1 GEDC\n" +
	"2 VERS 5.5.1\n" +
	"2 FORM LINEAGE-LINKED\n" +
	"1 CHAR UTF-8\n"

const (
	exportSource = "Linegra"
	exportTarget = "GEDCOM 5.5.1"
)

// Export serializes people and relationships. Only names, sex, birth and
// death of each person are written, plus one FAM block per married couple
// listing that couple's children. Everything else is dropped; use
// ExportWithReport to see what.
func Export(people []lineage.Person, rels []lineage.Relationship) string {
	text, _ := ExportWithReport(people, rels)
	return text
}

// ExportDataset serializes a dataset.
func ExportDataset(ds lineage.Dataset) string {
	return Export(ds.People, ds.Relationships)
}

// ExportWithReport serializes like Export and also returns a report of
// every element the output does not carry.
func ExportWithReport(people []lineage.Person, rels []lineage.Relationship) (string, *lineage.LossReport) {
	var buf bytes.Buffer
	report := lineage.NewLossReport(exportSource, exportTarget)

	buf.WriteString(Header)

	genders := make(map[string]lineage.Gender, len(people))
	for i := range people {
		p := &people[i]
		genders[p.ID] = p.Gender
		writePerson(&buf, p)
		reportPerson(report, p)
	}
	if len(people) > 0 {
		report.LossClass = report.LossClass.Worse(lineage.LossL1)
		report.AddWarning("person identifiers are rewritten as P<id> and family identifiers are renumbered")
	}

	writeFamilies(&buf, rels, genders, report)

	buf.WriteString("0 TRLR\n")
	return buf.String(), report
}

func writePerson(buf *bytes.Buffer, p *lineage.Person) {
	buf.WriteString(fmt.Sprintf("0 @P%s@ INDI\n", p.ID))
	buf.WriteString(fmt.Sprintf("1 NAME %s /%s/\n", lineValue(p.FirstName), lineValue(p.LastName)))
	buf.WriteString(fmt.Sprintf("1 SEX %s\n", sexValue(p.Gender)))
	writeLifecycle(buf, "BIRT", p.BirthDate, p.BirthPlace)
	writeLifecycle(buf, "DEAT", p.DeathDate, p.DeathPlace)
}

func writeLifecycle(buf *bytes.Buffer, tag, date, place string) {
	if date == "" && place == "" {
		return
	}
	buf.WriteString("1 " + tag + "\n")
	if date != "" {
		buf.WriteString(fmt.Sprintf("2 DATE %s\n", lineValue(date)))
	}
	if place != "" {
		buf.WriteString(fmt.Sprintf("2 PLAC %s\n", lineValue(place)))
	}
}

type couple struct{ lo, hi string }

func coupleOf(a, b string) couple {
	if a > b {
		a, b = b, a
	}
	return couple{lo: a, hi: b}
}

// writeFamilies emits one FAM per distinct married pair. Marriages whose
// partners were not exported are skipped. A child is listed under a couple
// only when it has a father edge from the husband and a mother edge from
// the wife; every other parent edge is reported as lost.
func writeFamilies(buf *bytes.Buffer, rels []lineage.Relationship, genders map[string]lineage.Gender, report *lineage.LossReport) {
	parents := indexParents(rels, genders)
	done := make(map[couple]bool)
	covered := make(map[parentEdge]bool)
	n := 0

	for i, r := range rels {
		path := fmt.Sprintf("relationships[%d]", i)
		_, hasPerson := genders[r.PersonID]
		_, hasRelated := genders[r.RelatedID]
		if !hasPerson || !hasRelated {
			report.AddLostElement(path, "relationship", "endpoint not among exported people", lineage.LossL2)
			continue
		}
		if r.Type != lineage.RelMarriage {
			continue
		}
		if r.Notes != "" || r.Status != "" {
			report.AddLostElement(path, "relationship_detail", "marriage notes and status are not exported", lineage.LossL2)
		}

		key := coupleOf(r.PersonID, r.RelatedID)
		if done[key] {
			continue
		}
		done[key] = true
		n++

		husband, wife := parents.orient(r.PersonID, r.RelatedID, genders)

		buf.WriteString(fmt.Sprintf("0 @F%d@ FAM\n", n))
		buf.WriteString(fmt.Sprintf("1 HUSB @P%s@\n", husband))
		buf.WriteString(fmt.Sprintf("1 WIFE @P%s@\n", wife))
		buf.WriteString("1 MARR\n")
		if r.Date != "" {
			buf.WriteString(fmt.Sprintf("2 DATE %s\n", lineValue(r.Date)))
		}
		if r.Place != "" {
			buf.WriteString(fmt.Sprintf("2 PLAC %s\n", lineValue(r.Place)))
		}
		for _, child := range parents.childrenOf(husband, wife) {
			buf.WriteString(fmt.Sprintf("1 CHIL @P%s@\n", child))
			covered[parentEdge{husband, child}] = true
			covered[parentEdge{wife, child}] = true
		}
	}

	for _, e := range parents.edges {
		if !covered[parentEdge{e.parent, e.child}] {
			report.AddLostElement(e.path, "parent_link", "parent links outside a married couple are not exported", lineage.LossL2)
		}
	}
}

type parentEdge struct{ parent, child string }

// parentIndex records the father and mother edges of every exported child,
// in the order the edges appear.
type parentIndex struct {
	byChild map[string]*childParents
	order   []string
	edges   []indexedEdge
}

type indexedEdge struct {
	path          string
	parent, child string
}

type childParents struct {
	fathers []string
	mothers []string
}

func indexParents(rels []lineage.Relationship, genders map[string]lineage.Gender) *parentIndex {
	idx := &parentIndex{byChild: make(map[string]*childParents)}
	for i, r := range rels {
		if !r.Type.IsParent() {
			continue
		}
		if _, ok := genders[r.PersonID]; !ok {
			continue
		}
		if _, ok := genders[r.RelatedID]; !ok {
			continue
		}
		idx.edges = append(idx.edges, indexedEdge{
			path:   fmt.Sprintf("relationships[%d]", i),
			parent: r.PersonID,
			child:  r.RelatedID,
		})
		cp := idx.byChild[r.RelatedID]
		if cp == nil {
			cp = &childParents{}
			idx.byChild[r.RelatedID] = cp
			idx.order = append(idx.order, r.RelatedID)
		}
		if r.Type == lineage.RelBioFather {
			cp.fathers = append(cp.fathers, r.PersonID)
		} else {
			cp.mothers = append(cp.mothers, r.PersonID)
		}
	}
	return idx
}

// orient picks husband and wife for a married pair. The orientation that
// places more children wins; on a tie the male spouse is the husband, then
// the female spouse is the wife, then edge order stands.
func (idx *parentIndex) orient(a, b string, genders map[string]lineage.Gender) (husband, wife string) {
	forward, reverse := len(idx.childrenOf(a, b)), len(idx.childrenOf(b, a))
	switch {
	case forward > reverse:
		return a, b
	case reverse > forward:
		return b, a
	case genders[b] == lineage.GenderMale && genders[a] != lineage.GenderMale:
		return b, a
	case genders[a] == lineage.GenderFemale && genders[b] != lineage.GenderFemale:
		return b, a
	}
	return a, b
}

// childrenOf returns the children with a father edge from husband and a
// mother edge from wife.
func (idx *parentIndex) childrenOf(husband, wife string) []string {
	var out []string
	for _, c := range idx.order {
		cp := idx.byChild[c]
		if contains(cp.fathers, husband) && contains(cp.mothers, wife) {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func reportPerson(report *lineage.LossReport, p *lineage.Person) {
	for i := range p.Events {
		report.AddLostElement(fmt.Sprintf("%s/events[%d]", p.ID, i), "event", "events are not exported", lineage.LossL2)
	}
	for i := range p.Notes {
		report.AddLostElement(fmt.Sprintf("%s/notes[%d]", p.ID, i), "note", "notes are not exported", lineage.LossL2)
	}
	for i := range p.AlternateNames {
		report.AddLostElement(fmt.Sprintf("%s/alternateNames[%d]", p.ID, i), "alternate_name", "alternate names are not exported", lineage.LossL2)
	}
	if p.BurialDate != "" || p.BurialPlace != "" {
		report.AddLostElement(p.ID+"/burial", "burial", "burial is not exported", lineage.LossL2)
	}
	if p.DeathCause != "" {
		report.AddLostElement(p.ID+"/deathCause", "death_cause", "death cause is not exported", lineage.LossL2)
	}
	for i := range p.Sources {
		report.AddLostElement(fmt.Sprintf("%s/sources[%d]", p.ID, i), "source", "sources are not exported", lineage.LossL3)
	}
	for i := range p.Citations {
		report.AddLostElement(fmt.Sprintf("%s/citations[%d]", p.ID, i), "citation", "citations are not exported", lineage.LossL3)
	}
}

func sexValue(g lineage.Gender) string {
	switch g {
	case lineage.GenderMale, lineage.GenderFemale:
		return string(g)
	default:
		return "U"
	}
}

// lineValue flattens a value onto one line.
func lineValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
