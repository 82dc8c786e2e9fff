package gedcom

import (
	"reflect"
	"testing"

	"github.com/FocuswithJustin/Linegra/core/lineage"
)

func countByType(rels []lineage.Relationship) map[lineage.RelationshipType]int {
	counts := make(map[lineage.RelationshipType]int)
	for _, r := range rels {
		counts[r.Type]++
	}
	return counts
}

func TestExplicitFamilyProjection(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 NAME Tom /Doe/", "1 SEX M",
		"0 @I2@ INDI", "1 NAME Ann /Doe/", "1 SEX F",
		"0 @I3@ INDI", "1 NAME Kid /Doe/",
		"0 @I4@ INDI", "1 NAME Kim /Doe/",
		"0 @F1@ FAM",
		"1 HUSB @I1@",
		"1 WIFE @I2@",
		"1 MARR",
		"2 DATE 4 JUL 1925",
		"2 PLAC Albany",
		"1 CHIL @I3@",
		"1 CHIL @I4@",
	))

	counts := countByType(r.Relationships)
	if counts[lineage.RelMarriage] != 1 || counts[lineage.RelBioFather] != 2 || counts[lineage.RelBioMother] != 2 {
		t.Fatalf("relationship counts = %v", counts)
	}

	m := r.Relationships[0]
	want := lineage.Relationship{
		ID:         "rel-m-0",
		Type:       lineage.RelMarriage,
		PersonID:   "I1",
		RelatedID:  "I2",
		Date:       "4 JUL 1925",
		Place:      "Albany",
		Confidence: lineage.ConfidenceConfirmed,
	}
	if m != want {
		t.Errorf("marriage = %+v, want %+v", m, want)
	}
	for _, rel := range r.Relationships {
		if rel.Confidence != lineage.ConfidenceConfirmed {
			t.Errorf("%s confidence = %q", rel.ID, rel.Confidence)
		}
	}
	if r.Relationships[1].ID != "rel-f-0-0" || r.Relationships[2].ID != "rel-mo-0-0" {
		t.Errorf("edge ids = %s, %s", r.Relationships[1].ID, r.Relationships[2].ID)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestBackReferencesMergeWithFamilyRecord(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 SEX M", "1 FAMS @F1@",
		"0 @I2@ INDI", "1 SEX F", "1 FAMS @F1@",
		"0 @I3@ INDI", "1 FAMC @F1@",
		"0 @F1@ FAM",
		"1 HUSB @I1@",
		"1 WIFE @I2@",
		"1 CHIL @I3@",
	))

	counts := countByType(r.Relationships)
	if counts[lineage.RelMarriage] != 1 || counts[lineage.RelBioFather] != 1 || counts[lineage.RelBioMother] != 1 {
		t.Errorf("relationship counts = %v: %+v", counts, r.Relationships)
	}
	if len(r.Relationships) != 3 {
		t.Errorf("got %d relationships, want 3", len(r.Relationships))
	}
}

func TestFamilyDiscoveredOnlyByBackReferences(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 SEX F", "1 FAMS @F9@",
		"0 @I2@ INDI", "1 SEX M", "1 FAMS @F9@",
		"0 @I3@ INDI", "1 FAMC @F9@",
	))

	want := []lineage.Relationship{
		{ID: "rel-m-0", Type: lineage.RelMarriage, PersonID: "I2", RelatedID: "I1", Confidence: lineage.ConfidenceConfirmed},
		{ID: "rel-f-0-0", Type: lineage.RelBioFather, PersonID: "I2", RelatedID: "I3", Confidence: lineage.ConfidenceConfirmed},
		{ID: "rel-mo-0-0", Type: lineage.RelBioMother, PersonID: "I1", RelatedID: "I3", Confidence: lineage.ConfidenceConfirmed},
	}
	if !reflect.DeepEqual(r.Relationships, want) {
		t.Errorf("relationships =\n%+v\nwant\n%+v", r.Relationships, want)
	}
}

func TestSpouseSlotForUnknownSex(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 FAMS @F1@",
		"0 @I2@ INDI", "1 FAMS @F1@",
		"0 @I3@ INDI", "1 FAMS @F1@",
	))
	if len(r.Relationships) != 1 {
		t.Fatalf("relationships = %+v", r.Relationships)
	}
	m := r.Relationships[0]
	if m.PersonID != "I1" || m.RelatedID != "I2" {
		t.Errorf("marriage = %s -> %s, want I1 -> I2", m.PersonID, m.RelatedID)
	}
	want := []string{"Family F1 already has two spouses; ignored FAMS reference from I3"}
	if !reflect.DeepEqual(r.Warnings, want) {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestExplicitSpouseWinsOverBackReference(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 FAMS @F1@",
		"0 @I2@ INDI", "1 SEX M",
		"0 @F1@ FAM", "1 HUSB @I2@", "1 WIFE @I1@",
	))
	if len(r.Relationships) != 1 {
		t.Fatalf("relationships = %+v", r.Relationships)
	}
	if m := r.Relationships[0]; m.PersonID != "I2" || m.RelatedID != "I1" {
		t.Errorf("marriage = %s -> %s, want I2 -> I1", m.PersonID, m.RelatedID)
	}
}

func TestSingleParentFamily(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "1 SEX F",
		"0 @I2@ INDI",
		"0 @F1@ FAM", "1 WIFE @I1@", "1 CHIL @I2@",
	))
	want := []lineage.Relationship{
		{ID: "rel-mo-0-0", Type: lineage.RelBioMother, PersonID: "I1", RelatedID: "I2", Confidence: lineage.ConfidenceConfirmed},
	}
	if !reflect.DeepEqual(r.Relationships, want) {
		t.Errorf("relationships = %+v", r.Relationships)
	}
}

func TestMarriageNotesAndDivorce(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "0 @I2@ INDI",
		"0 @F1@ FAM",
		"1 HUSB @I1@",
		"1 WIFE @I2@",
		"1 MARR",
		"2 TYPE Civil",
		"2 NOTE Town hall",
		"3 CONT ceremony",
		"1 NOTE Lived apart",
		"1 DIV",
		"2 DATE 1950",
		"2 NOTE Amicable",
		"1 _STAT x",
	))
	if len(r.Relationships) != 1 {
		t.Fatalf("relationships = %+v", r.Relationships)
	}
	m := r.Relationships[0]
	if want := "Civil\nTown hall\nceremony\nLived apart\nDivorced: 1950\nAmicable"; m.Notes != want {
		t.Errorf("notes = %q, want %q", m.Notes, want)
	}
	if m.Status != lineage.StatusDivorced {
		t.Errorf("status = %q", m.Status)
	}
	if want := []string{`Ignored family tag "_STAT" on record F1`}; !reflect.DeepEqual(r.Warnings, want) {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestMissingFamilyMember(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI",
		"0 @F1@ FAM", "1 HUSB @I1@", "1 WIFE @I9@", "1 CHIL @I8@",
	))
	if len(r.Relationships) != 0 {
		t.Errorf("relationships = %+v", r.Relationships)
	}
	want := []string{
		"Family F1 references missing individual I9",
		"Family F1 references missing individual I8",
	}
	if !reflect.DeepEqual(r.Warnings, want) {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestProjectFamilyCounts(t *testing.T) {
	for n := 0; n <= 4; n++ {
		f := &FamilyDraft{ID: "F", HusbandID: "H", WifeID: "W"}
		for i := 0; i < n; i++ {
			f.addChild(string(rune('a' + i)))
		}
		rels := ProjectFamily(f, 0)
		counts := countByType(rels)
		if counts[lineage.RelMarriage] != 1 {
			t.Errorf("n=%d: %d marriages", n, counts[lineage.RelMarriage])
		}
		if got := counts[lineage.RelBioFather] + counts[lineage.RelBioMother]; got != 2*n {
			t.Errorf("n=%d: %d parent edges, want %d", n, got, 2*n)
		}
		deduped := Dedup(rels)
		if !reflect.DeepEqual(Dedup(deduped), deduped) {
			t.Errorf("n=%d: Dedup is not idempotent", n)
		}
	}
}

func TestDedupKeepsFirst(t *testing.T) {
	rels := []lineage.Relationship{
		{ID: "a", Type: lineage.RelBioFather, PersonID: "H", RelatedID: "C"},
		{ID: "b", Type: lineage.RelBioMother, PersonID: "W", RelatedID: "C"},
		{ID: "c", Type: lineage.RelBioFather, PersonID: "H", RelatedID: "C"},
		{ID: "d", Type: lineage.RelMarriage, PersonID: "H", RelatedID: "C"},
	}
	got := Dedup(rels)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "d"}) {
		t.Errorf("Dedup ids = %v", ids)
	}
	if !reflect.DeepEqual(Dedup(got), got) {
		t.Error("Dedup is not idempotent")
	}
}

func TestChildListedTwiceProjectsOnce(t *testing.T) {
	r := Parse(doc(
		"0 @I1@ INDI", "0 @I2@ INDI", "0 @I3@ INDI",
		"0 @F1@ FAM", "1 HUSB @I1@", "1 WIFE @I2@", "1 CHIL @I3@", "1 CHIL @I3@",
	))
	if len(r.Relationships) != 3 {
		t.Errorf("relationships = %+v", r.Relationships)
	}
}
