package lineage

import "testing"

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   string
		want Gender
	}{
		{"M", GenderMale},
		{"m", GenderMale},
		{"F", GenderFemale},
		{"U", GenderOther},
		{"", GenderOther},
		{"X", GenderOther},
	}
	for _, tt := range tests {
		if got := ParseGender(tt.in); got != tt.want {
			t.Errorf("ParseGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		p    Person
		want string
	}{
		{Person{FirstName: "John", LastName: "Doe"}, "John Doe"},
		{Person{FirstName: "John"}, "John"},
		{Person{LastName: "Doe"}, "Doe"},
		{Person{}, ""},
	}
	for _, tt := range tests {
		if got := tt.p.FullName(); got != tt.want {
			t.Errorf("FullName() = %q, want %q", got, tt.want)
		}
	}
}

func TestSourceTypeIsValid(t *testing.T) {
	if !SourceCensus.IsValid() {
		t.Error("Census should be valid")
	}
	if SourceType("Newspaper").IsValid() {
		t.Error("Newspaper should not be valid")
	}
}

func TestRelationshipKey(t *testing.T) {
	a := Relationship{ID: "1", Type: RelBioFather, PersonID: "P", RelatedID: "C"}
	b := Relationship{ID: "2", Type: RelBioFather, PersonID: "P", RelatedID: "C", Notes: "dup"}
	c := Relationship{ID: "3", Type: RelBioMother, PersonID: "P", RelatedID: "C"}
	if a.Key() != b.Key() {
		t.Error("same tuple should produce equal keys")
	}
	if a.Key() == c.Key() {
		t.Error("different types should produce different keys")
	}
	if !a.Type.IsParent() || RelMarriage.IsParent() {
		t.Error("IsParent mismatch")
	}
}

func TestDatasetValidate(t *testing.T) {
	valid := Dataset{
		People: []Person{
			{ID: "a", Gender: GenderMale},
			{ID: "b", Gender: GenderFemale},
		},
		Relationships: []Relationship{
			{ID: "r1", Type: RelMarriage, PersonID: "a", RelatedID: "b"},
		},
	}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}

	invalid := Dataset{
		People: []Person{
			{ID: "a", Gender: GenderMale},
			{ID: "a", Gender: "Z"},
			{},
		},
		Relationships: []Relationship{
			{ID: "r1", Type: "cousin", PersonID: "a", RelatedID: "missing"},
			{ID: "r2", Type: RelMarriage, PersonID: "a", RelatedID: "a"},
		},
	}
	errs := invalid.Validate()
	// duplicate id, bad gender, missing id, bad type, unknown related, self link
	if len(errs) != 6 {
		t.Fatalf("Validate() returned %d errors, want 6: %v", len(errs), errs)
	}
}

func TestLossReport(t *testing.T) {
	r := NewLossReport("Linegra", "GEDCOM")
	if r.HasLoss() {
		t.Fatal("new report should be lossless")
	}

	r.AddLostElement("I1/events[0]", "event", "not serialized", LossL2)
	r.AddLostElement("I1/citations[0]", "citation", "not serialized", LossL3)
	r.AddLostElement("I2/events[0]", "event", "not serialized", LossL2)

	if !r.HasLoss() {
		t.Error("HasLoss() = false after adding elements")
	}
	if r.LossClass != LossL3 {
		t.Errorf("LossClass = %s, want L3", r.LossClass)
	}
	counts := r.CountByType()
	if counts["event"] != 2 || counts["citation"] != 1 {
		t.Errorf("CountByType() = %v", counts)
	}

	r.AddWarning("ids renamed")
	if len(r.Warnings) != 1 {
		t.Errorf("Warnings = %v", r.Warnings)
	}
}

func TestLossClassLevel(t *testing.T) {
	for i, c := range []LossClass{LossL0, LossL1, LossL2, LossL3, LossL4} {
		if c.Level() != i {
			t.Errorf("%s.Level() = %d, want %d", c, c.Level(), i)
		}
		if !c.IsValid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if LossClass("L9").IsValid() {
		t.Error("L9 should be invalid")
	}
	if LossL1.Worse(LossL0) != LossL1 || LossL1.Worse(LossL4) != LossL4 {
		t.Error("Worse() mismatch")
	}
	if !LossL0.IsLossless() || LossL1.IsLossless() {
		t.Error("IsLossless mismatch")
	}
}
