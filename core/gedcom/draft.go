package gedcom

import "github.com/FocuswithJustin/Linegra/core/lineage"

// IndividualDraft accumulates one INDI record.
type IndividualDraft struct {
	ID             string
	FirstName      string
	LastName       string
	named          bool
	Sex            string
	BirthDate      string
	BirthPlace     string
	DeathDate      string
	DeathPlace     string
	DeathCause     string
	BurialDate     string
	BurialPlace    string
	Occupations    []string
	UpdatedAt      string
	AlternateNames []*lineage.AlternateName
	Events         []*EventDraft
	SourceRefs     []*SourceReference
	Notes          []*NoteDraft
	Citations      []*CitationDraft
	inlineCount    int
}

// EventDraft is a life event other than birth, death or burial.
type EventDraft struct {
	ID          string
	Type        string
	Date        string
	Place       string
	Description string
	Employer    string
}

// NoteDraft is free text attached to an individual.
type NoteDraft struct {
	Text  string
	Event string
}

// CitationDetail is the structured part of a source citation.
type CitationDetail struct {
	Page     string
	Quality  string
	DataDate string
	DataText string
	Note     string
}

// SourceReference is a level-1 SOUR line on an individual: either a
// pointer to a SOUR record or an inline source synthesized on the spot.
type SourceReference struct {
	SourceID string
	Inline   bool
	Detail   CitationDetail
}

// CitationDraft is a SOUR line nested under an event of an individual.
type CitationDraft struct {
	ID         string
	SourceID   string
	Inline     bool
	EventLabel string
	Detail     CitationDetail
}

// FamilyDraft accumulates one family, whether discovered through its FAM
// record or through FAMC/FAMS back-references.
type FamilyDraft struct {
	ID            string
	HusbandID     string
	WifeID        string
	ChildIDs      []string
	MarriageDate  string
	MarriagePlace string
	MarriageType  string
	MarriageNotes string
	Divorced      bool
	DivorceDate   string
	DivorceNotes  string
	Notes         string
}

func (f *FamilyDraft) hasChild(id string) bool {
	for _, c := range f.ChildIDs {
		if c == id {
			return true
		}
	}
	return false
}

func (f *FamilyDraft) addChild(id string) {
	if id != "" && !f.hasChild(id) {
		f.ChildIDs = append(f.ChildIDs, id)
	}
}

// SourceDraft accumulates one SOUR record, or one inline source.
type SourceDraft struct {
	ID           string
	Title        string
	Author       string
	Repository   string
	Publication  string
	Text         string
	Notes        string
	CitationDate string
	URL          string
	Abbreviation string
	CallNumber   string
	Type         lineage.SourceType
	Inline       bool
}

// familyRef is a FAMC/FAMS line waiting for the end of the pass.
type familyRef struct {
	familyID string
	personID string
	spouse   bool
}
