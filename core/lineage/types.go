package lineage

// Gender is the normalized three-symbol sex marker.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// ParseGender normalizes a GEDCOM SEX value. Anything other than M or F,
// including an empty value, is GenderOther.
func ParseGender(s string) Gender {
	switch s {
	case "M", "m":
		return GenderMale
	case "F", "f":
		return GenderFemale
	default:
		return GenderOther
	}
}

// RelationshipType identifies the kind of edge between two persons.
type RelationshipType string

const (
	RelMarriage  RelationshipType = "marriage"
	RelBioFather RelationshipType = "bio_father"
	RelBioMother RelationshipType = "bio_mother"
)

// IsParent reports whether the edge points from a parent to a child.
func (t RelationshipType) IsParent() bool {
	return t == RelBioFather || t == RelBioMother
}

// RelationshipStatus describes the state of a marriage edge.
type RelationshipStatus string

const (
	StatusCurrent  RelationshipStatus = "current"
	StatusDivorced RelationshipStatus = "divorced"
)

// Confidence grades how well a relationship is supported.
type Confidence string

// Confidence tiers, strongest first.
const (
	ConfidenceConfirmed   Confidence = "Confirmed"
	ConfidenceProbable    Confidence = "Probable"
	ConfidenceAssumed     Confidence = "Assumed"
	ConfidenceSpeculative Confidence = "Speculative"
	ConfidenceUnknown     Confidence = "Unknown"
)

// SourceType classifies a source document.
type SourceType string

const (
	SourceBook            SourceType = "Book"
	SourceChurchRecord    SourceType = "Church Record"
	SourceProbateRegister SourceType = "Probate Register"
	SourceWebsite         SourceType = "Website"
	SourceCensus          SourceType = "Census"
	SourceVitalRecord     SourceType = "Vital Record"
	SourceMilitaryRecord  SourceType = "Military Record"
	SourceUnknown         SourceType = "Unknown"
)

var sourceTypes = map[SourceType]bool{
	SourceBook: true, SourceChurchRecord: true, SourceProbateRegister: true,
	SourceWebsite: true, SourceCensus: true, SourceVitalRecord: true,
	SourceMilitaryRecord: true, SourceUnknown: true,
}

// IsValid reports whether t is a known source type.
func (t SourceType) IsValid() bool {
	return sourceTypes[t]
}

// NoteType classifies a person note.
type NoteType string

const (
	NoteGeneric     NoteType = "Generic"
	NoteTodo        NoteType = "To-do"
	NoteResearch    NoteType = "Research Note"
	NoteDiscrepancy NoteType = "Discrepancy"
)

// AlternateNameType classifies an additional name of a person.
type AlternateNameType string

const (
	NameBirth      AlternateNameType = "Birth Name"
	NameNickname   AlternateNameType = "Nickname"
	NameAlias      AlternateNameType = "Alias"
	NameMarried    AlternateNameType = "Married Name"
	NameAnglicized AlternateNameType = "Anglicized Name"
	NameLegal      AlternateNameType = "Legal Name Change"
	NameAKA        AlternateNameType = "Also Known As"
	NameReligious  AlternateNameType = "Religious Name"
)

// GeneralEvent labels sources, notes and citations that are not scoped to
// a specific life event.
const GeneralEvent = "General"

// AlternateName is an additional name a person was known by.
type AlternateName struct {
	Type      AlternateNameType `json:"type"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Notes     string            `json:"notes,omitempty"`
}

// Event is a life event other than birth, death or burial.
type Event struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Date        string `json:"date,omitempty"`
	Place       string `json:"place,omitempty"`
	Description string `json:"description,omitempty"`
	Employer    string `json:"employer,omitempty"`
}

// Note is free text attached to a person, optionally scoped to an event.
type Note struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Type  NoteType `json:"type"`
	Event string   `json:"event,omitempty"`
	Date  string   `json:"date,omitempty"`
}

// Source is one row of evidence on a person. The same underlying document
// cited under several events appears once per event; ExternalID carries
// the document's identity.
type Source struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"externalId,omitempty"`
	Title        string     `json:"title"`
	Type         SourceType `json:"type"`
	URL          string     `json:"url,omitempty"`
	Repository   string     `json:"repository,omitempty"`
	CitationDate string     `json:"citationDate,omitempty"`
	Page         string     `json:"page,omitempty"`
	Reliability  int        `json:"reliability,omitempty"`
	ActualText   string     `json:"actualText,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Abbreviation string     `json:"abbreviation,omitempty"`
	CallNumber   string     `json:"callNumber,omitempty"`
	Event        string     `json:"event,omitempty"`
}

// Citation links a person, and optionally one of their events, to a source.
type Citation struct {
	ID         string `json:"id"`
	SourceID   string `json:"sourceId"`
	PersonID   string `json:"personId,omitempty"`
	EventLabel string `json:"eventLabel,omitempty"`
	Label      string `json:"label,omitempty"`
	Page       string `json:"page,omitempty"`
	DataDate   string `json:"dataDate,omitempty"`
	DataText   string `json:"dataText,omitempty"`
	Quality    string `json:"quality,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Person is one genealogical subject.
type Person struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Gender         Gender          `json:"gender"`
	BirthDate      string          `json:"birthDate,omitempty"`
	BirthPlace     string          `json:"birthPlace,omitempty"`
	DeathDate      string          `json:"deathDate,omitempty"`
	DeathPlace     string          `json:"deathPlace,omitempty"`
	DeathCause     string          `json:"deathCause,omitempty"`
	BurialDate     string          `json:"burialDate,omitempty"`
	BurialPlace    string          `json:"burialPlace,omitempty"`
	Occupations    []string        `json:"occupations,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	AlternateNames []AlternateName `json:"alternateNames,omitempty"`
	Events         []Event         `json:"events"`
	Sources        []Source        `json:"sources"`
	Citations      []Citation      `json:"citations"`
	Notes          []Note          `json:"notes"`
}

// FullName returns "First Last" with empty parts omitted.
func (p *Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Relationship is a typed, directed edge. For parent edges PersonID is the
// parent and RelatedID the child; for marriage PersonID is the husband.
type Relationship struct {
	ID         string             `json:"id"`
	Type       RelationshipType   `json:"type"`
	PersonID   string             `json:"personId"`
	RelatedID  string             `json:"relatedId"`
	Date       string             `json:"date,omitempty"`
	Place      string             `json:"place,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Status     RelationshipStatus `json:"status,omitempty"`
	Confidence Confidence         `json:"confidence"`
}

// Key returns the identity used for deduplication.
func (r Relationship) Key() RelationshipKey {
	return RelationshipKey{Type: r.Type, PersonID: r.PersonID, RelatedID: r.RelatedID}
}

// RelationshipKey is the (type, personId, relatedId) identity of an edge.
type RelationshipKey struct {
	Type      RelationshipType
	PersonID  string
	RelatedID string
}

// Dataset is the people and relationships of one tree or one import.
type Dataset struct {
	People        []Person       `json:"people"`
	Relationships []Relationship `json:"relationships"`
}
