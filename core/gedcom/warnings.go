package gedcom

import "fmt"

// warnings collects human-readable descriptions of input the parser
// ignored or could not resolve.
type warnings struct {
	list []string
}

func (w *warnings) addf(format string, args ...interface{}) {
	w.list = append(w.list, fmt.Sprintf(format, args...))
}

func (w *warnings) ignoredIndividualTag(tag, id string) {
	w.addf("Ignored individual tag %q on record %s", tag, id)
}

func (w *warnings) ignoredFamilyTag(tag, id string) {
	w.addf("Ignored family tag %q on record %s", tag, id)
}

func (w *warnings) ignoredSourceTag(tag, id string) {
	w.addf("Ignored source tag %q on source %s", tag, id)
}

func (w *warnings) noteReference(noteID, recordID string) {
	w.addf("Ignored note reference %s on record %s", noteID, recordID)
}

func (w *warnings) missingSource(personID, sourceID string) {
	w.addf("Person %s referenced missing source %s", personID, sourceID)
}

func (w *warnings) missingCitedSource(personID, sourceID, label string) {
	w.addf("Person %s cited missing source %s under %s", personID, sourceID, label)
}

func (w *warnings) spouseOverflow(familyID, personID string) {
	w.addf("Family %s already has two spouses; ignored FAMS reference from %s", familyID, personID)
}

func (w *warnings) missingMember(familyID, personID string) {
	w.addf("Family %s references missing individual %s", familyID, personID)
}

func (w *warnings) strings() []string {
	if w.list == nil {
		return []string{}
	}
	out := make([]string, len(w.list))
	copy(out, w.list)
	return out
}
