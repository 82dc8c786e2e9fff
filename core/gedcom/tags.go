package gedcom

// eventTypes maps individual event tags to event type labels. BIRT, DEAT
// and BURI are handled separately as lifecycle fields.
var eventTypes = map[string]string{
	"RESI": "Residence",
	"OCCU": "Occupation",
	"IMMI": "Immigration",
	"EMIG": "Emigration",
	"NATU": "Naturalization",
	"MILI": "Military Service",
	"EDUC": "Education",
	"BAPM": "Baptism",
	"CONF": "Confirmation",
	"EVEN": "Other",
	"CHR":  "Christening",
	"CENS": "Census",
	"RELI": "Religion",
	"RETI": "Retirement",
	"GRAD": "Graduation",
	"PROP": "Property",
	"CREM": "Cremation",
	"PROB": "Probate",
	"WILL": "Will",
}

// otherEvent is the type of a generic EVEN until a TYPE line names it.
const otherEvent = "Other"

// tagAliases folds vendor and variant tags onto the tag handled for them.
var tagAliases = map[string]string{
	"BAPL":  "BAPM",
	"CHRA":  "CHR",
	"_MILT": "MILI",
	"_MILI": "MILI",
	"_MIL":  "MILI",
	"_DEG":  "GRAD",
	"WWW":   "URL",
	"_URL":  "URL",
	"_WWW":  "URL",
}

func canonicalTag(tag string) string {
	if alias, ok := tagAliases[tag]; ok {
		return alias
	}
	return tag
}

var lifecycleTags = map[string]lifecycle{
	"BIRT": lifeBirth,
	"DEAT": lifeDeath,
	"BURI": lifeBurial,
}

// continuationSeparator returns the join string for CONT and CONC lines.
func continuationSeparator(tag string) (string, bool) {
	switch tag {
	case "CONT":
		return "\n", true
	case "CONC":
		return "", true
	}
	return "", false
}
