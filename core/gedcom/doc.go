// Package gedcom parses GEDCOM genealogical documents into lineage
// entities and serializes lineage entities back into GEDCOM.
//
// Parsing is a single forward pass over the document's lines. Each line
// is matched against the grammar
//
//	<level> [@pointer@] TAG [value]
//
// and dispatched to the builder for the record currently open (INDI, FAM
// or SOUR). Nesting carries no delimiters; a stack of scopes, each tagged
// with the level that opened it, is closed whenever a line arrives at the
// same or a shallower level. Continuation lines (CONT, CONC) extend the
// text of the enclosing scope without closing anything.
//
// Families are looked up or created on every reference path, so a family
// mentioned by an individual's FAMC/FAMS before (or without) its own FAM
// record is the same draft the FAM record later fills.
//
// Parse never fails on content. Unsupported tags and dangling references
// are reported as warning strings alongside the result; lines that do not
// match the grammar are dropped silently.
//
// Export writes a deliberately narrower subset: names, sex, birth and
// death for each person, and one FAM block per married couple with the
// children of that couple. ExportWithReport lists everything that subset
// leaves behind.
package gedcom
