package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Linegra/core/gedcom"
	"github.com/FocuswithJustin/Linegra/core/lineage"
)

// ImportMeta describes where a parse result came from.
type ImportMeta struct {
	FileName  string
	Actor     string
	SHA256    string
	BLAKE3    string
	BundleKey string
}

// ImportSummary reports what one ImportResult call wrote.
type ImportSummary struct {
	ImportID             string            `json:"importId"`
	TreeID               string            `json:"treeId"`
	People               int               `json:"people"`
	Relationships        int               `json:"relationships"`
	SkippedRelationships int               `json:"skippedRelationships"`
	Events               int               `json:"events"`
	Notes                int               `json:"notes"`
	Sources              int               `json:"sources"`
	Citations            int               `json:"citations"`
	Warnings             int               `json:"warnings"`
	PersonIDs            map[string]string `json:"personIds"`
}

var (
	personColumns = []string{
		"id", "tree_id", "import_id", "external_id", "first_name", "last_name", "gender",
		"birth_date", "birth_place", "death_date", "death_place", "death_cause",
		"burial_date", "burial_place", "occupations", "alternate_names", "updated_at",
		"created_at", "seq",
	}
	relationshipColumns = []string{
		"id", "tree_id", "type", "person_id", "related_id", "date_text", "place_text",
		"notes", "status", "confidence", "created_at", "seq",
	}
	eventColumns = []string{
		"id", "tree_id", "person_id", "event_type", "date_text", "place_text",
		"description", "employer", "seq",
	}
	noteColumns = []string{
		"id", "tree_id", "person_id", "type", "body", "event_label", "note_date_text", "seq",
	}
	sourceColumns = []string{
		"id", "tree_id", "import_id", "external_id", "title", "type", "repository", "url",
		"citation_date_text", "page", "reliability", "actual_text", "notes",
		"abbreviation", "call_number",
	}
	citationColumns = []string{
		"id", "tree_id", "source_id", "person_id", "event_label", "label", "page_text",
		"data_date", "data_text", "quality", "inline_notes", "note", "seq",
	}
	auditColumns = []string{
		"id", "tree_id", "actor_name", "action", "entity_type", "entity_id", "details", "created_at",
	}
)

// importRows accumulates the rows of one import before they are written.
type importRows struct {
	persons, relationships, events, notes, sources, citations, audits [][]any
	personIDs                                                         map[string]string
	sourceIDs                                                         map[string]string
	skipped                                                           int
}

// ImportResult persists one parse result into a tree inside a single
// transaction. Every person gets a fresh id; relationships whose endpoints
// were not imported are skipped and counted.
func (s *Store) ImportResult(ctx context.Context, treeID string, result *gedcom.Result, meta ImportMeta) (ImportSummary, error) {
	if result == nil {
		result = &gedcom.Result{}
	}
	importID := uuid.NewString()
	now := s.timestamp()
	rows := s.buildRows(treeID, importID, now, result, meta)

	warnings, err := json.Marshal(nonNil(result.Warnings))
	if err != nil {
		return ImportSummary{}, fmt.Errorf("marshal warnings: %w", err)
	}

	summary := ImportSummary{
		ImportID:             importID,
		TreeID:               treeID,
		People:               len(rows.persons),
		Relationships:        len(rows.relationships),
		SkippedRelationships: rows.skipped,
		Events:               len(rows.events),
		Notes:                len(rows.notes),
		Sources:              len(rows.sources),
		Citations:            len(rows.citations),
		Warnings:             len(result.Warnings),
		PersonIDs:            rows.personIDs,
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getTree(ctx, tx, treeID); err != nil {
			return err
		}
		batches := []struct {
			table   string
			columns []string
			rows    [][]any
		}{
			{"persons", personColumns, rows.persons},
			{"relationships", relationshipColumns, rows.relationships},
			{"person_events", eventColumns, rows.events},
			{"notes", noteColumns, rows.notes},
			{"sources", sourceColumns, rows.sources},
			{"citations", citationColumns, rows.citations},
			{"audit_logs", auditColumns, rows.audits},
		}
		for _, b := range batches {
			if err := s.insertRows(ctx, tx, b.table, b.columns, b.rows); err != nil {
				return err
			}
		}

		record := s.sq.Insert("gedcom_imports").
			Columns("id", "tree_id", "file_name", "actor_name", "status", "sha256", "blake3",
				"bundle_key", "people", "relationships", "skipped_relationships", "events",
				"notes", "sources", "citations", "warnings", "created_at").
			Values(importID, treeID, meta.FileName, meta.Actor, "completed", meta.SHA256, meta.BLAKE3,
				meta.BundleKey, summary.People, summary.Relationships, summary.SkippedRelationships,
				summary.Events, summary.Notes, summary.Sources, summary.Citations, string(warnings), now)
		if err := exec(ctx, tx, record, "insert", "gedcom_imports"); err != nil {
			return err
		}
		return s.touchTree(ctx, tx, treeID)
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

func (s *Store) buildRows(treeID, importID, now string, result *gedcom.Result, meta ImportMeta) *importRows {
	r := &importRows{
		personIDs: make(map[string]string, len(result.People)),
		sourceIDs: make(map[string]string),
	}
	auditDetails, _ := json.Marshal(map[string]string{"source": "GEDCOM", "importId": importID})

	for i, p := range result.People {
		id := uuid.NewString()
		r.personIDs[p.ID] = id
		r.persons = append(r.persons, []any{
			id, treeID, importID, p.ID, p.FirstName, p.LastName, string(p.Gender),
			p.BirthDate, p.BirthPlace, p.DeathDate, p.DeathPlace, p.DeathCause,
			p.BurialDate, p.BurialPlace, jsonText(nonNil(p.Occupations)),
			jsonText(nonNilNames(p.AlternateNames)), p.UpdatedAt, now, i,
		})
		r.audits = append(r.audits, []any{
			uuid.NewString(), treeID, meta.Actor, "person_import", "person", id, string(auditDetails), now,
		})
	}

	for i, rel := range result.Relationships {
		personID, ok1 := r.personIDs[rel.PersonID]
		relatedID, ok2 := r.personIDs[rel.RelatedID]
		if !ok1 || !ok2 {
			r.skipped++
			continue
		}
		r.relationships = append(r.relationships, []any{
			uuid.NewString(), treeID, string(rel.Type), personID, relatedID, rel.Date, rel.Place,
			rel.Notes, string(rel.Status), string(rel.Confidence), now, i,
		})
	}

	for _, p := range result.People {
		personID := r.personIDs[p.ID]
		for i, e := range p.Events {
			r.events = append(r.events, []any{
				uuid.NewString(), treeID, personID, e.Type, e.Date, e.Place, e.Description, e.Employer, i,
			})
		}
		for i, n := range p.Notes {
			noteType := n.Type
			if noteType == "" {
				noteType = lineage.NoteResearch
			}
			label := n.Event
			if label == "" {
				label = lineage.GeneralEvent
			}
			r.notes = append(r.notes, []any{
				uuid.NewString(), treeID, personID, string(noteType), n.Text, label, n.Date, i,
			})
		}
		r.addSources(treeID, importID, personID, p)
	}
	return r
}

// addSources writes one source row per distinct source of the import and
// one citation row per general reference or event citation of the person.
// The person-specific notes of each reference travel on the citation row.
func (r *importRows) addSources(treeID, importID, personID string, p lineage.Person) {
	rowNotes := make(map[string]string, len(p.Sources))
	seq := 0
	for _, src := range p.Sources {
		key := src.ExternalID
		if key == "" {
			key = src.ID
		}
		sourceID := r.sourceFor(treeID, importID, key, src)
		rowNotes[src.ID] = src.Notes
		if src.Event != lineage.GeneralEvent {
			continue
		}
		r.citations = append(r.citations, []any{
			uuid.NewString(), treeID, sourceID, personID, lineage.GeneralEvent, src.Title,
			src.Page, "", "", "", src.Notes, "", seq,
		})
		seq++
	}
	for _, c := range p.Citations {
		sourceID, ok := r.sourceIDs[c.SourceID]
		if !ok {
			continue
		}
		label := c.EventLabel
		if label == "" {
			label = lineage.GeneralEvent
		}
		r.citations = append(r.citations, []any{
			uuid.NewString(), treeID, sourceID, personID, label, c.Label,
			c.Page, c.DataDate, c.DataText, c.Quality, rowNotes[c.SourceID+":"+c.ID], c.Note, seq,
		})
		seq++
	}
}

// sourceFor returns the stored id for a source key, adding the source row on
// first sight. Page and notes are only kept from general references; event
// citations carry their own.
func (r *importRows) sourceFor(treeID, importID, key string, src lineage.Source) string {
	if id, ok := r.sourceIDs[key]; ok {
		return id
	}
	id := uuid.NewString()
	r.sourceIDs[key] = id
	title := src.Title
	if title == "" {
		title = "Untitled Record"
	}
	sourceType := src.Type
	if sourceType == "" {
		sourceType = lineage.SourceUnknown
	}
	var page, notes string
	if src.Event == lineage.GeneralEvent {
		page, notes = src.Page, src.Notes
	}
	r.sources = append(r.sources, []any{
		id, treeID, importID, key, title, string(sourceType), src.Repository, src.URL,
		src.CitationDate, page, src.Reliability, src.ActualText, notes,
		src.Abbreviation, src.CallNumber,
	})
	return id
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilNames(in []lineage.AlternateName) []lineage.AlternateName {
	if in == nil {
		return []lineage.AlternateName{}
	}
	return in
}
