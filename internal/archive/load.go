package archive

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/lineage"
)

// ImportRecord is one row of a tree's import history.
type ImportRecord struct {
	ID                   string   `json:"id"`
	TreeID               string   `json:"treeId"`
	FileName             string   `json:"fileName"`
	Actor                string   `json:"actor"`
	Status               string   `json:"status"`
	SHA256               string   `json:"sha256"`
	BLAKE3               string   `json:"blake3"`
	BundleKey            string   `json:"bundleKey,omitempty"`
	People               int      `json:"people"`
	Relationships        int      `json:"relationships"`
	SkippedRelationships int      `json:"skippedRelationships"`
	Events               int      `json:"events"`
	Notes                int      `json:"notes"`
	Sources              int      `json:"sources"`
	Citations            int      `json:"citations"`
	Warnings             []string `json:"warnings"`
	CreatedAt            string   `json:"createdAt"`
}

// AuditEntry is one audit log row.
type AuditEntry struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Details    string `json:"details"`
	CreatedAt  string `json:"createdAt"`
}

type sourceRecord struct {
	id, externalID, title, sourceType, repository, url, citationDate, page string
	reliability                                                         int
	actualText, abbreviation, callNumber                                string
}

// LoadDataset reads every person (with events, notes, sources, and
// citations) and relationship of a tree in import order.
func (s *Store) LoadDataset(ctx context.Context, treeID string) (lineage.Dataset, error) {
	if _, err := s.GetTree(ctx, treeID); err != nil {
		return lineage.Dataset{}, err
	}
	byTree := squirrel.Eq{"tree_id": treeID}

	people, index, err := s.loadPersons(ctx, byTree)
	if err != nil {
		return lineage.Dataset{}, err
	}
	if err := s.loadEvents(ctx, byTree, people, index); err != nil {
		return lineage.Dataset{}, err
	}
	if err := s.loadNotes(ctx, byTree, people, index); err != nil {
		return lineage.Dataset{}, err
	}
	if err := s.loadCitations(ctx, byTree, people, index); err != nil {
		return lineage.Dataset{}, err
	}
	rels, err := s.loadRelationships(ctx, byTree)
	if err != nil {
		return lineage.Dataset{}, err
	}
	return lineage.Dataset{People: people, Relationships: rels}, nil
}

func (s *Store) loadPersons(ctx context.Context, where squirrel.Eq) ([]lineage.Person, map[string]int, error) {
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "first_name", "last_name", "gender", "birth_date", "birth_place",
		"death_date", "death_place", "death_cause", "burial_date", "burial_place",
		"occupations", "alternate_names", "updated_at",
	).From("persons").Where(where).OrderBy("created_at", "seq"), "persons")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	people := []lineage.Person{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			p                  lineage.Person
			gender, occ, names string
		)
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &gender, &p.BirthDate, &p.BirthPlace,
			&p.DeathDate, &p.DeathPlace, &p.DeathCause, &p.BurialDate, &p.BurialPlace,
			&occ, &names, &p.UpdatedAt); err != nil {
			return nil, nil, errors.NewStore("scan", "persons", err)
		}
		p.Gender = lineage.Gender(gender)
		if err := json.Unmarshal([]byte(occ), &p.Occupations); err != nil {
			return nil, nil, errors.NewStore("decode occupations", "persons", err)
		}
		if len(p.Occupations) == 0 {
			p.Occupations = nil
		}
		if err := json.Unmarshal([]byte(names), &p.AlternateNames); err != nil {
			return nil, nil, errors.NewStore("decode alternate names", "persons", err)
		}
		if len(p.AlternateNames) == 0 {
			p.AlternateNames = nil
		}
		p.Events = []lineage.Event{}
		p.Notes = []lineage.Note{}
		p.Sources = []lineage.Source{}
		p.Citations = []lineage.Citation{}
		index[p.ID] = len(people)
		people = append(people, p)
	}
	return people, index, errors.NewStore("select", "persons", rows.Err())
}

func (s *Store) loadEvents(ctx context.Context, where squirrel.Eq, people []lineage.Person, index map[string]int) error {
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "person_id", "event_type", "date_text", "place_text", "description", "employer",
	).From("person_events").Where(where).OrderBy("seq"), "person_events")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e lineage.Event
		var personID string
		if err := rows.Scan(&e.ID, &personID, &e.Type, &e.Date, &e.Place, &e.Description, &e.Employer); err != nil {
			return errors.NewStore("scan", "person_events", err)
		}
		if i, ok := index[personID]; ok {
			people[i].Events = append(people[i].Events, e)
		}
	}
	return errors.NewStore("select", "person_events", rows.Err())
}

func (s *Store) loadNotes(ctx context.Context, where squirrel.Eq, people []lineage.Person, index map[string]int) error {
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "person_id", "type", "body", "event_label", "note_date_text",
	).From("notes").Where(where).OrderBy("seq"), "notes")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var n lineage.Note
		var personID, noteType string
		if err := rows.Scan(&n.ID, &personID, &noteType, &n.Text, &n.Event, &n.Date); err != nil {
			return errors.NewStore("scan", "notes", err)
		}
		n.Type = lineage.NoteType(noteType)
		if i, ok := index[personID]; ok {
			people[i].Notes = append(people[i].Notes, n)
		}
	}
	return errors.NewStore("select", "notes", rows.Err())
}

func (s *Store) loadSources(ctx context.Context, where squirrel.Eq) (map[string]sourceRecord, error) {
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "external_id", "title", "type", "repository", "url", "citation_date_text",
		"page", "reliability", "actual_text", "abbreviation", "call_number",
	).From("sources").Where(where), "sources")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make(map[string]sourceRecord)
	for rows.Next() {
		var r sourceRecord
		if err := rows.Scan(&r.id, &r.externalID, &r.title, &r.sourceType, &r.repository, &r.url,
			&r.citationDate, &r.page, &r.reliability, &r.actualText, &r.abbreviation, &r.callNumber); err != nil {
			return nil, errors.NewStore("scan", "sources", err)
		}
		sources[r.id] = r
	}
	return sources, errors.NewStore("select", "sources", rows.Err())
}

// loadCitations rebuilds each person's Sources and Citations from citation
// rows: every row yields one citation and one source entry keyed
// "<source id>:<citation id>".
func (s *Store) loadCitations(ctx context.Context, where squirrel.Eq, people []lineage.Person, index map[string]int) error {
	sources, err := s.loadSources(ctx, where)
	if err != nil {
		return err
	}
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "source_id", "person_id", "event_label", "label", "page_text",
		"data_date", "data_text", "quality", "inline_notes", "note",
	).From("citations").Where(where).OrderBy("seq"), "citations")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c           lineage.Citation
			inlineNotes string
		)
		if err := rows.Scan(&c.ID, &c.SourceID, &c.PersonID, &c.EventLabel, &c.Label, &c.Page,
			&c.DataDate, &c.DataText, &c.Quality, &inlineNotes, &c.Note); err != nil {
			return errors.NewStore("scan", "citations", err)
		}
		src, ok := sources[c.SourceID]
		i, found := index[c.PersonID]
		if !ok || !found {
			continue
		}
		page := c.Page
		if page == "" {
			page = src.page
		}
		text := c.DataText
		if text == "" {
			text = src.actualText
		}
		reliability := src.reliability
		if c.Quality != "" {
			reliability = qualityReliability(c.Quality)
		}
		people[i].Citations = append(people[i].Citations, c)
		people[i].Sources = append(people[i].Sources, lineage.Source{
			ID:           src.id + ":" + c.ID,
			ExternalID:   src.externalID,
			Title:        src.title,
			Type:         lineage.SourceType(src.sourceType),
			URL:          src.url,
			Repository:   src.repository,
			CitationDate: src.citationDate,
			Page:         page,
			Reliability:  reliability,
			ActualText:   text,
			Notes:        inlineNotes,
			Abbreviation: src.abbreviation,
			CallNumber:   src.callNumber,
			Event:        c.EventLabel,
		})
	}
	return errors.NewStore("select", "citations", rows.Err())
}

func qualityReliability(quay string) int {
	switch quay {
	case "3":
		return 3
	case "2":
		return 2
	default:
		return 1
	}
}

func (s *Store) loadRelationships(ctx context.Context, where squirrel.Eq) ([]lineage.Relationship, error) {
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "type", "person_id", "related_id", "date_text", "place_text", "notes", "status", "confidence",
	).From("relationships").Where(where).OrderBy("created_at", "seq"), "relationships")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rels := []lineage.Relationship{}
	for rows.Next() {
		var (
			r                           lineage.Relationship
			relType, status, confidence string
		)
		if err := rows.Scan(&r.ID, &relType, &r.PersonID, &r.RelatedID, &r.Date, &r.Place,
			&r.Notes, &status, &confidence); err != nil {
			return nil, errors.NewStore("scan", "relationships", err)
		}
		r.Type = lineage.RelationshipType(relType)
		r.Status = lineage.RelationshipStatus(status)
		r.Confidence = lineage.Confidence(confidence)
		rels = append(rels, r)
	}
	return rels, errors.NewStore("select", "relationships", rows.Err())
}

// ListImports returns a tree's import history, newest first.
func (s *Store) ListImports(ctx context.Context, treeID string) ([]ImportRecord, error) {
	if _, err := s.GetTree(ctx, treeID); err != nil {
		return nil, err
	}
	rows, err := query(ctx, s.db, s.sq.Select(
		"id", "tree_id", "file_name", "actor_name", "status", "sha256", "blake3", "bundle_key",
		"people", "relationships", "skipped_relationships", "events", "notes", "sources",
		"citations", "warnings", "created_at",
	).From("gedcom_imports").Where(squirrel.Eq{"tree_id": treeID}).OrderBy("created_at DESC"), "gedcom_imports")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []ImportRecord{}
	for rows.Next() {
		var r ImportRecord
		var warnings string
		if err := rows.Scan(&r.ID, &r.TreeID, &r.FileName, &r.Actor, &r.Status, &r.SHA256, &r.BLAKE3,
			&r.BundleKey, &r.People, &r.Relationships, &r.SkippedRelationships, &r.Events, &r.Notes,
			&r.Sources, &r.Citations, &warnings, &r.CreatedAt); err != nil {
			return nil, errors.NewStore("scan", "gedcom_imports", err)
		}
		if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
			return nil, errors.NewStore("decode warnings", "gedcom_imports", err)
		}
		records = append(records, r)
	}
	return records, errors.NewStore("select", "gedcom_imports", rows.Err())
}

// ListAudit returns the newest audit entries of a tree.
func (s *Store) ListAudit(ctx context.Context, treeID string, limit int) ([]AuditEntry, error) {
	b := s.sq.Select("id", "actor_name", "action", "entity_type", "entity_id", "details", "created_at").
		From("audit_logs").Where(squirrel.Eq{"tree_id": treeID}).OrderBy("created_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	rows, err := query(ctx, s.db, b, "audit_logs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, errors.NewStore("scan", "audit_logs", err)
		}
		entries = append(entries, e)
	}
	return entries, errors.NewStore("select", "audit_logs", rows.Err())
}
