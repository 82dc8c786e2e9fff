package gedcom

import (
	"fmt"

	"github.com/FocuswithJustin/Linegra/core/lineage"
)

// person flattens a finished individual draft.
func (p *parser) person(d *IndividualDraft) lineage.Person {
	per := lineage.Person{
		ID:          d.ID,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Gender:      lineage.ParseGender(d.Sex),
		BirthDate:   d.BirthDate,
		BirthPlace:  d.BirthPlace,
		DeathDate:   d.DeathDate,
		DeathPlace:  d.DeathPlace,
		DeathCause:  d.DeathCause,
		BurialDate:  d.BurialDate,
		BurialPlace: d.BurialPlace,
		Occupations: d.Occupations,
		UpdatedAt:   d.UpdatedAt,
		Events:      make([]lineage.Event, 0, len(d.Events)),
		Sources:     []lineage.Source{},
		Citations:   []lineage.Citation{},
		Notes:       make([]lineage.Note, 0, len(d.Notes)),
	}

	for _, alt := range d.AlternateNames {
		per.AlternateNames = append(per.AlternateNames, *alt)
	}
	for _, ev := range d.Events {
		per.Events = append(per.Events, lineage.Event{
			ID:          ev.ID,
			Type:        ev.Type,
			Date:        ev.Date,
			Place:       ev.Place,
			Description: ev.Description,
			Employer:    ev.Employer,
		})
	}
	for i, n := range d.Notes {
		per.Notes = append(per.Notes, lineage.Note{
			ID:    fmt.Sprintf("note-%s-%d", d.ID, i+1),
			Text:  n.Text,
			Type:  lineage.NoteResearch,
			Event: n.Event,
		})
	}

	p.linkSources(d, &per)
	return per
}
