// Package lineage defines the normalized genealogical entities that leave
// the GEDCOM engine and flow into storage, export and reporting.
//
// # Entities
//
//   - Person: one genealogical subject, with birth/death/burial promoted to
//     top-level fields and every other life event kept in Events
//   - Relationship: a typed, directed edge between two persons
//     (marriage, bio_father, bio_mother)
//   - Source / Citation: evidence attached to a person, optionally scoped
//     to one life event by its label
//   - Note: free text attached to a person
//
// A Dataset bundles persons and relationships the way the serializer and
// the persistence layer exchange them.
//
// # Loss Classification
//
// Export to GEDCOM covers a narrower field set than import accepts. A
// LossReport records what a conversion dropped and classifies the result:
//
//   - L0: Lossless
//   - L1: Identifiers or formatting changed, facts preserved
//   - L2: Narrative detail lost (events, notes, alternate names)
//   - L3: Evidence lost (sources, citations)
//   - L4: Only names and links preserved
package lineage
