package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/FocuswithJustin/Linegra/core/capsule"
	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/gedcom"
	"github.com/FocuswithJustin/Linegra/core/lineage"
	"github.com/FocuswithJustin/Linegra/internal/api"
	"github.com/FocuswithJustin/Linegra/internal/importer"
	"github.com/FocuswithJustin/Linegra/internal/logging"
	"github.com/FocuswithJustin/Linegra/internal/report"
	"github.com/FocuswithJustin/Linegra/internal/watch"
)

// ParseCmd parses a document and prints the result.
type ParseCmd struct {
	File   string `arg:"" help:"Document to parse" type:"existingfile"`
	Format string `help:"Output format" enum:"json,yaml" default:"json"`
	Out    string `help:"Write to file instead of stdout" type:"path"`
}

func (c *ParseCmd) Run(e *env) error {
	data, err := e.readDocument(c.File)
	if err != nil {
		return err
	}
	result := gedcom.ParseBytes(data)
	out, err := marshal(result, c.Format)
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	stats := result.Stats()
	logging.Info("document parsed", "file", c.File, "people", stats.People,
		"relationships", stats.Relationships, "warnings", stats.Warnings)
	return e.output(c.Out, out)
}

// ConvertCmd round-trips a document through the engine.
type ConvertCmd struct {
	File string `arg:"" help:"Document to convert" type:"existingfile"`
	Out  string `help:"Output document" type:"path" required:""`
}

func (c *ConvertCmd) Run(e *env) error {
	data, err := e.readDocument(c.File)
	if err != nil {
		return err
	}
	result := gedcom.ParseBytes(data)
	text, loss := gedcom.ExportWithReport(result.People, result.Relationships)
	if err := e.output(c.Out, []byte(text)); err != nil {
		return err
	}
	e.printf("Wrote %s (%d people, %d relationships)\n", c.Out, len(result.People), len(result.Relationships))
	printLossReport(e, loss)
	return nil
}

func printLossReport(e *env, loss *lineage.LossReport) {
	e.printf("Loss class: %s\n", loss.LossClass)
	counts := loss.CountByType()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		e.printf("  %-20s %d\n", k, counts[k])
	}
	for _, w := range loss.Warnings {
		e.printf("Note: %s\n", w)
	}
}

// ImportCmd imports a document into a tree.
type ImportCmd struct {
	File     string `arg:"" help:"Document to import" type:"existingfile"`
	Tree     string `help:"Target tree id" xor:"tree" required:""`
	TreeName string `name:"tree-name" help:"Create a new tree with this name and import into it" xor:"tree" required:""`
}

func (c *ImportCmd) Run(e *env) error {
	data, err := e.readDocument(c.File)
	if err != nil {
		return err
	}
	svc, closeFn, err := e.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	treeID := c.Tree
	if c.TreeName != "" {
		tree, err := svc.Archive().CreateTree(e.ctx, c.TreeName, "")
		if err != nil {
			return err
		}
		treeID = tree.ID
		e.printf("Created tree %s (%s)\n", tree.ID, tree.Name)
	}

	out, err := svc.Import(e.ctx, importer.Request{TreeID: treeID, Name: filepath.Base(c.File), Data: data},
		func(p importer.Progress) {
			fmt.Fprintf(e.stderr, "[%3d%%] %s: %s\n", p.Percent, p.Stage, p.Message)
		})
	if err != nil {
		return err
	}
	printOutcome(e, out)
	return nil
}

func printOutcome(e *env, out *importer.Outcome) {
	s := out.Summary
	e.printf("Imported %d people, %d relationships into tree %s (import %s)\n",
		s.People, s.Relationships, s.TreeID, s.ImportID)
	if s.SkippedRelationships > 0 {
		e.printf("Skipped %d relationships with missing people\n", s.SkippedRelationships)
	}
	e.printf("Bundle: %s\n", out.BundleKey)
	for _, w := range out.Warnings {
		e.printf("Warning: %s\n", w)
	}
}

// ExportCmd exports a stored tree.
type ExportCmd struct {
	Tree string `help:"Tree id" required:""`
	Out  string `help:"Write to file instead of stdout" type:"path"`
}

func (c *ExportCmd) Run(e *env) error {
	store, err := e.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := store.LoadDataset(e.ctx, c.Tree)
	if err != nil {
		return err
	}
	return e.output(c.Out, []byte(gedcom.ExportDataset(ds)))
}

// ReportCmd writes the XLSX report of a tree.
type ReportCmd struct {
	Tree string `help:"Tree id" required:""`
	Out  string `help:"Output workbook" type:"path" required:""`
}

func (c *ReportCmd) Run(e *env) error {
	store, err := e.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	tree, err := store.GetTree(e.ctx, c.Tree)
	if err != nil {
		return err
	}
	ds, err := store.LoadDataset(e.ctx, c.Tree)
	if err != nil {
		return err
	}
	imports, err := store.ListImports(e.ctx, c.Tree)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, report.Input{Tree: tree, Dataset: ds, Imports: imports}); err != nil {
		return err
	}
	if err := e.output(c.Out, buf.Bytes()); err != nil {
		return err
	}
	e.printf("Wrote %s\n", c.Out)
	return nil
}

// TreesCmd groups tree management.
type TreesCmd struct {
	List   TreesListCmd   `cmd:"" help:"List trees"`
	Create TreesCreateCmd `cmd:"" help:"Create an empty tree"`
	Delete TreesDeleteCmd `cmd:"" help:"Delete a tree and everything imported into it"`
}

type TreesListCmd struct{}

func (c *TreesListCmd) Run(e *env) error {
	store, err := e.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	trees, err := store.ListTrees(e.ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPEOPLE\tRELATIONSHIPS\tUPDATED")
	for _, t := range trees {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", t.ID, t.Name, t.PersonCount, t.RelationshipCount, t.UpdatedAt)
	}
	return tw.Flush()
}

type TreesCreateCmd struct {
	Name        string `arg:"" help:"Tree name"`
	Description string `help:"Tree description"`
}

func (c *TreesCreateCmd) Run(e *env) error {
	store, err := e.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	tree, err := store.CreateTree(e.ctx, c.Name, c.Description)
	if err != nil {
		return err
	}
	e.printf("Created tree %s (%s)\n", tree.ID, tree.Name)
	return nil
}

type TreesDeleteCmd struct {
	ID string `arg:"" help:"Tree id"`
}

func (c *TreesDeleteCmd) Run(e *env) error {
	store, err := e.openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteTree(e.ctx, c.ID); err != nil {
		return err
	}
	e.printf("Deleted tree %s\n", c.ID)
	return nil
}

// BundleCmd groups bundle operations.
type BundleCmd struct {
	Create  BundleCreateCmd  `cmd:"" help:"Parse a document and pack it with its result"`
	Inspect BundleInspectCmd `cmd:"" help:"Verify a bundle and print its manifest"`
}

type BundleCreateCmd struct {
	File        string `arg:"" help:"Document to bundle" type:"existingfile"`
	Out         string `help:"Output bundle (default: document name plus extension)" type:"path"`
	Compression string `help:"Compression (xz, gzip); defaults to the configured one"`
}

func (c *BundleCreateCmd) Run(e *env) error {
	data, err := e.readDocument(c.File)
	if err != nil {
		return err
	}
	name := c.Compression
	if name == "" {
		name = e.cfg.Import.Compression
	}
	compression, err := capsule.ParseCompression(name)
	if err != nil {
		return err
	}

	bundle, err := capsule.New(filepath.Base(c.File), data, gedcom.ParseBytes(data))
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = strings.TrimSuffix(c.File, filepath.Ext(c.File)) + compression.Extension()
	}
	if err := bundle.PackFile(out, &capsule.PackOptions{Compression: compression}); err != nil {
		return err
	}
	e.printf("Wrote %s (%d people, %d warnings)\n", out, bundle.Manifest.Stats.People, bundle.Manifest.Stats.Warnings)
	return nil
}

type BundleInspectCmd struct {
	Bundle string `arg:"" help:"Bundle file" type:"existingfile"`
}

func (c *BundleInspectCmd) Run(e *env) error {
	bundle, err := capsule.Open(c.Bundle)
	if err != nil {
		return err
	}
	if err := bundle.Verify(); err != nil {
		return fmt.Errorf("bundle %s failed verification: %w", c.Bundle, err)
	}

	m := bundle.Manifest
	e.printf("Bundle:    %s (format %s, %s %s)\n", c.Bundle, m.CapsuleVersion, m.Tool.Name, m.Tool.Version)
	e.printf("Created:   %s\n", m.CreatedAt)
	e.printf("Document:  %s (%d bytes)\n", m.Document.Name, m.Document.SizeBytes)
	e.printf("SHA-256:   %s\n", m.Document.SHA256)
	e.printf("BLAKE3:    %s\n", m.Document.BLAKE3)
	e.printf("People: %d  Relationships: %d  Events: %d  Sources: %d  Citations: %d  Notes: %d\n",
		m.Stats.People, m.Stats.Relationships, m.Stats.Events, m.Stats.Sources, m.Stats.Citations, m.Stats.Notes)
	e.printf("Entries:\n")
	for _, p := range bundle.Paths() {
		entry := m.Entries[p]
		if entry == nil {
			continue
		}
		e.printf("  %-40s %-9s %8d\n", p, entry.Kind, entry.SizeBytes)
	}
	for _, w := range bundle.Warnings() {
		e.printf("Warning: %s\n", w)
	}
	return nil
}

// ServeCmd runs the REST API.
type ServeCmd struct {
	Addr string `help:"Listen address; overrides the configuration"`
}

func (c *ServeCmd) Run(e *env) error {
	svc, closeFn, err := e.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	cfg := e.cfg.Server
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	srv := api.New(cfg, svc)
	defer srv.Close()
	return srv.ListenAndServe(e.ctx)
}

// WatchCmd imports every document that settles in a directory.
type WatchCmd struct {
	Dir      string   `arg:"" help:"Directory to watch" type:"existingdir"`
	Tree     string   `help:"Target tree id" required:""`
	Existing bool     `help:"Also import matching files already in the directory"`
	Pattern  []string `help:"File name glob; overrides the configured patterns"`
}

func (c *WatchCmd) Run(e *env) error {
	svc, closeFn, err := e.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := svc.Archive().GetTree(e.ctx, c.Tree); err != nil {
		return err
	}

	opts := watch.FromConfig(e.cfg.Watch)
	opts.Existing = c.Existing
	if len(c.Pattern) > 0 {
		opts.Patterns = c.Pattern
	}
	w, err := watch.New(c.Dir, opts, importHandler(e, svc, c.Tree))
	if err != nil {
		return err
	}
	e.printf("Watching %s for tree %s\n", c.Dir, c.Tree)
	return w.Run(e.ctx)
}

// importHandler imports one settled file into treeID.
func importHandler(e *env, svc *importer.Service, treeID string) watch.Handler {
	return func(ctx context.Context, path string) error {
		data, err := e.readDocument(path)
		if err != nil {
			return err
		}
		out, err := svc.Import(ctx, importer.Request{TreeID: treeID, Name: filepath.Base(path), Data: data}, nil)
		if err != nil {
			if errors.Is(err, errors.ErrCanceled) {
				return nil
			}
			return err
		}
		printOutcome(e, out)
		return nil
	}
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	e.printf("linegra version %s (bundle format %s)\n", capsule.ToolVersion, capsule.Version)
	return nil
}
