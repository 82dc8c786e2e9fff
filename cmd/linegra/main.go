// Command linegra parses, converts, archives and serves genealogical
// interchange documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/internal/archive"
	"github.com/FocuswithJustin/Linegra/internal/config"
	"github.com/FocuswithJustin/Linegra/internal/importer"
	"github.com/FocuswithJustin/Linegra/internal/logging"
	"github.com/FocuswithJustin/Linegra/internal/storage"
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `help:"YAML configuration file" type:"path" placeholder:"FILE"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error); overrides the configuration" placeholder:"LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (json, text); overrides the configuration" placeholder:"FORMAT"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Parse   ParseCmd   `cmd:"" help:"Parse a document and print the result"`
	Convert ConvertCmd `cmd:"" help:"Parse a document and write it back out, reporting what was lost"`
	Import  ImportCmd  `cmd:"" help:"Import a document into a tree"`
	Export  ExportCmd  `cmd:"" help:"Export a tree as a document"`
	Report  ReportCmd  `cmd:"" help:"Write an XLSX report of a tree"`
	Trees   TreesCmd   `cmd:"" help:"Manage trees"`
	Bundle  BundleCmd  `cmd:"" help:"Create and inspect import bundles"`
	Serve   ServeCmd   `cmd:"" help:"Start the REST API server"`
	Watch   WatchCmd   `cmd:"" help:"Import documents dropped into a directory"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// env is bound into every command's Run method.
type env struct {
	ctx    context.Context
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "linegra:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("linegra"),
		kong.Description("Linegra - genealogical interchange engine"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if err := initLogging(stderr, cfg.Log, cli.Globals); err != nil {
		return err
	}
	return kctx.Run(&env{ctx: ctx, cfg: cfg, stdout: stdout, stderr: stderr})
}

func initLogging(w io.Writer, cfg config.LogConfig, g Globals) error {
	levelName, formatName := cfg.Level, cfg.Format
	if g.LogLevel != "" {
		levelName = g.LogLevel
	}
	if g.LogFormat != "" {
		formatName = g.LogFormat
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return err
	}
	logging.InitLoggerTo(w, level, format)
	return nil
}

func (e *env) openArchive() (*archive.Store, error) {
	return archive.Open(e.ctx, e.cfg.Database)
}

// openService opens the archive and blob store behind an import service.
// The returned func closes the archive.
func (e *env) openService() (*importer.Service, func(), error) {
	store, err := e.openArchive()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := storage.New(e.ctx, e.cfg.Storage)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc, err := importer.New(store, blobs, e.cfg.Import)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, func() { store.Close() }, nil
}

func (e *env) readDocument(path string) ([]byte, error) {
	return importer.ReadDocument(path, e.cfg.Server.MaxUploadBytes)
}

// output writes data to path, or to stdout when path is empty.
func (e *env) output(path string, data []byte) error {
	if path == "" {
		_, err := e.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.stdout, format, args...)
}

// marshal renders v as indented JSON or as YAML with the same keys.
func marshal(v any, format string) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	if format != "yaml" {
		return append(data, '\n'), nil
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
