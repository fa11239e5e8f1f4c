package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/kndndrj/spanalytics/adapters"
	"github.com/kndndrj/spanalytics/config"
	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/format"
	"github.com/kndndrj/spanalytics/frame"
	"github.com/kndndrj/spanalytics/logger"
	"github.com/kndndrj/spanalytics/magic"
)

type connectionFlags struct {
	Project        string `help:"Google Cloud project of the database."`
	Instance       string `help:"Spanner instance."`
	Database       string `help:"Spanner database."`
	Endpoint       string `help:"Spanner endpoint, e.g. an emulator at localhost:9010."`
	Credentials    string `help:"Path to a service account credentials file." type:"path"`
	MaxConcurrency int    `help:"Number of partitions read at the same time. Defaults to the number of CPUs."`
}

func (f *connectionFlags) apply(cfg *config.Config) {
	if f.Project != "" {
		cfg.Project = f.Project
	}
	if f.Instance != "" {
		cfg.Instance = f.Instance
	}
	if f.Database != "" {
		cfg.Database = f.Database
	}
	if f.Endpoint != "" {
		cfg.Endpoint = f.Endpoint
	}
	if f.Credentials != "" {
		cfg.Credentials = f.Credentials
	}
	if f.MaxConcurrency > 0 {
		cfg.MaxConcurrency = f.MaxConcurrency
	}
}

type outputFlags struct {
	Format string `help:"Output format (arrow, csv, json or table)." short:"f"`
	Output string `help:"File to write the result to. Defaults to stdout." short:"o" type:"path"`
}

func (f *outputFlags) apply(cfg *config.Config) {
	if f.Format != "" {
		cfg.Format = f.Format
	}
}

func (f *outputFlags) write(cfg *config.Config, table *frame.Table) error {
	formatter, err := format.New(cfg.Format)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if f.Output != "" {
		file, err := os.Create(f.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	return formatter.Format(table, w)
}

type app struct {
	ctx context.Context
	cfg *config.Config
	log *logrus.Logger
}

type queryCmd struct {
	connectionFlags `embed:""`
	outputFlags     `embed:""`

	SQL    string `arg:"" optional:"" help:"Query to run. Read from --file or stdin if empty."`
	File   string `help:"File with the query." type:"existingfile"`
	Params string `help:"JSON object with query parameters." default:"{}"`
}

func (c *queryCmd) Run(a *app) error {
	c.connectionFlags.apply(a.cfg)
	c.outputFlags.apply(a.cfg)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	sql, err := readInput(c.SQL, c.File)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sql) == "" {
		return magic.ErrEmptyQuery
	}

	params, err := magic.DecodeParams(c.Params)
	if err != nil {
		return fmt.Errorf("invalid --params: %w", err)
	}

	stmt := core.NewStatement(sql)
	if len(params) > 0 {
		stmt.Params = params
	}

	table, err := adapters.ExecuteSQL(a.ctx, a.cfg.ConnectionParams(), stmt, core.ConnectionWithLogger(a.log))
	if err != nil {
		return err
	}

	return c.outputFlags.write(a.cfg, table)
}

type cellCmd struct {
	connectionFlags `embed:""`
	outputFlags     `embed:""`

	File string `arg:"" optional:"" help:"File with a %%spanner cell. Read from stdin if empty." type:"existingfile"`
}

func (c *cellCmd) Run(a *app) error {
	c.connectionFlags.apply(a.cfg)
	c.outputFlags.apply(a.cfg)

	cell, err := readInput("", c.File)
	if err != nil {
		return err
	}

	line, query, err := magic.ParseCell(cell)
	if err != nil {
		return err
	}
	args, err := magic.ParseArgs(line)
	if err != nil {
		return err
	}

	session := magic.NewSession(
		magic.WithDefaults(*a.cfg),
		magic.WithLogger(a.log),
		magic.WithConnectionOpts(core.ConnectionWithLogger(a.log)),
	)

	table, err := session.Run(a.ctx, line, query)
	if err != nil {
		return err
	}
	if table == nil {
		table, err = session.Get(args.DestinationVar)
		if err != nil {
			return err
		}
	}

	return c.outputFlags.write(a.cfg, table)
}

func readInput(arg, path string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if path != "" {
		b, err := os.ReadFile(path)
		return string(b), err
	}
	b, err := io.ReadAll(os.Stdin)
	return string(b), err
}

var cli struct {
	Config   string `help:"Path to a config file (yaml, json or toml)." type:"existingfile"`
	LogLevel string `help:"Lowest log level that will be emitted (trace, debug, info, warn or error)."`
	LogFile  string `help:"File to append logs to."`

	Query queryCmd `cmd:"" help:"Run a query with Data Boost and print the result."`
	Cell  cellCmd  `cmd:"" help:"Run a %%spanner notebook cell."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("spanalytics"),
		kong.Description("Partitioned Spanner queries into typed tables."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)

	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}

	log, closer, err := logger.New(cfg.Log)
	kctx.FatalIfErrorf(err)
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = kctx.Run(&app{ctx: ctx, cfg: cfg, log: log})
	if err != nil {
		log.Error(err)
		closer.Close()
		kctx.Exit(1)
	}
}
