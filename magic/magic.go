package magic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kndndrj/spanalytics/adapters"
	"github.com/kndndrj/spanalytics/config"
	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/frame"
)

// CellHeader is the line that starts every cell handled by this package.
const CellHeader = "%%spanner"

var (
	ErrNotSpannerCell = errors.New("cell does not start with " + CellHeader)
	ErrEmptyQuery     = errors.New("cell has no query")
	ErrNotBound       = func(name string) error {
		return fmt.Errorf("no result bound to %q", name)
	}
)

// Connector opens a connection from params.
type Connector func(params *core.ConnectionParams, opts ...core.ConnectionOption) (*core.Connection, error)

type Option func(*Session)

// WithConnector replaces adapters.NewConnection.
func WithConnector(c Connector) Option {
	return func(s *Session) {
		if c != nil {
			s.connect = c
		}
	}
}

// WithDefaults sets the connection settings used when the cell doesn't
// name its own project, instance or database.
func WithDefaults(cfg config.Config) Option {
	return func(s *Session) {
		s.defaults = cfg
	}
}

func WithLogger(l core.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConnectionOpts are passed to every connection the session opens.
func WithConnectionOpts(opts ...core.ConnectionOption) Option {
	return func(s *Session) {
		s.connOpts = append(s.connOpts, opts...)
	}
}

// Session runs %%spanner cells and keeps the results which were bound to a
// variable.
type Session struct {
	Namespace map[string]*frame.Table

	connect  Connector
	defaults config.Config
	log      core.Logger
	connOpts []core.ConnectionOption
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		Namespace: make(map[string]*frame.Table),
		connect:   adapters.NewConnection,
		defaults:  config.Config{DataBoost: true},
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes query with the arguments in line. If line names a
// destination variable, the result is bound to it and the returned table is
// nil.
func (s *Session) Run(ctx context.Context, line, query string) (*frame.Table, error) {
	args, err := ParseArgs(line)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	cfg := s.defaults
	if args.Project != "" {
		cfg.Project = args.Project
	}
	if args.Instance != "" {
		cfg.Instance = args.Instance
	}
	if args.Database != "" {
		cfg.Database = args.Database
	}
	if err := validateTarget(&cfg); err != nil {
		return nil, err
	}

	conn, err := s.connect(cfg.ConnectionParams(), s.connOpts...)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stmt := core.NewStatement(query)
	if len(args.QueryParams) > 0 {
		stmt.Params = args.QueryParams
	}

	table, err := conn.ExecuteSQL(ctx, stmt)
	if err != nil {
		return nil, err
	}

	if args.DestinationVar == "" {
		return table, nil
	}

	s.Namespace[args.DestinationVar] = table
	s.log.Infof("bound %d rows to %q", table.NumRows(), args.DestinationVar)
	return nil, nil
}

// RunCell is Run on the header and body of a whole cell.
func (s *Session) RunCell(ctx context.Context, cell string) (*frame.Table, error) {
	line, query, err := ParseCell(cell)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, line, query)
}

// Get returns a table bound by an earlier Run.
func (s *Session) Get(name string) (*frame.Table, error) {
	t, ok := s.Namespace[name]
	if !ok {
		return nil, ErrNotBound(name)
	}
	return t, nil
}

// ParseCell splits a cell into the arguments following the header and the
// query body.
func ParseCell(cell string) (line string, query string, err error) {
	cell = strings.TrimLeft(cell, " \t\r\n")

	header, body, _ := strings.Cut(cell, "\n")
	header = strings.TrimSpace(header)

	rest, ok := strings.CutPrefix(header, CellHeader)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", "", ErrNotSpannerCell
	}

	query = strings.TrimSpace(body)
	if query == "" {
		return "", "", ErrEmptyQuery
	}

	return strings.TrimSpace(rest), query, nil
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func validateTarget(cfg *config.Config) error {
	switch {
	case cfg.Project == "":
		return config.ErrMissingProject
	case cfg.Instance == "":
		return config.ErrMissingInstance
	case cfg.Database == "":
		return config.ErrMissingDatabase
	}
	return nil
}
