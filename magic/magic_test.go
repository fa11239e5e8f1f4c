package magic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/kndndrj/spanalytics/config"
	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/core/mock"
	"github.com/kndndrj/spanalytics/frame"
	"github.com/kndndrj/spanalytics/magic"
)

type recordingConnector struct {
	adapter *mock.Adapter
	params  []*core.ConnectionParams
}

func (c *recordingConnector) connect(params *core.ConnectionParams, opts ...core.ConnectionOption) (*core.Connection, error) {
	c.params = append(c.params, params)
	return core.NewConnection(params, c.adapter, opts...)
}

func newSession(t *testing.T, opts ...mock.AdapterOption) (*magic.Session, *recordingConnector) {
	t.Helper()

	rc := &recordingConnector{
		adapter: mock.NewAdapter(mock.SplitChunks(mock.SampleSchema(), mock.SampleRows(), 2), opts...),
	}
	s := magic.NewSession(
		magic.WithConnector(rc.connect),
		magic.WithDefaults(config.Config{Project: "default-project", DataBoost: true}),
	)
	return s, rc
}

func TestSession_Run(t *testing.T) {
	r := require.New(t)

	s, rc := newSession(t)

	table, err := s.Run(context.Background(), "--instance i --database d", "select * from t")
	r.NoError(err)
	r.NotNil(table)
	r.Equal(3, table.NumRows())
	r.Empty(s.Namespace)

	r.Len(rc.params, 1)
	r.Equal("spanner", rc.params[0].Type)
	r.Equal("spanner://default-project/i/d", rc.params[0].URL)
	r.True(rc.adapter.Driver().Stats().DriverClosed)
}

func TestSession_RunBindsDestination(t *testing.T) {
	r := require.New(t)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	rc := &recordingConnector{
		adapter: mock.NewAdapter(mock.SplitChunks(mock.SampleSchema(), mock.SampleRows(), 3)),
	}
	s := magic.NewSession(magic.WithConnector(rc.connect), magic.WithLogger(logger))

	table, err := s.Run(context.Background(), "df --project p --instance i --database d", "select * from t")
	r.NoError(err)
	r.Nil(table)

	bound, err := s.Get("df")
	r.NoError(err)
	r.Equal(3, bound.NumRows())

	ints, err := frame.Get[int64](bound, "int64")
	r.NoError(err)
	r.ElementsMatch([]int64{1, 2, 3}, ints.Values())

	r.Equal(`bound 3 rows to "df"`, hook.LastEntry().Message)
	r.Equal("spanner://p/i/d", rc.params[0].URL)

	_, err = s.Get("other")
	r.Error(err)
}

func TestSession_RunWithoutLogger(t *testing.T) {
	r := require.New(t)

	rc := &recordingConnector{
		adapter: mock.NewAdapter(mock.SplitChunks(mock.SampleSchema(), mock.SampleRows(), 1)),
	}
	s := magic.NewSession(magic.WithConnector(rc.connect), magic.WithLogger(nil))

	table, err := s.Run(context.Background(), "df --project p --instance i --database d", "select * from t")
	r.NoError(err)
	r.Nil(table)

	bound, err := s.Get("df")
	r.NoError(err)
	r.Equal(3, bound.NumRows())
}

func TestSession_RunErrors(t *testing.T) {
	queryErr := errors.New("Query is not root partitionable")

	tests := []struct {
		name  string
		line  string
		query string
		check func(r *require.Assertions, err error)
	}{
		{
			name:  "missing instance",
			line:  "--database d",
			query: "select 1",
			check: func(r *require.Assertions, err error) { r.ErrorIs(err, config.ErrMissingInstance) },
		},
		{
			name:  "missing database",
			line:  "--instance i",
			query: "select 1",
			check: func(r *require.Assertions, err error) { r.ErrorIs(err, config.ErrMissingDatabase) },
		},
		{
			name:  "empty query",
			line:  "--instance i --database d",
			query: "  \n",
			check: func(r *require.Assertions, err error) { r.ErrorIs(err, magic.ErrEmptyQuery) },
		},
		{
			name:  "invalid arguments",
			line:  "--nope",
			query: "select 1",
			check: func(r *require.Assertions, err error) { r.Error(err) },
		},
		{
			name:  "failing query",
			line:  "--instance i --database d",
			query: "bad",
			check: func(r *require.Assertions, err error) {
				var partErr *core.PartitionError
				r.True(errors.As(err, &partErr))
				r.ErrorIs(err, queryErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)

			s, _ := newSession(t, mock.AdapterWithQuerySideEffect("bad", func(context.Context) error {
				return queryErr
			}))

			table, err := s.Run(context.Background(), tt.line, tt.query)
			r.Nil(table)
			tt.check(r, err)
			r.Empty(s.Namespace)
		})
	}
}

func TestSession_RunMissingProject(t *testing.T) {
	r := require.New(t)

	rc := &recordingConnector{adapter: mock.NewAdapter(nil)}
	s := magic.NewSession(magic.WithConnector(rc.connect))

	_, err := s.Run(context.Background(), "--instance i --database d", "select 1")
	r.ErrorIs(err, config.ErrMissingProject)
	r.Empty(rc.params)
}

func TestSession_RunCell(t *testing.T) {
	r := require.New(t)

	s, _ := newSession(t)

	cell := "%%spanner result --instance i --database d\nselect *\nfrom t\n"
	table, err := s.RunCell(context.Background(), cell)
	r.NoError(err)
	r.Nil(table)

	bound, err := s.Get("result")
	r.NoError(err)
	r.Equal(3, bound.NumRows())
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		name      string
		cell      string
		wantLine  string
		wantQuery string
		wantErr   error
	}{
		{
			name:      "header with arguments",
			cell:      "%%spanner df --database d\nselect 1\n",
			wantLine:  "df --database d",
			wantQuery: "select 1",
		},
		{
			name:      "bare header and leading blank lines",
			cell:      "\n\n%%spanner\n  select *\n  from t\n\n",
			wantLine:  "",
			wantQuery: "select *\n  from t",
		},
		{
			name:    "other magic",
			cell:    "%%bigquery\nselect 1",
			wantErr: magic.ErrNotSpannerCell,
		},
		{
			name:    "header prefix only",
			cell:    "%%spannerx\nselect 1",
			wantErr: magic.ErrNotSpannerCell,
		},
		{
			name:    "no body",
			cell:    "%%spanner df",
			wantErr: magic.ErrEmptyQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)

			line, query, err := magic.ParseCell(tt.cell)
			if tt.wantErr != nil {
				r.ErrorIs(err, tt.wantErr)
				return
			}
			r.NoError(err)
			r.Equal(tt.wantLine, line)
			r.Equal(tt.wantQuery, query)
		})
	}
}
