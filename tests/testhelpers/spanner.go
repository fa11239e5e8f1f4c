package testhelpers

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/gcloud"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kndndrj/spanalytics/adapters"
	"github.com/kndndrj/spanalytics/core"
)

const (
	spannerProject  = "test-project"
	spannerInstance = "test"
	spannerDatabase = "test"
)

// SpannerContainer is a test container for the Spanner emulator.
type SpannerContainer struct {
	*gcloud.GCloudContainer
	ConnURL string
	Driver  *core.Connection
}

// NewSpannerContainer starts the Spanner emulator, creates a database with
// the sample table and connects to it. The params.URL is overwritten if empty.
func NewSpannerContainer(ctx context.Context, params *core.ConnectionParams) (*SpannerContainer, error) {
	ddl, err := GetTestDataStatements("spanner_seed.sql")
	if err != nil {
		return nil, err
	}

	ctr, err := gcloud.RunSpanner(
		ctx,
		"gcr.io/cloud-spanner-emulator/emulator:1.5.28",
		gcloud.WithProjectID(spannerProject),
		tc.CustomizeRequest(tc.GenericContainerRequest{
			ProviderType: GetContainerProvider(),
			ContainerRequest: tc.ContainerRequest{
				ImagePlatform: "linux/amd64",
			},
		}),
	)
	if err != nil {
		return nil, err
	}

	if err := seedSpanner(ctx, ctr.URI, ddl); err != nil {
		return nil, err
	}

	connURL := adapters.SpannerURL(spannerProject, spannerInstance, spannerDatabase, url.Values{
		"endpoint":        {ctr.URI},
		"max-concurrency": {"4"},
	})
	if params.Type == "" {
		params.Type = "spanner"
	}

	if params.URL == "" {
		params.URL = connURL
	}

	driver, err := adapters.NewConnection(params)
	if err != nil {
		return nil, err
	}

	return &SpannerContainer{
		GCloudContainer: ctr,
		ConnURL:         connURL,
		Driver:          driver,
	}, nil
}

// NewDriver helper function to create a new driver with the connection URL.
func (p *SpannerContainer) NewDriver(params *core.ConnectionParams) (*core.Connection, error) {
	if params.URL == "" {
		params.URL = p.ConnURL
	}
	if params.Type == "" {
		params.Type = "spanner"
	}
	return adapters.NewConnection(params)
}

func emulatorOptions(endpoint string) []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(endpoint),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		option.WithoutAuthentication(),
	}
}

func seedSpanner(ctx context.Context, endpoint string, ddl []string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	opts := emulatorOptions(endpoint)

	instanceAdmin, err := instance.NewInstanceAdminClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("instance.NewInstanceAdminClient: %w", err)
	}
	defer instanceAdmin.Close()

	instanceOp, err := instanceAdmin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + spannerProject,
		InstanceId: spannerInstance,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", spannerProject),
			DisplayName: spannerInstance,
			NodeCount:   1,
		},
	})
	if err != nil {
		return fmt.Errorf("instanceAdmin.CreateInstance: %w", err)
	}
	if _, err := instanceOp.Wait(ctx); err != nil {
		return fmt.Errorf("instanceOp.Wait: %w", err)
	}

	databaseAdmin, err := database.NewDatabaseAdminClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("database.NewDatabaseAdminClient: %w", err)
	}
	defer databaseAdmin.Close()

	databaseOp, err := databaseAdmin.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          fmt.Sprintf("projects/%s/instances/%s", spannerProject, spannerInstance),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", spannerDatabase),
		ExtraStatements: ddl,
	})
	if err != nil {
		return fmt.Errorf("databaseAdmin.CreateDatabase: %w", err)
	}
	if _, err := databaseOp.Wait(ctx); err != nil {
		return fmt.Errorf("databaseOp.Wait: %w", err)
	}

	client, err := spanner.NewClient(ctx,
		fmt.Sprintf("projects/%s/instances/%s/databases/%s", spannerProject, spannerInstance, spannerDatabase),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("spanner.NewClient: %w", err)
	}
	defer client.Close()

	if _, err := client.Apply(ctx, sampleMutations()); err != nil {
		return fmt.Errorf("client.Apply: %w", err)
	}

	return nil
}

var sampleColumns = []string{
	"bool", "int64", "float64", "timestamp", "date", "string", "bytes", "numeric", "json",
	"array_bool", "array_int64", "array_float64", "array_timestamp", "array_date",
	"array_string", "array_bytes", "array_numeric", "array_json",
}

// sampleMutations inserts the same rows as mock.SampleRows.
func sampleMutations() []*spanner.Mutation {
	ts := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			panic(err)
		}
		return t
	}
	date := func(s string) civil.Date {
		d, err := civil.ParseDate(s)
		if err != nil {
			panic(err)
		}
		return d
	}
	num := func(s string) big.Rat {
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			panic("invalid numeric " + s)
		}
		return *r
	}
	js := func(v any) spanner.NullJSON {
		return spanner.NullJSON{Value: v, Valid: true}
	}

	rows := [][]any{
		{
			true, int64(1), 1.1, ts("2000-01-01T01:01:01.000001Z"), date("2000-01-01"), "aaa", []byte("000"),
			num("1.000000001"), js(map[string]any{"a": 1}),
			[]bool{true},
			[]int64{1, 4},
			[]float64{1.1},
			[]time.Time{ts("2000-01-01T01:01:01.000001Z")},
			[]civil.Date{date("2000-01-01")},
			[]string{"aaa"},
			[][]byte{[]byte("000")},
			[]big.Rat{num("1.000000001")},
			[]spanner.NullJSON{js(map[string]any{"a": 1})},
		},
		{
			false, int64(2), 2.2, ts("2000-02-02T02:02:02.000002Z"), date("2000-02-02"), "bbb", []byte("111"),
			num("2.000000002"), js(map[string]any{"b": 2}),
			[]bool{false},
			[]int64{2, 5},
			[]float64{2.2},
			[]time.Time{ts("2000-02-02T02:02:02.000002Z")},
			[]civil.Date{date("2000-02-02")},
			[]string{"bbb"},
			[][]byte{[]byte("111")},
			[]big.Rat{num("2.000000002")},
			[]spanner.NullJSON{js(map[string]any{"b": 2})},
		},
		{
			true, int64(3), 3.3, ts("2000-03-03T03:03:03.000003Z"), date("2000-03-03"), "ccc", []byte("222"),
			num("3.000000003"), js(map[string]any{"c": 3}),
			[]bool{true, false},
			[]int64{3, 6, 9},
			[]float64{3.3, 4.4},
			[]time.Time{ts("2000-03-03T03:03:03.000003Z"), ts("2000-04-04T04:04:04.000004Z")},
			[]civil.Date{date("2000-03-03"), date("2000-04-04")},
			[]string{"ccc", "ddd"},
			[][]byte{[]byte("222"), []byte("333")},
			[]big.Rat{num("3.000000003"), num("4.000000004")},
			[]spanner.NullJSON{js(map[string]any{"c": 3}), js(map[string]any{"d": 4})},
		},
	}

	mutations := make([]*spanner.Mutation, len(rows))
	for i, row := range rows {
		mutations[i] = spanner.Insert("t", sampleColumns, row)
	}
	return mutations
}
