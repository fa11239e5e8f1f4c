package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/api/option"
	"google.golang.org/api/option/internaloption"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kndndrj/spanalytics/core"
)

// Register client
func init() {
	_ = register(&Spanner{}, "spanner", "cloudspanner")
}

var _ core.Adapter = (*Spanner)(nil)

type Spanner struct{}

// spannerConfig holds everything parsed from a connection url.
type spannerConfig struct {
	project  string
	instance string
	database string

	options        []option.ClientOption
	emulator       bool
	bound          spanner.TimestampBound
	partitionOpts  spanner.PartitionOptions
	queryOpts      spanner.QueryOptions
	maxConcurrency int
}

func (c *spannerConfig) databasePath() string {
	return fmt.Sprintf("projects/%s/instances/%s/databases/%s", c.project, c.instance, c.database)
}

// SpannerURL builds a connection url understood by [Spanner.Connect].
func SpannerURL(project, instance, database string, params url.Values) string {
	u := url.URL{
		Scheme: "spanner",
		Host:   project,
		Path:   "/" + instance + "/" + database,
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// Connect creates a [Spanner] client connected to the database specified
// in the url. The format of the url is as follows:
//
//	spanner://<project>/<instance>/<database>[?options]
//
// Options:
//   - credentials=path/to/creds.json: Path to credentials file
//   - data-boost=bool: Run partitions on Data Boost, defaults to true
//   - max-concurrency=integer: Number of partitions executed at once
//   - max-partitions=integer: Hint for the maximum number of partitions
//   - partition-bytes=integer: Hint for the desired partition size
//   - request-tag=string: Tag attached to every partition request
//   - priority=low|medium|high: Request priority
//   - stale-read=duration: Read at an exact staleness (e.g. 15s) instead of
//     a strong read
//
// For internal testing:
//   - endpoint=host:port: Custom endpoint for the emulator
//
// If credentials are not specified, they will be located according to
// the Google Default Credentials process.
func (s *Spanner) Connect(rawURL string) (core.Driver, error) {
	ctx := context.Background()

	cfg, err := parseSpannerURL(rawURL)
	if err != nil {
		return nil, err
	}

	clientConfig := spanner.ClientConfig{
		SessionPoolConfig: spanner.DefaultSessionPoolConfig,
	}
	// batch transactions create their own sessions
	clientConfig.SessionPoolConfig.MinOpened = 0

	client, err := spanner.NewClientWithConfig(ctx, cfg.databasePath(), clientConfig, cfg.options...)
	if err != nil {
		return nil, fmt.Errorf("spanner.NewClientWithConfig: %w", err)
	}

	return &spannerDriver{
		c:              client,
		bound:          cfg.bound,
		partitionOpts:  cfg.partitionOpts,
		queryOpts:      cfg.queryOpts,
		maxConcurrency: cfg.maxConcurrency,
	}, nil
}

func parseSpannerURL(rawURL string) (*spannerConfig, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "spanner" && u.Scheme != "cloudspanner" {
		return nil, fmt.Errorf("unexpected scheme: %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, errors.New("missing project in url")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("expected /<instance>/<database> in url path, got %q", u.Path)
	}

	cfg := &spannerConfig{
		project:  u.Host,
		instance: parts[0],
		database: parts[1],

		options: []option.ClientOption{option.WithTelemetryDisabled()},
		bound:   spanner.StrongRead(),
		queryOpts: spanner.QueryOptions{
			DataBoostEnabled: true,
		},
	}
	params := u.Query()

	// special param to indicate we are running against the emulator.
	if endpoint := params.Get("endpoint"); endpoint != "" {
		cfg.emulator = true
		cfg.options = append(cfg.options,
			option.WithEndpoint(endpoint),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			option.WithoutAuthentication(),
			internaloption.SkipDialSettingsValidation(),
		)
	} else {
		err = callIfStringSet("credentials", params, func(file string) error {
			cfg.options = append(cfg.options, option.WithCredentialsFile(file))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := setBoolOption(&cfg.queryOpts.DataBoostEnabled, "data-boost", params); err != nil {
		return nil, err
	}
	if err := setStringOption(&cfg.queryOpts.RequestTag, "request-tag", params); err != nil {
		return nil, err
	}
	if err := setIntOption(&cfg.maxConcurrency, "max-concurrency", params); err != nil {
		return nil, err
	}
	if err := setInt64Option(&cfg.partitionOpts.MaxPartitions, "max-partitions", params); err != nil {
		return nil, err
	}
	if err := setInt64Option(&cfg.partitionOpts.PartitionBytes, "partition-bytes", params); err != nil {
		return nil, err
	}

	err = callIfSet("priority", params, parsePriority, func(p sppb.RequestOptions_Priority) error {
		cfg.queryOpts.Priority = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = callIfDurationSet("stale-read", params, func(d time.Duration) error {
		if d <= 0 {
			return fmt.Errorf("invalid value for %q: must be positive", "stale-read")
		}
		cfg.bound = spanner.ExactStaleness(d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePriority(s string) (sppb.RequestOptions_Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return sppb.RequestOptions_PRIORITY_LOW, nil
	case "medium":
		return sppb.RequestOptions_PRIORITY_MEDIUM, nil
	case "high":
		return sppb.RequestOptions_PRIORITY_HIGH, nil
	default:
		return sppb.RequestOptions_PRIORITY_UNSPECIFIED, fmt.Errorf("unknown priority: %q", s)
	}
}
