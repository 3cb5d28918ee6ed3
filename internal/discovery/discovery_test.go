package discovery_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/steveyegge/curq/internal/discovery"
	"github.com/steveyegge/curq/internal/qerrors"
	curqtypes "github.com/steveyegge/curq/internal/types"
)

// fakeClient serves a single ListObjectsV2 page per prefix, keyed by
// whether the call asked for common prefixes (Delimiter set) or objects.
type fakeClient struct {
	commonPrefixes map[string][]string
	objects        map[string][]types.Object
	err            error
}

func (f *fakeClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	prefix := aws.ToString(params.Prefix)
	if params.Delimiter != nil {
		var cps []types.CommonPrefix
		for _, p := range f.commonPrefixes[prefix] {
			cps = append(cps, types.CommonPrefix{Prefix: aws.String(p)})
		}
		return &s3.ListObjectsV2Output{CommonPrefixes: cps}, nil
	}
	return &s3.ListObjectsV2Output{Contents: f.objects[prefix]}, nil
}

func TestDiscoverKeepsInWindowPartitionsAndAcceptedFormats(t *testing.T) {
	client := &fakeClient{
		commonPrefixes: map[string][]string{
			"exports/": {"exports/billing_period=2026-01/", "exports/billing_period=2026-06/"},
		},
		objects: map[string][]types.Object{
			"exports/billing_period=2026-01/": {
				{Key: aws.String("exports/billing_period=2026-01/part-0.parquet"), Size: aws.Int64(100)},
				{Key: aws.String("exports/billing_period=2026-01/manifest.json"), Size: aws.Int64(10)},
			},
		},
	}

	cfg := curqtypes.DataSourceConfig{
		Bucket:     "b",
		Prefix:     "exports/",
		ExportType: curqtypes.ExportTypeCURv2,
		DateStart:  "2026-01",
		DateEnd:    "2026-02",
	}

	result, err := discovery.Discover(context.Background(), client, cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("got %d files, want 1 (only the in-window, accepted-format object)", len(result.Files))
	}
	if result.Files[0].RemoteURI != "s3://b/exports/billing_period=2026-01/part-0.parquet" {
		t.Errorf("got RemoteURI %q", result.Files[0].RemoteURI)
	}
}

func TestDiscoverCountsUnparseablePartitionsAsSkipped(t *testing.T) {
	client := &fakeClient{
		commonPrefixes: map[string][]string{
			"exports/": {"exports/billing_period=not-a-date/"},
		},
	}
	cfg := curqtypes.DataSourceConfig{
		Bucket:     "b",
		Prefix:     "exports/",
		ExportType: curqtypes.ExportTypeCURv2,
	}

	result, err := discovery.Discover(context.Background(), client, cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("got %d files, want 0", len(result.Files))
	}
	if len(result.SkippedPartitions) != 1 {
		t.Fatalf("got %d skipped partitions, want 1", len(result.SkippedPartitions))
	}
}

func TestDiscoverEmptyResultIsNotAnError(t *testing.T) {
	client := &fakeClient{}
	cfg := curqtypes.DataSourceConfig{
		Bucket:     "b",
		Prefix:     "exports/",
		ExportType: curqtypes.ExportTypeCURv2,
	}

	result, err := discovery.Discover(context.Background(), client, cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(result.Files) != 0 || len(result.SkippedPartitions) != 0 {
		t.Errorf("expected an entirely empty result, got %+v", result)
	}
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string     { return e.code }
func (e *fakeAPIError) ErrorCode() string { return e.code }
func (e *fakeAPIError) ErrorMessage() string { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestDiscoverClassifiesAccessDeniedFromTypedAPIError(t *testing.T) {
	client := &fakeClient{err: &fakeAPIError{code: "AccessDenied"}}
	cfg := curqtypes.DataSourceConfig{Bucket: "b", Prefix: "exports/", ExportType: curqtypes.ExportTypeCURv2}

	_, err := discovery.Discover(context.Background(), client, cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if qerrors.KindOf(err) != qerrors.KindAccessDenied {
		t.Errorf("got kind %v, want AccessDenied", qerrors.KindOf(err))
	}
}

func TestDiscoverClassifiesNoSuchBucketAsNotFound(t *testing.T) {
	client := &fakeClient{err: &fakeAPIError{code: "NoSuchBucket"}}
	cfg := curqtypes.DataSourceConfig{Bucket: "b", Prefix: "exports/", ExportType: curqtypes.ExportTypeCURv2}

	_, err := discovery.Discover(context.Background(), client, cfg)
	if qerrors.KindOf(err) != qerrors.KindNotFound {
		t.Errorf("got kind %v, want NotFound", qerrors.KindOf(err))
	}
}

func TestDiscoverClassifiesOtherAPIErrorsAsTransient(t *testing.T) {
	client := &fakeClient{err: &fakeAPIError{code: "SlowDown"}}
	cfg := curqtypes.DataSourceConfig{Bucket: "b", Prefix: "exports/", ExportType: curqtypes.ExportTypeCURv2}

	_, err := discovery.Discover(context.Background(), client, cfg)
	if qerrors.KindOf(err) != qerrors.KindTransient {
		t.Errorf("got kind %v, want Transient", qerrors.KindOf(err))
	}
}
