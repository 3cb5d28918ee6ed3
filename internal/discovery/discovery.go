// Package discovery implements C3: listing partitions under a configured
// S3 prefix, filtering them by the configured date window, and emitting the
// concrete file set. The object store is the single source of truth — no
// listing is cached across calls (spec.md §4.3).
//
// The Discover(ctx) ([]*Resource, error) shape and "skip unparseable entries,
// keep going" loop are grounded on the teacher's
// _teacher_ref/discovery/local.go, generalized from walking a local
// filesystem to paginating S3 ListObjectsV2 calls.
package discovery

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/curq/internal/partition"
	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/types"
)

// Client is the subset of *s3.Client discovery needs, so tests can supply a
// fake.
type Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Result is the outcome of a Discover call: the ordered file set plus the
// diagnostic count of partitions whose name failed to parse (spec.md
// §4.3's "silently skipped and counted in a diagnostic").
type Result struct {
	Files             []types.FileRef
	SkippedPartitions []string
}

// Discover lists partitions under cfg's prefix, keeps those within the
// configured date window, lists their contained objects, and drops objects
// whose extension is not in the export type's accepted set. Files are
// returned in (partition-ascending, object-name-ascending) order. An empty
// result is legal and is returned as-is, never as an error.
func Discover(ctx context.Context, client Client, cfg types.DataSourceConfig) (*Result, error) {
	token := cfg.ExportType.PartitionKeyToken()
	prefix := ensureTrailingSlash(cfg.Prefix)

	dirs, err := listCommonPrefixes(ctx, client, cfg.Bucket, prefix)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var kept []types.Partition

	for _, dir := range dirs {
		name := strings.TrimSuffix(strings.TrimPrefix(dir, prefix), "/")
		value, ok := strings.CutPrefix(name, token+"=")
		if !ok {
			continue // not a partition directory for this export type
		}

		if _, perr := partition.Parse(cfg.ExportType, value); perr != nil {
			result.SkippedPartitions = append(result.SkippedPartitions, name)
			continue
		}

		inWindow, werr := partition.InWindow(cfg.ExportType, value, cfg.DateStart, cfg.DateEnd)
		if werr != nil {
			result.SkippedPartitions = append(result.SkippedPartitions, name)
			continue
		}
		if !inWindow {
			continue
		}

		kept = append(kept, types.Partition{ExportType: cfg.ExportType, KeyValue: value})
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Less(kept[j]) })

	accepted := make(map[string]bool)
	for _, f := range cfg.ExportType.AcceptedFormats() {
		accepted[f.Extension()] = true
	}

	for _, part := range kept {
		partPrefix := prefix + part.DirName() + "/"
		objects, err := listObjects(ctx, client, cfg.Bucket, partPrefix)
		if err != nil {
			return nil, err
		}
		sort.Slice(objects, func(i, j int) bool { return aws.ToString(objects[i].Key) < aws.ToString(objects[j].Key) })

		for _, obj := range objects {
			key := aws.ToString(obj.Key)
			ext := longestKnownExtension(key, accepted)
			if ext == "" {
				continue
			}
			result.Files = append(result.Files, types.FileRef{
				RemoteURI: "s3://" + cfg.Bucket + "/" + key,
				Partition: part,
				Format:    formatForExtension(ext),
				SizeBytes: aws.ToInt64(obj.Size),
				ObjectKey: strings.TrimPrefix(key, prefix),
			})
		}
	}

	return result, nil
}

func listCommonPrefixes(ctx context.Context, client Client, bucket, prefix string) ([]string, error) {
	var dirs []string
	var continuationToken *string

	for {
		out, err := retryListObjects(ctx, client, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, classifyTransport(err)
		}
		for _, cp := range out.CommonPrefixes {
			dirs = append(dirs, aws.ToString(cp.Prefix))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return dirs, nil
}

func listObjects(ctx context.Context, client Client, bucket, prefix string) ([]s3Object, error) {
	var objects []s3Object
	var continuationToken *string

	for {
		out, err := retryListObjects(ctx, client, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, classifyTransport(err)
		}
		for _, obj := range out.Contents {
			objects = append(objects, s3Object{Key: obj.Key, Size: obj.Size})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return objects, nil
}

// s3Object is a minimal local projection of s3.Object so this file does not
// need to re-import the SDK type in two places.
type s3Object struct {
	Key  *string
	Size *int64
}

// retryListObjects wraps a single ListObjectsV2 page fetch with bounded
// exponential backoff (spec.md §7: Transient during listing is retried with
// capped exponential backoff).
func retryListObjects(ctx context.Context, client Client, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	var out *s3.ListObjectsV2Output
	err := backoff.Retry(func() error {
		var err error
		out, err = client.ListObjectsV2(ctx, in)
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "AccessDenied", "AllAccessDisabled", "NoSuchBucket":
				return backoff.Permanent(err)
			}
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx))
	return out, err
}

// classifyTransport inspects a failed ListObjectsV2 call for a typed AWS API
// error (smithy.APIError) before falling back to a bare Transient: access
// and missing-bucket failures are not worth retrying, unlike everything
// else that reaches here (throttling, connection resets).
func classifyTransport(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AllAccessDisabled":
			return qerrors.Wrap(qerrors.KindAccessDenied, "access denied listing the object store", err)
		case "NoSuchBucket":
			return qerrors.Wrap(qerrors.KindNotFound, "the configured bucket does not exist", err)
		}
	}
	return qerrors.Wrap(qerrors.KindTransient, "listing the object store failed", err,
		"the operation is safe to retry")
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func longestKnownExtension(key string, accepted map[string]bool) string {
	// ".csv.gz" has two dots; check the two-segment suffix before falling
	// back to the single extension so CSV-gz exports match correctly.
	base := path.Base(key)
	if idx := strings.Index(base, "."); idx >= 0 {
		twoDot := base[idx:]
		if accepted[twoDot] {
			return twoDot
		}
	}
	ext := path.Ext(key)
	if accepted[ext] {
		return ext
	}
	return ""
}

func formatForExtension(ext string) types.ContentFormat {
	if ext == ".parquet" {
		return types.ContentFormatParquet
	}
	return types.ContentFormatCSVGZ
}
