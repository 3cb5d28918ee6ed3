// Package credentials implements C1: resolving object-store credentials and
// producing reusable S3 clients. Resolution order, first match wins:
// explicit static keys -> session credentials -> named profile -> role
// assumption (+ optional external id) -> ambient environment (spec.md
// §4.1). Clients are cached per credential bundle; the cache follows the
// teacher's factory-registry locking discipline
// (_teacher_ref/storage_factory/factory.go's package-level registry, here
// an instance-level map guarded by a mutex since curq has no process-wide
// singleton per spec.md §9's "no global state" redesign note).
package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sony/gobreaker"

	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/types"
)

// Provider yields authenticated S3 clients, caching one per distinct
// credential bundle. Safe for concurrent use (spec.md §5).
type Provider struct {
	mu      sync.Mutex
	clients map[types.CredentialBundle]*s3.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a Provider. The circuit breaker trips after repeated
// credential-resolution failures so a misconfigured bundle fails fast
// instead of retrying into a degraded STS/IAM dependency on every call.
func New() *Provider {
	return &Provider{
		clients: make(map[types.CredentialBundle]*s3.Client),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "credential-resolution",
			MaxRequests: 1,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Client returns a cached or newly-resolved S3 client for the given
// credential bundle. Failure to obtain credentials fails with AccessDenied
// and never includes secret material in the error text (spec.md §4.1).
func (p *Provider) Client(ctx context.Context, bundle types.CredentialBundle) (*s3.Client, error) {
	p.mu.Lock()
	if c, ok := p.clients[bundle.CacheKey()]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.resolve(ctx, bundle)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, qerrors.New(qerrors.KindAccessDenied,
				"credential resolution is temporarily unavailable after repeated failures",
				"retry later; check the credential resolution order (static keys, session, profile, role assumption, ambient)")
		}
		return nil, qerrors.Wrap(qerrors.KindAccessDenied, "failed to resolve object-store credentials", err,
			"check the credential resolution order (static keys, session, profile, role assumption, ambient)")
	}

	client := result.(*s3.Client)

	p.mu.Lock()
	p.clients[bundle.CacheKey()] = client
	p.mu.Unlock()

	return client, nil
}

func (p *Provider) resolve(ctx context.Context, bundle types.CredentialBundle) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if bundle.Region != "" {
		opts = append(opts, awsconfig.WithRegion(bundle.Region))
	}

	switch {
	case bundle.AccessKeyID != "" && bundle.SecretAccessKey != "" && bundle.SessionToken == "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     bundle.AccessKeyID,
					SecretAccessKey: bundle.SecretAccessKey,
				}, nil
			})))
	case bundle.AccessKeyID != "" && bundle.SecretAccessKey != "" && bundle.SessionToken != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     bundle.AccessKeyID,
					SecretAccessKey: bundle.SecretAccessKey,
					SessionToken:    bundle.SessionToken,
				}, nil
			})))
	case bundle.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(bundle.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading object-store config: %w", err)
	}

	if bundle.RoleARN != "" {
		stsClient := sts.NewFromConfig(cfg)
		provider := stscreds.NewAssumeRoleProvider(stsClient, bundle.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if bundle.ExternalID != "" {
				o.ExternalID = aws.String(bundle.ExternalID)
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return s3.NewFromConfig(cfg), nil
}
