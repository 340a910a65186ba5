// Package aws implements the provider seams on top of SageMaker and S3.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"

	"github.com/verdin/sagecycle/providers"
	"github.com/verdin/sagecycle/types"
)

func init() {
	providers.Register("aws", func(ctx context.Context, cfg providers.Config) (providers.Provider, error) {
		return NewProvider(ctx, cfg)
	})
}

// Provider implements providers.Provider using AWS SDK v2.
type Provider struct {
	sm     SageMakerAPI
	s3     S3API
	region string
	cfg    providers.Config
}

// NewProvider creates a provider backed by real AWS clients.
func NewProvider(ctx context.Context, pcfg providers.Config) (*Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(pcfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Provider{
		sm:     sagemaker.NewFromConfig(cfg),
		s3:     s3.NewFromConfig(cfg),
		region: pcfg.Region,
		cfg:    pcfg,
	}, nil
}

// NewProviderWithClients wires explicit clients. Tests use it with fakes.
func NewProviderWithClients(sm SageMakerAPI, s3c S3API, pcfg providers.Config) *Provider {
	return &Provider{sm: sm, s3: s3c, region: pcfg.Region, cfg: pcfg}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "aws"
}

// Region returns the AWS region.
func (p *Provider) Region() string {
	return p.region
}

// Lister returns the listing capability for a resource type.
func (p *Provider) Lister(rt types.ResourceType) (providers.Lister, error) {
	switch rt {
	case types.TypeTrainingJob:
		return &trainingJobLister{api: p.sm, region: p.region}, nil
	case types.TypeEndpoint:
		return &endpointLister{api: p.sm, region: p.region}, nil
	case types.TypeModel:
		return &modelLister{api: p.sm, region: p.region}, nil
	case types.TypeModelPackage:
		return &modelPackageLister{api: p.sm, region: p.region}, nil
	case types.TypeStorageObject:
		return &objectLister{api: p.s3, bucket: p.cfg.DataBucket, region: p.region}, nil
	default:
		return nil, fmt.Errorf("no lister for resource type %s", rt)
	}
}

// Describer returns the raw-status lookup for a resource type. Models
// and storage objects carry no provider status and cannot be polled.
func (p *Provider) Describer(rt types.ResourceType) (providers.Describer, error) {
	switch rt {
	case types.TypeTrainingJob:
		return &trainingJobDescriber{api: p.sm}, nil
	case types.TypeEndpoint:
		return &endpointDescriber{api: p.sm}, nil
	case types.TypeModelPackage:
		return &modelPackageDescriber{api: p.sm}, nil
	default:
		return nil, fmt.Errorf("resource type %s has no pollable status", rt)
	}
}

// Deleter returns the removal capability for a resource type.
func (p *Provider) Deleter(rt types.ResourceType) (providers.Deleter, error) {
	switch rt {
	case types.TypeTrainingJob:
		return &trainingJobStopper{api: p.sm}, nil
	case types.TypeEndpoint:
		return &endpointDeleter{api: p.sm}, nil
	case types.TypeModel:
		return &modelDeleter{api: p.sm}, nil
	case types.TypeModelPackage:
		return &modelPackageDeleter{api: p.sm}, nil
	case types.TypeStorageObject:
		return &objectDeleter{api: p.s3, bucket: p.cfg.DataBucket}, nil
	default:
		return nil, fmt.Errorf("no deleter for resource type %s", rt)
	}
}

// Objects returns the bucket-scoped object store used for release
// metadata replication.
func (p *Provider) Objects(bucket string) *ObjectStore {
	return &ObjectStore{api: p.s3, bucket: bucket}
}

var _ providers.Provider = (*Provider)(nil)
