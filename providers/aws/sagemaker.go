package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/smithy-go"

	"github.com/verdin/sagecycle/types"
)

// SageMakerAPI is the slice of the SageMaker client this provider uses.
// The paginator constructors accept it through their per-operation
// client interfaces.
type SageMakerAPI interface {
	ListTrainingJobs(ctx context.Context, params *sagemaker.ListTrainingJobsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsOutput, error)
	ListEndpoints(ctx context.Context, params *sagemaker.ListEndpointsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error)
	ListModels(ctx context.Context, params *sagemaker.ListModelsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error)
	ListModelPackages(ctx context.Context, params *sagemaker.ListModelPackagesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error)
	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	DescribeModelPackage(ctx context.Context, params *sagemaker.DescribeModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelPackageOutput, error)
	StopTrainingJob(ctx context.Context, params *sagemaker.StopTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StopTrainingJobOutput, error)
	DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error)
	DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
	DeleteModelPackage(ctx context.Context, params *sagemaker.DeleteModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelPackageOutput, error)
}

// nameContains narrows listings to one project's resources. SageMaker
// names embed the project slug by pipeline convention.
func nameContains(project string) *string {
	if project == "" {
		return nil
	}
	return aws.String(project)
}

func safeTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

type trainingJobLister struct {
	api    SageMakerAPI
	region string
}

func (l *trainingJobLister) List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error) {
	var resources []types.Resource

	input := &sagemaker.ListTrainingJobsInput{NameContains: nameContains(filter.Project)}
	paginator := sagemaker.NewListTrainingJobsPaginator(l.api, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list training jobs: %w", err)
		}
		for _, job := range output.TrainingJobSummaries {
			raw := string(job.TrainingJobStatus)
			resources = append(resources, types.Resource{
				ID:        aws.ToString(job.TrainingJobName),
				Type:      types.TypeTrainingJob,
				Project:   filter.Project,
				Region:    l.region,
				RawStatus: raw,
				Status:    types.MapRawStatus(types.TypeTrainingJob, raw),
				CreatedAt: safeTime(job.CreationTime),
			})
		}
	}

	return resources, nil
}

type endpointLister struct {
	api    SageMakerAPI
	region string
}

func (l *endpointLister) List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error) {
	var resources []types.Resource

	input := &sagemaker.ListEndpointsInput{NameContains: nameContains(filter.Project)}
	paginator := sagemaker.NewListEndpointsPaginator(l.api, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list endpoints: %w", err)
		}
		for _, ep := range output.Endpoints {
			raw := string(ep.EndpointStatus)
			resources = append(resources, types.Resource{
				ID:        aws.ToString(ep.EndpointName),
				Type:      types.TypeEndpoint,
				Project:   filter.Project,
				Region:    l.region,
				RawStatus: raw,
				Status:    types.MapRawStatus(types.TypeEndpoint, raw),
				CreatedAt: safeTime(ep.CreationTime),
			})
		}
	}

	return resources, nil
}

type modelLister struct {
	api    SageMakerAPI
	region string
}

func (l *modelLister) List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error) {
	var resources []types.Resource

	input := &sagemaker.ListModelsInput{NameContains: nameContains(filter.Project)}
	paginator := sagemaker.NewListModelsPaginator(l.api, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		for _, m := range output.Models {
			resources = append(resources, types.Resource{
				ID:        aws.ToString(m.ModelName),
				Type:      types.TypeModel,
				Project:   filter.Project,
				Region:    l.region,
				Status:    types.MapRawStatus(types.TypeModel, ""),
				CreatedAt: safeTime(m.CreationTime),
			})
		}
	}

	return resources, nil
}

type modelPackageLister struct {
	api    SageMakerAPI
	region string
}

func (l *modelPackageLister) List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error) {
	var resources []types.Resource

	input := &sagemaker.ListModelPackagesInput{NameContains: nameContains(filter.Project)}
	paginator := sagemaker.NewListModelPackagesPaginator(l.api, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list model packages: %w", err)
		}
		for _, pkg := range output.ModelPackageSummaryList {
			raw := string(pkg.ModelPackageStatus)
			resources = append(resources, types.Resource{
				ID:        aws.ToString(pkg.ModelPackageName),
				Type:      types.TypeModelPackage,
				Project:   filter.Project,
				Region:    l.region,
				RawStatus: raw,
				Status:    types.MapRawStatus(types.TypeModelPackage, raw),
				CreatedAt: safeTime(pkg.CreationTime),
			})
		}
	}

	return resources, nil
}

type trainingJobDescriber struct {
	api SageMakerAPI
}

func (d *trainingJobDescriber) Describe(ctx context.Context, id string) (string, error) {
	output, err := d.api.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe training job %s: %w", id, err)
	}
	return string(output.TrainingJobStatus), nil
}

type endpointDescriber struct {
	api SageMakerAPI
}

func (d *endpointDescriber) Describe(ctx context.Context, id string) (string, error) {
	output, err := d.api.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe endpoint %s: %w", id, err)
	}
	return string(output.EndpointStatus), nil
}

type modelPackageDescriber struct {
	api SageMakerAPI
}

func (d *modelPackageDescriber) Describe(ctx context.Context, id string) (string, error) {
	output, err := d.api.DescribeModelPackage(ctx, &sagemaker.DescribeModelPackageInput{
		ModelPackageName: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe model package %s: %w", id, err)
	}
	return string(output.ModelPackageStatus), nil
}

// trainingJobStopper stands in for deletion: SageMaker has no delete
// call for training jobs, stopping is the only removal-shaped action.
type trainingJobStopper struct {
	api SageMakerAPI
}

func (d *trainingJobStopper) Delete(ctx context.Context, id string) error {
	_, err := d.api.StopTrainingJob(ctx, &sagemaker.StopTrainingJobInput{
		TrainingJobName: aws.String(id),
	})
	if err != nil {
		// Stopping a job that already reached a terminal status raises a
		// ValidationException. The job is inert either way, so treat it
		// as success instead of reporting a cleanup failure.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
			return nil
		}
		return fmt.Errorf("failed to stop training job %s: %w", id, err)
	}
	return nil
}

type endpointDeleter struct {
	api SageMakerAPI
}

func (d *endpointDeleter) Delete(ctx context.Context, id string) error {
	_, err := d.api.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", id, err)
	}
	return nil
}

type modelDeleter struct {
	api SageMakerAPI
}

func (d *modelDeleter) Delete(ctx context.Context, id string) error {
	_, err := d.api.DeleteModel(ctx, &sagemaker.DeleteModelInput{
		ModelName: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}
	return nil
}

type modelPackageDeleter struct {
	api SageMakerAPI
}

func (d *modelPackageDeleter) Delete(ctx context.Context, id string) error {
	_, err := d.api.DeleteModelPackage(ctx, &sagemaker.DeleteModelPackageInput{
		ModelPackageName: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete model package %s: %w", id, err)
	}
	return nil
}
