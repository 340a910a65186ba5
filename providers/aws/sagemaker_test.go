package aws

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"

	"github.com/verdin/sagecycle/providers"
	"github.com/verdin/sagecycle/types"
)

// fakeSageMaker serves canned pages and records what was asked of it.
type fakeSageMaker struct {
	trainingPages [][]smtypes.TrainingJobSummary
	endpoints     []smtypes.EndpointSummary
	models        []smtypes.ModelSummary
	packages      []smtypes.ModelPackageSummary

	lastNameContains *string
	describeStatus   string
	stopErr          error
	stopped          []string
	deletedEndpoints []string
	deletedModels    []string
	deletedPackages  []string
}

func (f *fakeSageMaker) ListTrainingJobs(ctx context.Context, params *sagemaker.ListTrainingJobsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsOutput, error) {
	f.lastNameContains = params.NameContains

	page := 0
	if params.NextToken != nil {
		page = 1
	}
	out := &sagemaker.ListTrainingJobsOutput{}
	if page < len(f.trainingPages) {
		out.TrainingJobSummaries = f.trainingPages[page]
	}
	if page == 0 && len(f.trainingPages) > 1 {
		out.NextToken = awssdk.String("page-2")
	}
	return out, nil
}

func (f *fakeSageMaker) ListEndpoints(ctx context.Context, params *sagemaker.ListEndpointsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error) {
	f.lastNameContains = params.NameContains
	return &sagemaker.ListEndpointsOutput{Endpoints: f.endpoints}, nil
}

func (f *fakeSageMaker) ListModels(ctx context.Context, params *sagemaker.ListModelsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error) {
	f.lastNameContains = params.NameContains
	return &sagemaker.ListModelsOutput{Models: f.models}, nil
}

func (f *fakeSageMaker) ListModelPackages(ctx context.Context, params *sagemaker.ListModelPackagesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error) {
	f.lastNameContains = params.NameContains
	return &sagemaker.ListModelPackagesOutput{ModelPackageSummaryList: f.packages}, nil
}

func (f *fakeSageMaker) DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	return &sagemaker.DescribeTrainingJobOutput{TrainingJobStatus: smtypes.TrainingJobStatus(f.describeStatus)}, nil
}

func (f *fakeSageMaker) DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	return &sagemaker.DescribeEndpointOutput{EndpointStatus: smtypes.EndpointStatus(f.describeStatus)}, nil
}

func (f *fakeSageMaker) DescribeModelPackage(ctx context.Context, params *sagemaker.DescribeModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelPackageOutput, error) {
	return &sagemaker.DescribeModelPackageOutput{ModelPackageStatus: smtypes.ModelPackageStatus(f.describeStatus)}, nil
}

func (f *fakeSageMaker) StopTrainingJob(ctx context.Context, params *sagemaker.StopTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StopTrainingJobOutput, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	f.stopped = append(f.stopped, awssdk.ToString(params.TrainingJobName))
	return &sagemaker.StopTrainingJobOutput{}, nil
}

func (f *fakeSageMaker) DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error) {
	f.deletedEndpoints = append(f.deletedEndpoints, awssdk.ToString(params.EndpointName))
	return &sagemaker.DeleteEndpointOutput{}, nil
}

func (f *fakeSageMaker) DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	f.deletedModels = append(f.deletedModels, awssdk.ToString(params.ModelName))
	return &sagemaker.DeleteModelOutput{}, nil
}

func (f *fakeSageMaker) DeleteModelPackage(ctx context.Context, params *sagemaker.DeleteModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelPackageOutput, error) {
	f.deletedPackages = append(f.deletedPackages, awssdk.ToString(params.ModelPackageName))
	return &sagemaker.DeleteModelPackageOutput{}, nil
}

func testProvider(sm SageMakerAPI) *Provider {
	return NewProviderWithClients(sm, nil, providers.Config{Region: "eu-west-1", Project: "churn"})
}

func TestTrainingJobLister_PaginatesAndMapsStatuses(t *testing.T) {
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	fake := &fakeSageMaker{
		trainingPages: [][]smtypes.TrainingJobSummary{
			{{
				TrainingJobName:   awssdk.String("churn-train-001"),
				TrainingJobStatus: smtypes.TrainingJobStatusCompleted,
				CreationTime:      &created,
			}},
			{{
				TrainingJobName:   awssdk.String("churn-train-002"),
				TrainingJobStatus: smtypes.TrainingJobStatusInProgress,
				CreationTime:      &created,
			}},
		},
	}

	lister, err := testProvider(fake).Lister(types.TypeTrainingJob)
	if err != nil {
		t.Fatalf("Lister() error = %v", err)
	}

	resources, err := lister.List(context.Background(), types.ResourceFilter{Project: "churn"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(resources) != 2 {
		t.Fatalf("List() returned %d resources, want 2 across pages", len(resources))
	}
	if resources[0].Status != types.StatusSucceeded {
		t.Errorf("Completed job mapped to %s, want Succeeded", resources[0].Status)
	}
	if resources[0].RawStatus != "Completed" {
		t.Errorf("RawStatus = %q, want Completed", resources[0].RawStatus)
	}
	if resources[1].Status != types.StatusRunning {
		t.Errorf("InProgress job mapped to %s, want Running", resources[1].Status)
	}
	if !resources[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", resources[0].CreatedAt, created)
	}
	if awssdk.ToString(fake.lastNameContains) != "churn" {
		t.Errorf("NameContains = %v, want project filter churn", fake.lastNameContains)
	}
}

func TestEndpointLister_InServiceIsRunning(t *testing.T) {
	fake := &fakeSageMaker{
		endpoints: []smtypes.EndpointSummary{{
			EndpointName:   awssdk.String("churn-staging"),
			EndpointStatus: smtypes.EndpointStatusInService,
		}},
	}

	lister, err := testProvider(fake).Lister(types.TypeEndpoint)
	if err != nil {
		t.Fatalf("Lister() error = %v", err)
	}
	resources, err := lister.List(context.Background(), types.ResourceFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(resources) != 1 || resources[0].Status != types.StatusRunning {
		t.Errorf("InService endpoint = %+v, want Status Running", resources)
	}
	if fake.lastNameContains != nil {
		t.Errorf("NameContains = %v, want nil for empty project", fake.lastNameContains)
	}
}

func TestModelLister_ModelsReportSucceeded(t *testing.T) {
	fake := &fakeSageMaker{
		models: []smtypes.ModelSummary{{ModelName: awssdk.String("churn-model-v3")}},
	}

	lister, err := testProvider(fake).Lister(types.TypeModel)
	if err != nil {
		t.Fatalf("Lister() error = %v", err)
	}
	resources, err := lister.List(context.Background(), types.ResourceFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(resources) != 1 || resources[0].Status != types.StatusSucceeded {
		t.Errorf("model = %+v, want Status Succeeded", resources)
	}
}

func TestDescribers_ReturnRawStatus(t *testing.T) {
	tests := []struct {
		rt  types.ResourceType
		raw string
	}{
		{types.TypeTrainingJob, "Stopping"},
		{types.TypeEndpoint, "Creating"},
		{types.TypeModelPackage, "Pending"},
	}

	for _, tt := range tests {
		t.Run(string(tt.rt), func(t *testing.T) {
			fake := &fakeSageMaker{describeStatus: tt.raw}
			describer, err := testProvider(fake).Describer(tt.rt)
			if err != nil {
				t.Fatalf("Describer() error = %v", err)
			}
			raw, err := describer.Describe(context.Background(), "some-id")
			if err != nil {
				t.Fatalf("Describe() error = %v", err)
			}
			if raw != tt.raw {
				t.Errorf("Describe() = %q, want %q", raw, tt.raw)
			}
		})
	}
}

func TestDescriber_ModelsAreNotPollable(t *testing.T) {
	if _, err := testProvider(&fakeSageMaker{}).Describer(types.TypeModel); err == nil {
		t.Error("Describer(model) should error, models have no status to poll")
	}
}

func TestTrainingJobStopper_AlreadyTerminalIsSuccess(t *testing.T) {
	fake := &fakeSageMaker{
		stopErr: &smithy.GenericAPIError{
			Code:    "ValidationException",
			Message: "The request was rejected because the training job is in status Completed",
		},
	}

	deleter, err := testProvider(fake).Deleter(types.TypeTrainingJob)
	if err != nil {
		t.Fatalf("Deleter() error = %v", err)
	}
	if err := deleter.Delete(context.Background(), "churn-train-001"); err != nil {
		t.Errorf("Delete() error = %v, stopping an already-terminal job should succeed", err)
	}
}

func TestTrainingJobStopper_OtherErrorsSurface(t *testing.T) {
	fake := &fakeSageMaker{
		stopErr: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"},
	}

	deleter, err := testProvider(fake).Deleter(types.TypeTrainingJob)
	if err != nil {
		t.Fatalf("Deleter() error = %v", err)
	}
	if err := deleter.Delete(context.Background(), "churn-train-001"); err == nil {
		t.Error("Delete() = nil, want throttling error to surface")
	}
}

func TestDeleters_CallTheRightAPI(t *testing.T) {
	fake := &fakeSageMaker{}
	p := testProvider(fake)

	cases := []struct {
		rt  types.ResourceType
		id  string
		got *[]string
	}{
		{types.TypeTrainingJob, "churn-train-001", &fake.stopped},
		{types.TypeEndpoint, "churn-staging", &fake.deletedEndpoints},
		{types.TypeModel, "churn-model-v3", &fake.deletedModels},
		{types.TypeModelPackage, "churn-pkg-1", &fake.deletedPackages},
	}

	for _, tc := range cases {
		deleter, err := p.Deleter(tc.rt)
		if err != nil {
			t.Fatalf("Deleter(%s) error = %v", tc.rt, err)
		}
		if err := deleter.Delete(context.Background(), tc.id); err != nil {
			t.Fatalf("Delete(%s) error = %v", tc.id, err)
		}
		if len(*tc.got) != 1 || (*tc.got)[0] != tc.id {
			t.Errorf("Delete(%s) recorded %v", tc.rt, *tc.got)
		}
	}
}
