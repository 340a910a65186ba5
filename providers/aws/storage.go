package aws

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/verdin/sagecycle/types"
)

// S3API is the slice of the S3 client this provider uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// objectLister lists bucket objects under the project prefix. Objects
// have no lifecycle status; LastModified stands in for creation time.
type objectLister struct {
	api    S3API
	bucket string
	region string
}

func (l *objectLister) List(ctx context.Context, filter types.ResourceFilter) ([]types.Resource, error) {
	if l.bucket == "" {
		return nil, fmt.Errorf("no data bucket configured")
	}

	var resources []types.Resource

	input := &s3.ListObjectsV2Input{Bucket: aws.String(l.bucket)}
	if filter.Project != "" {
		input.Prefix = aws.String(filter.Project + "/")
	}
	paginator := s3.NewListObjectsV2Paginator(l.api, input)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", l.bucket, err)
		}
		for _, obj := range output.Contents {
			resources = append(resources, types.Resource{
				ID:        aws.ToString(obj.Key),
				Type:      types.TypeStorageObject,
				Project:   filter.Project,
				Region:    l.region,
				Status:    types.MapRawStatus(types.TypeStorageObject, ""),
				CreatedAt: safeTime(obj.LastModified),
			})
		}
	}

	return resources, nil
}

type objectDeleter struct {
	api    S3API
	bucket string
}

func (d *objectDeleter) Delete(ctx context.Context, key string) error {
	if d.bucket == "" {
		return fmt.Errorf("no data bucket configured")
	}
	_, err := d.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// ObjectStore writes release metadata into a bucket.
type ObjectStore struct {
	api    S3API
	bucket string
}

// Put uploads one object under the given key.
func (o *ObjectStore) Put(ctx context.Context, key string, body []byte) error {
	if o.bucket == "" {
		return fmt.Errorf("no release bucket configured")
	}
	_, err := o.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}
