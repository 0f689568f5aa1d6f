package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	publicBaseURL string
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, publicBaseURL string) transcode.AWSRepository {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		publicBaseURL: publicBaseURL,
	}
}

func (a *awsRepository) PutObject(ctx context.Context, input *models.UploadInput) (string, error) {
	file, err := os.Open(input.LocalPath)
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.PutObject.Open")
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.PutObject.Stat")
	}
	size := stat.Size()

	if _, err = a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.BucketName,
			Key:           &input.Key,
			ContentType:   &input.MimeType,
			ContentLength: &size,
			Body:          file,
			Metadata:      input.Metadata,
		},
	); err != nil {
		return "", errors.Wrap(err, "awsRepository.PutObject")
	}

	if a.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", a.publicBaseURL, input.BucketName, input.Key), nil
	}
	return a.GetPresignedURL(ctx, input.BucketName, input.Key)
}

func (a *awsRepository) GetPresignedURL(ctx context.Context, bucket, key string) (string, error) {
	req, err := a.preSignClient.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		},
		s3.WithPresignExpires(24*time.Hour),
	)
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.GetPresignedURL")
	}
	return req.URL, nil
}

func (a *awsRepository) RemoveObject(ctx context.Context, bucket, key string) error {
	if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		return errors.Wrap(err, "awsRepository.RemoveObject")
	}
	return nil
}
