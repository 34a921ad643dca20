package argus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ArchiveConfig configures the S3 report archive.
type S3ArchiveConfig struct {
	Bucket   string
	Region   string
	Endpoint string // for S3-compatible services (MinIO, etc.)
	// AccessKeyID for authentication. Prefer IAM roles, instance profiles, or
	// environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY) over
	// setting these directly.
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // key prefix for all objects
	UsePathStyle    bool

	// EncryptionPassphrase enables at-rest encryption of archived reports
	// when non-empty.
	EncryptionPassphrase string
}

// S3ReportArchive stores finished insight reports as JSON objects in S3 or
// S3-compatible object storage, optionally encrypted at rest. It implements
// ReportArchive.
type S3ReportArchive struct {
	client *s3.Client
	config S3ArchiveConfig
	cipher *ReportCipher
}

// NewS3ReportArchive creates a report archive.
func NewS3ReportArchive(ctx context.Context, cfg S3ArchiveConfig) (*S3ReportArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	archive := &S3ReportArchive{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
	}
	if cfg.EncryptionPassphrase != "" {
		cipher, err := NewReportCipher(cfg.EncryptionPassphrase)
		if err != nil {
			return nil, err
		}
		archive.cipher = cipher
	}
	return archive, nil
}

// StoreReport uploads a report keyed by metric and generation time.
func (a *S3ReportArchive) StoreReport(ctx context.Context, report *InsightReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if a.cipher != nil {
		if data, err = a.cipher.Seal(data); err != nil {
			return fmt.Errorf("encrypt report: %w", err)
		}
	}

	key := a.reportKey(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("S3 put %s: %w", key, err)
	}
	return nil
}

// FetchReport retrieves and decodes a previously archived report.
func (a *S3ReportArchive) FetchReport(ctx context.Context, key string) (*InsightReport, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if a.cipher != nil {
		if data, err = a.cipher.Open(data); err != nil {
			return nil, err
		}
	}

	var report InsightReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", key, err)
	}
	return &report, nil
}

// reportKey builds a stable object key: <prefix>/<metric>/<unixnano>.json.
func (a *S3ReportArchive) reportKey(report *InsightReport) string {
	name := fmt.Sprintf("%d.json", report.GeneratedAt.UnixNano())
	return path.Join(a.config.Prefix, report.Metric, name)
}
