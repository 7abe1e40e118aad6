package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"zimp-go/internal/config"
	"zimp-go/internal/zimp"
)

// S3Vault stores objects in an S3 bucket under <prefix><id>. The owner and
// the destination folder travel as object metadata.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
	enc      zimp.Encryptor
	idgen    zimp.IDGenerator
}

var _ zimp.Vault = (*S3Vault)(nil)

// NewS3Vault builds an S3 client from cfg. Static credentials are used when
// configured, otherwise the default AWS credential chain applies.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig, enc zimp.Encryptor, idgen zimp.IDGenerator) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
		if cfg.S3ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return NewS3VaultFromClient(cfg.Name, client, cfg.S3Bucket, cfg.S3Prefix, enc, idgen), nil
}

// NewS3VaultFromClient wraps an existing client.
func NewS3VaultFromClient(name string, client *s3.Client, bucket, prefix string, enc zimp.Encryptor, idgen zimp.IDGenerator) *S3Vault {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
		enc:      enc,
		idgen:    idgen,
	}
}

func (v *S3Vault) key(id string) string {
	return path.Join(v.prefix, id)
}

// Write uploads the file at path. Large files go up as multipart uploads.
func (v *S3Vault) Write(ctx context.Context, localPath, folder, ownerID string) (*zimp.StoredFile, error) {
	src, err := openSource(ctx, localPath, v.enc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	id := v.idgen.New()
	input := &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(v.key(id)),
		Body:     src,
		Metadata: map[string]string{"owner": ownerID},
	}
	if folder != "" {
		input.Metadata["folder"] = folder
	}
	if v.enc != nil {
		input.ContentType = aws.String("application/octet-stream")
	}

	if _, err := v.uploader.Upload(ctx, input); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", id, err)
	}
	if err := src.verify(); err != nil {
		v.deleteQuietly(id)
		return nil, err
	}
	return &zimp.StoredFile{ID: id, Size: src.plainSize()}, nil
}

// deleteQuietly removes an object that must not be referenced.
func (v *S3Vault) deleteQuietly(id string) {
	_, _ = v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(id)),
	})
}

// Read streams the object to w.
func (v *S3Vault) Read(ctx context.Context, id string, w io.Writer) error {
	if err := validID(id); err != nil {
		return err
	}

	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(id)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("getting %s: %w", id, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", id, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	_, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err != nil {
		return fmt.Errorf("accessing bucket %s: %w", v.bucket, err)
	}
	return nil
}
