package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
)

const ext = ".md"

type Connection struct {
	api    s3API
	bucket string
	prefix string
	log    logging.Logger
}

func (c *Connection) Connect(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Connection) List(ctx context.Context) ([]remote.Ref, error) {
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})

	var refs []remote.Ref
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, obj := range page.Contents {
			id, ok := c.idFromKey(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			refs = append(refs, remote.Ref{ID: id, Revision: normalizeETag(obj.ETag)})
		}
	}
	return refs, nil
}

func (c *Connection) Fetch(ctx context.Context, id string) (*models.Note, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(id)),
	})
	if err != nil {
		return nil, mapError(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, remote.MapTransportError(fmt.Errorf("read object %s: %w", id, err))
	}

	n, err := remote.UnmarshalNote(id, data)
	if err != nil {
		return nil, err
	}
	n.Revision = normalizeETag(out.ETag)
	return n, nil
}

func (c *Connection) Push(ctx context.Context, note *models.Note) (string, error) {
	data, err := remote.MarshalNote(note)
	if err != nil {
		return "", err
	}
	out, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(note.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return "", mapError(err)
	}
	return normalizeETag(out.ETag), nil
}

func (c *Connection) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(id)),
	})
	if err != nil {
		err = mapError(err)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Connection) Close() error { return nil }

func (c *Connection) key(id string) string {
	return c.prefix + id + ext
}

func (c *Connection) idFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, c.prefix)
	if !ok || strings.Contains(rest, "/") || !strings.HasSuffix(rest, ext) {
		return "", false
	}
	id := strings.TrimSuffix(rest, ext)
	return id, id != ""
}

func normalizeETag(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", common.ErrNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%w: %v", common.ErrAuthentication, err)
		case "NoSuchBucket", "InvalidBucketName", "PermanentRedirect":
			return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		case "RequestTimeout":
			return fmt.Errorf("%w: %v", common.ErrTimeout, err)
		default:
			return fmt.Errorf("%w: %v", common.ErrNetwork, err)
		}
	}

	mapped := remote.MapTransportError(err)
	if !remote.Classified(mapped) {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return mapped
}
