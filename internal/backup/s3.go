// Package backup writes ledger snapshots to S3-compatible object storage
// before a reset-all wipes them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// Config holds the object storage settings. Static credentials are used
// when both keys are set; otherwise the default AWS chain applies.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// objectPutter is the part of *s3.Client the snapshotter uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Snapshotter implements ledger.Snapshotter.
type S3Snapshotter struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

var _ ledger.Snapshotter = (*S3Snapshotter)(nil)

// NewS3Snapshotter builds an S3 client from cfg.
func NewS3Snapshotter(ctx context.Context, cfg Config) (*S3Snapshotter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("missing S3 bucket")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and most self-hosted stores need path-style addressing
			o.UsePathStyle = true
		}
	})
	return newSnapshotter(client, cfg.Bucket), nil
}

func newSnapshotter(client objectPutter, bucket string) *S3Snapshotter {
	return &S3Snapshotter{client: client, bucket: bucket, now: time.Now}
}

// Document is the JSON body of a snapshot object.
type Document struct {
	UserID  string          `json:"user_id"`
	TakenAt time.Time       `json:"taken_at"`
	Income  []SnapshotEntry `json:"income"`
	Expense []SnapshotEntry `json:"expenses"`
	Saving  []SnapshotEntry `json:"savings"`
}

type SnapshotEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSnapshotEntries(entries []core.Entry) []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SnapshotEntry{
			ID:          e.ID,
			Description: e.Description,
			AmountCents: e.Amount.Cents,
			Date:        e.Date.ISO(),
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// Key returns the object key for a snapshot taken at t.
func Key(userID string, t time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.json", userID, t.UTC().Format("20060102T150405.000Z"))
}

// Snapshot uploads the entries and returns the object key.
func (s *S3Snapshotter) Snapshot(ctx context.Context, userID string, entries map[core.Category][]core.Entry) (string, error) {
	taken := s.now()
	doc := Document{
		UserID:  userID,
		TakenAt: taken.UTC(),
		Income:  toSnapshotEntries(entries[core.Income]),
		Expense: toSnapshotEntries(entries[core.Expense]),
		Saving:  toSnapshotEntries(entries[core.Saving]),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := Key(userID, taken)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Stored ledger snapshot",
		"user_id", userID,
		"bucket", s.bucket,
		"key", key,
		"bytes", len(body))
	return key, nil
}
