package artifacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"minerva/internal/domain/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Store is the object storage surface the publisher needs.
type Store interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
}

// Publisher stores rendered reports and hands out shareable links. A nil
// store turns publication into a no-op so the pipeline still returns its
// summary when object storage is not configured.
type Publisher struct {
	store Store
	log   *logger.Logger
}

// NewPublisher creates a publisher. store may be nil.
func NewPublisher(store Store) *Publisher {
	return &Publisher{
		store: store,
		log:   logger.Get().With("component", "artifacts"),
	}
}

// Enabled reports whether a backing store is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.store != nil
}

// Publish uploads the report and returns a presigned download link.
func (p *Publisher) Publish(ctx context.Context, req research.AnalysisRequest, artifact research.ReportArtifact) (*research.PublishedArtifact, error) {
	if !p.Enabled() {
		return nil, errors.Wrap(errors.ErrNoCredentials, "object storage not configured")
	}
	if len(artifact.Body) == 0 {
		return nil, errors.Wrap(errors.ErrArtifactMissing, "empty report body")
	}

	key := ObjectKey(req, artifact.FileName)

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "text/html"
	}

	if err := p.store.Upload(ctx, key, artifact.Body, contentType); err != nil {
		return nil, err
	}

	url, expiresAt, err := p.store.PresignGet(ctx, key)
	if err != nil {
		return nil, err
	}

	p.log.Infof("Published report %s (expires %s)", key, expiresAt.Format(time.RFC3339))

	return &research.PublishedArtifact{
		StorageKey: key,
		URL:        url,
		ExpiresAt:  expiresAt,
	}, nil
}

// ObjectKey builds the storage key for a report. One folder per company and
// ticker, a fresh uuid per run so reruns never overwrite.
func ObjectKey(req research.AnalysisRequest, fileName string) string {
	if fileName == "" {
		fileName = fmt.Sprintf("%s_report_%s.html", sanitize(req.ShareName), uuid.New())
	}
	folder := fmt.Sprintf("analysis-result-%s-%s", sanitize(req.ShareName), sanitize(req.TickerSymbol))
	return folder + "/" + fileName
}

// sanitize keeps keys path-safe: spaces collapse to hyphens.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
