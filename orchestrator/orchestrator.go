package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"newsrelay/publisher"
	"newsrelay/store"
	"newsrelay/transform"
	"newsrelay/types"
)

// Credentials is the part of the credential registry a batch needs.
type Credentials interface {
	IsConfigured(platform types.Platform) bool
	Token(ctx context.Context, platform types.Platform) (string, error)
}

// ImageMirror rehosts an image and returns the URL platforms should fetch.
type ImageMirror interface {
	Mirror(ctx context.Context, imageURL string) (string, error)
}

// Batch publishes a list of articles to one platform, one item at a time. An
// item's failure is recorded in the report and never stops the batch.
type Batch struct {
	articles   store.ArticleStore
	creds      Credentials
	publishers map[types.Platform]publisher.Publisher
	mirror     ImageMirror
}

func NewBatch(articles store.ArticleStore, creds Credentials, publishers map[types.Platform]publisher.Publisher) *Batch {
	return &Batch{articles: articles, creds: creds, publishers: publishers}
}

// WithMirror routes images of image-only platforms through m. A failed mirror
// falls back to the original URL.
func (b *Batch) WithMirror(m ImageMirror) *Batch {
	b.mirror = m
	return b
}

// Run validates the request, then processes every item in order. The returned
// error is only set for batch-level refusals.
func (b *Batch) Run(ctx context.Context, req types.PublishRequest) (*types.BatchReport, error) {
	platform, err := types.ParsePlatform(string(req.Platform))
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, types.NewError(types.ErrValidation, "no items to publish")
	}
	pub, ok := b.publishers[platform]
	if !ok || !b.creds.IsConfigured(platform) {
		return nil, types.Errorf(types.ErrConfiguration, "%s is not configured", platform)
	}

	report := &types.BatchReport{
		BatchID:  uuid.NewString(),
		Platform: platform,
		Results:  make([]types.PublishResult, 0, len(req.Items)),
	}

	log.Printf("=== Publishing %d item(s) to %s (batch %s) ===", len(req.Items), platform, report.BatchID)
	for i, item := range req.Items {
		res := b.runItem(ctx, pub, item, req.Status)
		report.Add(res)

		if res.Success {
			log.Printf("  [%d/%d] ✅ news %d published (%s)", i+1, len(req.Items), item.NewsID, deref(res.PostURL))
		} else {
			log.Printf("  [%d/%d] ❌ news %d failed: %s", i+1, len(req.Items), item.NewsID, deref(res.Error))
		}
	}

	log.Printf("=== Batch %s complete: %d/%d succeeded, %d failed ===", report.BatchID, report.Success, report.Total, report.Failed)
	return report, nil
}

// runItem turns every error and panic into a failed result.
func (b *Batch) runItem(ctx context.Context, pub publisher.Publisher, item types.PublishItem, status string) (res types.PublishResult) {
	res.NewsID = item.NewsID
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.PostID, res.PostURL = nil, nil
			res.Error = types.StringPtr(fmt.Sprintf("internal error: %v", r))
		}
	}()

	article, ref, err := b.publishItem(ctx, pub, item, status)
	if article != nil {
		res.NewsURL = article.URL
	}
	if err != nil {
		res.Error = types.StringPtr(reason(err))
		return res
	}

	res.Success = true
	res.PostID = types.StringPtr(ref.ID)
	res.PostURL = types.StringPtr(ref.URL)
	return res
}

func (b *Batch) publishItem(ctx context.Context, pub publisher.Publisher, item types.PublishItem, status string) (*types.Article, publisher.PostRef, error) {
	platform := pub.Platform()

	article, err := b.articles.GetByID(ctx, item.NewsID)
	if err != nil {
		return nil, publisher.PostRef{}, types.Errorf(types.ErrTransport, "failed to load article %d: %v", item.NewsID, err)
	}
	if article == nil {
		return nil, publisher.PostRef{}, types.Errorf(types.ErrNotFound, "article %d not found", item.NewsID)
	}
	if !article.Publishable() {
		return article, publisher.PostRef{}, types.NewError(types.ErrContent, "empty title or content")
	}

	token, err := b.creds.Token(ctx, platform)
	if err != nil {
		return article, publisher.PostRef{}, err
	}

	payload, err := transform.Render(platform, article, transform.Options{SelectedImage: item.SelectedImage, Status: status})
	if err != nil {
		return article, publisher.PostRef{}, err
	}
	if b.mirror != nil && platform.RequiresImage() {
		if mirrored, err := b.mirror.Mirror(ctx, payload.ImageURL); err != nil {
			log.Printf("⚠️  Image mirror failed for news %d, using source URL: %v", item.NewsID, err)
		} else {
			payload.ImageURL = mirrored
		}
	}

	ref, err := pub.Publish(ctx, payload, token)
	return article, ref, err
}

// reason is the error text stored in a result.
func reason(err error) string {
	var pe *types.PublishError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return err.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
