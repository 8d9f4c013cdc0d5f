package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"newsrelay/publisher"
	"newsrelay/store"
	"newsrelay/transform"
	"newsrelay/types"
)

type fakeCreds struct {
	configured map[types.Platform]bool
}

func (f fakeCreds) IsConfigured(p types.Platform) bool { return f.configured[p] }

func (f fakeCreds) Token(context.Context, types.Platform) (string, error) { return "token", nil }

type fakePublisher struct {
	platform types.Platform
	payloads []transform.Payload
	fail     map[string]error
	panicOn  string
}

func (f *fakePublisher) Platform() types.Platform { return f.platform }

func (f *fakePublisher) Publish(_ context.Context, p transform.Payload, _ string) (publisher.PostRef, error) {
	f.payloads = append(f.payloads, p)
	if p.Title == f.panicOn {
		panic("publisher blew up")
	}
	if err := f.fail[p.Title]; err != nil {
		return publisher.PostRef{}, err
	}
	id := fmt.Sprintf("post-%d", len(f.payloads))
	return publisher.PostRef{ID: id, URL: "https://social.example/" + id}, nil
}

type fakeMirror struct{ err error }

func (f fakeMirror) Mirror(_ context.Context, u string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://mirror.example/" + u, nil
}

func article(id int64, title string) *types.Article {
	return &types.Article{
		ID:                id,
		URL:               fmt.Sprintf("https://news.example/%d", id),
		TitleTranslated:   title,
		ContentTranslated: "content",
		Images:            `["https://img.example/1.jpg"]`,
	}
}

func newBatch(pub *fakePublisher, articles ...*types.Article) *Batch {
	creds := fakeCreds{configured: map[types.Platform]bool{pub.platform: true}}
	return NewBatch(store.NewMemory(articles...), creds, map[types.Platform]publisher.Publisher{pub.platform: pub})
}

func items(ids ...int64) []types.PublishItem {
	out := make([]types.PublishItem, len(ids))
	for i, id := range ids {
		out[i] = types.PublishItem{NewsID: id}
	}
	return out
}

func TestRunPartialBatch(t *testing.T) {
	pub := &fakePublisher{platform: types.PlatformFacebook}
	b := newBatch(pub, article(1, "one"), article(3, "three"))

	report, err := b.Run(context.Background(), types.PublishRequest{Platform: types.PlatformFacebook, Items: items(1, 2, 3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Total != 3 || report.Success != 2 || report.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d; want 3/2/1", report.Total, report.Success, report.Failed)
	}
	if report.BatchID == "" || report.Platform != types.PlatformFacebook {
		t.Fatalf("report header = %+v", report)
	}
	wantOK := []bool{true, false, true}
	for i, res := range report.Results {
		if res.Success != wantOK[i] {
			t.Fatalf("result %d success = %v; want %v", i, res.Success, wantOK[i])
		}
	}
	if got := *report.Results[1].Error; got != "article 2 not found" {
		t.Fatalf("not-found reason = %q", got)
	}
	if report.Results[0].NewsURL != "https://news.example/1" || *report.Results[0].PostID != "post-1" {
		t.Fatalf("first result = %+v", report.Results[0])
	}
}

func TestIneligibleItemsNeverReachPublisher(t *testing.T) {
	pub := &fakePublisher{platform: types.PlatformCMS}
	empty := article(1, "  ")
	b := newBatch(pub, empty)

	report, err := b.Run(context.Background(), types.PublishRequest{Platform: types.PlatformCMS, Items: items(1)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pub.payloads) != 0 {
		t.Fatalf("publisher called for ineligible article")
	}
	if report.Failed != 1 || *report.Results[0].Error != "empty title or content" {
		t.Fatalf("unexpected result %+v", report.Results[0])
	}
}

func TestImageRequiredFailure(t *testing.T) {
	pub := &fakePublisher{platform: types.PlatformThreads}
	noImage := article(1, "one")
	noImage.Images = "[]"
	b := newBatch(pub, noImage)

	report, _ := b.Run(context.Background(), types.PublishRequest{Platform: types.PlatformThreads, Items: items(1)})
	if report.Failed != 1 || *report.Results[0].Error != "image required" || len(pub.payloads) != 0 {
		t.Fatalf("unexpected result %+v", report.Results[0])
	}
}

func TestPublisherErrorAndPanicAreIsolated(t *testing.T) {
	pub := &fakePublisher{
		platform: types.PlatformInstagram,
		fail:     map[string]error{"bad": types.ProviderError(types.PlatformInstagram, 400, []byte("nope"))},
		panicOn:  "boom",
	}
	b := newBatch(pub, article(1, "bad"), article(2, "boom"), article(3, "fine"))

	report, err := b.Run(context.Background(), types.PublishRequest{Platform: types.PlatformInstagram, Items: items(1, 2, 3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Success != 1 || report.Failed != 2 {
		t.Fatalf("counts = %d/%d", report.Success, report.Failed)
	}
	if got := *report.Results[0].Error; got != "instagram returned 400: nope" {
		t.Fatalf("provider reason = %q", got)
	}
	if got := *report.Results[1].Error; got != "internal error: publisher blew up" {
		t.Fatalf("panic reason = %q", got)
	}
	if !report.Results[2].Success {
		t.Fatalf("item after panic did not run")
	}
}

func TestSelectedImageAndMirror(t *testing.T) {
	pub := &fakePublisher{platform: types.PlatformFacebook}
	b := newBatch(pub, article(1, "one"), article(2, "two")).WithMirror(fakeMirror{})

	req := types.PublishRequest{
		Platform: types.PlatformFacebook,
		Items:    []types.PublishItem{{NewsID: 1, SelectedImage: "https://pick.example/x.jpg"}, {NewsID: 2}},
	}
	if _, err := b.Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := pub.payloads[0].ImageURL; got != "https://mirror.example/https://pick.example/x.jpg" {
		t.Fatalf("first image = %q", got)
	}
	if got := pub.payloads[1].ImageURL; got != "https://mirror.example/https://img.example/1.jpg" {
		t.Fatalf("second image = %q", got)
	}

	pub.payloads = nil
	b.WithMirror(fakeMirror{err: errors.New("s3 down")})
	if _, err := b.Run(context.Background(), types.PublishRequest{Platform: types.PlatformFacebook, Items: items(2)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := pub.payloads[0].ImageURL; got != "https://img.example/1.jpg" {
		t.Fatalf("mirror failure should keep source image, got %q", got)
	}
}

func TestBatchLevelRefusals(t *testing.T) {
	pub := &fakePublisher{platform: types.PlatformFacebook}
	b := newBatch(pub, article(1, "one"))

	cases := []struct {
		name string
		req  types.PublishRequest
		kind error
	}{
		{"empty items", types.PublishRequest{Platform: types.PlatformFacebook}, types.ErrValidation},
		{"unknown platform", types.PublishRequest{Platform: "myspace", Items: items(1)}, types.ErrValidation},
		{"unconfigured platform", types.PublishRequest{Platform: types.PlatformPixnet, Items: items(1)}, types.ErrConfiguration},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			report, err := b.Run(context.Background(), c.req)
			if !errors.Is(err, c.kind) || report != nil {
				t.Fatalf("Run = %v, %v; want %v", report, err, c.kind)
			}
		})
	}
	if len(pub.payloads) != 0 {
		t.Fatalf("publisher called on refused batch")
	}
}
