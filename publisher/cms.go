package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"newsrelay/config"
	"newsrelay/transform"
	"newsrelay/types"
)

// CMS creates draft posts through the WordPress REST API with an application
// password.
type CMS struct {
	baseURL     string
	username    string
	appPassword string
	httpClient  *http.Client
}

func NewCMS(cfg config.CMSConfig, httpClient *http.Client) *CMS {
	return &CMS{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		username:    cfg.Username,
		appPassword: cfg.AppPassword,
		httpClient:  httpClient,
	}
}

func (c *CMS) Platform() types.Platform { return types.PlatformCMS }

type cmsPost struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	FeaturedMedia int64  `json:"featured_media,omitempty"`
}

type cmsCreated struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// Publish uploads the image when there is one and creates a draft post. A
// failed upload only drops the featured image.
func (c *CMS) Publish(ctx context.Context, payload transform.Payload, _ string) (PostRef, error) {
	var mediaID int64
	if payload.ImageURL != "" {
		id, err := c.uploadMedia(ctx, payload.ImageURL)
		if err != nil {
			log.Printf("⚠️  CMS media upload failed, posting without featured image: %v", err)
		} else {
			mediaID = id
		}
	}

	ctx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
	defer cancel()

	post := cmsPost{Title: payload.Title, Content: payload.Body, Status: "draft", FeaturedMedia: mediaID}
	var created cmsCreated
	if err := doJSONRequest(ctx, c.httpClient, types.PlatformCMS, c.baseURL+"/wp-json/wp/v2/posts", post, &created, c.authHeader()); err != nil {
		return PostRef{}, err
	}
	if created.ID == 0 {
		return PostRef{}, types.NewError(types.ErrProvider, "wordpress response has no post id")
	}
	return PostRef{ID: fmt.Sprint(created.ID), URL: created.Link}, nil
}

// uploadMedia downloads the image and re-uploads it to the media library.
func (c *CMS) uploadMedia(ctx context.Context, imageURL string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.MediaTimeout)
	defer cancel()

	data, contentType, err := download(ctx, c.httpClient, imageURL)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName(imageURL)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return 0, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/media", &buf)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := do(c.httpClient, types.PlatformCMS, req)
	if err != nil {
		return 0, err
	}
	var media cmsCreated
	if err := resp.decode(types.PlatformCMS, &media); err != nil {
		return 0, err
	}
	if media.ID == 0 {
		return 0, types.NewError(types.ErrProvider, "wordpress media response has no id")
	}
	return media.ID, nil
}

func (c *CMS) authHeader() http.Header {
	req := &http.Request{Header: make(http.Header)}
	req.SetBasicAuth(c.username, c.appPassword)
	return req.Header
}

// download fetches an image and reports its content type.
func download(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", types.Errorf(types.ErrTransport, "image download failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", types.Errorf(types.ErrTransport, "image download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", types.Errorf(types.ErrTransport, "image download failed: %v", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func fileName(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "image.jpg"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "image.jpg"
	}
	return name
}
