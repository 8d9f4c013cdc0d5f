package transform

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf16"

	"newsrelay/config"
	"newsrelay/types"
)

const attributionLabel = "Source"

// Options carries the per-request inputs that are not part of the article.
type Options struct {
	SelectedImage string
	// Status is the PIXNET article status name.
	Status string
}

// Payload is the platform-shaped content handed to a publisher.
type Payload struct {
	Platform  types.Platform
	Title     string
	SourceURL string
	// Body is HTML for the CMS and PIXNET, the caption for Facebook and
	// Instagram, and the post text for Threads.
	Body     string
	ImageURL string

	// Images is only filled for PIXNET, which embeds every image.
	Images []string
	// Status is the numeric PIXNET article status.
	Status int
}

// Render builds the payload for one platform. The article is not modified.
func Render(platform types.Platform, a *types.Article, opts Options) (Payload, error) {
	if !a.Publishable() {
		return Payload{}, types.NewError(types.ErrContent, "empty title or content")
	}

	title := strings.TrimSpace(a.EffectiveTitle())
	content := strings.TrimSpace(a.EffectiveContent())
	p := Payload{Platform: platform, Title: title, SourceURL: a.URL}

	if platform.RequiresImage() {
		p.ImageURL = ResolveImage(opts.SelectedImage, a.Images)
		if p.ImageURL == "" {
			return Payload{}, types.NewError(types.ErrContent, "image required")
		}
	}

	switch platform {
	case types.PlatformCMS:
		p.ImageURL = ResolveImage(opts.SelectedImage, a.Images)
		p.Body = content + "\n\n" + attributionHTML(a.URL)
	case types.PlatformFacebook:
		p.Body = caption(title, content, a.URL)
	case types.PlatformInstagram:
		p.Body = TruncateUTF16(caption(title, content, a.URL), config.InstagramCaptionLimit)
	case types.PlatformThreads:
		p.Body = TruncateRunes(caption(title, content, a.URL), config.ThreadsTextLimit)
	case types.PlatformPixnet:
		p.Images = ResolveImages(a.Images)
		if len(p.Images) == 0 && strings.TrimSpace(opts.SelectedImage) != "" {
			p.Images = []string{strings.TrimSpace(opts.SelectedImage)}
		}
		p.Body = pixnetBody(p.Images, content, a.URL)
		p.Status = PixnetStatus(opts.Status)
	default:
		return Payload{}, types.Errorf(types.ErrValidation, "unknown platform %q", platform)
	}
	return p, nil
}

// PixnetStatus maps a status name to PIXNET's numeric article status.
func PixnetStatus(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "publish":
		return 2
	case "hidden":
		return 4
	case "draft", "pending":
		return 1
	default:
		return 1
	}
}

// TruncateRunes cuts s to at most limit characters, the suffix included.
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	keep := limit - len([]rune(config.TruncationSuffix))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + config.TruncationSuffix
}

// TruncateUTF16 cuts s to at most limit UTF-16 code units, the suffix included.
// A surrogate pair is never split.
func TruncateUTF16(s string, limit int) string {
	if UTF16Len(s) <= limit {
		return s
	}
	budget := limit - UTF16Len(config.TruncationSuffix)

	var b strings.Builder
	used := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if used+n > budget {
			break
		}
		b.WriteRune(r)
		used += n
	}
	b.WriteString(config.TruncationSuffix)
	return b.String()
}

// UTF16Len counts UTF-16 code units, the unit Instagram measures captions in.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func caption(title, content, sourceURL string) string {
	text := title + "\n\n" + content
	if sourceURL != "" {
		text += fmt.Sprintf("\n\n%s: %s", attributionLabel, sourceURL)
	}
	return text
}

func attributionHTML(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}
	u := html.EscapeString(sourceURL)
	return fmt.Sprintf(`<p>%s: <a href="%s" target="_blank" rel="noopener">%s</a></p>`, attributionLabel, u, u)
}

func pixnetBody(images []string, content, sourceURL string) string {
	var b strings.Builder
	for _, img := range images {
		fmt.Fprintf(&b, `<p><img src="%s" alt="" /></p>`, html.EscapeString(img))
		b.WriteString("\n")
	}
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(line))
	}
	b.WriteString(attributionHTML(sourceURL))
	return strings.TrimRight(b.String(), "\n")
}
