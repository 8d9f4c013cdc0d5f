package types

import "strings"

// Article is a translated news article as held by the content store.
// Images is always the JSON-encoded form of the stored image list.
type Article struct {
	ID                int64   `json:"id"`
	URL               string  `json:"url"`
	TitleTranslated   string  `json:"title_translated"`
	ContentTranslated string  `json:"content_translated"`
	TitleModified     *string `json:"title_modified"`
	ContentModified   *string `json:"content_modified"`
	Images            string  `json:"images"`
	SourceWebsite     string  `json:"sourceWebsite"`
}

// EffectiveTitle prefers the rewritten title when it is present and non-empty.
func (a *Article) EffectiveTitle() string {
	return effective(a.TitleModified, a.TitleTranslated)
}

// EffectiveContent prefers the rewritten content when it is present and non-empty.
func (a *Article) EffectiveContent() string {
	return effective(a.ContentModified, a.ContentTranslated)
}

// Publishable reports whether both effective fields carry text.
func (a *Article) Publishable() bool {
	return strings.TrimSpace(a.EffectiveTitle()) != "" && strings.TrimSpace(a.EffectiveContent()) != ""
}

func effective(modified *string, translated string) string {
	if modified != nil && strings.TrimSpace(*modified) != "" {
		return *modified
	}
	return translated
}
