package types

import "encoding/json"

// ArticleDraft is the text sent to the language model for rewriting.
type ArticleDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// UnmarshalJSON also accepts the store's field names (title_translated,
// content_translated) so listing output can be posted back unchanged.
func (d *ArticleDraft) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title             string `json:"title"`
		Content           string `json:"content"`
		TitleTranslated   string `json:"title_translated"`
		ContentTranslated string `json:"content_translated"`
		URL               string `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Title = firstNonEmpty(raw.Title, raw.TitleTranslated)
	d.Content = firstNonEmpty(raw.Content, raw.ContentTranslated)
	d.URL = raw.URL
	return nil
}

// InstructionFragment is one named system prompt.
type InstructionFragment struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// RewriteResult is the outcome of rewriting one draft.
type RewriteResult struct {
	URL             string  `json:"url"`
	TitleModified   string  `json:"title_modified"`
	ContentModified string  `json:"content_modified"`
	Success         bool    `json:"success"`
	Error           *string `json:"error"`
}

// RewriteReport aggregates a rewrite batch.
type RewriteReport struct {
	Total   int             `json:"total"`
	Success int             `json:"success"`
	Failed  int             `json:"failed"`
	Results []RewriteResult `json:"results"`
}

// Add appends a result and keeps the counters consistent.
func (r *RewriteReport) Add(res RewriteResult) {
	r.Results = append(r.Results, res)
	r.Total++
	if res.Success {
		r.Success++
	} else {
		r.Failed++
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
