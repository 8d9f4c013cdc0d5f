// Package rewrite asks a language model to rewrite article drafts and stores
// the results as the articles' modified title and content.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"newsrelay/config"
	"newsrelay/store"
	"newsrelay/types"
)

const outputDirective = "## Output format\n" +
	"Respond with JSON only, exactly in this shape, with no other text:\n" +
	"```json\n{\n  \"title_modified\": \"rewritten title\",\n  \"content_modified\": \"rewritten content\"\n}\n```"

// Rewriter runs rewrite batches. Drafts are processed in order and a failed
// draft never stops the batch.
type Rewriter struct {
	completer Completer
	articles  store.ArticleStore
}

// New returns a Rewriter. completer may be nil; Run then refuses every batch.
func New(completer Completer, articles store.ArticleStore) *Rewriter {
	return &Rewriter{completer: completer, articles: articles}
}

// Available reports whether a completion provider is configured.
func (r *Rewriter) Available() bool {
	return r.completer != nil
}

func (r *Rewriter) Run(ctx context.Context, drafts []types.ArticleDraft, fragments []types.InstructionFragment) (*types.RewriteReport, error) {
	if r.completer == nil {
		return nil, types.NewError(types.ErrConfiguration, "no language model configured")
	}
	if len(drafts) == 0 {
		return nil, types.NewError(types.ErrValidation, "at least one news item is required")
	}
	if len(fragments) == 0 {
		return nil, types.NewError(types.ErrValidation, "at least one system prompt is required")
	}

	instruction := BuildInstruction(fragments)
	report := &types.RewriteReport{Results: make([]types.RewriteResult, 0, len(drafts))}

	log.Printf("=== Rewriting %d item(s) with %d prompt(s) ===", len(drafts), len(fragments))
	for i, d := range drafts {
		res := r.rewriteOne(ctx, instruction, d)
		report.Add(res)
		if res.Success {
			log.Printf("  [%d/%d] ✅ %s rewritten", i+1, len(drafts), d.URL)
		} else {
			log.Printf("  [%d/%d] ❌ %s failed: %s", i+1, len(drafts), d.URL, *res.Error)
		}
	}
	log.Printf("=== Rewrite complete: %d succeeded, %d failed ===", report.Success, report.Failed)
	return report, nil
}

func (r *Rewriter) rewriteOne(ctx context.Context, instruction string, d types.ArticleDraft) (res types.RewriteResult) {
	res.URL = d.URL
	defer func() {
		if p := recover(); p != nil {
			res = types.RewriteResult{URL: d.URL, Error: types.StringPtr(fmt.Sprintf("internal error: %v", p))}
		}
	}()

	title, content, err := r.rewrite(ctx, instruction, d)
	if err != nil {
		var pe *types.PublishError
		if errors.As(err, &pe) {
			res.Error = types.StringPtr(pe.Reason)
		} else {
			res.Error = types.StringPtr(err.Error())
		}
		return res
	}
	res.TitleModified = title
	res.ContentModified = content
	res.Success = true
	return res
}

func (r *Rewriter) rewrite(ctx context.Context, instruction string, d types.ArticleDraft) (string, string, error) {
	if strings.TrimSpace(d.URL) == "" {
		return "", "", types.NewError(types.ErrValidation, "missing url")
	}

	cctx, cancel := context.WithTimeout(ctx, config.CompletionTimeout)
	raw, err := r.completer.Complete(cctx, instruction, UserMessage(d))
	cancel()
	if err != nil {
		return "", "", types.Errorf(types.ErrProvider, "completion failed: %v", err)
	}

	title, content, err := ParseRewrite(raw)
	if err != nil {
		return "", "", err
	}

	rows, err := r.articles.UpdateByURL(ctx, d.URL, store.ArticleUpdate{TitleModified: title, ContentModified: content})
	if err != nil {
		return "", "", types.Errorf(types.ErrTransport, "failed to save rewrite: %v", err)
	}
	switch {
	case rows == 0:
		return "", "", types.NewError(types.ErrNotFound, "no matching url")
	case rows > 1:
		log.Printf("⚠️  %d articles share url %s; all were updated", rows, d.URL)
	}
	return title, content, nil
}

// BuildInstruction joins the fragment prompts and appends the output format.
func BuildInstruction(fragments []types.InstructionFragment) string {
	parts := make([]string, 0, len(fragments)+1)
	for _, f := range fragments {
		parts = append(parts, f.Prompt)
	}
	parts = append(parts, outputDirective)
	return strings.Join(parts, "\n\n")
}

// UserMessage is the user turn for one draft.
func UserMessage(d types.ArticleDraft) string {
	return fmt.Sprintf("Original title: %s\n\nOriginal content: %s", d.Title, d.Content)
}

// ParseRewrite decodes the model output. Both fields must be present and non-empty.
func ParseRewrite(raw string) (title, content string, err error) {
	var out struct {
		TitleModified   string `json:"title_modified"`
		ContentModified string `json:"content_modified"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return "", "", types.Errorf(types.ErrParse, "invalid JSON from model: %v", err)
	}
	if strings.TrimSpace(out.TitleModified) == "" || strings.TrimSpace(out.ContentModified) == "" {
		return "", "", types.NewError(types.ErrParse, "model response is missing title_modified or content_modified")
	}
	return out.TitleModified, out.ContentModified, nil
}

// stripFence removes a surrounding markdown code fence. Prose around the JSON
// is left in place so it fails to parse.
func stripFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
