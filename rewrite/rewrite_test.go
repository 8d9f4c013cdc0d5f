package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"

	"newsrelay/config"
	"newsrelay/store"
	"newsrelay/types"
)

type fakeCompleter struct {
	replies map[string]string // keyed by draft title
	err     error
	systems []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.systems = append(f.systems, system)
	if f.err != nil {
		return "", f.err
	}
	for title, reply := range f.replies {
		if strings.HasPrefix(user, "Original title: "+title+"\n\n") {
			return reply, nil
		}
	}
	return `{"title_modified":"T","content_modified":"C"}`, nil
}

var fragments = []types.InstructionFragment{
	{Name: "tone", Prompt: "Write neutrally."},
	{Name: "length", Prompt: "Keep it short."},
}

func TestRewriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	articles := store.NewMemory(&types.Article{ID: 1, URL: "https://news.example/1", TitleTranslated: "Old", ContentTranslated: "Old body"})
	completer := &fakeCompleter{replies: map[string]string{
		"Old": `{"title_modified":"New title","content_modified":"New body"}`,
	}}

	report, err := New(completer, articles).Run(ctx, []types.ArticleDraft{{Title: "Old", Content: "Old body", URL: "https://news.example/1"}}, fragments)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Success != 1 || !report.Results[0].Success || report.Results[0].TitleModified != "New title" {
		t.Fatalf("unexpected report %+v", report)
	}

	a, _ := articles.GetByID(ctx, 1)
	if a.EffectiveTitle() != "New title" || a.EffectiveContent() != "New body" {
		t.Fatalf("article not updated: %+v", a)
	}
	if !strings.HasPrefix(completer.systems[0], "Write neutrally.\n\nKeep it short.\n\n## Output format") {
		t.Fatalf("instruction = %q", completer.systems[0])
	}
}

func TestRewritePerItemFailures(t *testing.T) {
	articles := store.NewMemory(
		&types.Article{ID: 1, URL: "https://news.example/1"},
		&types.Article{ID: 2, URL: "https://news.example/dup"},
		&types.Article{ID: 3, URL: "https://news.example/dup"},
	)
	completer := &fakeCompleter{replies: map[string]string{
		"bad json": `not json at all`,
		"partial":  `{"title_modified":"only title","content_modified":""}`,
		"fenced":   "```json\n{\"title_modified\":\"F\",\"content_modified\":\"G\"}\n```",
	}}

	drafts := []types.ArticleDraft{
		{Title: "no url"},
		{Title: "bad json", URL: "https://news.example/1"},
		{Title: "partial", URL: "https://news.example/1"},
		{Title: "unknown", URL: "https://news.example/missing"},
		{Title: "fenced", URL: "https://news.example/1"},
		{Title: "dup", URL: "https://news.example/dup"},
	}
	report, err := New(completer, articles).Run(context.Background(), drafts, fragments)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []struct {
		ok     bool
		reason string
	}{
		{false, "missing url"},
		{false, "invalid JSON from model"},
		{false, "model response is missing"},
		{false, "no matching url"},
		{true, ""},
		{true, ""},
	}
	if report.Total != len(drafts) || report.Success+report.Failed != report.Total {
		t.Fatalf("inconsistent counts %+v", report)
	}
	for i, w := range want {
		res := report.Results[i]
		if res.Success != w.ok {
			t.Fatalf("result %d success = %v; want %v (%+v)", i, res.Success, w.ok, res)
		}
		if !w.ok && !strings.HasPrefix(*res.Error, w.reason) {
			t.Fatalf("result %d error = %q; want prefix %q", i, *res.Error, w.reason)
		}
	}
	if len(completer.systems) != len(drafts)-1 {
		t.Fatalf("completer called %d times; missing url should skip the call", len(completer.systems))
	}
}

func TestRewriteBatchRefusals(t *testing.T) {
	articles := store.NewMemory()
	drafts := []types.ArticleDraft{{URL: "https://news.example/1"}}

	if _, err := New(nil, articles).Run(context.Background(), drafts, fragments); !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("nil completer: %v", err)
	}
	if _, err := New(&fakeCompleter{}, articles).Run(context.Background(), nil, fragments); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("no drafts: %v", err)
	}
	if _, err := New(&fakeCompleter{}, articles).Run(context.Background(), drafts, nil); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("no fragments: %v", err)
	}
}

func TestCompletionErrorIsItemFailure(t *testing.T) {
	articles := store.NewMemory(&types.Article{ID: 1, URL: "https://news.example/1"})
	report, err := New(&fakeCompleter{err: errors.New("rate limited")}, articles).
		Run(context.Background(), []types.ArticleDraft{{Title: "x", URL: "https://news.example/1"}}, fragments)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || !strings.Contains(*report.Results[0].Error, "rate limited") {
		t.Fatalf("unexpected report %+v", report.Results[0])
	}
}

func TestNewCompleterSelection(t *testing.T) {
	if c, err := NewCompleter(config.LLMConfig{Provider: "openai"}); c != nil || err != nil {
		t.Fatalf("openai without key = %v, %v; want nil, nil", c, err)
	}
	if c, _ := NewCompleter(config.LLMConfig{Provider: "anthropic", AnthropicKey: "k"}); c == nil {
		t.Fatalf("anthropic completer not built")
	}
	if _, err := NewCompleter(config.LLMConfig{Provider: "cohere", OpenAIKey: "k"}); err == nil {
		t.Fatalf("unknown provider accepted")
	}
}

func TestOpenAICompleterRequestsJSONObject(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-5-nano",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"title_modified\":\"a\",\"content_modified\":\"b\"}"}}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("test-key", "", option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	out, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"title_modified":"a","content_modified":"b"}` {
		t.Fatalf("content = %q", out)
	}
	if body["model"] != "gpt-5-nano" {
		t.Fatalf("model = %v", body["model"])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("response_format = %v", body["response_format"])
	}
}
