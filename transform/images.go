package transform

import (
	"encoding/json"
	"strings"
)

// ResolveImage picks the image for a single-image post: the caller's choice
// when given, else the first stored image. It returns "" when none exists.
func ResolveImage(selected string, images any) string {
	if s := strings.TrimSpace(selected); s != "" {
		return s
	}
	all := ResolveImages(images)
	if len(all) == 0 {
		return ""
	}
	return all[0]
}

// ResolveImages returns every image URL in the stored value. It accepts the
// JSON-encoded string form and the decoded forms; anything unparsable yields nil.
func ResolveImages(images any) []string {
	switch v := images.(type) {
	case nil:
		return nil
	case string:
		return fromJSON([]byte(v))
	case []byte:
		return fromJSON(v)
	case json.RawMessage:
		return fromJSON(v)
	case []string:
		return cleanURLs(v)
	default:
		return fromDecoded(v)
	}
}

func fromJSON(raw []byte) []string {
	if strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return fromDecoded(decoded)
}

func fromDecoded(v any) []string {
	switch val := v.(type) {
	case []any:
		urls := make([]string, 0, len(val))
		for _, entry := range val {
			if u := entryURL(entry); u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	case []map[string]any:
		urls := make([]string, 0, len(val))
		for _, entry := range val {
			if u := entryURL(entry); u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	case map[string]any:
		if u := entryURL(val); u != "" {
			return []string{u}
		}
	case string:
		// A JSON string holding the list again (double-encoded column).
		return fromJSON([]byte(val))
	}
	return nil
}

func entryURL(entry any) string {
	switch e := entry.(type) {
	case string:
		return strings.TrimSpace(e)
	case map[string]any:
		if u, ok := e["url"].(string); ok {
			return strings.TrimSpace(u)
		}
	}
	return ""
}

func cleanURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
