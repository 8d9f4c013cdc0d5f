package config

import "time"

// Timeout Constants
const (
	// MetadataTimeout bounds short reads such as permalink lookups and token refreshes
	MetadataTimeout = 10 * time.Second

	// PublishTimeout bounds a single create/publish call against a platform
	PublishTimeout = 30 * time.Second

	// MediaTimeout bounds image download and media upload calls
	MediaTimeout = 60 * time.Second

	// CompletionTimeout bounds a single language-model completion call
	CompletionTimeout = 60 * time.Second
)

// Token Constants
const (
	// DefaultTokenTTL is the validity window of a long-lived token (60 days)
	DefaultTokenTTL = 60 * 24 * time.Hour

	// TokenRefreshMargin is how long before expiry a token is renewed
	TokenRefreshMargin = 24 * time.Hour

	// DefaultRefreshSchedule runs the proactive refresh once a day
	DefaultRefreshSchedule = "0 3 * * *"
)

// Platform Limits
const (
	// InstagramCaptionLimit is counted in UTF-16 code units
	InstagramCaptionLimit = 2200

	// ThreadsTextLimit is counted in characters
	ThreadsTextLimit = 500

	// TruncationSuffix is appended to captions cut at a platform limit
	TruncationSuffix = "..."

	// InstagramSettleDelay lets Instagram ingest the container media before publish
	InstagramSettleDelay = 5 * time.Second
)

// API base URLs
const (
	GraphAPIBaseURL   = "https://graph.facebook.com/v21.0"
	ThreadsAPIBaseURL = "https://graph.threads.net/v1.0"
	PixnetAPIBaseURL  = "https://emma.pixnet.cc"
)

// DefaultArticleTable is the Postgres table holding translated articles
const DefaultArticleTable = "news"

// AllowedSourceWebsites lists the sources whose articles are surfaced for publishing
var AllowedSourceWebsites = []string{
	"https://www.thenationalnews.com/",
	"https://www.bbc.com/news/world/middle_east",
	"https://www.bbc.com/thai",
	"https://www.freemalaysiatoday.com/",
	"https://news.web.nhk/newsweb",
	"https://jen.jiji.com/",
	"https://en.yna.co.kr/",
	"https://news.kbs.co.kr/news/pc/main/main.html",
	"https://www.caixin.com/",
	"https://saudigazette.com.sa/",
}
