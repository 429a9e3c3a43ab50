package domain

// ProviderMax caps how many ads a single scrape asks the provider for.
const ProviderMax = 10

// ImpressionPeriod is the impression window the caller is interested in.
type ImpressionPeriod string

const (
	ImpressionLast7d  ImpressionPeriod = "last_7d"
	ImpressionLast30d ImpressionPeriod = "last_30d"
	ImpressionLast90d ImpressionPeriod = "last_90d"
	ImpressionAllTime ImpressionPeriod = "all_time"
)

// StartedWithin bounds how recently an ad must have started running.
type StartedWithin string

const (
	StartedLast7d  StartedWithin = "last_7d"
	StartedLast30d StartedWithin = "last_30d"
	StartedLast90d StartedWithin = "last_90d"
	StartedLast6m  StartedWithin = "last_6m"
	StartedLast1y  StartedWithin = "last_1y"
)

// Days returns the length of the window in days. Unknown values fall back
// to 90 days.
func (s StartedWithin) Days() int {
	switch s {
	case StartedLast7d:
		return 7
	case StartedLast30d:
		return 30
	case StartedLast6m:
		return 180
	case StartedLast1y:
		return 365
	default:
		return 90
	}
}

// MediaType is the creative format of an ad.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaCarousel MediaType = "carousel"
)

// Platform is a surface an ad was published on.
type Platform string

const (
	PlatformFacebook        Platform = "facebook"
	PlatformInstagram       Platform = "instagram"
	PlatformAudienceNetwork Platform = "audience_network"
	PlatformMessenger       Platform = "messenger"
)

// ScrapeRequest describes one ad-library lookup.
type ScrapeRequest struct {
	BrandName        string           `json:"brandName" yaml:"brandName"`
	SourceURL        string           `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	TargetCount      int              `json:"targetCount" yaml:"targetCount"`
	ImpressionPeriod ImpressionPeriod `json:"impressionPeriod" yaml:"impressionPeriod"`
	StartedWithin    StartedWithin    `json:"startedWithin" yaml:"startedWithin"`
	Country          string           `json:"country,omitempty" yaml:"country,omitempty"` // ISO 2-letter code or "ALL"
}

// EffectiveCount is TargetCount capped at ProviderMax and floored at zero.
func (r ScrapeRequest) EffectiveCount() int {
	n := min(r.TargetCount, ProviderMax)
	if n < 0 {
		return 0
	}
	return n
}

// ImpressionRange holds numeric impression bounds.
type ImpressionRange struct {
	Lower int `json:"lower" yaml:"lower"`
	Upper int `json:"upper" yaml:"upper"`
}

// NormalizedAd is the stable shape every consumer of scrape results sees.
type NormalizedAd struct {
	ID                string           `json:"id" yaml:"id"`
	PageID            string           `json:"pageId" yaml:"pageId"`
	PageName          string           `json:"pageName" yaml:"pageName"`
	Headline          string           `json:"headline" yaml:"headline"`
	BodyText          string           `json:"bodyText" yaml:"bodyText"`
	LinkURL           *string          `json:"linkUrl" yaml:"linkUrl"`
	MediaType         MediaType        `json:"mediaType" yaml:"mediaType"`
	MediaThumbnailURL *string          `json:"mediaThumbnailUrl" yaml:"mediaThumbnailUrl"`
	StartDate         string           `json:"startDate" yaml:"startDate"` // YYYY-MM-DD
	EndDate           *string          `json:"endDate" yaml:"endDate"`
	IsActive          bool             `json:"isActive" yaml:"isActive"`
	ImpressionRange   *ImpressionRange `json:"impressionRange" yaml:"impressionRange"`
	Platforms         []Platform       `json:"platforms" yaml:"platforms"`
	SourceURL         string           `json:"sourceUrl" yaml:"sourceUrl"`
}

// ScrapeResult is what a scrape resolves to. TotalCount always equals
// len(Ads). Results handed out by the orchestrator may be shared through
// its cache and must be treated as read-only.
type ScrapeResult struct {
	Ads        []NormalizedAd `json:"ads" yaml:"ads"`
	TotalCount int            `json:"totalCount" yaml:"totalCount"`
	ScrapedAt  string         `json:"scrapedAt" yaml:"scrapedAt"` // RFC 3339
	BrandName  string         `json:"brandName" yaml:"brandName"`
}

// AbortResult reports whether a stop request reached an in-flight run.
type AbortResult struct {
	Aborted bool `json:"aborted" yaml:"aborted"`
}
