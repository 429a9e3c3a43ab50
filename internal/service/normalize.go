package service

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"adscout/internal/core/domain"
	"adscout/internal/core/ports"
)

const (
	adLibraryBaseURL = "https://www.facebook.com/ads/library/"
	headlineMaxRunes = 80
	untitledHeadline = "Untitled Ad"
)

// buildSearchURL returns the ad-library page the actor is asked to scrape.
// An explicit SourceURL on the request wins over the brand search.
func buildSearchURL(req domain.ScrapeRequest) string {
	if src := strings.TrimSpace(req.SourceURL); src != "" {
		return src
	}
	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		country = "ALL"
	}
	q := url.Values{}
	q.Set("active_status", "all")
	q.Set("ad_type", "all")
	q.Set("country", country)
	q.Set("q", strings.TrimSpace(req.BrandName))
	q.Set("search_type", "keyword_unordered")
	q.Set("media_type", "all")
	return adLibraryBaseURL + "?" + q.Encode()
}

// normalizeItems maps raw dataset items onto the domain shape, keeping at
// most req.EffectiveCount() of them.
func normalizeItems(items []ports.RawItem, req domain.ScrapeRequest) []domain.NormalizedAd {
	n := min(len(items), req.EffectiveCount())
	ads := make([]domain.NormalizedAd, 0, n)
	for _, item := range items[:n] {
		ads = append(ads, normalizeItem(item, req))
	}
	return ads
}

func normalizeItem(item ports.RawItem, req domain.ScrapeRequest) domain.NormalizedAd {
	card := firstCard(item.Snapshot)
	id := resolveID(item)
	return domain.NormalizedAd{
		ID:                id,
		PageID:            string(item.PageID),
		PageName:          firstNonEmpty(item.PageName, item.Snapshot.PageName, strings.TrimSpace(req.BrandName)),
		Headline:          resolveHeadline(card, item.Snapshot),
		BodyText:          resolveBodyText(card, item.Snapshot),
		LinkURL:           resolveLinkURL(card, item.Snapshot),
		MediaType:         resolveMediaType(card, item.Snapshot),
		MediaThumbnailURL: resolveThumbnail(card, item.Snapshot),
		StartDate:         formatDate(item.StartDate),
		EndDate:           resolveEndDate(item.EndDate),
		IsActive:          item.IsActive,
		ImpressionRange:   nil, // provider only reports a display string
		Platforms:         resolvePlatforms(item.PublisherPlatform),
		SourceURL:         resolveSourceURL(item, id),
	}
}

func firstCard(s ports.Snapshot) ports.Card {
	if len(s.Cards) > 0 {
		return s.Cards[0]
	}
	return ports.Card{}
}

func resolveID(item ports.RawItem) string {
	if id := firstNonEmpty(string(item.AdArchiveID), string(item.AdID)); id != "" {
		return id
	}
	return "ad_" + uuid.NewString()
}

func resolveThumbnail(card ports.Card, s ports.Snapshot) *string {
	var image ports.SnapshotImage
	if len(s.Images) > 0 {
		image = s.Images[0]
	}
	var video ports.SnapshotVideo
	if len(s.Videos) > 0 {
		video = s.Videos[0]
	}
	return optional(firstNonEmpty(
		card.ResizedImageURL,
		card.OriginalImageURL,
		card.VideoPreviewImageURL,
		image.ResizedImageURL,
		image.OriginalImageURL,
		video.VideoPreviewImageURL,
	))
}

func resolveHeadline(card ports.Card, s ports.Snapshot) string {
	if h := firstNonEmpty(
		card.Title,
		s.LinkTitle,
		truncateRunes(card.Body, headlineMaxRunes),
		truncateRunes(s.Body.Text, headlineMaxRunes),
	); h != "" {
		return h
	}
	return untitledHeadline
}

func resolveBodyText(card ports.Card, s ports.Snapshot) string {
	return firstNonEmpty(card.Body, s.Body.Text, card.LinkDescription, s.LinkDescription)
}

func resolveLinkURL(card ports.Card, s ports.Snapshot) *string {
	return optional(firstNonEmpty(card.LinkURL, s.LinkURL))
}

// resolveMediaType checks video signals before the carousel card count.
func resolveMediaType(card ports.Card, s ports.Snapshot) domain.MediaType {
	if card.HasVideo() {
		return domain.MediaVideo
	}
	for _, v := range s.Videos {
		if v.HasVideo() {
			return domain.MediaVideo
		}
	}
	if len(s.Cards) > 1 {
		return domain.MediaCarousel
	}
	return domain.MediaImage
}

// formatDate renders Unix seconds as YYYY-MM-DD and passes strings through.
func formatDate(ts ports.Timestamp) string {
	switch {
	case !ts.Valid:
		return ""
	case ts.IsText():
		return ts.Text
	default:
		return time.Unix(ts.Unix, 0).UTC().Format(time.DateOnly)
	}
}

func resolveEndDate(ts ports.Timestamp) *string {
	return optional(formatDate(ts))
}

var knownPlatforms = map[string]domain.Platform{
	"facebook":         domain.PlatformFacebook,
	"instagram":        domain.PlatformInstagram,
	"audience_network": domain.PlatformAudienceNetwork,
	"messenger":        domain.PlatformMessenger,
}

func resolvePlatforms(raw []string) []domain.Platform {
	seen := make(map[domain.Platform]bool, len(raw))
	platforms := make([]domain.Platform, 0, len(raw))
	for _, name := range raw {
		p, ok := knownPlatforms[strings.ToLower(strings.TrimSpace(name))]
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	if len(platforms) == 0 {
		return []domain.Platform{domain.PlatformFacebook}
	}
	return platforms
}

func resolveSourceURL(item ports.RawItem, id string) string {
	if u := strings.TrimSpace(item.AdLibraryURL); u != "" {
		return u
	}
	return adLibraryBaseURL + "?id=" + url.QueryEscape(id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
