package service

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"adscout/internal/core/domain"
)

var fallbackHeadlines = []string{
	"Summer Collection: 50% Off Everything",
	"New Arrivals: Fresh Styles Just Dropped",
	"Free Shipping on Orders $50+",
	"Limited Time: Buy 2 Get 1 Free",
	"Shop the Look: Trending Now",
	"Flash Sale: 24 Hours Only",
	"Upgrade Your Wardrobe Today",
	"Exclusive Members-Only Deals",
	"Best Sellers Back in Stock",
	"Your New Favorite Just Arrived",
}

var fallbackBodies = []string{
	"Discover our newest collection with styles for every occasion.",
	"Don't miss out on these incredible savings. Shop now before they're gone!",
	"Join millions of happy customers who trust us for quality and style.",
	"Premium quality meets affordable pricing. See why everyone's talking about us.",
	"Transform your look with our curated selection of trending pieces.",
}

var fallbackMediaTypes = []domain.MediaType{
	domain.MediaVideo,
	domain.MediaImage,
	domain.MediaCarousel,
	domain.MediaVideo,
	domain.MediaImage,
}

// fallbackGenerator produces synthetic ads shaped exactly like real ones.
type fallbackGenerator struct {
	now func() time.Time
}

func (g fallbackGenerator) generate(req domain.ScrapeRequest) *domain.ScrapeResult {
	now := g.now().UTC()
	count := req.EffectiveCount()
	slug := brandSlug(req.BrandName)
	window := time.Duration(req.StartedWithin.Days()) * 24 * time.Hour

	ads := make([]domain.NormalizedAd, 0, count)
	for i := range count {
		id := "ad_" + uuid.NewString()
		thumb := fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", url.PathEscape(slug), i)
		link := "https://example.com/" + url.PathEscape(slug)
		start := now.Add(-time.Duration(rand.Int64N(int64(window)))).Format(time.DateOnly)

		ads = append(ads, domain.NormalizedAd{
			ID:                id,
			PageID:            "page_" + strings.ReplaceAll(slug, "-", "_"),
			PageName:          req.BrandName,
			Headline:          fallbackHeadlines[i%len(fallbackHeadlines)],
			BodyText:          fallbackBodies[i%len(fallbackBodies)],
			LinkURL:           &link,
			MediaType:         fallbackMediaTypes[i%len(fallbackMediaTypes)],
			MediaThumbnailURL: &thumb,
			StartDate:         start,
			EndDate:           nil,
			IsActive:          true,
			ImpressionRange: &domain.ImpressionRange{
				Lower: rand.IntN(50000) + 1000,
				Upper: rand.IntN(100000) + 50000,
			},
			Platforms: []domain.Platform{domain.PlatformFacebook, domain.PlatformInstagram},
			SourceURL: adLibraryBaseURL + "?id=" + id,
		})
	}

	return &domain.ScrapeResult{
		Ads:        ads,
		TotalCount: len(ads),
		ScrapedAt:  now.Format(time.RFC3339),
		BrandName:  req.BrandName,
	}
}

// brandSlug lower-cases the brand and joins its words with dashes.
func brandSlug(brand string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(brand)), "-")
	if slug == "" {
		return "brand"
	}
	return slug
}
