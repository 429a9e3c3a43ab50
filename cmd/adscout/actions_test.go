package main

import (
	"bytes"
	"strings"
	"testing"

	"adscout/internal/core/domain"
)

func TestWriteResult(t *testing.T) {
	link := "https://acme.example/shop"
	res := &domain.ScrapeResult{
		Ads: []domain.NormalizedAd{{
			ID:        "123",
			PageName:  "Acme",
			Headline:  "Spring sale",
			LinkURL:   &link,
			MediaType: domain.MediaImage,
			Platforms: []domain.Platform{domain.PlatformFacebook},
		}},
		TotalCount: 1,
		ScrapedAt:  "2026-03-01T12:00:00Z",
		BrandName:  "Acme",
	}

	var js bytes.Buffer
	if err := writeResult(&js, "json", res); err != nil {
		t.Fatalf("json: %v", err)
	}
	for _, want := range []string{`"brandName": "Acme"`, `"totalCount": 1`, `"linkUrl": "https://acme.example/shop"`} {
		if !strings.Contains(js.String(), want) {
			t.Errorf("json output missing %s:\n%s", want, js.String())
		}
	}

	var y bytes.Buffer
	if err := writeResult(&y, "yaml", res); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	for _, want := range []string{"brandName: Acme", "totalCount: 1", "mediaType: image"} {
		if !strings.Contains(y.String(), want) {
			t.Errorf("yaml output missing %q:\n%s", want, y.String())
		}
	}
}
