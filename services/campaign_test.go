package services

import (
	"strings"
	"testing"

	"membercrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBody(t *testing.T) {
	got := string(ConvertBody("Hello <b>VIP</b> & friends\nSee https://example.com/offer?a=1 now"))

	assert.Contains(t, got, "Hello &lt;b&gt;VIP&lt;/b&gt; &amp; friends<br>See ")
	assert.Contains(t, got, `<a href="https://example.com/offer?a=1" target="_blank" rel="noopener noreferrer"`)
	assert.NotContains(t, got, "<b>")
}

func TestConvertBody_WindowsNewlines(t *testing.T) {
	assert.Equal(t, "a<br>b", string(ConvertBody("a\r\nb")))
}

func TestBuildCampaignEmail_Classic(t *testing.T) {
	html, err := BuildCampaignEmail(CampaignEmail{
		Subject:        "Summer <Menu>",
		Body:           "Join us",
		Brand:          "The Globe",
		UnsubscribeURL: "https://example.com/unsubscribe",
		CampaignFields: models.CampaignFields{
			BannerURL:      "https://cdn.example.com/banner.png",
			CTAText:        "Book now",
			CTAURL:         "https://example.com/book",
			LeftImageURL:   "https://cdn.example.com/left.png",
			LeftImageLabel: "Gift Cards",
			RightImageURL:  "https://cdn.example.com/right.png",
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Summer &lt;Menu&gt;</title>")
	assert.Contains(t, html, `src="https://cdn.example.com/banner.png"`)
	assert.Contains(t, html, `href="https://example.com/book" class="btn">Book now</a>`)
	assert.Contains(t, html, "Gift Cards")
	assert.Contains(t, html, `width="50%"`)
	assert.Contains(t, html, "The Globe")
	assert.Contains(t, html, "Unsubscribe")
}

func TestBuildCampaignEmail_OptionalBlocksOmitted(t *testing.T) {
	html, err := BuildCampaignEmail(CampaignEmail{
		Subject: "Plain",
		Body:    "Nothing fancy",
		CampaignFields: models.CampaignFields{
			CTAText: "Dangling text without a url",
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "Banner")
	assert.NotContains(t, html, "Dangling text")
	assert.NotContains(t, html, `width="250"`)
	assert.NotContains(t, html, ">Unsubscribe</a>")
	assert.Contains(t, html, "Member CRM")
}

func TestBuildCampaignEmail_EveryLayoutOffersUnsubscribe(t *testing.T) {
	for _, layout := range Layouts {
		t.Run(layout, func(t *testing.T) {
			withoutURL, err := BuildCampaignEmail(CampaignEmail{Subject: "S", Body: "B",
				CampaignFields: models.CampaignFields{Layout: layout}})
			require.NoError(t, err)
			assert.Contains(t, withoutURL, "Unsubscribe: reply")
			assert.Contains(t, withoutURL, "UNSUBSCRIBE")

			withURL, err := BuildCampaignEmail(CampaignEmail{Subject: "S", Body: "B",
				UnsubscribeURL: "mailto:news@example.com?subject=Unsubscribe",
				CampaignFields: models.CampaignFields{Layout: layout}})
			require.NoError(t, err)
			assert.Contains(t, withURL, `href="mailto:news@example.com?subject=Unsubscribe"`)
			assert.NotContains(t, withURL, "Unsubscribe: reply")
		})
	}
}

func TestBuildCampaignEmail_SingleImageFullWidth(t *testing.T) {
	html, err := BuildCampaignEmail(CampaignEmail{
		Subject: "One",
		Body:    "x",
		CampaignFields: models.CampaignFields{
			RightImageURL: "https://cdn.example.com/only.png",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, `width="100%" align="center"`)
	assert.Equal(t, 1, strings.Count(html, `width="250"`))
}

func TestBuildCampaignEmail_Layouts(t *testing.T) {
	fields := models.CampaignFields{
		BannerURL:    "https://cdn.example.com/banner.png",
		CTAText:      "Go",
		CTAURL:       "https://example.com",
		LeftImageURL: "https://cdn.example.com/left.png",
	}

	minimal, err := BuildCampaignEmail(CampaignEmail{Subject: "S", Body: "B", CampaignFields: withLayout(fields, "minimal")})
	require.NoError(t, err)
	assert.Contains(t, minimal, "Go &rarr;")
	assert.NotContains(t, minimal, "banner.png")
	assert.NotContains(t, minimal, "left.png")

	spotlight, err := BuildCampaignEmail(CampaignEmail{Subject: "S", Body: "B", CampaignFields: withLayout(fields, "Spotlight")})
	require.NoError(t, err)
	assert.Contains(t, spotlight, "#f5d48a")
	assert.Contains(t, spotlight, "banner.png")
	assert.Contains(t, spotlight, `width="552"`)

	unknown, err := BuildCampaignEmail(CampaignEmail{Subject: "S", Body: "B", CampaignFields: withLayout(fields, "retro")})
	require.NoError(t, err)
	assert.Contains(t, unknown, `class="btn"`)
}

func TestBuildCampaignEmail_RejectsScriptURLs(t *testing.T) {
	html, err := BuildCampaignEmail(CampaignEmail{
		Subject: "S",
		Body:    "B",
		CampaignFields: models.CampaignFields{
			CTAText: "Click",
			CTAURL:  "javascript:alert(1)",
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "javascript:")
}

func TestLayoutOrDefault(t *testing.T) {
	assert.Equal(t, LayoutClassic, LayoutOrDefault(""))
	assert.Equal(t, LayoutMinimal, LayoutOrDefault(" MINIMAL "))
	assert.Equal(t, LayoutClassic, LayoutOrDefault("unknown"))
	assert.False(t, IsValidLayout("unknown"))
	assert.True(t, IsValidLayout(""))
}

func withLayout(f models.CampaignFields, layout string) models.CampaignFields {
	f.Layout = layout
	return f
}
