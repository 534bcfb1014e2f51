package services

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"time"

	"membercrm/models"
)

const (
	LayoutClassic   = "classic"
	LayoutMinimal   = "minimal"
	LayoutSpotlight = "spotlight"
)

var Layouts = []string{LayoutClassic, LayoutMinimal, LayoutSpotlight}

//go:embed layouts/*.html
var layoutFS embed.FS

var layouts = template.Must(template.ParseFS(layoutFS, "layouts/*.html"))

var urlPattern = regexp.MustCompile(`https?://[^\s<]+`)

// CampaignEmail is everything needed to render one campaign document.
type CampaignEmail struct {
	Subject        string
	Body           string
	Brand          string
	UnsubscribeURL string
	models.CampaignFields
}

type campaignImage struct {
	URL   string
	Label string
}

type campaignView struct {
	Subject        string
	Body           template.HTML
	BannerURL      string
	CTAText        string
	CTAURL         string
	Images         []campaignImage
	Brand          string
	Year           int
	UnsubscribeURL string
}

// IsValidLayout accepts the known layout keys; empty means classic.
func IsValidLayout(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", LayoutClassic, LayoutMinimal, LayoutSpotlight:
		return true
	default:
		return false
	}
}

// LayoutOrDefault maps empty or unknown keys to classic.
func LayoutOrDefault(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" || !IsValidLayout(k) {
		return LayoutClassic
	}
	return k
}

// BuildCampaignEmail renders a self-contained HTML document. Optional blocks
// (banner, CTA, image row) are emitted only when their fields are present.
func BuildCampaignEmail(e CampaignEmail) (string, error) {
	view := campaignView{
		Subject:        e.Subject,
		Body:           ConvertBody(e.Body),
		BannerURL:      strings.TrimSpace(e.BannerURL),
		Brand:          e.Brand,
		Year:           time.Now().Year(),
		UnsubscribeURL: e.UnsubscribeURL,
	}
	if view.Brand == "" {
		view.Brand = "Member CRM"
	}

	ctaText, ctaURL := strings.TrimSpace(e.CTAText), strings.TrimSpace(e.CTAURL)
	if ctaText != "" && ctaURL != "" {
		view.CTAText, view.CTAURL = ctaText, ctaURL
	}

	for _, img := range []campaignImage{
		{URL: e.LeftImageURL, Label: e.LeftImageLabel},
		{URL: e.RightImageURL, Label: e.RightImageLabel},
	} {
		if u := strings.TrimSpace(img.URL); u != "" {
			view.Images = append(view.Images, campaignImage{URL: u, Label: strings.TrimSpace(img.Label)})
		}
	}

	var buf bytes.Buffer
	if err := layouts.ExecuteTemplate(&buf, LayoutOrDefault(e.Layout)+".html", view); err != nil {
		return "", fmt.Errorf("render campaign email: %w", err)
	}
	return buf.String(), nil
}

// ConvertBody escapes plain text, keeps line breaks and turns bare
// http(s) URLs into links.
func ConvertBody(body string) template.HTML {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	escaped := html.EscapeString(body)
	withBreaks := strings.ReplaceAll(escaped, "\n", "<br>")
	linked := urlPattern.ReplaceAllString(withBreaks,
		`<a href="$0" target="_blank" rel="noopener noreferrer" style="color:#b8860b;font-weight:bold;text-decoration:none;">$0</a>`)
	return template.HTML(linked)
}
