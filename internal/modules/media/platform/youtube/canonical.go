package youtube

import (
	"context"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/oops"
)

// CanonicalResolver finds the canonical URL of a page.
type CanonicalResolver interface {
	Canonical(ctx context.Context, link string) (string, error)
}

// PageResolver reads <link rel="canonical"> from the page at link.
type PageResolver struct {
	client *http.Client
}

func NewPageResolver(client *http.Client) *PageResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageResolver{client: client}
}

func (r *PageResolver) Canonical(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", oops.With("link", link).Wrap(err)
	}
	// Consent interstitials are skipped for this cookie.
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+"})

	resp, err := r.client.Do(req)
	if err != nil {
		return "", oops.With("link", link).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", oops.With("link", link, "status", resp.StatusCode).Errorf("unexpected status")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", oops.With("link", link).Wrap(err)
	}

	href, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	return href, nil
}
