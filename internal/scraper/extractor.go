package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"pilotjobs/internal/model"
)

const maxSummaryRunes = 280

var summaryConverter = md.NewConverter("", true, nil)

// Extract picks listings out of page using the site's selectors.
//
// Each node matched by CardSelector is one candidate. The title comes from
// TitleSelector inside the card (or the card itself), the link from
// LinkSelector, the title element or the first anchor in the card, and the
// company from CompanySelector or the site's fixed company. Relative links
// are resolved against BaseURL (or URL). Cards without a title are skipped.
func Extract(page []byte, site model.Site) ([]model.Job, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(firstNonEmpty(site.BaseURL, site.URL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	var jobs []model.Job
	doc.Find(site.CardSelector).Each(func(_ int, card *goquery.Selection) {
		titleSel := card
		if site.TitleSelector != "" {
			titleSel = card.Find(site.TitleSelector).First()
		}
		title := collapseSpace(titleSel.Text())
		if title == "" {
			return
		}

		company := ""
		if site.CompanySelector != "" {
			company = collapseSpace(card.Find(site.CompanySelector).First().Text())
		}

		jobs = append(jobs, model.Job{
			Title:   title,
			Company: firstNonEmpty(company, site.Company, site.Name),
			Link:    resolveLink(base, findHref(card, titleSel, site.LinkSelector), site.URL),
			Source:  site.Name,
			Summary: summarize(card),
		})
	})
	return jobs, nil
}

func findHref(card, titleSel *goquery.Selection, linkSelector string) string {
	candidates := []*goquery.Selection{}
	if linkSelector != "" {
		candidates = append(candidates, card.Find(linkSelector).First())
	}
	candidates = append(candidates, titleSel, card)
	for _, sel := range candidates {
		if sel.Is("a[href]") {
			if href, ok := sel.Attr("href"); ok && usableHref(href) {
				return href
			}
		}
		if href, ok := sel.Find("a[href]").First().Attr("href"); ok && usableHref(href) {
			return href
		}
	}
	return ""
}

func usableHref(href string) bool {
	h := strings.TrimSpace(strings.ToLower(href))
	return h != "" && h != "#" && !strings.HasPrefix(h, "javascript:") && !strings.HasPrefix(h, "mailto:")
}

// resolveLink makes href absolute; an empty href falls back to the page URL.
func resolveLink(base *url.URL, href, pageURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return pageURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

// summarize renders the card as markdown, trimmed to a short snippet.
func summarize(card *goquery.Selection) string {
	text := collapseSpace(summaryConverter.Convert(card))
	runes := []rune(text)
	if len(runes) > maxSummaryRunes {
		return strings.TrimSpace(string(runes[:maxSummaryRunes])) + "…"
	}
	return text
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
