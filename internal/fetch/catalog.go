package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leiwong/rpscan/pkg/httputil"
	"github.com/leiwong/rpscan/pkg/logger"
)

// Listing is one A-share instrument from the exchange listing pages.
type Listing struct {
	Exchange string // "sh" or "sz"
	Code     string
	Name     string
	ListDate time.Time
}

// PrefixedCode returns the exchange-prefixed code, e.g. "sh.600519".
func (l Listing) PrefixedCode() string {
	return l.Exchange + "." + l.Code
}

// Catalog scrapes the per-exchange listing pages.
type Catalog struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewCatalog creates a listing catalog client.
func NewCatalog(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Catalog {
	return &Catalog{
		httpClient: httpClient,
		logger:     log.WithField("module", "catalog"),
		baseURL:    baseURL,
	}
}

// FetchListings returns all listed A-shares on both exchanges that have
// traded for at least a year as of asOf. Younger instruments cannot carry
// the 250-bar history the screen needs, so they are dropped at the source.
func (c *Catalog) FetchListings(ctx context.Context, asOf time.Time) ([]Listing, error) {
	oneYearAgo := asOf.AddDate(-1, 0, 0)

	var all []Listing
	for _, exchange := range []string{"sh", "sz"} {
		listings, err := c.fetchExchange(ctx, exchange)
		if err != nil {
			return nil, fmt.Errorf("fetch %s listings: %w", exchange, err)
		}
		for _, l := range listings {
			if l.ListDate.After(oneYearAgo) {
				continue
			}
			all = append(all, l)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"count": len(all),
		"as_of": asOf.Format("2006-01-02"),
	}).Info("Fetched instrument catalog")

	return all, nil
}

// fetchExchange scrapes one exchange's listing table.
func (c *Catalog) fetchExchange(ctx context.Context, exchange string) ([]Listing, error) {
	fullURL := fmt.Sprintf("%s/listings/%s", c.baseURL, exchange)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	return parseListingTable(doc, exchange), nil
}

// parseListingTable extracts listings from the page's instrument table.
// Rows missing a 6-digit code or a parseable list date are skipped.
func parseListingTable(doc *goquery.Document, exchange string) []Listing {
	var listings []Listing

	doc.Find("table.instrument-list tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Text())
		name := strings.TrimSpace(cells.Eq(1).Text())
		listDateStr := strings.TrimSpace(cells.Eq(2).Text())
		status := strings.TrimSpace(cells.Eq(3).Text())

		if len(code) != 6 || !isDigits(code) {
			return
		}
		if status != "" && !strings.EqualFold(status, "listed") {
			return
		}

		listDate, err := time.Parse("2006-01-02", listDateStr)
		if err != nil {
			return
		}

		listings = append(listings, Listing{
			Exchange: exchange,
			Code:     code,
			Name:     name,
			ListDate: listDate,
		})
	})

	return listings
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
