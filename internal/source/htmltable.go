package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// headerRows is the number of leading table rows the dashboard uses for
// headings before case data starts.
const headerRows = 2

// HTMLTableSource scrapes the case table from the health authority's
// dashboard page. The page builds the table with JavaScript, so it is
// rendered in headless Chrome before parsing.
type HTMLTableSource struct {
	url      string
	execPath string
	timeout  time.Duration
}

// HTMLTableConfig tunes the dashboard scraper.
type HTMLTableConfig struct {
	URL      string
	ExecPath string
	Timeout  time.Duration
}

// NewHTMLTableSource creates a dashboard scraper.
func NewHTMLTableSource(cfg HTMLTableConfig) *HTMLTableSource {
	if cfg.ExecPath == "" {
		cfg.ExecPath = "/usr/bin/google-chrome"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTMLTableSource{
		url:      cfg.URL,
		execPath: cfg.ExecPath,
		timeout:  cfg.Timeout,
	}
}

// Fetch renders the dashboard page and extracts one CaseRow per table row.
// The dashboard does not publish record dates, so rows are stamped with the
// scrape time.
func (s *HTMLTableSource) Fetch(ctx context.Context) ([]CaseRow, error) {
	html, err := s.renderPage(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := parseCaseTable(html)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	log.Infof("Dashboard: Extracted %d case rows", len(rows))
	return rows, nil
}

func (s *HTMLTableSource) renderPage(ctx context.Context) (string, error) {
	log.Infof("Dashboard: Fetching %s with Chrome", s.url)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(s.execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true), // Required for systemd/Docker
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, s.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(s.url),
		chromedp.WaitVisible(`table`, chromedp.ByQuery),
		// Give the page's scripts a moment to finish filling the table.
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}

	log.Infof("Dashboard: Rendered HTML (%d bytes)", len(html))
	return html, nil
}

// parseCaseTable extracts case rows from rendered dashboard HTML. The first
// table on the page is the case table; its first two rows are headings.
func parseCaseTable(html string) ([]CaseRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard HTML: %w", err)
	}

	fetchedAt := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var rows []CaseRow
	doc.Find("table").First().Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i < headerRows {
			return
		}
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cells) < 5 {
			return
		}
		rows = append(rows, CaseRow{
			CaseNumber:   cells[0],
			County:       cells[1],
			Age:          cells[2],
			Sex:          cells[3],
			TravelStatus: cells[4],
			Date:         RawDate{Kind: DateEpochMillis, Value: fetchedAt},
		})
	})

	return rows, nil
}
