package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
)

// PageCache stores raw source documents by URL.
type PageCache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte) error
}

type Extractor struct {
	http      *http.Client
	userAgent string
	cache     PageCache
	logger    *zap.Logger
}

// New builds an Extractor. cache may be nil.
func New(timeout time.Duration, userAgent string, cache PageCache, logger *zap.Logger) *Extractor {
	logger.Info("Creating extractor",
		zap.Duration("timeout", timeout),
		zap.String("user_agent", userAgent),
		zap.Bool("cache", cache != nil))
	return &Extractor{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		cache:     cache,
		logger:    logger,
	}
}

// Extract fetches url and turns the first table on the page into a Table
// shaped by columns (name column first, metric column second).
func (e *Extractor) Extract(ctx context.Context, url string, columns []string) (*types.Table, error) {
	body, err := e.document(ctx, url)
	if err != nil {
		return nil, err
	}
	t, err := ParseTable(bytes.NewReader(body), columns, e.logger)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Extraction finished",
		zap.String("url", url),
		zap.Int("rows", t.Len()))
	return t, nil
}

func (e *Extractor) document(ctx context.Context, url string) ([]byte, error) {
	if e.cache != nil {
		body, ok, err := e.cache.Get(ctx, url)
		if err != nil {
			e.logger.Warn("Page cache read failed, fetching", zap.String("url", url), zap.Error(err))
		} else if ok {
			e.logger.Info("Using cached page", zap.String("url", url), zap.Int("bytes", len(body)))
			return body, nil
		}
	}

	body, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, url, body); err != nil {
			e.logger.Warn("Page cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return body, nil
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.ErrNetwork("build request", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	e.logger.Info("Fetching source document", zap.String("url", url))
	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		e.logger.Error("Failed to fetch source document", zap.Error(err))
		return nil, types.ErrNetwork("get "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, types.ErrNetwork("get "+url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.ErrNetwork("read body", err)
	}
	e.logger.Debug("Source document fetched",
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	return body, nil
}

// ParseTable reads the body rows of the first <table> in r. Rows with fewer
// than three cells are skipped; any other structural mismatch aborts.
func ParseTable(r io.Reader, columns []string, logger *zap.Logger) (*types.Table, error) {
	if len(columns) < 2 {
		return nil, types.ErrParse("columns", fmt.Errorf("need name and metric columns, got %v", columns))
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, types.ErrParse("html", err)
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, types.ErrParse("html", errors.New("document has no <table>"))
	}
	body := tables.First().Find("tbody").First()
	if body.Length() == 0 {
		return nil, types.ErrParse("html", errors.New("first <table> has no <tbody>"))
	}

	out := types.NewTable(columns)
	rows := body.Find("tr")
	for i := range rows.Nodes {
		cells := rows.Eq(i).Find("td")
		if cells.Length() < 3 {
			logger.Debug("Skipping row", zap.Int("row", i), zap.Int("cells", cells.Length()))
			continue
		}
		rec, err := parseRow(cells)
		if err != nil {
			return nil, types.ErrData(fmt.Sprintf("row %d", i), err)
		}
		logger.Debug("Extracted row",
			zap.Int("row", i),
			zap.String("name", rec.Name),
			zap.Float64("metric", rec.MetricUSD))
		out.AppendRecord(rec)
	}
	return out, nil
}

func parseRow(cells *goquery.Selection) (types.Record, error) {
	anchors := cells.Eq(1).Find("a")
	if anchors.Length() < 2 {
		return types.Record{}, fmt.Errorf("name cell has %d anchors, want at least 2", anchors.Length())
	}
	name, ok := anchors.Eq(1).Attr("title")
	if !ok {
		return types.Record{}, errors.New("second anchor has no title")
	}

	first := cells.Eq(2).Contents().First()
	if first.Length() == 0 || goquery.NodeName(first) != "#text" {
		return types.Record{}, errors.New("metric cell does not start with text")
	}
	metric, err := parseMetric(first.Text())
	if err != nil {
		return types.Record{}, err
	}
	return types.Record{Name: name, MetricUSD: metric}, nil
}

// parseMetric drops the trailing unit character (a newline on the source
// page) and parses the rest.
func parseMetric(raw string) (float64, error) {
	r := []rune(raw)
	if len(r) == 0 {
		return 0, errors.New("empty metric cell")
	}
	s := strings.TrimSpace(string(r[:len(r)-1]))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("metric %q: %w", raw, err)
	}
	return f, nil
}
