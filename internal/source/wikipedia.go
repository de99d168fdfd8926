package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/resilience"
)

const maxArticleBytes = 8 << 20

var citationMarker = regexp.MustCompile(`\[\d+\]`)

// errCrawlStopped means the pacing wait could not finish before ctx ends.
var errCrawlStopped = errors.New("crawl stopped")

type Article struct {
	Title   string
	Content string
}

// Wikipedia crawls one article per topic, sequentially and paced so the
// site sees at most one request per FetchInterval, retries included.
type Wikipedia struct {
	client    *http.Client
	baseURL   string
	userAgent string
	topics    []string
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewWikipedia(client *http.Client, cfg config.SourceConfig, m *metrics.Metrics) *Wikipedia {
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Wikipedia{
		client:    client,
		baseURL:   base,
		userAgent: cfg.UserAgent,
		topics:    cfg.Topics,
		limiter:   rate.NewLimiter(rate.Every(cfg.FetchInterval), 1),
		retry:     resilience.RetryConfig{MaxAttempts: cfg.MaxAttempts, InitialDelay: 500 * time.Millisecond},
		metrics:   m,
		logger:    slog.Default().With("component", "wikipedia-source"),
	}
}

func (w *Wikipedia) Name() string { return config.SourceWikipedia }

// Fetch crawls every topic in order. A topic that cannot be fetched or
// parsed is logged and skipped; ids 1..n follow the order of the articles
// that succeeded. Only cancellation of ctx is reported as an error.
func (w *Wikipedia) Fetch(ctx context.Context) ([]index.Document, error) {
	docs := make([]index.Document, 0, len(w.topics))
	for _, topic := range w.topics {
		article, err := w.FetchArticle(ctx, topic)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("crawl cancelled: %w", ctx.Err())
			}
			if errors.Is(err, errCrawlStopped) {
				return nil, err
			}
			w.record("failed")
			w.logger.Error("skipping topic", "topic", topic, "error", err)
			continue
		}
		w.record("ok")
		docs = append(docs, index.Document{
			ID:      len(docs) + 1,
			Content: article.Title + ". " + article.Content,
		})
		w.logger.Info("fetched article", "topic", topic, "title", article.Title, "bytes", len(article.Content))
	}
	if len(docs) == 0 && len(w.topics) > 0 {
		w.logger.Warn("no articles fetched", "topics", len(w.topics))
	}
	w.logger.Info("crawl complete", "articles", len(docs), "topics", len(w.topics))
	return docs, nil
}

// FetchArticle downloads and extracts one article, retrying transient
// failures. Every attempt, retries included, waits for the limiter.
func (w *Wikipedia) FetchArticle(ctx context.Context, topic string) (*Article, error) {
	pageURL := w.baseURL + url.PathEscape(strings.Join(strings.Fields(topic), "_"))
	var article *Article
	err := resilience.Retry(ctx, "fetch "+topic, w.retry, func(ctx context.Context) error {
		if err := w.limiter.Wait(ctx); err != nil {
			return resilience.Permanent(fmt.Errorf("%w: waiting to fetch %q: %v", errCrawlStopped, topic, err))
		}
		body, err := w.get(ctx, pageURL)
		if err != nil {
			return err
		}
		defer body.Close()
		a, err := ExtractArticle(io.LimitReader(body, maxArticleBytes))
		if err != nil {
			return resilience.Permanent(err)
		}
		article = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (w *Wikipedia) get(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("%w: GET %s returned %d", apperrors.ErrSourceUnavailable, pageURL, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, resilience.Permanent(err)
	}
	return resp.Body, nil
}

func (w *Wikipedia) record(status string) {
	if w.metrics != nil {
		w.metrics.SourceFetchesTotal.WithLabelValues(config.SourceWikipedia, status).Inc()
	}
}

var errNoArticle = errors.New("page has no article heading")

// ExtractArticle pulls the title from #firstHeading and the body from every
// <p> inside #mw-content-text. Citation markers like "[12]" are removed and
// whitespace runs are collapsed.
func ExtractArticle(r io.Reader) (*Article, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	heading := findByID(doc, "firstHeading")
	if heading == nil {
		return nil, errNoArticle
	}

	var content strings.Builder
	if body := findByID(doc, "mw-content-text"); body != nil {
		walk(body, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.DataAtom == atom.P {
				appendText(&content, n)
				content.WriteByte(' ')
				return false
			}
			return true
		})
	}

	var title strings.Builder
	appendText(&title, heading)
	text := citationMarker.ReplaceAllString(content.String(), "")
	return &Article{
		Title:   strings.TrimSpace(title.String()),
		Content: strings.Join(strings.Fields(text), " "),
	}, nil
}

// walk visits n and its descendants depth first; returning false from fn
// skips the children of that node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					found = n
					return false
				}
			}
		}
		return true
	})
	return found
}

func appendText(b *strings.Builder, n *html.Node) {
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
}
