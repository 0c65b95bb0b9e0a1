// Package nhentai collects gallery pages from nhentai.net.
package nhentai

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ghostfetch/internal/collector"
	"ghostfetch/internal/metrics"
	"ghostfetch/internal/retry"
	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/logger"
	"ghostfetch/internal/shared/types"
	"ghostfetch/internal/transport"
)

const (
	Name           = "nhentai"
	DefaultBaseURL = "https://nhentai.net"
	noTitle        = "No Title"
	pageTimeout    = 30 * time.Second
)

var (
	titleRe = regexp.MustCompile(`<span class="pretty">(.*?)</span>`)
	thumbRe = regexp.MustCompile(`<noscript><img src="(https://t\d?\.nhentai\.net/galleries/\d+/\d+t\.\w+)"`)
)

// Domains are pinned to the edge front door when address rotation is on.
var Domains = []string{
	"nhentai.net",
	"i.nhentai.net",
	"i2.nhentai.net",
	"i3.nhentai.net",
	"i4.nhentai.net",
	"i5.nhentai.net",
	"i6.nhentai.net",
	"i7.nhentai.net",
	"i8.nhentai.net",
	"i9.nhentai.net",
}

// Collector 实现了 collector.Collector 接口。
type Collector struct {
	client  *transport.Client
	retry   *retry.Executor
	baseURL string
}

type Option func(*Collector)

// WithBaseURL points page fetches at another origin.
func WithBaseURL(base string) Option {
	return func(c *Collector) { c.baseURL = strings.TrimRight(base, "/") }
}

func WithRetry(ex *retry.Executor) Option {
	return func(c *Collector) { c.retry = ex }
}

// New builds the collector. A nil block disables address rotation.
func New(block *transport.AddressBlock, opts ...Option) (*Collector, error) {
	overrides, err := transport.Overrides().PinEdge(Domains...).Build()
	if err != nil {
		return nil, err
	}
	client, err := transport.Build(block, overrides, nil)
	if err != nil {
		return nil, err
	}

	c := &Collector{client: client, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		l := logger.WithComponent("Collector/nhentai")
		c.retry = retry.New(retry.DefaultPolicy(), retry.WithObserver(func(attempt int, err error) {
			metrics.Retries.Inc()
			l.Debug().Int("attempt", attempt).Err(err).Msg("Retrying download")
		}))
	}
	return c, nil
}

// NewFromConfig reads the address block from the [http] section.
func NewFromConfig(conf types.HTTPConf, opts ...Option) (*Collector, error) {
	var block *transport.AddressBlock
	if prefix := strings.TrimSpace(conf.IPv6Prefix); prefix != "" {
		b, err := transport.ParseAddressBlock(prefix)
		if err != nil {
			return nil, err
		}
		block = &b
	}
	return New(block, opts...)
}

func (c *Collector) Name() string {
	return Name
}

// albumID accepts "g/{id}" with optional surrounding slashes.
func albumID(path string) (string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "g" || parts[1] == "" {
		return "", errs.New(errs.InvalidReference, "invalid input path(", path, "), gallery url is expected(like https://nhentai.net/g/333678)")
	}
	return parts[1], nil
}

// Fetch 获取图集页面，返回元数据和按页面顺序的图片流。
func (c *Collector) Fetch(ctx context.Context, path string) (meta collector.AlbumMeta, stream collector.ImageStream, err error) {
	id, err := albumID(path)
	if err != nil {
		return collector.AlbumMeta{}, nil, err
	}
	defer func() { metrics.RecordAlbum(Name, err) }()

	link := fmt.Sprintf("%s/g/%s", c.baseURL, id)
	l := logger.WithComponent("Collector/nhentai").With().
		Str("trace_id", uuid.NewString()).
		Str("album", id).
		Logger()
	l.Info().Str("url", link).Msg("Processing album")

	// clone 以更换出口地址
	client, err := c.client.Clone()
	if err != nil {
		return collector.AlbumMeta{}, nil, err
	}
	if client.Rotating() {
		l.Debug().Str("local_addr", client.LocalAddr().String()).Msg("Cloned client")
	}

	body, err := fetchPage(ctx, client, link)
	if err != nil {
		l.Error().Err(err).Str("url", link).Msg("Album page fetch failed")
		return collector.AlbumMeta{}, nil, err
	}

	name := parseTitle(body)
	if name == "" {
		l.Warn().Str("url", link).Msg("Title not found, using placeholder")
		name = noTitle
	}
	links := parseImageLinks(body)
	l.Info().Str("name", name).Int("items", len(links)).Msg("Album parsed")

	meta = collector.AlbumMeta{Link: link, Name: name}
	return meta, collector.NewURLStream(links, func(ctx context.Context, link string) (collector.Item, error) {
		return c.loadImage(ctx, l, link)
	}), nil
}

func fetchPage(ctx context.Context, client *transport.Client, link string) ([]byte, error) {
	var (
		body     []byte
		status   int
		received bool
	)
	// 状态码由 OnResponse 自行判断，colly 默认把 203 以上都当作错误
	cc := colly.NewCollector(
		colly.UserAgent(transport.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	)
	cc.WithTransport(client.RoundTripper())
	cc.SetRequestTimeout(pageTimeout)

	cc.OnResponse(func(r *colly.Response) {
		status, received = r.StatusCode, true
		body = r.Body
	})

	if err := cc.Visit(link); err != nil {
		return nil, errs.New(errs.Upstream, "fetch album page ", link).Base(err)
	}
	cc.Wait()
	if !received {
		return nil, errs.New(errs.Upstream, "no response from ", link)
	}
	if status < 200 || status >= 300 {
		return nil, errs.New(errs.Upstream, "fetch album page ", link).
			Base(&transport.HTTPStatusError{URL: link, StatusCode: status})
	}
	return body, nil
}

// parseTitle returns "" when the page has no title span.
func parseTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if title := strings.TrimSpace(doc.Find("span.pretty").First().Text()); title != "" {
			return title
		}
	}
	if m := titleRe.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// parseImageLinks 从缩略图地址推导原图地址，保持页面顺序。
func parseImageLinks(body []byte) []string {
	matches := thumbRe.FindAllSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		thumb := string(m[1])
		full := strings.Replace(thumb, "https://t", "https://i", 1)
		full = strings.ReplaceAll(full, "t.", ".")
		links = append(links, full)
	}
	return links
}

func (c *Collector) loadImage(ctx context.Context, l zerolog.Logger, link string) (collector.Item, error) {
	started := time.Now()
	client, err := c.client.Clone()
	if err != nil {
		return collector.Item{}, err
	}
	data, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return client.GetBytes(ctx, link)
	})
	metrics.RecordItem(started, err)
	if err != nil {
		l.Warn().Err(err).Str("url", link).Msg("Image download failed")
		return collector.Item{}, err
	}

	l.Trace().Int("size", len(data)).Str("url", link).Msg("Downloaded image")
	return collector.Item{
		Meta: collector.ImageMeta{ID: link, URL: link},
		Data: data,
	}, nil
}

var _ collector.Collector = (*Collector)(nil)
