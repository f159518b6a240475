package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/prospectline/leadgen/internal/model"
)

// minUsableContent is the shortest extracted text worth keeping; shorter
// pages are treated as empty (parked domains, interstitials).
const minUsableContent = 100

// LocalProvider fetches raw HTML via net/http and strips it to plaintext.
// Fallback path when the rendering provider is unconfigured or yields
// nothing usable.
type LocalProvider struct {
	client *http.Client
}

// NewLocalProvider creates a LocalProvider with the given timeout.
func NewLocalProvider(timeout time.Duration) *LocalProvider {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &LocalProvider{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

func (p *LocalProvider) Name() string    { return "local_http" }
func (p *LocalProvider) Available() bool { return true }

// FetchPage retrieves a URL and extracts its most content-dense region.
func (p *LocalProvider) FetchPage(ctx context.Context, targetURL string) (*model.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LeadgenBot/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	text := ExtractText(string(body))
	if len(text) < minUsableContent {
		return nil, eris.Errorf("local_http: no usable content at %s", targetURL)
	}

	return &model.PageContent{URL: targetURL, Text: text}, nil
}

var (
	mainRe = regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`)
	artRe  = regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`)
	bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	tagRe  = regexp.MustCompile(`<[^>]+>`)
	wsRe   = regexp.MustCompile(`\s+`)
)

// ExtractText strips chrome (script, style, nav, footer, header), prefers
// the most content-dense region (main or article over full body), removes
// tags, decodes common entities, and collapses whitespace.
func ExtractText(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer", "header"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, " ")
	}

	// Prefer a main/article container over the full body.
	region := html
	if m := mainRe.FindStringSubmatch(html); m != nil {
		region = m[1]
	} else if m := artRe.FindStringSubmatch(html); m != nil {
		region = m[1]
	} else if m := bodyRe.FindStringSubmatch(html); m != nil {
		region = m[1]
	}

	region = tagRe.ReplaceAllString(region, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	region = r.Replace(region)

	return strings.TrimSpace(wsRe.ReplaceAllString(region, " "))
}
