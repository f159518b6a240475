package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	t.Run("prefers main region", func(t *testing.T) {
		html := `<html><body>
			<nav>Home About Contact</nav>
			<main><p>We are Acme, a plumbing company in Austin.</p></main>
			<footer>Copyright Acme</footer>
		</body></html>`
		text := ExtractText(html)
		assert.Contains(t, text, "We are Acme")
		assert.NotContains(t, text, "Copyright")
		assert.NotContains(t, text, "Home About Contact")
	})

	t.Run("falls back to article then body", func(t *testing.T) {
		html := `<body><article>The story of our bakery.</article></body>`
		assert.Contains(t, ExtractText(html), "story of our bakery")

		html = `<body><div>Just a plain page.</div></body>`
		assert.Contains(t, ExtractText(html), "Just a plain page")
	})

	t.Run("strips scripts and styles", func(t *testing.T) {
		html := `<body><script>var x = 1;</script><style>.a{color:red}</style>Visible text</body>`
		text := ExtractText(html)
		assert.Equal(t, "Visible text", text)
	})

	t.Run("decodes entities and collapses whitespace", func(t *testing.T) {
		html := "<body>Smith&amp;Sons\n\n\t  &quot;Plumbing&quot;</body>"
		assert.Equal(t, `Smith&Sons "Plumbing"`, ExtractText(html))
	})
}

func TestLocalProvider_FetchPage(t *testing.T) {
	content := strings.Repeat("Acme Widgets makes industrial widgets. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("<html><body><main>" + content + "</main></body></html>"))
		case "/thin":
			w.Write([]byte("<html><body>hi</body></html>"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	p := NewLocalProvider(2 * time.Second)
	assert.True(t, p.Available())

	t.Run("success", func(t *testing.T) {
		page, err := p.FetchPage(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/", page.URL)
		assert.Contains(t, page.Text, "Acme Widgets")
	})

	t.Run("too little content", func(t *testing.T) {
		_, err := p.FetchPage(context.Background(), srv.URL+"/thin")
		assert.Error(t, err)
	})

	t.Run("http error status", func(t *testing.T) {
		_, err := p.FetchPage(context.Background(), srv.URL+"/missing")
		assert.Error(t, err)
	})
}
