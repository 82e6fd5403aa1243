package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("FormSession", func() {
	var (
		server *httptest.Server
		config *browser.Config
	)

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "abc", Path: "/"})
			fmt.Fprint(w, "<html><body>first</body></html>")
		})
		mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			_ = r.ParseForm()
			cookie, err := r.Cookie("ASP.NET_SessionId")
			session := ""
			if err == nil {
				session = cookie.Value
			}
			fmt.Fprintf(w, "target=%s session=%s", r.PostForm.Get("__EVENTTARGET"), session)
		})
		mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		server = httptest.NewServer(mux)

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		config = &browser.Config{Mode: browser.ModeHTTP, Logger: logger}
		Expect(config.Validate()).To(Succeed())
	})

	AfterEach(func() {
		server.Close()
	})

	It("keeps cookies between a GET and a postback", func() {
		ctx := context.Background()
		session := browser.NewFormSession(ctx, config)

		page, err := session.Get(ctx, server.URL+"/page")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(page.Body)).To(ContainSubstring("first"))
		Expect(page.URL.Path).To(Equal("/page"))

		page, err = session.PostForm(ctx, server.URL+"/post", url.Values{"__EVENTTARGET": {"pager"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(page.Body)).To(Equal("target=pager session=abc"))
	})

	It("revisits the same URL", func() {
		ctx := context.Background()
		session := browser.NewFormSession(ctx, config)
		for i := 0; i < 2; i++ {
			_, err := session.PostForm(ctx, server.URL+"/post", url.Values{"__EVENTTARGET": {"x"}})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("reports HTTP errors", func() {
		ctx := context.Background()
		session := browser.NewFormSession(ctx, config)
		_, err := session.Get(ctx, server.URL+"/missing")
		Expect(err).To(HaveOccurred())
	})

	It("serves plain sessions through the HTTP provider", func() {
		provider, err := browser.NewProvider(config)
		Expect(err).NotTo(HaveOccurred())
		defer provider.Close()

		session, err := provider.Acquire(context.Background())
		Expect(err).NotTo(HaveOccurred())
		defer session.Close()

		body, err := session.Fetch(context.Background(), server.URL+"/page")
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(ContainSubstring("first"))
	})

	It("rejects unknown modes", func() {
		_, err := browser.NewProvider(&browser.Config{Mode: "carrier-pigeon"})
		Expect(err).To(HaveOccurred())
	})
})
