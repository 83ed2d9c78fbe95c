package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const efetchResponse = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>40818454</PMID>
      <Article>
        <Journal>
          <Title>Journal of Testing</Title>
          <ISOAbbreviation>J Test</ISOAbbreviation>
          <JournalIssue>
            <PubDate>
              <Year>2023</Year>
            </PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>A study of things</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Background text.</AbstractText>
          <AbstractText Label="RESULTS">Results text.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author>
            <LastName>Smith</LastName>
            <Initials>JA</Initials>
          </Author>
          <Author>
            <LastName>Jones</LastName>
            <Initials>B</Initials>
          </Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{
		WithBaseURL(server.URL),
		WithInterval(time.Millisecond),
	}, opts...)
	return New(opts...)
}

func TestClient_Search(t *testing.T) {
	var gotPath, gotTerm, gotRetmax string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTerm = r.URL.Query().Get("term")
		gotRetmax = r.URL.Query().Get("retmax")
		w.Write([]byte(`{"esearchresult":{"idlist":["111","222","333"]}}`))
	})

	pmids, err := client.Search(context.Background(), "semaglutide mechanism", 20)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotPath != "/esearch.fcgi" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotTerm != "semaglutide mechanism" || gotRetmax != "20" {
		t.Errorf("unexpected query params term=%q retmax=%q", gotTerm, gotRetmax)
	}
	if len(pmids) != 3 || pmids[0] != "111" {
		t.Errorf("unexpected pmids %v", pmids)
	}
}

func TestClient_SearchEmptyQuery(t *testing.T) {
	client := New()
	if _, err := client.Search(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestClient_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/efetch.fcgi" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "40818454" {
			t.Errorf("unexpected id %q", got)
		}
		w.Write([]byte(efetchResponse))
	})

	art, err := client.Fetch(context.Background(), "40818454")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if art.PMID != "40818454" {
		t.Errorf("unexpected pmid %q", art.PMID)
	}
	if art.Title != "A study of things" {
		t.Errorf("unexpected title %q", art.Title)
	}
	if art.Year != "2023" {
		t.Errorf("unexpected year %q", art.Year)
	}
	if !strings.Contains(art.Abstract, "BACKGROUND: Background text.") ||
		!strings.Contains(art.Abstract, "RESULTS: Results text.") {
		t.Errorf("abstract sections not joined: %q", art.Abstract)
	}
	if !strings.Contains(art.Citation, "Smith JA, Jones B") ||
		!strings.Contains(art.Citation, "J Test") ||
		!strings.Contains(art.Citation, "2023") {
		t.Errorf("unexpected citation %q", art.Citation)
	}
}

func TestClient_FetchMedlineDate(t *testing.T) {
	response := strings.Replace(efetchResponse,
		"<Year>2023</Year>",
		"<MedlineDate>2020 Jan-Feb</MedlineDate>", 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(response))
	})

	art, err := client.Fetch(context.Background(), "40818454")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if art.Year != "2020" {
		t.Errorf("expected first MedlineDate token, got %q", art.Year)
	}
}

func TestClient_FetchNoArticle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" ?><PubmedArticleSet></PubmedArticleSet>`))
	})

	if _, err := client.Fetch(context.Background(), "999"); err == nil {
		t.Fatal("expected error for empty article set")
	}
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	if _, err := client.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestClient_APIKeyAttached(t *testing.T) {
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	}, WithAPIKey("secret"))

	if _, err := client.Search(context.Background(), "q", 5); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("api key not attached, got %q", gotKey)
	}
}

func TestClient_LimiterHonorsContext(t *testing.T) {
	client := New(WithInterval(time.Hour))
	// Burn the initial token.
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := client.Search(ctx, "q", 5); err == nil {
		t.Fatal("expected context deadline while waiting on limiter")
	}
}
