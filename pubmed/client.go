// Package pubmed is a minimal client for the NCBI E-utilities API. It
// covers the two calls the research pipeline needs: esearch for PMIDs
// matching a query, and efetch for one article's detail.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// defaultInterval matches NCBI's courtesy limit for unkeyed clients.
// With an API key NCBI allows up to 10 req/s; callers holding a key can
// lower the interval via WithInterval.
const defaultInterval = 1500 * time.Millisecond

// Article is one retrieved PubMed record. Year stays a string here;
// PubMed dates are not always numeric (MedlineDate ranges, season
// names) and the caller decides what to do with an unparsable year.
type Article struct {
	PMID     string
	Title    string
	Year     string
	Abstract string
	Citation string
}

// Client calls the E-utilities endpoints. One shared rate limiter
// serializes all outbound calls, including calls made from concurrent
// search branches, so fan-out cannot exceed NCBI's request limits.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey attaches an NCBI API key to every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the E-utilities endpoint, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithInterval overrides the minimum delay between outbound calls.
func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// New constructs a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(defaultInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to max PMIDs matching the query, in the order
// PubMed ranks them.
func (c *Client) Search(ctx context.Context, query string, max int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("pubmed: query is empty")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", fmt.Sprintf("%d", max))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var response struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := decodeJSON(body, &response); err != nil {
		return nil, fmt.Errorf("pubmed: decoding esearch response: %w", err)
	}
	return response.Result.IDList, nil
}

// Fetch resolves one PMID to its article record.
func (c *Client) Fetch(ctx context.Context, pmid string) (Article, error) {
	if strings.TrimSpace(pmid) == "" {
		return Article{}, errors.New("pubmed: pmid is empty")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return Article{}, err
	}
	defer body.Close()

	var set articleSet
	if err := xml.NewDecoder(body).Decode(&set); err != nil {
		return Article{}, fmt.Errorf("pubmed: decoding efetch response: %w", err)
	}
	if len(set.Articles) == 0 {
		return Article{}, fmt.Errorf("pubmed: no article found for pmid %s", pmid)
	}
	return set.Articles[0].toArticle(), nil
}

// get waits on the shared limiter then issues one request.
func (c *Client) get(ctx context.Context, path string, params url.Values) (io.ReadCloser, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("pubmed http %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// efetch XML shapes, reduced to the fields the pipeline uses.

type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string `xml:"MedlineCitation>PMID"`
	Article struct {
		Title    string `xml:"ArticleTitle"`
		Abstract struct {
			Sections []abstractSection `xml:"AbstractText"`
		} `xml:"Abstract"`
		Journal struct {
			Title        string `xml:"Title"`
			Abbreviation string `xml:"ISOAbbreviation"`
			Issue        struct {
				PubDate struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"PubDate"`
			} `xml:"JournalIssue"`
		} `xml:"Journal"`
		Authors []author `xml:"AuthorList>Author"`
	} `xml:"MedlineCitation>Article"`
}

type abstractSection struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type author struct {
	LastName string `xml:"LastName"`
	Initials string `xml:"Initials"`
}

func (p pubmedArticle) toArticle() Article {
	return Article{
		PMID:     p.PMID,
		Title:    strings.TrimSpace(p.Article.Title),
		Year:     p.year(),
		Abstract: p.abstract(),
		Citation: p.citation(),
	}
}

// year prefers the structured Year element; MedlineDate entries such as
// "2020 Jan-Feb" contribute their first token.
func (p pubmedArticle) year() string {
	date := p.Article.Journal.Issue.PubDate
	if date.Year != "" {
		return date.Year
	}
	if fields := strings.Fields(date.MedlineDate); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// abstract joins labeled sections ("BACKGROUND: ...") into one text.
func (p pubmedArticle) abstract() string {
	var parts []string
	for _, s := range p.Article.Abstract.Sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

// citation assembles a compact reference line from authors, title,
// journal, and year.
func (p pubmedArticle) citation() string {
	var names []string
	for i, a := range p.Article.Authors {
		if a.LastName == "" {
			continue
		}
		if i >= 3 {
			names = append(names, "et al")
			break
		}
		name := a.LastName
		if a.Initials != "" {
			name += " " + a.Initials
		}
		names = append(names, name)
	}

	journal := p.Article.Journal.Abbreviation
	if journal == "" {
		journal = p.Article.Journal.Title
	}

	var parts []string
	if len(names) > 0 {
		parts = append(parts, strings.Join(names, ", "))
	}
	if title := strings.TrimSpace(p.Article.Title); title != "" {
		parts = append(parts, title)
	}
	if journal != "" {
		parts = append(parts, journal)
	}
	if y := p.year(); y != "" {
		parts = append(parts, y)
	}
	return strings.Join(parts, ". ") + "."
}

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
