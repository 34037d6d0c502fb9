// internal/hints/hints.go
//
// Species hint provider backed by PokeAPI.
//
// A hint is one English flavor-text entry for the secret species, chosen at
// random, with every occurrence of the species name replaced by a placeholder,
// line breaks collapsed and the result truncated.

package hints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pokeguess/guesswho/internal/catalog"
)

const (
	DefaultBaseURL   = "https://pokeapi.co"
	DefaultMaxLength = 400
	Placeholder      = "[Pokémon]"
)

var (
	ErrNotFound  = errors.New("hints: species not found")
	ErrNoEntries = errors.New("hints: no english flavor text")
)

type speciesResponse struct {
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
}

// Client fetches hints from a PokeAPI-compatible server.
type Client struct {
	http    *http.Client
	baseURL string
	maxLen  int
	rng     catalog.Rand
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithMaxLength(n int) Option          { return func(c *Client) { c.maxLen = n } }
func WithRand(r catalog.Rand) Option      { return func(c *Client) { c.rng = r } }

// New returns a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		maxLen:  DefaultMaxLength,
		rng:     catalog.DefaultRand,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// HintFor returns one redacted English flavor text for species.
func (c *Client) HintFor(ctx context.Context, species string) (string, error) {
	entries, err := c.englishEntries(ctx, species)
	if err != nil {
		return "", err
	}
	return Redact(entries[c.rng.IntN(len(entries))], species, c.maxLen), nil
}

func (c *Client) englishEntries(ctx context.Context, species string) ([]string, error) {
	endpoint := c.baseURL + "/api/v2/pokemon-species/" + url.PathEscape(catalog.Slug(species))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hints: fetch %s: %w", species, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, species)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("hints: fetch %s: unexpected status %d", species, resp.StatusCode)
	}

	var body speciesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("hints: decode %s: %w", species, err)
	}
	var out []string
	for _, e := range body.FlavorTextEntries {
		if e.Language.Name == "en" && strings.TrimSpace(e.FlavorText) != "" {
			out = append(out, e.FlavorText)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEntries, species)
	}
	return out, nil
}

var lineBreaks = regexp.MustCompile(`[\n\r\f\v\x{2028}\x{2029}]+`)

// Redact turns line breaks into single spaces, hides every case-insensitive
// occurrence of name (any run of whitespace matches a space inside the name)
// and truncates to maxLen runes (no limit when maxLen <= 0).
func Redact(text, name string, maxLen int) string {
	text = lineBreaks.ReplaceAllString(text, " ")
	if words := strings.Fields(name); len(words) > 0 {
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		re := regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`))
		text = re.ReplaceAllLiteralString(text, Placeholder)
	}
	text = strings.TrimSpace(text)
	if maxLen > 0 {
		if r := []rune(text); len(r) > maxLen {
			text = string(r[:maxLen])
		}
	}
	return text
}
