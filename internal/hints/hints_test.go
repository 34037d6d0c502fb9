package hints

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		secret string
		max    int
		want   string
	}{
		{
			name:   "upper case name",
			text:   "When several of these POKéMON gather, PIKACHU's electricity could build.",
			secret: "Pikachu",
			max:    400,
			want:   "When several of these POKéMON gather, [Pokémon]'s electricity could build.",
		},
		{
			name:   "line breaks",
			text:   "It stores\nelectricity\fin its\r\ncheeks.",
			secret: "Pikachu",
			max:    400,
			want:   "It stores electricity in its cheeks.",
		},
		{
			name:   "regex characters in name",
			text:   "MR. MIME is a pantomime expert. Mr Mime is not.",
			secret: "Mr. Mime",
			max:    400,
			want:   "[Pokémon] is a pantomime expert. Mr Mime is not.",
		},
		{
			name:   "symbols in name",
			text:   "NIDORAN♀ has barbs.",
			secret: "Nidoran♀",
			max:    400,
			want:   "[Pokémon] has barbs.",
		},
		{
			name:   "truncates by rune",
			text:   "ééééé",
			secret: "x",
			max:    3,
			want:   "ééé",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.text, tt.secret, tt.max))
		})
	}
}

func TestRedactNeverLeaks(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	names := []string{"Pikachu", "Mew", "Ho-Oh", "Porygon-Z", "Type: Null", "Farfetch'd", "Mr. Mime", "Mime Jr."}
	breaks := []string{"\n", "\f", "\r\n", "\n\n"}
	for i := 0; i < 200; i++ {
		name := names[rng.IntN(len(names))]
		var b strings.Builder
		for j := 0; j < 60; j++ {
			switch rng.IntN(4) {
			case 0:
				b.WriteString(strings.ToUpper(name))
			case 1:
				b.WriteString(strings.ToLower(name))
			case 2:
				b.WriteString(strings.ReplaceAll(name, " ", breaks[rng.IntN(len(breaks))]))
			default:
				b.WriteString(" word ")
			}
		}
		got := Redact(b.String(), name, DefaultMaxLength)
		assert.NotContains(t, strings.ToLower(got), strings.ToLower(name))
		assert.LessOrEqual(t, utf8.RuneCountInString(got), DefaultMaxLength)
		assert.NotContains(t, got, "\n")
	}
}

func TestRedactNameSplitAcrossLines(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		secret string
		want   string
	}{
		{"colon name wrapped", "TYPE:\nNULL wears a heavy mask.", "Type: Null", "[Pokémon] wears a heavy mask."},
		{"dotted name wrapped", "MR.\nMIME mimes walls.", "Mr. Mime", "[Pokémon] mimes walls."},
		{"form feed inside name", "MIME\fJR. copies moves.", "Mime Jr.", "[Pokémon] copies moves."},
		{"crlf inside name", "Mr.\r\nMime waves.", "Mr. Mime", "[Pokémon] waves."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.text, tt.secret, DefaultMaxLength))
		})
	}
}

func speciesJSON(entries ...[2]string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf(`{"flavor_text":%q,"language":{"name":%q},"version":{"name":"red"}}`, e[0], e[1])
	}
	return `{"id":25,"name":"pikachu","flavor_text_entries":[` + strings.Join(parts, ",") + `]}`
}

func TestClientHintFor(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, speciesJSON(
			[2]string{"ピカチュウ", "ja"},
			[2]string{"PIKACHU stores\nelectricity.", "en"},
			[2]string{"Pikachu est un Pokémon.", "fr"},
		))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRand(rand.New(rand.NewPCG(1, 2))))
	hint, err := c.HintFor(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, "[Pokémon] stores electricity.", hint)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/v2/pokemon-species/pikachu", gotPath)
}

func TestClientSlugs(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, speciesJSON([2]string{"A hint.", "en"}))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	for _, name := range []string{"Mr. Mime", "Nidoran♀", "Farfetch'd", "Type: Null"} {
		_, err := c.HintFor(context.Background(), name)
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/api/v2/pokemon-species/mr-mime",
		"/api/v2/pokemon-species/nidoran-f",
		"/api/v2/pokemon-species/farfetchd",
		"/api/v2/pokemon-species/type-null",
	}, paths)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantErr: ErrNotFound,
		},
		{
			name: "no english entries",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, speciesJSON([2]string{"ピカチュウ", "ja"}))
			},
			wantErr: ErrNoEntries,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "{")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL).HintFor(context.Background(), "Pikachu")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestClientHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).HintFor(ctx, "Pikachu")
	assert.ErrorIs(t, err, context.Canceled)
}
