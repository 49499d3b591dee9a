// internal/moderation/screener.go
// Package moderation screens job content before publication. A hit does not
// reject the posting; the job is created under review instead.
package moderation

import (
	"bufio"
	"os"
	"sort"
	"strings"
)

// defaultWordlist is the fallback screen when no wordlist file is configured.
// Deployments extend it per market via moderation.wordlist_path.
var defaultWordlist = []string{
	"scam",
	"pyramid scheme",
	"fast cash",
	"adult content",
	"escort",
	"no experience get rich",
}

// Screener checks free-text job fields against a wordlist.
type Screener struct {
	terms []string
}

// NewScreener builds a screener from the file at path, falling back to the
// built-in list when path is empty or unreadable.
func NewScreener(path string) *Screener {
	terms := defaultWordlist
	if path != "" {
		if loaded, err := loadWordlist(path); err == nil && len(loaded) > 0 {
			terms = loaded
		}
	}

	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	sort.Strings(lowered)

	return &Screener{terms: lowered}
}

func loadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	return terms, scanner.Err()
}

// Screen returns the terms matched across the given fields. An empty result
// means the content is clean.
func (s *Screener) Screen(fields ...string) []string {
	joined := strings.ToLower(strings.Join(fields, " "))

	var matched []string
	for _, term := range s.terms {
		if strings.Contains(joined, term) {
			matched = append(matched, term)
		}
	}
	return matched
}
