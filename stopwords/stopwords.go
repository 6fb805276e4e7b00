// Package stopwords removes common function words from text before keyword
// extraction. Lists are embedded per language.
package stopwords

import (
	"bufio"
	"embed"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed data/*.txt
var data embed.FS

var (
	mu    sync.Mutex
	lists = map[language.Base]map[string]struct{}{}
)

// Languages returns the languages with an embedded list.
func Languages() []language.Tag {
	return []language.Tag{language.English, language.Russian, language.German, language.French, language.Spanish}
}

// lookup returns the word set of the base language of tag, loading it on first use.
func lookup(tag language.Tag) (map[string]struct{}, bool) {
	if tag == language.Und {
		return nil, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return nil, false
	}
	mu.Lock()
	defer mu.Unlock()
	if set, ok := lists[base]; ok {
		return set, set != nil
	}
	f, err := data.Open("data/" + base.String() + ".txt")
	if err != nil {
		lists[base] = nil
		return nil, false
	}
	defer f.Close()
	set := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			set[w] = struct{}{}
		}
	}
	lists[base] = set
	return set, true
}

// Contains reports whether word is a stop word of the given language.
func Contains(tag language.Tag, word string) bool {
	set, ok := lookup(tag)
	if !ok {
		return false
	}
	_, found := set[normalize(tag, word)]
	return found
}

// Remove drops stop-word tokens from content. Tokens are whitespace separated and
// compared case-insensitively with surrounding punctuation ignored. Content in a
// language without a list is returned unchanged.
func Remove(content string, tag language.Tag) string {
	set, ok := lookup(tag)
	if !ok {
		return content
	}
	fields := strings.Fields(content)
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := set[normalize(tag, f)]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func normalize(tag language.Tag, word string) string {
	word = strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\'' || unicode.IsSymbol(r)
	})
	word = strings.Trim(word, "'")
	return cases.Lower(tag).String(word)
}
