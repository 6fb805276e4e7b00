package conversation

import (
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/stopwords"
)

// ContextPrefix starts every system message that carries a retrieved document.
const ContextPrefix = "Context information: "

// Document is an externally supplied retrieval document. It is never mutated.
type Document struct {
	Content  string
	Language language.Tag
}

// KeywordSet is a set of lower-cased keywords.
type KeywordSet map[string]struct{}

// Keywords lower-cases text, treats everything except letters, digits, marks and
// underscores as a separator, and keeps tokens longer than two characters.
func Keywords(text string) KeywordSet {
	lower := cases.Lower(language.Und).String(text)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_')
	})
	set := make(KeywordSet, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) > 2 {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Relevance is the Jaccard similarity |a ∩ b| / |a ∪ b|; zero when either set is empty.
func Relevance(a, b KeywordSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Rag extends Short with retrieved documents. On every History call the
// keywords of the last DocumentDepth stored messages are compared with each
// document; documents at or above the threshold are prepended as system
// messages, most relevant first.
type Rag struct {
	*Short
	docs          []Document
	documentDepth int
	threshold     float64
	maxDocuments  int

	once     sync.Once
	keywords []KeywordSet
}

// NewRag returns a retrieval-augmented context over docs.
func NewRag(docs []Document, opts ...Option) *Rag {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Rag{
		Short:         NewShort(opts...),
		docs:          slices.Clone(docs),
		documentDepth: o.documentDepth,
		threshold:     o.threshold,
		maxDocuments:  o.maxDocuments,
	}
}

// History returns the relevant documents followed by the Short window.
func (r *Rag) History() []chat.Message {
	relevant := r.Relevant()
	window := r.Short.History()
	out := make([]chat.Message, 0, len(relevant)+len(window))
	for _, doc := range relevant {
		out = append(out, chat.System(ContextPrefix+doc.Content))
	}
	return append(out, window...)
}

// ScoredDocument is a document with its relevance to the current query.
type ScoredDocument struct {
	Document
	Relevance float64
}

// Relevant ranks the documents against the last DocumentDepth stored messages.
// Ties keep the supplied document order.
func (r *Rag) Relevant() []ScoredDocument {
	r.once.Do(r.prepare)
	var query strings.Builder
	for i, m := range r.last(r.documentDepth) {
		if i > 0 {
			query.WriteByte(' ')
		}
		query.WriteString(m.Text())
	}
	q := Keywords(query.String())

	var out []ScoredDocument
	for i, doc := range r.docs {
		score := Relevance(q, r.keywords[i])
		if score >= r.threshold {
			out = append(out, ScoredDocument{Document: doc, Relevance: score})
		}
	}
	slices.SortStableFunc(out, func(a, b ScoredDocument) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		default:
			return 0
		}
	})
	if r.maxDocuments > 0 && len(out) > r.maxDocuments {
		out = out[:r.maxDocuments]
	}
	return out
}

// prepare filters stop words and extracts keywords of every document once.
func (r *Rag) prepare() {
	r.keywords = make([]KeywordSet, len(r.docs))
	for i, doc := range r.docs {
		r.keywords[i] = Keywords(stopwords.Remove(doc.Content, doc.Language))
	}
}
