package indexer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minTokenLength is the shortest run of letters or digits kept as a token.
const minTokenLength = 2

// Tokenizer splits text into lower-cased index terms.
//
// Design decision: A token is a maximal run of letters or digits of at least
// two characters, and English stop words are dropped. Punctuation separates
// tokens, so "e-mail" yields "mail" and "don't" yields "don".
type Tokenizer struct {
	caser     cases.Caser
	stopWords map[string]struct{}
}

// NewTokenizer creates a Tokenizer with the English stop word list.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		caser:     cases.Lower(language.English),
		stopWords: englishStopWords,
	}
}

// Tokenize returns the tokens of text in order of appearance.
// A Tokenizer is not safe for concurrent use; cases.Caser keeps state.
func (t *Tokenizer) Tokenize(text string) []string {
	lowered := t.caser.String(text)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if _, stop := t.stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
