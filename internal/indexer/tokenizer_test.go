package indexer

import (
	"slices"
	"testing"
)

func TestTokenizerTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "lower cases words", text: "Football CLUB", want: []string{"football", "club"}},
		{name: "drops stop words", text: "the cat and the dog", want: []string{"cat", "dog"}},
		{name: "drops single characters", text: "a b c dd 7 42", want: []string{"dd", "42"}},
		{name: "splits on punctuation", text: "e-mail, don't; foo.bar", want: []string{"mail", "don", "foo", "bar"}},
		{name: "keeps non ascii letters", text: "Fußball Zürich", want: []string{"fußball", "zürich"}},
		{name: "empty", text: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NewTokenizer().Tokenize(tt.text)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
