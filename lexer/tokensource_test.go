package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBasicTokens(t *testing.T) {
	s := New(strings.NewReader(`public static void main 42 -7 "hi\n" 'a' ;`))

	want := []Token{
		{Kind: Word, Str: "public"},
		{Kind: Word, Str: "static"},
		{Kind: Word, Str: "void"},
		{Kind: Word, Str: "main"},
		{Kind: Number, Num: 42},
		{Kind: Number, Num: -7},
		{Kind: QuotedString, Str: "hi\n"},
		{Kind: QuotedChar, Ch: 'a'},
		{Kind: Punct, Ch: ';'},
		{Kind: Eof},
	}
	for i, w := range want {
		tok, err := s.Next()
		require.NoError(t, err, "token %d", i)
		assert.Equal(t, w.Kind, tok.Kind, "token %d kind", i)
		switch w.Kind {
		case Word, QuotedString:
			assert.Equal(t, w.Str, tok.Str, "token %d", i)
		case Number:
			assert.Equal(t, w.Num, tok.Num, "token %d", i)
		case QuotedChar, Punct:
			assert.Equal(t, w.Ch, tok.Ch, "token %d", i)
		}
	}
}

func TestNextSkipsComments(t *testing.T) {
	s := New(strings.NewReader("foo // line comment\n/* block\ncomment */ bar"))

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "foo", tok.Str)

	tok, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "bar", tok.Str)
}

func TestPushBack(t *testing.T) {
	s := New(strings.NewReader("alpha beta"))

	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Str)

	s.PushBack()
	again, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", second.Str)
}

func TestLineTracking(t *testing.T) {
	s := New(strings.NewReader("one\ntwo\nthree"))

	for i, want := range []string{"one", "two", "three"} {
		tok, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Str)
		assert.Equal(t, i+1, tok.Line)
	}
}

func TestLoneSlashIsNotAComment(t *testing.T) {
	s := New(strings.NewReader("/ foo"))

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, Punct, tok.Kind)
	assert.Equal(t, '/', tok.Ch)
}
