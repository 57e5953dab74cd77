package negotiation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexiconIsValid(t *testing.T) {
	require.NoError(t, DefaultLexicon().Validate())
}

func TestLexiconValidate_RejectsOverlappingTacticSets(t *testing.T) {
	l := DefaultLexicon()
	l.SellerTactics.Ultimatum = append(l.SellerTactics.Ultimatum, "Sorry")
	err := l.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejection")
}

func TestLexiconValidate_RequiresVersion(t *testing.T) {
	l := DefaultLexicon()
	l.Version = " "
	assert.Error(t, l.Validate())
}

func TestLoadLexicon_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	body := "version: test-1\nclosing: [\"ultimo\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	l, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", l.Version)
	assert.Equal(t, []string{"ultimo"}, l.Closing)
	assert.Equal(t, DefaultLexicon().Counter, l.Counter, "sections absent from the file keep defaults")
}

func TestLoadLexicon_MissingFile(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTermSetMatching(t *testing.T) {
	terms := compileTerms([]string{"no", "can't", "too low"})

	cases := map[string]bool{
		"No, sorry":                 true,
		"I CAN'T do that":           true,
		"I can’t do that":           true,
		"that's too low for me":     true,
		"I know it's a good price":  false,
		"it's too expensive, lower": false,
		"'no'":                      true,
	}
	for text, want := range cases {
		assert.Equal(t, want, terms.match(text), text)
	}
}
