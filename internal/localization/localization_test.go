package localization

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"l/en.json":  {Data: []byte(`{"hello":"Hello","only_en":"English"}`)},
		"l/uk.json":  {Data: []byte(`{"hello":"Привіт"}`)},
		"l/notes.md": {Data: []byte("ignored")},
	}
	l, err := NewLocalizer(fsys, "l")
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "hello"))
	assert.Equal(t, "English", l.GetString("uk", "only_en"))
	assert.Equal(t, "missing", l.GetString("uk", "missing"))
	assert.Equal(t, "Hello", l.GetString("de", "hello"))
}

func TestNewLocalizer_BadJSON(t *testing.T) {
	fsys := fstest.MapFS{"l/en.json": {Data: []byte(`{`)}}

	_, err := NewLocalizer(fsys, "l")

	assert.Error(t, err)
}

func TestLanguage(t *testing.T) {
	l, err := Bundled()
	require.NoError(t, err)

	assert.Equal(t, "uk", l.Language("uk-UA,uk;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", l.Language("de-DE, en;q=0.5"))
	assert.Equal(t, "en", l.Language(""))
	assert.Equal(t, "uk", l.Language("fr, UK"))
}

func TestBundled_CoversErrorCodes(t *testing.T) {
	l, err := Bundled()
	require.NoError(t, err)

	for _, code := range []string{"validation", "not_friends", "already_friends", "request_pending",
		"self_request", "not_found", "storage_unavailable", "unauthorized", "conflict", "internal"} {
		assert.NotEqual(t, code, l.GetString("en", code), code)
		assert.NotEqual(t, code, l.GetString("uk", code), code)
	}
}
