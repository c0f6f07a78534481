package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/template"
	"github.com/tryteex/fcgiapp/internal/translation"
)

func TestTFallsBackToKeyAndEscapes(t *testing.T) {
	c := New(context.Background())
	c.Translations = &translation.Store{}
	c.Module, c.Class = "index", "index"

	got := c.T("<missing>")
	require.Equal(t, "&lt;missing&gt;", got)
}

func TestSetAndRender(t *testing.T) {
	c := New(context.Background())
	store, err := template.Load(t.TempDir())
	require.NoError(t, err)
	c.Templates = store

	c.Set("name", cacheval.String("world"))
	_, ok := c.Render("index", "index", "missing")
	require.False(t, ok)
}

func TestLoadWithoutLoaderAnswersNone(t *testing.T) {
	c := New(context.Background())
	a := c.Load("index", "index", "head", "")
	require.Equal(t, AnswerNone, a.Kind)
}

func TestLoadDelegatesToLoader(t *testing.T) {
	c := New(context.Background())
	c.Loader = func(module, class, action, params string) Answer {
		require.Equal(t, "index", module)
		require.Equal(t, "head", action)
		return StringAnswer("rendered")
	}
	a := c.Load("index", "index", "head", "")
	require.Equal(t, "rendered", a.Text)
}

func TestLangVectorOrdering(t *testing.T) {
	c := New(context.Background())
	langs := []translation.Lang{
		{ID: 1, ISOCode: "en", NativeName: "English", DisplayName: "English"},
		{ID: 2, ISOCode: "fr", NativeName: "Francais", DisplayName: "French"},
	}
	store, err := translation.Load(t.TempDir(), langs)
	require.NoError(t, err)
	c.Translations = store
	c.LangID = 2

	v := c.LangVector()
	vec, ok := v.LangVectorValue()
	require.True(t, ok)
	require.Len(t, vec.Items, 2)
	require.EqualValues(t, 1, vec.Items[0].LangID)
	require.EqualValues(t, 2, vec.Items[1].LangID)
	require.EqualValues(t, 2, vec.Selected)
}
