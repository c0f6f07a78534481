package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tryteex/fcgiapp/internal/appctx"
	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/response"
	"github.com/tryteex/fcgiapp/internal/template"
	"github.com/tryteex/fcgiapp/internal/translation"
)

func TestIndexHeadRedirectsPermanentlyWhenNotInternal(t *testing.T) {
	c := appctx.New(context.Background())
	c.Response = response.New()
	c.Templates = &template.Store{}

	answer := IndexHead(c, "", c.ViewData, false)

	require.Equal(t, appctx.AnswerNone, answer.Kind)
	require.NotNil(t, c.Response.Location)
	require.Equal(t, "/index/index/not_found", c.Response.Location.URL)
	require.True(t, c.Response.Location.Permanently)
}

func TestIndexHeadRendersWhenInternal(t *testing.T) {
	c := appctx.New(context.Background())
	c.Response = response.New()
	c.Templates = &template.Store{}

	answer := IndexHead(c, "", c.ViewData, true)

	require.Nil(t, c.Response.Location)
	require.Equal(t, appctx.AnswerNone, answer.Kind) // no template loaded in this context
}

func TestIndexIndexLoadsHeadAndFootIntoShared(t *testing.T) {
	c := appctx.New(context.Background())
	c.Response = response.New()
	c.Templates = &template.Store{}
	c.Translations = &translation.Store{}

	var loaded []string
	c.Loader = func(module, class, action, params string) appctx.Answer {
		loaded = append(loaded, action)
		return appctx.StringAnswer("partial:" + action)
	}

	shared := c.ViewData
	answer := IndexIndex(c, "", shared, false)

	require.ElementsMatch(t, []string{"head", "foot"}, loaded)
	require.Equal(t, cacheval.String("partial:head"), shared["head"])
	require.Equal(t, cacheval.String("partial:foot"), shared["foot"])
	require.Equal(t, appctx.AnswerNone, answer.Kind) // no template loaded in this context
}
