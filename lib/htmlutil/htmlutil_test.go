package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "Giải tích I", CleanText("\n\t  Giải   tích \n I \t"))
	require.Equal(t, "", CleanText(" \n "))
}

func TestReadForm(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
	<form id="login" method="post" action="/adfs/ls/?client-request-id=1">
		<input type="hidden" name="Token" value="abc">
		<input type="text" name="UserName">
		<input type="checkbox" name="Remember">
		<input type="checkbox" name="Kmsi" checked value="true">
		<select name="AuthMethod"><option value="A">A</option><option value="Forms" selected>F</option></select>
		<input type="submit" name="Submit" value="Sign in">
	</form>`))
	require.NoError(t, err)

	base, err := url.Parse("https://sso.example.edu/adfs/ls/")
	require.NoError(t, err)

	form, err := ReadForm(base, doc.Find("form#login"))
	require.NoError(t, err)
	require.Equal(t, "POST", form.Method)
	require.Equal(t, "https://sso.example.edu/adfs/ls/?client-request-id=1", form.Action)
	require.Equal(t, "abc", form.Values.Get("Token"))
	require.Equal(t, "", form.Values.Get("UserName"))
	require.True(t, form.Values.Has("UserName"))
	require.False(t, form.Values.Has("Remember"))
	require.Equal(t, "true", form.Values.Get("Kmsi"))
	require.Equal(t, "Forms", form.Values.Get("AuthMethod"))
	require.False(t, form.Values.Has("Submit"))
}
