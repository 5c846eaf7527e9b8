package restyutil

import (
	"bytes"
	"context"
	"fmt"
	"gradewatch/lib/htmlutil"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Page is a fetched html document along with the url it was finally served
// from, after redirects.
type Page struct {
	Url *url.URL
	Doc *goquery.Document
}

// Resolve resolves a link found on the page.
func (p Page) Resolve(ref string) (string, error) {
	u, err := p.Url.Parse(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func readPage(res *resty.Response) (Page, error) {
	if res.IsError() {
		return Page{}, fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status())
	}

	final := res.Request.RawRequest.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		final = res.RawResponse.Request.URL
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", final, err)
	}
	return Page{Url: final, Doc: doc}, nil
}

// GetPage fetches and parses an html page.
func GetPage(ctx context.Context, client *resty.Client, target string) (Page, error) {
	res, err := client.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return Page{}, err
	}
	return readPage(res)
}

// SubmitForm sends form the way a browser would and parses the page it
// lands on.
func SubmitForm(ctx context.Context, client *resty.Client, form htmlutil.Form) (Page, error) {
	req := client.R().SetContext(ctx)

	var (
		res *resty.Response
		err error
	)
	switch form.Method {
	case http.MethodPost:
		res, err = req.SetFormDataFromValues(form.Values).Post(form.Action)
	case http.MethodGet, "":
		res, err = req.SetQueryParamsFromValues(form.Values).Get(form.Action)
	default:
		return Page{}, fmt.Errorf("unsupported form method %q", form.Method)
	}
	if err != nil {
		return Page{}, err
	}
	return readPage(res)
}
