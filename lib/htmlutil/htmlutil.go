package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText drops non-printable runes, trims the ends and collapses inner
// runs of whitespace into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Text is the cleaned text content of every node in sel.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return CleanText(buffer.String())
}

// Form is an html form ready to be re-submitted.
type Form struct {
	Action string
	Method string
	Values url.Values
}

// ReadForm collects the named inputs of a form, resolving its action against
// base. Checkboxes and radios are only collected when checked.
func ReadForm(base *url.URL, form *goquery.Selection) (Form, error) {
	action := form.AttrOr("action", "")
	resolved, err := base.Parse(action)
	if err != nil {
		return Form{}, err
	}

	values := url.Values{}
	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		switch goquery.NodeName(input) {
		case "select":
			selected := input.Find("option[selected]").First()
			if selected.Length() == 0 {
				selected = input.Find("option").First()
			}
			values.Add(name, selected.AttrOr("value", Text(selected)))
			return
		case "textarea":
			values.Add(name, input.Text())
			return
		}

		kind := strings.ToLower(input.AttrOr("type", "text"))
		if kind == "checkbox" || kind == "radio" {
			if _, checked := input.Attr("checked"); !checked {
				return
			}
		}
		if kind == "submit" || kind == "button" || kind == "image" {
			return
		}
		values.Add(name, input.AttrOr("value", ""))
	})

	method := strings.ToUpper(form.AttrOr("method", "GET"))
	return Form{
		Action: resolved.String(),
		Method: method,
		Values: values,
	}, nil
}
