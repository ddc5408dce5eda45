package survey

import (
	"fmt"
	"strings"

	"surveyrunner/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	fieldSessionToken  = "IoNF"
	fieldPostbackToken = "PostedFNS"

	blockPageSelector = "#BlockPage, .Error"
	questionSelector  = "[type=checkbox], [type=radio], [type=text], textarea"
)

// Tokens are the hidden values every question page hands out, they must be
// echoed back with the answers to that page.
type Tokens struct {
	// Session is the value of IoNF. It doubles as the termination marker.
	Session string
	// Postback is the value of PostedFNS.
	Postback string
}

type FieldKind string

const (
	FieldCheckbox FieldKind = "checkbox"
	FieldRadio    FieldKind = "radio"
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
)

type Question struct {
	Name string
	Kind FieldKind
}

func parsePage(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// hiddenValue reads a hidden field addressed by either its id or its name.
func hiddenValue(doc *goquery.Document, field string) string {
	selector := fmt.Sprintf("input#%s, input[name=%s]", field, field)
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("value", ""))
}

func readTokens(doc *goquery.Document) (Tokens, error) {
	session := hiddenValue(doc, fieldSessionToken)
	if session == "" {
		return Tokens{}, fmt.Errorf("%w: missing %s", ErrStructureError, fieldSessionToken)
	}
	postback := hiddenValue(doc, fieldPostbackToken)
	if postback == "" {
		return Tokens{}, fmt.Errorf("%w: missing %s", ErrStructureError, fieldPostbackToken)
	}
	return Tokens{Session: session, Postback: postback}, nil
}

// collectQuestions lists the distinct named inputs of a page in the order
// they first appear. Grouped radios share a name so they collapse into one.
func collectQuestions(doc *goquery.Document) []Question {
	var questions []Question
	seen := make(map[string]struct{})

	doc.Find(questionSelector).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}

		kind := FieldKind(strings.ToLower(s.AttrOr("type", "")))
		if goquery.NodeName(s) == "textarea" {
			kind = FieldTextarea
		}
		questions = append(questions, Question{Name: name, Kind: kind})
	})

	return questions
}

// rejection reports whether the page is the block page or carries an error
// message, the returned string is whatever text the error element had.
func rejection(doc *goquery.Document) (string, bool) {
	sel := doc.Find(blockPageSelector)
	if sel.Length() == 0 {
		return "", false
	}
	return htmlutil.NodesText(sel.Nodes), true
}
