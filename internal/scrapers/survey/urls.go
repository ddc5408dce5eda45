package survey

import "strings"

const (
	indexPage  = "Index.aspx"
	surveyPage = "Survey.aspx"
	// indexPrefix is stripped from the entry form's action to get the entry point.
	indexPrefix = indexPage + "?"
)

// StripIndexPrefix turns an entry form action like `Index.aspx?ABC123` into
// the entry point `ABC123`. Anything before the prefix (a leading slash or
// an absolute url) goes with it.
func StripIndexPrefix(action string) string {
	idx := strings.Index(action, indexPrefix)
	if idx < 0 {
		return action
	}
	return action[idx+len(indexPrefix):]
}

func pageUrl(baseUrl, page, entryPoint string) string {
	return strings.TrimRight(baseUrl, "/") + "/" + page + "?" + entryPoint
}

func IndexUrl(baseUrl, entryPoint string) string {
	return pageUrl(baseUrl, indexPage, entryPoint)
}

func SurveyUrl(baseUrl, entryPoint string) string {
	return pageUrl(baseUrl, surveyPage, entryPoint)
}
