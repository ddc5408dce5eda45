package survey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCollectQuestions(t *testing.T) {
	doc, err := parsePage(questionPageFixture)
	require.NoError(t, err)

	expected := []Question{
		{Name: "R000002", Kind: FieldRadio},
		{Name: "R000009", Kind: FieldCheckbox},
		{Name: "S000070", Kind: FieldText},
		{Name: "S000034", Kind: FieldTextarea},
		{Name: "X000001", Kind: FieldCheckbox},
	}
	if diff := cmp.Diff(expected, collectQuestions(doc)); diff != "" {
		t.Fatalf("questions mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTokens(t *testing.T) {
	doc, err := parsePage(questionPageFixture)
	require.NoError(t, err)

	tokens, err := readTokens(doc)
	require.NoError(t, err)
	require.Equal(t, Tokens{
		Session:  "102",
		Postback: "R000002|R000009|S000070|S000034|X000001",
	}, tokens)

	doc, err = parsePage(landingPage)
	require.NoError(t, err)
	_, err = readTokens(doc)
	require.ErrorIs(t, err, ErrStructureError)
}

func TestReadTokensByIdOrName(t *testing.T) {
	table := []struct {
		name     string
		body     string
		expected Tokens
	}{
		{
			name:     "name only",
			body:     `<input type="hidden" name="IoNF" value="311"><input type="hidden" name="PostedFNS" value="x">`,
			expected: Tokens{Session: "311", Postback: "x"},
		},
		{
			name:     "id only",
			body:     `<input type="hidden" id="IoNF" value="12"><input type="hidden" id="PostedFNS" value="y">`,
			expected: Tokens{Session: "12", Postback: "y"},
		},
		{
			name:     "mixed",
			body:     `<input type="hidden" id="IoNF" name="IoNF" value="7"><input type="hidden" name="PostedFNS" value="z">`,
			expected: Tokens{Session: "7", Postback: "z"},
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			doc, err := parsePage(row.body)
			require.NoError(t, err)
			tokens, err := readTokens(doc)
			require.NoError(t, err)
			require.Equal(t, row.expected, tokens)
		})
	}

	doc, err := parsePage(`<input type="hidden" name="IoNF" value="311"><input type="hidden" name="PostedFNS" value="">`)
	require.NoError(t, err)
	_, err = readTokens(doc)
	require.ErrorIs(t, err, ErrStructureError)
}

func TestRejection(t *testing.T) {
	table := []struct {
		body     string
		rejected bool
		reason   string
	}{
		{body: blockPage, rejected: true, reason: "Sorry, we are unable to continue the survey at this time."},
		{body: errorPage, rejected: true, reason: "The code you entered has expired."},
		{body: questionPageFixture, rejected: false},
		{body: `<div id="BlockPage"></div>`, rejected: true, reason: ""},
	}

	for _, row := range table {
		doc, err := parsePage(row.body)
		require.NoError(t, err)
		reason, rejected := rejection(doc)
		require.Equal(t, row.rejected, rejected)
		require.Equal(t, row.reason, reason)
	}
}
