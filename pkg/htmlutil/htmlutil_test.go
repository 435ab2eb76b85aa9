package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<p><span>09:00</span> - <b>17:<i>00</i></b></p>`))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "09:00 - 17:00", GetText(doc))
	require.Equal(t, "", GetText(nil))
}

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		text   string
		expect string
	}{
		{text: "  09:00\n", expect: "09:00"},
		{text: "Details van  14-03-2024", expect: "Details van 14-03-2024"},
		{text: "\t17:00\u200b", expect: "17:00"},
		{text: "a\u00a0\u00a0b", expect: "a b"},
		{text: "", expect: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, NormalizeText(test.text))
	}
}
