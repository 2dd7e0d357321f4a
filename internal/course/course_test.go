package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Go Basics", "go-basics"},
		{"  Advanced  SQL!  ", "advanced-sql"},
		{"C++ for Gophers", "c-for-gophers"},
		{"100 Days of Code", "100-days-of-code"},
		{"---", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.title), "title %q", tc.title)
	}
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, ParseTags(""))
	assert.Equal(t, []string{"go", "backend"}, ParseTags("go, backend"))
	assert.Equal(t, []string{"go"}, ParseTags(" go ,, "))
}
