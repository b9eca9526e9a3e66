package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"roles/greeting.tmpl": &fstest.MapFile{Data: []byte("Hello {{.Name}}")},
		"roles/ignored.txt":   &fstest.MapFile{Data: []byte("not a template")},
	}

	reg, err := NewRegistryFromFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"roles/greeting"}, reg.List())

	out, err := reg.Render("roles/greeting", map[string]any{"Name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestRegistryUnknownTemplate(t *testing.T) {
	reg, err := NewRegistryFromFS(fstest.MapFS{})
	require.NoError(t, err)

	_, err = reg.Render("roles/missing", nil)
	assert.Error(t, err)
}

func TestEmbeddedRolesPresent(t *testing.T) {
	reg := Get()

	for _, id := range []string{
		"roles/business_model",
		"roles/news_sentiment",
		"roles/performance",
		"roles/narrative_summary",
		"roles/report",
	} {
		tmpl, err := reg.GetTemplate(id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, tmpl.Content)
	}
}
