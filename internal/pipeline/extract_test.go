package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDocumentsFromAttachment(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "sample_application.eml"))
	require.NoError(t, err)

	ext, err := ExtractDocumentsFromEmailRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, "Student application - Li Wei", ext.Subject)
	assert.ElementsMatch(t, []string{"offer.yaml", "notes.pdf"}, ext.AttachmentNames)
	require.Len(t, ext.Documents, 1)
	assert.Equal(t, "attachment:offer.yaml", ext.Documents[0].Origin)

	doc, err := ParseDocument(ext.Documents[0].Text)
	require.NoError(t, err)
	assert.Equal(t, "Li", section(doc, "student_info")["first_name"])
}

func TestParseHTMLBlocks(t *testing.T) {
	html := `<p>see below</p><pre><code>student_info:
  first_name: Li
applied_courses:
  - course_id: BSB50120
</code></pre><code>inline</code>`
	docs := parseHTMLBlocks(html)
	require.Len(t, docs, 1)
	assert.Equal(t, "html", docs[0].Origin)
	assert.Contains(t, docs[0].Text, "first_name: Li")
}

func TestDedupeDocuments(t *testing.T) {
	docs := dedupeDocuments([]MailDocument{
		{Origin: "attachment:a.yaml", Text: "a: 1\nb: 2\n"},
		{Origin: "html", Text: "  a: 1\nb: 2"},
		{Origin: "text", Text: "c: 3\nd: 4"},
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "attachment:a.yaml", docs[0].Origin)
}

func TestDetectApplication(t *testing.T) {
	res := DetectApplication("Student application", "", []string{"offer.yaml"}, 1)
	assert.True(t, res.IsApplication)
	assert.Equal(t, "rules_positive", res.Reason)

	res = DetectApplication("Course fees question", "What are the fees?", nil, 0)
	assert.False(t, res.IsApplication)
	assert.Equal(t, "no_document", res.Reason)

	res = DetectApplication("hello", "", nil, 1)
	assert.False(t, res.IsApplication)
	assert.Equal(t, "rules_negative", res.Reason)
	assert.InDelta(t, 0.4, res.Score, 1e-9)
	assert.False(t, DetectApplication("", "", nil, 0).IsApplication)
}
