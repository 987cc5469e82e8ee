package pipeline

import (
	"bytes"
	"crypto/sha256"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"studentoffer/internal/util"
)

type MailDocument struct {
	Origin   string
	Text     string
	Encoding string
}

type MailExtraction struct {
	Subject         string
	Text            string
	AttachmentNames []string
	Documents       []MailDocument
}

// ExtractDocumentsFromEmailRaw pulls application documents out of a raw
// message: document attachments first, then <pre>/<code> blocks of the HTML
// body, then the plain-text body when it looks like a document itself.
func ExtractDocumentsFromEmailRaw(raw []byte) (MailExtraction, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailExtraction{}, err
	}

	out := MailExtraction{Subject: env.GetHeader("Subject"), Text: env.Text}
	docs := make([]MailDocument, 0)

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)
		if !isDocumentName(filename) && !strings.HasSuffix(strings.ToLower(filename), ".txt") {
			continue
		}
		decoded, err := DecodeBytes(att.Content)
		if err != nil || !util.LooksLikeDocument(decoded.Text) {
			continue
		}
		docs = append(docs, MailDocument{Origin: "attachment:" + filename, Text: decoded.Text, Encoding: decoded.Encoding})
	}

	if env.HTML != "" {
		docs = append(docs, parseHTMLBlocks(env.HTML)...)
	}

	if len(docs) == 0 && util.LooksLikeDocument(env.Text) {
		docs = append(docs, MailDocument{Origin: "text", Text: env.Text, Encoding: "utf-8"})
	}

	out.Documents = dedupeDocuments(docs)
	return out, nil
}

func parseHTMLBlocks(html string) []MailDocument {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []MailDocument{}
	doc.Find("pre, code").Each(func(_ int, block *goquery.Selection) {
		// a <code> nested in a <pre> is the same block
		if goquery.NodeName(block) == "code" && block.ParentsFiltered("pre").Length() > 0 {
			return
		}
		text := block.Text()
		if !util.LooksLikeDocument(text) {
			return
		}
		out = append(out, MailDocument{Origin: "html", Text: text, Encoding: "utf-8"})
	})
	return out
}

func dedupeDocuments(docs []MailDocument) []MailDocument {
	seen := map[[32]byte]struct{}{}
	out := make([]MailDocument, 0, len(docs))
	for _, d := range docs {
		key := sha256.Sum256([]byte(strings.TrimSpace(d.Text)))
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
