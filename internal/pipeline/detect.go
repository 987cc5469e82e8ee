package pipeline

import (
	"path/filepath"
	"strings"
)

type DetectResult struct {
	IsApplication bool
	Score         float64
	Reason        string
}

var detectKeywords = []string{"application", "offer", "enrol", "student", "coe", "course", "申请", "报名"}

var documentExtensions = map[string]struct{}{".yaml": {}, ".yml": {}, ".json": {}}

// DetectApplication scores a message on subject/body keywords, document-like
// attachments and the number of documents already extracted from it.
func DetectApplication(subject, text string, attachmentNames []string, documents int) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		if isDocumentName(name) {
			score += 0.35
			break
		}
	}

	if documents > 0 {
		score += 0.4
	}
	if score > 1 {
		score = 1
	}

	if documents == 0 {
		return DetectResult{IsApplication: false, Score: score, Reason: "no_document"}
	}
	isApplication := score >= 0.45
	reason := "rules_negative"
	if isApplication {
		reason = "rules_positive"
	}
	return DetectResult{IsApplication: isApplication, Score: score, Reason: reason}
}

func isDocumentName(name string) bool {
	_, ok := documentExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
	return ok
}
