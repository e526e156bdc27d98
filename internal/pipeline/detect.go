package pipeline

import "strings"

type DetectResult struct {
	IsRFQ  bool
	Score  float64
	Reason string
}

var detectKeywords = []string{"rfq", "quote", "quotation", "purchase", "order", "need", "require", "qty", "price"}

// DetectRFQ scores how likely a message is a request for quotation. Pure
// rules: keyword hits in subject and body, numeric density, spreadsheet or
// pdf attachments, and the presence of an HTML table.
func DetectRFQ(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	numberRuns := countNumberRuns(text)
	if numberRuns >= 2 {
		score += 0.4
	} else if numberRuns == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isRFQ := score >= 0.45
	reason := "rules_negative"
	if isRFQ {
		reason = "rules_positive"
	}

	return DetectResult{IsRFQ: isRFQ, Score: score, Reason: reason}
}

func countNumberRuns(text string) int {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] >= '0' && text[i] <= '9' {
			count++
			for i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
				i++
			}
		}
	}
	return count
}
