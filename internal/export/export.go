// Package export renders a processed submission's findings as a reply
// email body or a DOCX document.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/unidoc/unioffice/document"

	"github.com/ledgerworks/rfpd/internal/domain"
)

const defaultSignOff = "Best regards,\nEcosystem Team"

// ComposeEmail builds a plain-text reply email from the findings of a
// processed submission: numbered answers, then an open-items section for
// questions the knowledge base could not cover.
func ComposeEmail(sub *domain.Submission, findings []*domain.Finding) string {
	var lines []string

	subject := "Re: Your RFP Questions"
	if sub.Counterparty != "" {
		subject = fmt.Sprintf("Re: Your RFP Questions — %s", sub.Counterparty)
	}
	lines = append(lines, "Subject: "+subject, "")

	greeting := "Hello,"
	if sub.Counterparty != "" {
		greeting = fmt.Sprintf("Hi %s,", sub.Counterparty)
	}
	lines = append(lines, greeting, "")
	lines = append(lines, "Thanks for the detailed questions. Please find our consolidated responses below.", "")

	var openItems []string
	for i, f := range findings {
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, f.Question))
		if f.Source == domain.AnswerSourceNone {
			lines = append(lines, "   • [No canonical answer in KB]")
			openItems = append(openItems, f.Question)
		} else {
			lines = append(lines, "   • "+f.Answer)
		}
		lines = append(lines, "")
	}

	if len(openItems) > 0 {
		lines = append(lines, "---", "Open items (add to KB and re-generate):")
		for _, q := range openItems {
			lines = append(lines, "- "+q)
		}
		lines = append(lines, "")
	}

	lines = append(lines, "If helpful, we can share links to public documentation and audits, or schedule a technical walk-through.", "")
	lines = append(lines, defaultSignOff, "")
	lines = append(lines, fmt.Sprintf("(Auto-generated preview, UTC %s)", time.Now().UTC().Format("2006-01-02 15:04:05Z")))

	return strings.Join(lines, "\n")
}

// WriteDOCX renders the composed email as a DOCX document, one paragraph
// per line with the subject line in bold.
func WriteDOCX(sub *domain.Submission, findings []*domain.Finding) ([]byte, error) {
	body := ComposeEmail(sub, findings)

	doc := document.New()
	defer doc.Close()

	for _, line := range strings.Split(body, "\n") {
		para := doc.AddParagraph()
		run := para.AddRun()
		run.AddText(line)
		if strings.HasPrefix(line, "Subject:") {
			run.Properties().SetBold(true)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to write docx: %w", err)
	}
	return buf.Bytes(), nil
}
