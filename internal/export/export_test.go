package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/rfpd/internal/domain"
)

func TestComposeEmail(t *testing.T) {
	sub := &domain.Submission{
		ID:           "s1",
		Counterparty: "Acme Bank",
	}
	findings := []*domain.Finding{
		{
			Question: "What is the average transaction cost?",
			Answer:   "$0.00025",
			Source:   domain.AnswerSourceKnowledgeBase,
		},
		{
			Question: "How does your disaster recovery process work?",
			Answer:   "No answer found in knowledge base for this question.",
			Source:   domain.AnswerSourceNone,
		},
	}

	body := ComposeEmail(sub, findings)

	assert.Contains(t, body, "Subject: Re: Your RFP Questions — Acme Bank")
	assert.Contains(t, body, "Hi Acme Bank,")
	assert.Contains(t, body, "1) What is the average transaction cost?")
	assert.Contains(t, body, "   • $0.00025")
	assert.Contains(t, body, "2) How does your disaster recovery process work?")
	assert.Contains(t, body, "[No canonical answer in KB]")
	assert.Contains(t, body, "Open items (add to KB and re-generate):")
	assert.Contains(t, body, "- How does your disaster recovery process work?")
}

func TestComposeEmailWithoutCounterparty(t *testing.T) {
	body := ComposeEmail(&domain.Submission{ID: "s1"}, nil)

	assert.Contains(t, body, "Subject: Re: Your RFP Questions\n")
	assert.Contains(t, body, "Hello,")
	assert.NotContains(t, body, "Open items")
}

func TestWriteDOCX(t *testing.T) {
	sub := &domain.Submission{ID: "s1", Counterparty: "Acme Bank"}
	findings := []*domain.Finding{
		{
			Question: "What is the average transaction cost?",
			Answer:   "$0.00025",
			Source:   domain.AnswerSourceKnowledgeBase,
		},
	}

	data, err := WriteDOCX(sub, findings)

	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// DOCX files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}
