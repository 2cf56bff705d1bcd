package extractor

import (
	"testing"

	"github.com/ledgerworks/rfpd/internal/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuestionsSplitsOnQuestionMarks(t *testing.T) {
	questions := ExtractQuestions("What is your transaction fee? How fast is finality?")

	require.Len(t, questions, 2)
	assert.Equal(t, "What is your transaction fee?", questions[0])
	assert.Equal(t, "How fast is finality?", questions[1])
}

func TestExtractQuestionsEmptyInput(t *testing.T) {
	assert.Empty(t, ExtractQuestions(""))
	assert.Empty(t, ExtractQuestions("   \n\n  "))
}

func TestExtractQuestionsDeduplicates(t *testing.T) {
	text := "How does consensus work on your network?\n\nHow does consensus work on your network?"
	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
	assert.Equal(t, "How does consensus work on your network?", questions[0])
}

func TestExtractQuestionsDeduplicationIsCaseInsensitive(t *testing.T) {
	text := "HOW DOES CONSENSUS WORK ON YOUR NETWORK?\nhow does consensus work on your network?"
	questions := ExtractQuestions(text)

	// First occurrence wins and keeps its original casing.
	require.Len(t, questions, 1)
	assert.Equal(t, "HOW DOES CONSENSUS WORK ON YOUR NETWORK?", questions[0])
}

func TestExtractQuestionsDropsShortCandidates(t *testing.T) {
	questions := ExtractQuestions("Why?\nHow so?\nWhat is your uptime SLA?")

	require.Len(t, questions, 1)
	assert.Equal(t, "What is your uptime SLA?", questions[0])

	for _, q := range questions {
		assert.GreaterOrEqual(t, len(textnorm.Normalize(q)), 15)
	}
}

func TestExtractQuestionsKeepsAccentedText(t *testing.T) {
	text := "¿Cómo funciona el staking en Solana? ¿Qué garantías de disponibilidad ofrecen?"
	questions := ExtractQuestions(text)

	require.Len(t, questions, 2)
	assert.Equal(t, "¿Cómo funciona el staking en Solana?", questions[0])
	assert.Equal(t, "¿Qué garantías de disponibilidad ofrecen?", questions[1])
	assert.Equal(t, "cómo funciona el staking en solana", textnorm.Normalize(questions[0]))
}

func TestExtractQuestionsIsPure(t *testing.T) {
	text := "What is your transaction fee? Please provide your audit reports."
	first := ExtractQuestions(text)
	second := ExtractQuestions(text)
	assert.Equal(t, first, second)
}

func TestExtractQuestionsIgnoresQuotedReplyAndBoilerplate(t *testing.T) {
	text := `Hello.

What is your validator count?

Confidential - for intended recipients only
Unsubscribe from these emails here
https://example.com/terms

On Tuesday, Jan 7, 2025 at 9:00 AM Someone <someone@example.com> wrote:
> How do I get removed from this list?
`
	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
	assert.Equal(t, "What is your validator count?", questions[0])
}

func TestExtractQuestionsCompoundLineIsNotReaddedWhole(t *testing.T) {
	questions := ExtractQuestions("What is your transaction fee? How fast is finality?")

	require.Len(t, questions, 2)
	assert.NotContains(t, questions, "What is your transaction fee? How fast is finality?")
}

func TestExtractQuestionsSkipsEmailHeaders(t *testing.T) {
	text := `From: procurement@bank.example
To: sales@ledger.example
Subject: RFP questions

Could you share your disaster recovery plan with us?`

	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
	assert.Equal(t, "Could you share your disaster recovery plan with us?", questions[0])
}

func TestExtractQuestionsTriggerPhraseWithoutQuestionMark(t *testing.T) {
	questions := ExtractQuestions("Please provide your SOC 2 Type II report.")

	require.Len(t, questions, 1)
	assert.Equal(t, "Please provide your SOC 2 Type II report.", questions[0])
}

func TestExtractQuestionsImperativeVerbStart(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"describe", "Describe your node distribution across regions."},
		{"outline", "Outline the process for validator onboarding."},
		{"explain", "Explain how transaction fees are calculated."},
		{"justify", "Justify the choice of consensus algorithm used."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := ExtractQuestions(tt.line)
			require.Len(t, questions, 1)
			assert.Equal(t, tt.line, questions[0])
		})
	}
}

func TestExtractQuestionsBulletedRequests(t *testing.T) {
	text := `Please respond to the following:
- Please provide details of your governance model
- What are your peak TPS figures?
1) Outline your treasury management controls
2. Explain your slashing policy in detail`

	questions := ExtractQuestions(text)

	assert.Contains(t, questions, "- Please provide details of your governance model")
	assert.Contains(t, questions, "- What are your peak TPS figures?")
	assert.Contains(t, questions, "1) Outline your treasury management controls")
	assert.Contains(t, questions, "2. Explain your slashing policy in detail")
}

func TestExtractQuestionsRegulatorPrefix(t *testing.T) {
	text := "BSP: confirm the custody arrangements for client assets\nRegulator: summarize your AML screening controls"
	questions := ExtractQuestions(text)

	require.Len(t, questions, 2)
}

func TestExtractQuestionsMergesWrappedLines(t *testing.T) {
	// A question wrapped across two physical lines is one logical line.
	text := "Could you share the average cost per\ntransaction on mainnet?"
	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
	assert.Equal(t, "Could you share the average cost per transaction on mainnet?", questions[0])
}

func TestExtractQuestionsSentenceBoundaryStartsNewLogicalLine(t *testing.T) {
	text := "We reviewed your materials last week.\nWhat remains unclear is the fee model?"
	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
	assert.Equal(t, "What remains unclear is the fee model?", questions[0])
}

func TestExtractQuestionsSecondaryPassCatchesLongTriggerLines(t *testing.T) {
	// Ends with a period, no '?', but contains a trigger and is long
	// enough for the secondary pass.
	text := "We would appreciate a breakdown of validator economics across epochs."
	questions := ExtractQuestions(text)

	require.Len(t, questions, 1)
}

func TestExtractQuestionsCurlyApostropheTriggers(t *testing.T) {
	questions := ExtractQuestions("We’d appreciate an overview of your custody integrations.")
	require.Len(t, questions, 1)
}

func TestExtractQuestionsCompoundLineSplitsPerMark(t *testing.T) {
	// Splitting policy: every '?' produces its own candidate, even on a
	// single physical line.
	questions := ExtractQuestions("What is your uptime guarantee? And what is your support SLA?")

	require.Len(t, questions, 2)
	assert.Equal(t, "What is your uptime guarantee?", questions[0])
	assert.Equal(t, "And what is your support SLA?", questions[1])
}

func TestExtractQuestionsIgnoresPlainStatements(t *testing.T) {
	text := "We are a mid-sized bank based in Frankfurt.\nOur team reviewed the documentation yesterday."
	assert.Empty(t, ExtractQuestions(text))
}
