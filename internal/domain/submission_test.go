package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   SubmissionStatus
		expected string
	}{
		{"Pending", SubmissionStatusPending, "pending"},
		{"Processing", SubmissionStatusProcessing, "processing"},
		{"Completed", SubmissionStatusCompleted, "completed"},
		{"Failed", SubmissionStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	now := time.Now()

	valid := func() *Submission {
		return &Submission{
			ID:        "s1",
			OrgID:     "org1",
			Source:    SubmissionSourceEmail,
			RawText:   "What is your transaction fee? How fast is finality?",
			Status:    SubmissionStatusPending,
			CreatedAt: now,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Submission)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid submission",
			mutate:  func(s *Submission) {},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(s *Submission) { s.ID = "" },
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing OrgID",
			mutate:  func(s *Submission) { s.OrgID = "" },
			wantErr: true,
			errMsg:  "OrgID",
		},
		{
			name:    "blank raw text",
			mutate:  func(s *Submission) { s.RawText = "  \n " },
			wantErr: true,
			errMsg:  "RawText",
		},
		{
			name:    "invalid source",
			mutate:  func(s *Submission) { s.Source = "carrier-pigeon" },
			wantErr: true,
			errMsg:  "Source",
		},
		{
			name:    "invalid status",
			mutate:  func(s *Submission) { s.Status = "paused" },
			wantErr: true,
			errMsg:  "Status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := valid()
			tt.mutate(sub)

			err := ValidateSubmission(sub)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSubmissionNil(t *testing.T) {
	err := ValidateSubmission(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}
