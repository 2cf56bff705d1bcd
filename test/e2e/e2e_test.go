//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_Bootstrap tests organization and API key creation
func TestE2E_Bootstrap(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("create organization", func(t *testing.T) {
		resp, err := env.Post("/orgs", map[string]string{"name": "Test Organization"}, "")
		require.NoError(t, err)

		var org struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			CreatedAt string `json:"created_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &org))
		assert.NotEmpty(t, org.ID)
		assert.Equal(t, "Test Organization", org.Name)
		assert.NotEmpty(t, org.CreatedAt)
	})

	t.Run("duplicate organization name rejected", func(t *testing.T) {
		_, err := env.Post("/orgs", map[string]string{"name": "Test Organization"}, "")
		assert.Error(t, err)
	})

	t.Run("create API key", func(t *testing.T) {
		orgResp, err := env.Post("/orgs", map[string]string{"name": "Key Test Org"}, "")
		require.NoError(t, err)

		var org struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(orgResp.Data, &org))

		keyResp, err := env.Post("/apikeys", map[string]string{
			"org_id": org.ID,
			"name":   "test-key",
		}, "")
		require.NoError(t, err)

		var key struct {
			Token string `json:"token"`
			Name  string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(keyResp.Data, &key))
		assert.True(t, strings.HasPrefix(key.Token, "rfp_"))
		assert.Equal(t, "test-key", key.Name)
	})

	t.Run("requests without token are rejected", func(t *testing.T) {
		_, err := env.Get("/entries", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("requests with a bogus token are rejected", func(t *testing.T) {
		_, err := env.Get("/entries", "rfp_"+strings.Repeat("00", 32))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

// TestE2E_EntryLifecycle tests knowledge entry CRUD over HTTP
func TestE2E_EntryLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	var entryID string

	t.Run("create entry", func(t *testing.T) {
		resp, err := env.Post("/entries", map[string]interface{}{
			"question": "What consensus mechanism does the network use?",
			"answer":   "Proof of History combined with Proof of Stake.",
			"category": "technology",
			"tags":     []string{"consensus", "validators"},
		}, env.AuthToken)
		require.NoError(t, err)

		var entry struct {
			ID     string `json:"id"`
			OrgID  string `json:"org_id"`
			Active bool   `json:"active"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &entry))
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, env.OrgID, entry.OrgID)
		assert.True(t, entry.Active)
		entryID = entry.ID
	})

	t.Run("duplicate question rejected", func(t *testing.T) {
		_, err := env.Post("/entries", map[string]interface{}{
			"question": "What consensus mechanism does the network use?",
			"answer":   "A different answer.",
		}, env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "409")
	})

	t.Run("get entry", func(t *testing.T) {
		resp, err := env.Get("/entries/"+entryID, env.AuthToken)
		require.NoError(t, err)

		var entry struct {
			Question string   `json:"question"`
			Tags     []string `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &entry))
		assert.Equal(t, "What consensus mechanism does the network use?", entry.Question)
		assert.Equal(t, []string{"consensus", "validators"}, entry.Tags)
	})

	t.Run("update entry", func(t *testing.T) {
		resp, err := env.Put("/entries/"+entryID, map[string]interface{}{
			"answer": "Proof of History, a verifiable delay function, combined with Proof of Stake.",
		}, env.AuthToken)
		require.NoError(t, err)

		var entry struct {
			Answer string `json:"answer"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &entry))
		assert.Contains(t, entry.Answer, "verifiable delay function")
	})

	t.Run("list entries", func(t *testing.T) {
		resp, err := env.Get("/entries?limit=10", env.AuthToken)
		require.NoError(t, err)

		var list struct {
			Items   []json.RawMessage `json:"items"`
			HasMore bool              `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		assert.Len(t, list.Items, 1)
		assert.False(t, list.HasMore)
	})

	t.Run("delete deactivates entry", func(t *testing.T) {
		resp, err := env.Delete("/entries/"+entryID, env.AuthToken)
		require.NoError(t, err)

		var entry struct {
			Active bool `json:"active"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &entry))
		assert.False(t, entry.Active)

		// Deactivated entries drop out of listings
		listResp, err := env.Get("/entries", env.AuthToken)
		require.NoError(t, err)
		var list struct {
			Items []json.RawMessage `json:"items"`
		}
		require.NoError(t, json.Unmarshal(listResp.Data, &list))
		assert.Empty(t, list.Items)
	})
}

func seedEntries(t *testing.T, env *E2ETestEnv) {
	t.Helper()
	entries := []map[string]interface{}{
		{
			"question": "What consensus mechanism does the network use?",
			"answer":   "Proof of History combined with Proof of Stake.",
			"category": "technology",
		},
		{
			"question": "Do you support single sign-on?",
			"answer":   "Yes, we support SAML 2.0 and OIDC single sign-on.",
			"category": "security",
		},
		{
			"question": "What is your guaranteed uptime SLA?",
			"answer":   "We guarantee 99.9% uptime measured monthly.",
			"category": "operations",
		},
	}
	for _, e := range entries {
		_, err := env.Post("/entries", e, env.AuthToken)
		require.NoError(t, err)
	}
}

// TestE2E_SearchAndAnswers tests the search and answer endpoints against
// a seeded knowledge base
func TestE2E_SearchAndAnswers(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	seedEntries(t, env)

	type match struct {
		MatchType  string  `json:"match_type"`
		Confidence float64 `json:"confidence"`
		Answer     string  `json:"answer"`
	}

	t.Run("exact search", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]interface{}{
			"question": "What consensus mechanism does the network use?",
		}, env.AuthToken)
		require.NoError(t, err)

		var search struct {
			Matches []match `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &search))
		require.NotEmpty(t, search.Matches)
		assert.Equal(t, "exact", search.Matches[0].MatchType)
		assert.Equal(t, 1.0, search.Matches[0].Confidence)
	})

	t.Run("semantic search on a rephrasing", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]interface{}{
			"question": "Is single sign-on supported by your platform?",
		}, env.AuthToken)
		require.NoError(t, err)

		var search struct {
			Matches []match `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &search))
		require.NotEmpty(t, search.Matches)
		assert.Equal(t, "semantic", search.Matches[0].MatchType)
		assert.Contains(t, search.Matches[0].Answer, "SAML")
	})

	t.Run("answer from knowledge base", func(t *testing.T) {
		resp, err := env.Post("/answers", map[string]interface{}{
			"question": "What is your guaranteed uptime SLA?",
		}, env.AuthToken)
		require.NoError(t, err)

		var answer struct {
			Answer      string `json:"answer"`
			Source      string `json:"source"`
			SourceLabel string `json:"source_label"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &answer))
		assert.Equal(t, "knowledge_base", answer.Source)
		assert.Equal(t, "KB Match", answer.SourceLabel)
		assert.Contains(t, answer.Answer, "99.9%")
	})

	t.Run("no answer without AI configured", func(t *testing.T) {
		resp, err := env.Post("/answers", map[string]interface{}{
			"question": "What is the airspeed velocity of an unladen swallow?",
		}, env.AuthToken)
		require.NoError(t, err)

		var answer struct {
			MatchType  string  `json:"match_type"`
			Confidence float64 `json:"confidence"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &answer))
		assert.Equal(t, "no_answer", answer.MatchType)
		assert.Equal(t, 0.0, answer.Confidence)
	})

	t.Run("batch preserves question order", func(t *testing.T) {
		resp, err := env.Post("/answers/batch", map[string]interface{}{
			"questions": []string{
				"Do you support single sign-on?",
				"What is your guaranteed uptime SLA?",
			},
		}, env.AuthToken)
		require.NoError(t, err)

		var batch struct {
			Answers []struct {
				Question string `json:"question"`
			} `json:"answers"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &batch))
		require.Len(t, batch.Answers, 2)
		assert.Equal(t, "Do you support single sign-on?", batch.Answers[0].Question)
		assert.Equal(t, "What is your guaranteed uptime SLA?", batch.Answers[1].Question)
	})

	t.Run("heuristic question extraction", func(t *testing.T) {
		resp, err := env.Post("/questions/extract", map[string]interface{}{
			"text": "Hello,\n\nPlease describe your disaster recovery process. What certifications do you hold?\n\nThanks",
		}, env.AuthToken)
		require.NoError(t, err)

		var extract struct {
			Questions []string `json:"questions"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &extract))
		assert.Len(t, extract.Questions, 2)
	})
}

// TestE2E_SubmissionPipeline tests the full submission flow: create,
// process, findings, export
func TestE2E_SubmissionPipeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	seedEntries(t, env)

	var submissionID string

	t.Run("create submission from raw text", func(t *testing.T) {
		resp, err := env.Post("/submissions", map[string]interface{}{
			"counterparty": "Acme Corp",
			"raw_text":     "Hi,\n\nWe are evaluating your platform.\n\nDo you support single sign-on? What is your guaranteed uptime SLA?\n\nBest regards",
		}, env.AuthToken)
		require.NoError(t, err)

		var sub struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Source string `json:"source"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &sub))
		assert.Equal(t, "pending", sub.Status)
		assert.Equal(t, "api", sub.Source)
		submissionID = sub.ID
	})

	t.Run("process submission", func(t *testing.T) {
		resp, err := env.Post("/submissions/"+submissionID+"/process", nil, env.AuthToken)
		require.NoError(t, err)

		var sub struct {
			Status      string `json:"status"`
			ProcessedAt string `json:"processed_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &sub))
		assert.Equal(t, "completed", sub.Status)
		assert.NotEmpty(t, sub.ProcessedAt)
	})

	t.Run("findings in extraction order", func(t *testing.T) {
		resp, err := env.Get("/submissions/"+submissionID+"/findings", env.AuthToken)
		require.NoError(t, err)

		var result struct {
			Findings []struct {
				Position int    `json:"position"`
				Question string `json:"question"`
				Answer   string `json:"answer"`
			} `json:"findings"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		require.Len(t, result.Findings, 2)
		for i, f := range result.Findings {
			assert.Equal(t, i, f.Position)
		}
		assert.Contains(t, result.Findings[0].Answer, "SAML")
		assert.Contains(t, result.Findings[1].Answer, "99.9%")
	})

	t.Run("email export", func(t *testing.T) {
		body, contentType, err := env.GetRaw("/submissions/"+submissionID+"/export?format=email", env.AuthToken)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(contentType, "text/plain"))
		assert.Contains(t, string(body), "Do you support single sign-on?")
		assert.Contains(t, string(body), "SAML")
	})

	t.Run("docx export is a zip container", func(t *testing.T) {
		body, contentType, err := env.GetRaw("/submissions/"+submissionID+"/export?format=docx", env.AuthToken)
		require.NoError(t, err)
		assert.Contains(t, contentType, "officedocument")
		require.Greater(t, len(body), 4)
		assert.Equal(t, []byte("PK"), body[:2])
	})

	t.Run("invalid export format rejected", func(t *testing.T) {
		_, _, err := env.GetRaw("/submissions/"+submissionID+"/export?format=xlsx", env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("submission appears in listing", func(t *testing.T) {
		resp, err := env.Get("/submissions", env.AuthToken)
		require.NoError(t, err)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, submissionID, list.Items[0].ID)
	})
}

// TestE2E_SubmissionUpload tests multipart questionnaire upload
func TestE2E_SubmissionUpload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	seedEntries(t, env)

	// Plain text passes through the parser untouched
	content := []byte("Questionnaire\n\nDo you support single sign-on? What is your guaranteed uptime SLA?\n")

	resp, err := env.PostMultipart("/submissions/upload", env.AuthToken, "questionnaire.txt", content, map[string]string{
		"counterparty": "Globex",
	})
	require.NoError(t, err)

	var sub struct {
		ID           string `json:"id"`
		Source       string `json:"source"`
		Counterparty string `json:"counterparty"`
		Filename     string `json:"filename"`
		Status       string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &sub))
	assert.Equal(t, "document", sub.Source)
	assert.Equal(t, "Globex", sub.Counterparty)
	assert.Equal(t, "questionnaire.txt", sub.Filename)
	assert.Equal(t, "pending", sub.Status)

	// Uploaded submissions run through the same pipeline
	_, err = env.Post("/submissions/"+sub.ID+"/process", nil, env.AuthToken)
	require.NoError(t, err)

	findResp, err := env.Get("/submissions/"+sub.ID+"/findings", env.AuthToken)
	require.NoError(t, err)

	var result struct {
		Findings []struct {
			Answer string `json:"answer"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(findResp.Data, &result))
	require.Len(t, result.Findings, 2)
	assert.Contains(t, result.Findings[0].Answer, "SAML")
}

// TestE2E_DocumentUploadDownload tests the presigned document flow
func TestE2E_DocumentUploadDownload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	content := []byte("Vendor questionnaire: do you support SSO?\n")
	var documentID, storageKey string

	t.Run("init upload", func(t *testing.T) {
		resp, err := env.Post("/documents/init", map[string]interface{}{
			"filename":     "questionnaire.txt",
			"content_type": "text/plain",
		}, env.AuthToken)
		require.NoError(t, err)

		var init struct {
			DocumentID string `json:"document_id"`
			StorageKey string `json:"storage_key"`
			UploadURL  string `json:"upload_url"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &init))
		require.NotEmpty(t, init.UploadURL)
		documentID = init.DocumentID
		storageKey = init.StorageKey

		require.NoError(t, env.UploadFile(init.UploadURL, content, "text/plain"))
	})

	t.Run("complete upload", func(t *testing.T) {
		resp, err := env.Post("/documents/complete", map[string]interface{}{
			"document_id":  documentID,
			"storage_key":  storageKey,
			"filename":     "questionnaire.txt",
			"content_type": "text/plain",
			"sha256":       SHA256Sum(content),
		}, env.AuthToken)
		require.NoError(t, err)

		var doc struct {
			ID     string `json:"id"`
			SHA256 string `json:"sha256"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &doc))
		assert.Equal(t, documentID, doc.ID)
		assert.Equal(t, SHA256Sum(content), doc.SHA256)
	})

	t.Run("download round-trips content", func(t *testing.T) {
		resp, err := env.Get("/documents/"+documentID+"/download", env.AuthToken)
		require.NoError(t, err)

		var dl struct {
			DownloadURL string `json:"download_url"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &dl))

		downloaded, err := env.DownloadFile(dl.DownloadURL)
		require.NoError(t, err)
		assert.Equal(t, content, downloaded)
	})

	t.Run("delete removes document", func(t *testing.T) {
		_, err := env.Delete("/documents/"+documentID, env.AuthToken)
		require.NoError(t, err)

		_, err = env.Get("/documents/"+documentID, env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_CLIWorkflow tests the admin CLI against the same database
func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinary()

	workDir := t.TempDir()

	t.Run("org create", func(t *testing.T) {
		out, err := env.RunRfpd(workDir, "org", "create", "CLI Test Org")
		require.NoError(t, err, out)
		assert.Contains(t, out, "CLI Test Org")
	})

	t.Run("apikey create", func(t *testing.T) {
		out, err := env.RunRfpd(workDir, "apikey", "create", "--org", "CLI Test Org", "--name", "cli-key")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Token: rfp_")
	})

	t.Run("import from JSON file", func(t *testing.T) {
		records := []map[string]string{
			{"question": "Do you offer a sandbox environment?", "answer": "Yes, a full-featured sandbox is included."},
			{"question": "Where are your data centers located?", "answer": "Primary regions are us-east-1 and eu-west-1."},
		}
		data, err := json.Marshal(records)
		require.NoError(t, err)

		importPath := filepath.Join(workDir, "kb.json")
		require.NoError(t, os.WriteFile(importPath, data, 0o644))

		out, err := env.RunRfpd(workDir, "import", "CLI Test Org", importPath)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Imported: 2")

		// Re-import skips duplicates
		out, err = env.RunRfpd(workDir, "import", "CLI Test Org", importPath)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Skipped:  2")
	})
}

// TestE2E_FullWorkflow tests import, reindex, and a complete RFP run
func TestE2E_FullWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	records := []map[string]string{
		{"question": "Do you support single sign-on?", "answer": "Yes, SAML 2.0 and OIDC."},
		{"question": "What is your guaranteed uptime SLA?", "answer": "99.9% measured monthly."},
		{"question": "How is customer data encrypted?", "answer": "AES-256 at rest and TLS 1.3 in transit."},
	}
	importBody, err := json.Marshal(records)
	require.NoError(t, err)

	importResp, err := env.Post("/entries/import", json.RawMessage(importBody), env.AuthToken)
	require.NoError(t, err)

	var imported struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(importResp.Data, &imported))
	assert.Equal(t, 3, imported.Imported)
	assert.Equal(t, 0, imported.Skipped)

	reindexResp, err := env.Post("/entries/reindex", nil, env.AuthToken)
	require.NoError(t, err)

	var reindex struct {
		IndexedEntries int `json:"indexed_entries"`
	}
	require.NoError(t, json.Unmarshal(reindexResp.Data, &reindex))
	assert.Equal(t, 3, reindex.IndexedEntries)

	// Run an RFP with two answerable questions and one unanswerable
	createResp, err := env.Post("/submissions", map[string]interface{}{
		"counterparty": "Initech",
		"raw_text":     "Hello,\n\nPlease answer the following.\n\nDo you support single sign-on? How is customer data encrypted? What is your favorite color?\n\nRegards",
	}, env.AuthToken)
	require.NoError(t, err)

	var sub struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(createResp.Data, &sub))

	_, err = env.Post("/submissions/"+sub.ID+"/process", nil, env.AuthToken)
	require.NoError(t, err)

	findResp, err := env.Get("/submissions/"+sub.ID+"/findings", env.AuthToken)
	require.NoError(t, err)

	var result struct {
		Findings []struct {
			MatchType string `json:"match_type"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(findResp.Data, &result))
	require.Len(t, result.Findings, 3)

	answered, unanswered := 0, 0
	for _, f := range result.Findings {
		if f.MatchType == "no_answer" {
			unanswered++
		} else {
			answered++
		}
	}
	assert.Equal(t, 2, answered)
	assert.Equal(t, 1, unanswered)

	body, _, err := env.GetRaw("/submissions/"+sub.ID+"/export?format=email", env.AuthToken)
	require.NoError(t, err)
	assert.Contains(t, string(body), "AES-256")

	// Answered questions landed in the query log
	var logged int
	row := env.Pool.QueryRow(env.Ctx, "SELECT COUNT(*) FROM query_logs WHERE org_id = $1", env.OrgID)
	require.NoError(t, row.Scan(&logged))
	assert.Equal(t, 3, logged)
}
