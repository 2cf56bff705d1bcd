package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/rfpd/internal/repository"
	"github.com/ledgerworks/rfpd/internal/service"
)

func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <org> <file>",
		Short: "Bulk import knowledge entries",
		Long:  "Import knowledge entries for an organization from a JSON file of question/answer records",
		Args:  cobra.ExactArgs(2),
		RunE:  runImport,
	}

	cmd.Flags().String("created-by", "", "Attribute imported entries to this user")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	orgRef := args[0]
	path := args[1]
	createdBy, _ := cmd.Flags().GetString("created-by")
	outputFormat, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	orgRepo := repository.NewOrgRepository(pool)
	orgID, err := resolveOrgID(ctx, orgRepo, orgRef)
	if err != nil {
		return err
	}

	entryRepo := repository.NewEntryRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	knowledgeSvc := service.NewKnowledgeService(entryRepo, embeddingJobRepo)

	result, err := knowledgeSvc.ImportJSON(ctx, orgID, data, createdBy)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(map[string]int{
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Imported: %d\n", result.Imported)
	fmt.Printf("Skipped:  %d (duplicates)\n", result.Skipped)
	fmt.Printf("Failed:   %d\n", result.Failed)
	return nil
}
