package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

var documentJSON bool

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage ingested documents",
	Long:    `List, view, print or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print the uploaded document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDeleteCmd = &cobra.Command{
	Use:     "delete [doc-id]",
	Aliases: []string{"rm"},
	Short:   "Remove a document and all of its chunks",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentDelete,
}

func init() {
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentGetCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		if docs == nil {
			docs = []domain.DocumentMetadata{}
		}
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Println(titleStyle.Render("Documents:"))
	cmd.Println()
	for i := range docs {
		line := fmt.Sprintf("  %s  %s", docs[i].ID, mutedStyle.Render(fmt.Sprintf("%d chunks", docs[i].ChunkCount)))
		if tags := formatTags(docs[i].Tags); tags != "" {
			line += "  " + tags
		}
		cmd.Println(line)
	}
	cmd.Println()
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, doc)
	}

	cmd.Printf("Document: %s\n\n", titleStyle.Render(doc.ID))
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.ContentType)
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Tags:     %s\n", strings.Join(doc.Tags, ", "))
	cmd.Printf("  Location: %s\n", doc.Location)
	cmd.Printf("  Uploaded: %s\n", doc.UploadedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	content, err := documentService.Content(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(content)
	return err
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", args[0])
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
