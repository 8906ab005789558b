package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"studyhall/internal/client"
	"studyhall/internal/model"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a lecture PDF for processing",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	f := cmd.Flags()
	f.StringP("course", "c", "GENERAL", "Course code to file the document under")
	f.Int("cards", 5, "Flashcards to generate per difficulty level")
	addClientFlags(cmd)
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	contentType := "application/pdf"
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		contentType = "application/octet-stream"
	}

	c, err := newClient(v)
	if err != nil {
		return err
	}

	doc, err := c.UploadDocument(cmd.Context(), client.Upload{
		Filename:           filepath.Base(path),
		ContentType:        contentType,
		Data:               data,
		Course:             v.GetString("course"),
		CardsPerDifficulty: v.GetInt("cards"),
	}, func(ev model.ProgressEvent) {
		fmt.Printf("[%3d%%] %-22s %s\n", ev.Progress, ev.Stage, ev.Message)
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nDocument %d stored in %s: %s (%d flashcards", doc.ID, doc.Course, doc.Filename, doc.FlashcardCount)
	if doc.HasSummary {
		fmt.Print(", summary ready")
	}
	fmt.Println(")")
	return nil
}
