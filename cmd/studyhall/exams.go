package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studyhall/internal/client"
	"studyhall/internal/model"
)

func examsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exams",
		Short: "Generate and manage practice exams",
	}
	cmd.AddCommand(examsListCmd(), examsGenerateCmd(), examsResetCmd(), examsDeleteCmd())
	return cmd
}

func examsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exams with attempt aggregates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			c, err := newClient(v)
			if err != nil {
				return err
			}
			exams, err := c.ListExams(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(renderExamTable(exams))
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func renderExamTable(exams []model.Exam) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Title", "Questions", "Attempts", "Best", "Average", "Last attempt"})
	for _, e := range exams {
		tw.AppendRow(table.Row{
			e.ID,
			e.Title,
			e.QuestionCount,
			e.AttemptCount,
			formatScore(e.BestScore),
			formatScore(e.AverageScore),
			formatLastAttempt(e),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score) + "%"
}

func formatLastAttempt(e model.Exam) string {
	if e.LastAttempt == nil {
		return "never"
	}
	return e.LastAttempt.Format("2006-01-02 15:04")
}

func examsGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a practice exam from stored documents",
		RunE:  runExamsGenerate,
	}
	f := cmd.Flags()
	f.StringP("course", "c", "", "Generate from every document of this course")
	f.IntSlice("docs", nil, "Document ids to draw questions from (repeatable)")
	f.Int("multiple-choice", 5, "Number of multiple choice questions")
	f.Int("true-false", 5, "Number of true/false questions")
	f.Int("short-answer", 0, "Number of short answer questions")
	addClientFlags(cmd)
	return cmd
}

func runExamsGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	c, err := newClient(v)
	if err != nil {
		return err
	}

	req := model.GenerateExamRequest{
		Course:      v.GetString("course"),
		DocumentIDs: docIDs(v),
		QuestionTypes: []model.QuestionTypeCount{
			{Type: model.QuestionMultipleChoice, Count: v.GetInt("multiple-choice")},
			{Type: model.QuestionTrueFalse, Count: v.GetInt("true-false")},
			{Type: model.QuestionShortAnswer, Count: v.GetInt("short-answer")},
		},
	}

	// With no explicit selection, draw from the whole course.
	if len(req.DocumentIDs) == 0 && req.Course != "" {
		docs, err := c.ListDocuments(cmd.Context(), req.Course)
		if err != nil {
			return err
		}
		for _, d := range docs {
			req.DocumentIDs = append(req.DocumentIDs, d.ID)
		}
	}

	fmt.Printf("Requesting %d questions...\n", client.RequestedTotal(req))
	exam, err := c.GenerateExam(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %q with %d questions (id %s)\n", exam.Title, exam.QuestionCount, exam.ID)
	return nil
}

func docIDs(v *viper.Viper) []int64 {
	var ids []int64
	for _, n := range v.GetIntSlice("docs") {
		ids = append(ids, int64(n))
	}
	return ids
}

func examsResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <exam-id>",
		Short: "Clear an exam's attempt history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			c, err := newClient(v)
			if err != nil {
				return err
			}
			exam, err := c.ResetAttempts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Attempt history cleared for %q\n", exam.Title)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func examsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <exam-id>",
		Short: "Delete an exam permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			c, err := newClient(v)
			if err != nil {
				return err
			}
			if err := c.DeleteExam(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Exam deleted")
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
