package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/uatdesk/internal/importer"
)

var (
	version = "dev"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "uatctl",
	Short:        "UAT checklist tooling",
	Long:         "uatctl validates and imports UAT checklist documents and watches live session events.",
	SilenceUsage: true,
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [checklist.yaml]",
	Short: "Validate a checklist YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, errs := importer.ValidateFile(args[0])
	if len(errs) > 0 {
		printProblems(cmd, errs)
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}

	steps := 0
	for _, item := range doc.Items {
		steps += len(item.Steps)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d items, %d steps)\n", doc.Session.Name, len(doc.Items), steps)
	return nil
}

func printProblems(cmd *cobra.Command, errs []*importer.ValidationError) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Validation failed: %d error(s)\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(w, "     at: %s\n", e.Path)
		}
	}
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the checklist JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := importer.GenerateJSONSchema()
		if err != nil {
			return fmt.Errorf("generate schema: %w", err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("generated schema is not valid JSON")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "uatctl %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (defaults to $UAT_CONFIG)")

	importCmd.Flags().StringVar(&importAs, "as", "", "Internal user ID that owns the imported session (required)")
	importCmd.Flags().StringVar(&importName, "name", "", "Display name of the owner")
	importCmd.Flags().StringVar(&importEmail, "email", "", "Email of the owner")
	_ = importCmd.MarkFlagRequired("as")

	watchCmd.Flags().BoolVar(&watchRaw, "raw", false, "Print every message as indented JSON")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
