package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaot623/uatdesk/internal/config"
	"github.com/xiaot623/uatdesk/internal/domain"
	"github.com/xiaot623/uatdesk/internal/importer"
	"github.com/xiaot623/uatdesk/internal/policy"
	store "github.com/xiaot623/uatdesk/internal/repository"
	"github.com/xiaot623/uatdesk/internal/service"
)

var (
	importAs    string
	importName  string
	importEmail string
)

var importCmd = &cobra.Command{
	Use:   "import [checklist.yaml]",
	Short: "Create a session from a checklist file in the configured database",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	doc, errs := importer.ValidateFile(args[0])
	if len(errs) > 0 {
		printProblems(cmd, errs)
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("init policy engine: %w", err)
	}
	svc := service.New(db, policyEngine, nil, nil)

	actor, err := svc.InternalActor(importAs, importName, importEmail)
	if err != nil {
		return fmt.Errorf("--as is required: %w", err)
	}

	res, err := importer.Apply(ctx, svc, service.InternalAccess(actor), doc)
	if err != nil {
		var invalid *importer.InvalidDocumentError
		if errors.As(err, &invalid) {
			printProblems(cmd, invalid.Problems)
		}
		return err
	}

	printImport(cmd, cfg.PublicBaseURL, res)
	return nil
}

func printImport(cmd *cobra.Command, baseURL string, res *importer.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Created session %s (%s): %d items, %d steps\n", res.Session.SessionID, res.Session.Status, res.Items, res.Steps)
	for _, g := range res.Guests {
		prefix := "r"
		if g.Role == domain.GuestRoleDeveloper {
			prefix = "d"
		}
		fmt.Fprintf(w, "  guest %-20s %s/%s/%s\n", g.Name, baseURL, prefix, g.Token)
	}
	for _, c := range res.Collaborators {
		fmt.Fprintf(w, "  pm    %-20s %s/p/%s\n", c.Name, baseURL, c.Token)
	}
}
