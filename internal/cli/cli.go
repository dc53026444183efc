// Package cli wires the flowcheck commands onto a cobra root command.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dshills/flowcheck/flow"
	"github.com/dshills/flowcheck/flow/advice"
	"github.com/dshills/flowcheck/flow/advice/anthropic"
	"github.com/dshills/flowcheck/flow/advice/google"
	"github.com/dshills/flowcheck/flow/advice/openai"
	"github.com/dshills/flowcheck/flow/store"
	"github.com/dshills/flowcheck/internal/log"
	"github.com/spf13/cobra"
)

// Exit codes reported by the validate and explain commands.
const (
	ExitClean     = 0 // no error-severity findings
	ExitFindings  = 1 // at least one error-severity finding
	ExitMalformed = 2 // unreadable or malformed input
)

func SetupCLI(rootCmd *cobra.Command) {
	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a workflow definition file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := flagsOf(cmd)
			report := runValidation(opts, args[0])
			printReport(report, opts.format)
			saveReport(opts, report)
			if report.HasErrors() {
				os.Exit(ExitFindings)
			}
		},
	}
	addValidateFlags(validateCmd)

	historyCmd := &cobra.Command{
		Use:   "history [workflow]",
		Short: "List stored validation reports for a workflow",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := flagsOf(cmd)
			st := openStore(opts, true)
			defer func() { _ = st.Close() }()
			listHistory(st, args[0], opts.limit)
		},
	}
	historyCmd.Flags().String("store", "", "SQLite database path for report history")
	historyCmd.Flags().String("mysql", "", "MySQL DSN for report history (overrides --store)")
	historyCmd.Flags().Int("limit", 10, "Maximum number of reports to list")

	explainCmd := &cobra.Command{
		Use:   "explain [file]",
		Short: "Validate a workflow and ask an LLM to explain the findings",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := flagsOf(cmd)
			report := runValidation(opts, args[0])
			printReport(report, opts.format)
			explainReport(opts, report)
			if report.HasErrors() {
				os.Exit(ExitFindings)
			}
		},
	}
	addValidateFlags(explainCmd)
	explainCmd.Flags().String("provider", "anthropic", "Advice provider: anthropic, openai, or google")
	explainCmd.Flags().String("model", "", "Model name (provider default when empty)")

	rootCmd.AddCommand(validateCmd, historyCmd, explainCmd)
}

func addValidateFlags(cmd *cobra.Command) {
	cmd.Flags().String("registry", "", "Path to a node type registry JSON file")
	cmd.Flags().String("format", "text", "Report format: text or json")
	cmd.Flags().Bool("lenient", false, "Repair malformed JSON before parsing")
	cmd.Flags().String("store", "", "SQLite database path to record the report in")
	cmd.Flags().String("mysql", "", "MySQL DSN to record the report in (overrides --store)")
}

type cmdOpts struct {
	registry string
	format   string
	lenient  bool
	storeDSN string
	mysqlDSN string
	provider string
	model    string
	limit    int
}

func flagsOf(cmd *cobra.Command) cmdOpts {
	var o cmdOpts
	o.registry, _ = cmd.Flags().GetString("registry")
	o.format, _ = cmd.Flags().GetString("format")
	o.lenient, _ = cmd.Flags().GetBool("lenient")
	o.storeDSN, _ = cmd.Flags().GetString("store")
	o.mysqlDSN, _ = cmd.Flags().GetString("mysql")
	o.provider, _ = cmd.Flags().GetString("provider")
	o.model, _ = cmd.Flags().GetString("model")
	o.limit, _ = cmd.Flags().GetInt("limit")
	return o
}

// runValidation parses and validates the file, exiting with
// ExitMalformed on unreadable or malformed input.
func runValidation(opts cmdOpts, path string) *flow.Report {
	g, err := flow.ParseFile(path, opts.lenient)
	if err != nil {
		log.GetLogger().Errorf("Failed to parse %s: %v", path, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitMalformed)
	}

	validator := buildValidator(opts)
	report, err := validator.Validate(g)
	if err != nil {
		log.GetLogger().Errorf("Failed to validate %s: %v", path, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitMalformed)
	}
	return report
}

func buildValidator(opts cmdOpts) *flow.Validator {
	var vopts []flow.Option
	if opts.registry != "" {
		f, err := os.Open(opts.registry)
		if err != nil {
			log.GetLogger().Errorf("Failed to open registry: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitMalformed)
		}
		defer func() { _ = f.Close() }()

		reg, err := flow.LoadTypeRegistry(f)
		if err != nil {
			log.GetLogger().Errorf("Failed to load registry: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitMalformed)
		}
		merged := flow.DefaultTypeRegistry()
		merged.Merge(reg)
		vopts = append(vopts, flow.WithRegistry(merged))
	}

	validator, err := flow.NewValidator(vopts...)
	if err != nil {
		log.GetLogger().Errorf("Failed to configure validator: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitMalformed)
	}
	return validator
}

func printReport(report *flow.Report, format string) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.GetLogger().Errorf("Failed to encode report: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitMalformed)
		}
		fmt.Fprintln(os.Stdout, string(data))
	default:
		fmt.Fprint(os.Stdout, report.Text())
		fmt.Fprintf(os.Stdout, "%d error(s), %d warning(s)\n",
			report.ErrorCount(), report.WarningCount())
	}
}

// openStore builds the configured store. When required is false and no
// store flag was given, returns nil.
func openStore(opts cmdOpts, required bool) store.Store {
	switch {
	case opts.mysqlDSN != "":
		st, err := store.NewMySQLStore(opts.mysqlDSN)
		if err != nil {
			log.GetLogger().Errorf("Failed to open MySQL store: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitMalformed)
		}
		return st
	case opts.storeDSN != "":
		st, err := store.NewSQLiteStore(opts.storeDSN)
		if err != nil {
			log.GetLogger().Errorf("Failed to open SQLite store: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitMalformed)
		}
		return st
	case required:
		fmt.Fprintln(os.Stderr, "Error: a --store path or --mysql DSN is required")
		os.Exit(ExitMalformed)
	}
	return nil
}

func saveReport(opts cmdOpts, report *flow.Report) {
	st := openStore(opts, false)
	if st == nil {
		return
	}
	defer func() { _ = st.Close() }()

	now := time.Now().UTC()
	rec := store.Record{
		ID:        fmt.Sprintf("%s-%d", report.Workflow, now.UnixNano()),
		Workflow:  report.Workflow,
		CreatedAt: now,
		Report:    *report,
	}
	if err := st.SaveReport(context.Background(), rec); err != nil {
		log.GetLogger().Errorf("Failed to save report: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: report not saved: %v\n", err)
		return
	}
	log.GetLogger().Debugf("Saved report %s", rec.ID)
}

func listHistory(st store.Store, workflow string, limit int) {
	recs, err := st.ListReports(context.Background(), workflow, limit)
	if err != nil {
		log.GetLogger().Errorf("Failed to list reports: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list reports: %v\n", err)
		os.Exit(ExitMalformed)
	}
	if len(recs) == 0 {
		fmt.Fprintf(os.Stdout, "No reports found for workflow '%s'.\n", workflow)
		return
	}
	fmt.Fprintf(os.Stdout, "Reports for '%s':\n", workflow)
	for _, rec := range recs {
		fmt.Fprintf(os.Stdout, "- ID: %s, Errors: %d, Warnings: %d, Created: %s\n",
			rec.ID, rec.Report.ErrorCount(), rec.Report.WarningCount(),
			rec.CreatedAt.Format(time.RFC3339))
	}
}

func explainReport(opts cmdOpts, report *flow.Report) {
	model, err := buildChatModel(opts.provider, opts.model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitMalformed)
	}

	advisor := advice.NewAdvisor(model)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := advisor.Explain(ctx, report)
	if errors.Is(err, advice.ErrNoFindings) {
		fmt.Fprintln(os.Stdout, "Nothing to explain: workflow is clean.")
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Advice request failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitMalformed)
	}
	fmt.Fprintln(os.Stdout, "\nAdvice:")
	fmt.Fprintln(os.Stdout, text)
}

func buildChatModel(provider, modelName string) (advice.ChatModel, error) {
	switch provider {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.NewChatModel(key, modelName), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return openai.NewChatModel(key, modelName), nil
	case "google":
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return nil, errors.New("GOOGLE_API_KEY is not set")
		}
		return google.NewChatModel(key, modelName), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
