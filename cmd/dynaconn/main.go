package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dynaconn/adapters/api"
	"dynaconn/adapters/ingest"
	"dynaconn/adapters/registry"
	"dynaconn/adapters/store"
	"dynaconn/app"
	"dynaconn/domain/core"
	"dynaconn/internal"
	"dynaconn/internal/config"
	"dynaconn/internal/profiling"
	"dynaconn/ports"
)

// version is stamped by the build; it lands in every run manifest.
var version = "dev"

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "dynaconn",
		Short: "Dynamic functional connectivity pipeline",
		Long: `dynaconn computes phase-coherence connectivity matrices from
multi-subject brain time series and reduces them into per-timepoint
trajectories and FCD similarity matrices.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newRunsCmd(),
		newShowCmd(),
		newProfileCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a cohort spec scaffold to edit",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := config.DefaultCohortSpec()
			spec.Name = "my-cohort"
			spec.InputDir = "./data"
			spec.Areas = 90
			spec.Timepoints = 200
			if err := spec.Save(out); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "cohort.yaml", "Path to write the cohort spec")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		cohortPath string
		variant    string
		neighbors  int
		workers    int
		failFast   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one batch over a cohort",
		Long: `Run loads the cohort spec, resolves the subject input files, and
executes the full pipeline: phase extraction, per-timepoint coherence,
trajectory reduction, and FCD similarity. Artifacts are written under
the configured store root; the run is recorded in the registry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

			spec, err := config.LoadCohort(cohortPath)
			if err != nil {
				return err
			}
			// Flags override the spec file.
			if variant != "" {
				spec.Variant = variant
			}
			if neighbors > 0 {
				spec.Neighbors = neighbors
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			if failFast {
				cfg.Pipeline.FailFast = true
			}

			artifacts, err := store.NewLocalStore(cfg.Storage.Root, log)
			if err != nil {
				return err
			}
			reg, err := registry.Open(cmd.Context(), cfg.Registry.Driver, cfg.Registry.DSN, log)
			if err != nil {
				return err
			}
			defer reg.Close()

			svc := app.NewBatchService(ingest.NewReader(log), artifacts, reg, cfg.Pipeline, version, log)
			summary, runErr := svc.Run(cmd.Context(), spec)
			if summary != nil {
				printJSON(summary)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&cohortPath, "cohort", "c", "cohort.yaml", "Cohort spec file")
	cmd.Flags().StringVar(&variant, "variant", "", "Override the reduction variant (linear|spectral|manifold)")
	cmd.Flags().IntVar(&neighbors, "neighbors", 0, "Override the manifold neighbor count")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent subjects (default one per CPU)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort the batch on the first subject failure")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer reg.Close()

			records, err := reg.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATUS\tVARIANT\tSUBJECTS\tOK\tCREATED")
			for _, record := range records {
				succeeded := "-"
				if record.Summary != nil {
					succeeded = fmt.Sprintf("%d", record.Summary.Succeeded)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					record.Manifest.RunID,
					record.Status,
					record.Manifest.Params.Variant,
					record.Manifest.Params.Subjects,
					succeeded,
					record.Manifest.CreatedAt.Time().Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	return cmd
}

func newShowCmd() *cobra.Command {
	var subjects bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's manifest, summary, and outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}

			reg, err := openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer reg.Close()

			record, err := reg.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			printJSON(record)

			if subjects {
				outcomes, err := reg.ListSubjects(cmd.Context(), runID)
				if err != nil {
					return err
				}
				printJSON(outcomes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&subjects, "subjects", false, "Include per-subject outcomes")
	return cmd
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <input-file>",
		Short: "Summarize the raw signal of one subject file",
		Long: `Profile reads a subject table and prints per-area summary statistics,
flagging flat channels whose analytic phase would be meaningless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader(internal.NewDefaultLogger())
			ts, err := reader.ReadSeries(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			profiles, err := profiling.ProfileSeries(ts)
			if err != nil {
				return err
			}
			printJSON(profiles)

			if flat := profiling.FlatAreas(profiles); len(flat) > 0 {
				fmt.Fprintf(os.Stderr, "warning: flat areas %v\n", flat)
			}
			return nil
		},
	}
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only runs and artifacts API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

			artifacts, err := store.NewLocalStore(cfg.Storage.Root, log)
			if err != nil {
				return err
			}
			reg, err := registry.Open(cmd.Context(), cfg.Registry.Driver, cfg.Registry.DSN, log)
			if err != nil {
				return err
			}
			defer reg.Close()

			server := api.NewServer(cfg.Server, reg, artifacts, log)
			return server.Start(cmd.Context())
		},
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending registry schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer reg.Close()
			fmt.Println("registry schema up to date")
			return nil
		},
	}
	return cmd
}

func openRegistry(ctx context.Context) (ports.RunRegistry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	return registry.Open(ctx, cfg.Registry.Driver, cfg.Registry.DSN, log)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
