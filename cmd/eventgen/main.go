// Package main provides the CLI entry point for the event generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/example/bookshop/tools/eventgen/internal/behavior"
	"github.com/example/bookshop/tools/eventgen/internal/config"
	"github.com/example/bookshop/tools/eventgen/internal/dataset"
	"github.com/example/bookshop/tools/eventgen/internal/export"
	"github.com/example/bookshop/tools/eventgen/internal/metrics"
	"github.com/example/bookshop/tools/eventgen/internal/profile"
	"github.com/example/bookshop/tools/eventgen/internal/runner"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath     string
	sessions       int
	users          int
	startDate      string
	endDate        string
	seed           uint64
	profileName    string
	outputFile     string
	outputFormat   string
	preview        int
	prometheusAddr string
	verbose        bool
	listStates     bool
	listProfiles   bool
	validate       bool
	dryRun         bool
	showVersion    bool
	synthUsers     int
	synthCatalog   int
	synthOut       string
)

func init() {
	// Configuration
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the YAML configuration file (shorthand)")

	// Override flags
	flag.IntVar(&sessions, "sessions", 0, "Override the number of sessions to generate")
	flag.IntVar(&users, "users", 0, "Override how many users to sample from the pool")
	flag.StringVar(&startDate, "start", "", "Override the window start date (YYYY-MM-DD)")
	flag.StringVar(&endDate, "end", "", "Override the window end date (YYYY-MM-DD)")
	flag.Uint64Var(&seed, "seed", 0, "Override the random seed (0 = time-based)")
	flag.StringVar(&profileName, "profile", "", "Override the behavior profile to apply")

	// Output flags
	flag.StringVar(&outputFile, "output-file", "", "Override the export file path")
	flag.StringVar(&outputFormat, "output", "", "Override the export format: xlsx, csv, or json")
	flag.IntVar(&preview, "preview", 0, "Override how many leading events to print (negative disables)")
	flag.StringVar(&prometheusAddr, "prometheus", "", "Prometheus metrics endpoint (e.g., :9090)")

	// Utility flags
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&verbose, "v", false, "Enable verbose output (shorthand)")
	flag.BoolVar(&listStates, "list-states", false, "List the behavior states and their transition tables")
	flag.BoolVar(&listProfiles, "list-profiles", false, "List the profiles in the configured profiles directory")
	flag.BoolVar(&validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse config and show the generation plan without running")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Dataset synthesis flags
	flag.IntVar(&synthUsers, "synth-users", 0, "Generate a synthetic user pool CSV with n users and exit")
	flag.IntVar(&synthCatalog, "synth-catalog", 0, "Generate a synthetic catalog CSV with n items and exit")
	flag.StringVar(&synthOut, "out", "", "Output path for -synth-users / -synth-catalog")

	// Custom usage
	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Event Generator - Synthetic User Behavior Logs

USAGE:
    eventgen -config <path> [options]
    eventgen -synth-users <n> -out <path>      (Generate a user pool CSV)
    eventgen -synth-catalog <n> -out <path>    (Generate a catalog CSV)

DESCRIPTION:
    Generates synthetic app usage logs by simulating user sessions as weighted
    random walks over a behavior model. Each session produces a timestamped,
    sequenced event stream; the combined log is exported as an XLSX workbook,
    CSV file, or JSON.

CONFIGURATION:
    -config, -c <path>    Path to the YAML configuration file

OVERRIDE OPTIONS:
    -sessions <n>         Override the number of sessions to generate
    -users <n>            Override how many users to sample from the pool
    -start <date>         Override the window start date (YYYY-MM-DD)
    -end <date>           Override the window end date (YYYY-MM-DD)
    -seed <n>             Override the random seed (0 = time-based)
    -profile <name>       Override the behavior profile to apply

OUTPUT OPTIONS:
    -output <format>      Export format: xlsx, csv, or json
    -output-file <path>   Export file path
    -preview <n>          Leading events to print as JSON (negative disables)
    -prometheus <addr>    Enable Prometheus metrics endpoint (e.g., :9090)

UTILITY OPTIONS:
    -list-states          List the behavior states and transition tables
    -list-profiles        List the profiles in the profiles directory
    -validate             Validate configuration and exit
    -dry-run              Show the generation plan without running
    -verbose, -v          Enable verbose output
    -version              Show version information
    -help, -h             Show this help message

DATASET SYNTHESIS:
    -synth-users <n>      Generate a synthetic user pool CSV with n users
    -synth-catalog <n>    Generate a synthetic catalog CSV with n items
    -out <path>           Output path for the synthesized CSV

EXAMPLES:
    # Run with default configuration
    eventgen -config configs/default.yaml

    # Reproducible run with more sessions
    eventgen -config configs/default.yaml -sessions 500 -seed 42

    # Export as CSV without a preview
    eventgen -config configs/default.yaml -output csv -preview -1

    # Enable Prometheus metrics during a long run
    eventgen -config configs/default.yaml -prometheus :9090

    # Inspect the behavior model
    eventgen -list-states

    # Generate input datasets
    eventgen -synth-users 10000 -out user_pool.csv
    eventgen -synth-catalog 200 -out catalog.csv

    # Validate configuration
    eventgen -config configs/default.yaml -validate

CONFIGURATION FILE FORMAT:
    The configuration file is in YAML format and supports:
    - Run parameters (sessions, usersToSample, startDate, endDate, seed)
    - Dataset paths (userPool, catalog)
    - Behavior tuning (loginRatio, tierWeights, reconnectProbability)
    - Profile overlays (profilesDir, profile)
    - Output settings (file, format, preview)
`)
}

func main() {
	flag.Parse()

	// Handle version flag
	if showVersion {
		printVersion()
		os.Exit(0)
	}

	// Handle dataset synthesis modes
	if synthUsers > 0 || synthCatalog > 0 {
		handleSynthMode()
		return
	}

	// Model inspection needs no configuration
	if listStates {
		printStateList()
		os.Exit(0)
	}

	// Config mode - validate config path is provided
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		fmt.Fprintln(os.Stderr, "")
		printUsage()
		os.Exit(1)
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(absConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyDefaults()

	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Handle utility commands
	if validate {
		fmt.Printf("Configuration '%s' is valid.\n", cfg.Name)
		printConfigSummary(cfg)
		os.Exit(0)
	}

	if listProfiles {
		printProfileList(cfg)
		os.Exit(0)
	}

	if dryRun {
		printGenerationPlan(cfg)
		os.Exit(0)
	}

	if err := runGeneration(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error running generation: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("eventgen version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

func applyOverrides(cfg *config.Config) {
	if sessions > 0 {
		cfg.Sessions = sessions
		if verbose {
			fmt.Printf("Override: sessions = %d\n", sessions)
		}
	}
	if users > 0 {
		cfg.UsersToSample = users
		if verbose {
			fmt.Printf("Override: usersToSample = %d\n", users)
		}
	}
	if startDate != "" {
		cfg.StartDate = startDate
		if verbose {
			fmt.Printf("Override: startDate = %s\n", startDate)
		}
	}
	if endDate != "" {
		cfg.EndDate = endDate
		if verbose {
			fmt.Printf("Override: endDate = %s\n", endDate)
		}
	}
	if seed != 0 {
		cfg.Seed = seed
		if verbose {
			fmt.Printf("Override: seed = %d\n", seed)
		}
	}
	if profileName != "" {
		cfg.Profile = profileName
		if verbose {
			fmt.Printf("Override: profile = %s\n", profileName)
		}
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
		if verbose {
			fmt.Printf("Override: output format = %s\n", outputFormat)
		}
	}
	if outputFile != "" {
		cfg.Output.File = outputFile
		if verbose {
			fmt.Printf("Override: output file = %s\n", outputFile)
		}
	}
	if preview != 0 {
		cfg.Output.Preview = preview
	}
	if prometheusAddr != "" {
		cfg.MetricsAddr = prometheusAddr
		if verbose {
			fmt.Printf("Override: Prometheus enabled on %s\n", prometheusAddr)
		}
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Name:       %s\n", cfg.Name)
	fmt.Printf("  Sessions:   %d\n", cfg.Sessions)
	fmt.Printf("  Users:      %d\n", cfg.UsersToSample)
	fmt.Printf("  Window:     %s .. %s\n", cfg.StartDate, cfg.EndDate)
	fmt.Printf("  Seed:       %s\n", seedLabel(cfg.Seed))
	fmt.Printf("  User pool:  %s\n", cfg.UserPool)
	fmt.Printf("  Catalog:    %s\n", catalogLabel(cfg.Catalog))
	fmt.Printf("  Login:      %.0f%%\n", *cfg.LoginRatio*100)
	fmt.Printf("  Reconnect:  %.0f%%\n", *cfg.ReconnectProbability*100)
	if cfg.Profile != "" {
		fmt.Printf("  Profile:    %s (from %s)\n", cfg.Profile, cfg.ProfilesDir)
	}
	fmt.Printf("  Output:     %s (%s)\n", cfg.Output.File, cfg.Output.Format)
}

func seedLabel(seed uint64) string {
	if seed == 0 {
		return "time-based (non-reproducible)"
	}
	return fmt.Sprintf("%d", seed)
}

func catalogLabel(path string) string {
	if path == "" {
		return "none (no item properties)"
	}
	return path
}

func printStateList() {
	model := behavior.Default()
	states := model.States()

	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	sort.Strings(names)

	fmt.Printf("Behavior states (%d total):\n", len(names))
	fmt.Println()

	for _, name := range names {
		state := behavior.State(name)
		bounds := model.Delay(state)
		fmt.Printf("== %s (dwell %.0f-%.0fs) ==\n", name, bounds.Min, bounds.Max)

		table, ok := model.Table(state)
		if !ok {
			continue
		}
		for _, entry := range table.Entries() {
			fmt.Printf("  %-30s %.2f\n", entry.Name, entry.Weight)
		}
		fmt.Println()
	}
}

func printProfileList(cfg *config.Config) {
	if cfg.ProfilesDir == "" {
		fmt.Println("No profiles directory configured.")
		return
	}

	defs, err := profile.LoadAll(cfg.ProfilesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading profiles: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Profiles in %s (%d total):\n", cfg.ProfilesDir, len(defs))
	fmt.Println()
	for _, def := range defs {
		marker := " "
		if def.Name == cfg.Profile {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, def.Name, def.Description)
		if verbose {
			for state := range def.Transitions {
				fmt.Printf("    overrides transitions: %s\n", state)
			}
			for state := range def.Delays {
				fmt.Printf("    overrides delays: %s\n", state)
			}
		}
	}
}

func printGenerationPlan(cfg *config.Config) {
	fmt.Println("=== Generation Plan (Dry Run) ===")
	printConfigSummary(cfg)

	start, end, err := cfg.Window()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	span := end.Sub(start)
	step := span / time.Duration(cfg.Sessions)

	fmt.Println()
	fmt.Println("Scheduling:")
	fmt.Printf("  Window span:   %v\n", span)
	fmt.Printf("  Session step:  %v (plus up to %v jitter)\n", step, step/10)

	fmt.Println()
	fmt.Println("Tier Weights:")
	tiers := make([]string, 0, len(cfg.TierWeights))
	for tier := range cfg.TierWeights {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		fmt.Printf("  %-8s %.2f\n", tier, cfg.TierWeights[tier])
	}

	fmt.Println()
	fmt.Println("Ready to generate. Remove -dry-run flag to start.")
}

func runGeneration(cfg *config.Config) error {
	fmt.Println("=== Event Generation ===")
	fmt.Printf("Configuration: %s\n", cfg.Name)
	fmt.Println()

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		if err := recorder.Serve(cfg.MetricsAddr); err != nil {
			return err
		}
		fmt.Printf("  ✓ metrics endpoint on http://%s/metrics\n", recorder.Addr())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = recorder.Shutdown(ctx)
		}()
	}

	r, err := runner.New(cfg, os.Stdout, recorder)
	if err != nil {
		return err
	}

	result, err := r.Run()
	if err != nil {
		return err
	}

	if err := export.Write(result.Events, cfg.Output.File, cfg.Output.Format); err != nil {
		return err
	}
	fmt.Printf("  ✓ exported %d events to %s\n", len(result.Events), cfg.Output.File)

	if cfg.Output.Preview > 0 {
		fmt.Println()
		fmt.Printf("Preview (first %d events):\n", min(cfg.Output.Preview, len(result.Events)))
		if err := export.Preview(os.Stdout, result.Events, cfg.Output.Preview); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("Run Summary:")
	fmt.Printf("  Run ID:    %s\n", result.RunID)
	fmt.Printf("  Seed:      %d\n", result.Seed)
	fmt.Printf("  Sessions:  %d\n", result.Sessions)
	fmt.Printf("  Users:     %d\n", result.Users)
	fmt.Printf("  Events:    %d\n", len(result.Events))
	fmt.Printf("  Warnings:  %d\n", result.Warnings)
	fmt.Printf("  Elapsed:   %v\n", result.Elapsed.Round(time.Millisecond))
	return nil
}

// handleSynthMode generates input datasets instead of event logs.
func handleSynthMode() {
	if synthOut == "" {
		fmt.Fprintln(os.Stderr, "Error: -out path is required with -synth-users / -synth-catalog")
		os.Exit(1)
	}
	if synthUsers > 0 && synthCatalog > 0 {
		fmt.Fprintln(os.Stderr, "Error: -synth-users and -synth-catalog are mutually exclusive")
		os.Exit(1)
	}

	var src rand.Source
	if seed != 0 {
		src = rand.NewPCG(seed, seed)
	} else {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now)
	}
	rng := rand.New(src)
	faker := gofakeit.NewFaker(src, false)

	if synthUsers > 0 {
		pool, err := dataset.SynthesizeUserPool(rng, faker, synthUsers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error synthesizing user pool: %v\n", err)
			os.Exit(1)
		}
		if err := dataset.WriteUserPool(synthOut, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing user pool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ wrote %d users to %s\n", len(pool), synthOut)
		return
	}

	items, err := dataset.SynthesizeCatalog(rng, faker, synthCatalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error synthesizing catalog: %v\n", err)
		os.Exit(1)
	}
	if err := dataset.WriteCatalog(synthOut, items); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ wrote %d items to %s\n", len(items), synthOut)
}
