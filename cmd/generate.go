package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/genosim/genosim/popgen"
)

var (
	refOverride string
	dbOverride  string
	dryRun      bool
	parallel    bool
)

// generateCmd runs a population simulation from a YAML parameter file.
var generateCmd = &cobra.Command{
	Use:   "generate <params.yaml>",
	Short: "Generate a population of genomes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := popgen.LoadSimulationConfig(args[0])
		if err != nil {
			logrus.Fatalf("configuration: %v", err)
		}
		if refOverride != "" {
			cfg.Files.Reference = refOverride
		}
		if dbOverride != "" {
			cfg.Files.DB = dbOverride
		}

		if dryRun {
			report, err := popgen.DryRunReport(cfg.SiteModel)
			if err != nil {
				logrus.Fatalf("site model: %v", err)
			}
			fmt.Print(report)
			return
		}

		ref, err := popgen.LoadReference(cfg.Files.Reference)
		if err != nil {
			logrus.Fatalf("reference: %v", err)
		}
		if !cfg.InMemory {
			if _, err := os.Stat(cfg.Files.DB); err == nil {
				logrus.Warnf("removing old simulation file %s", cfg.Files.DB)
				os.Remove(cfg.Files.DB)
			}
		}
		store, err := popgen.OpenPopulation(popgen.StoreOptions{
			Path:     cfg.Files.DB,
			InMemory: cfg.InMemory,
			Writable: true,
			Metadata: ref.Metadata(),
		})
		if err != nil {
			logrus.Fatalf("population store: %v", err)
		}

		sim, err := popgen.NewPopulationSimulator(cfg, ref, store)
		if err != nil {
			logrus.Fatalf("configuration: %v", err)
		}

		t0 := time.Now()
		progress := func(chrom int, frac float64) {
			logrus.Debugf("chrom %d: %.0f%% sampled", chrom, frac*100)
		}
		if parallel {
			err = sim.RunParallel(progress)
		} else {
			err = sim.Run(progress)
		}
		if err != nil {
			logrus.Fatalf("simulation: %v", err)
		}
		if err := store.Close(); err != nil {
			logrus.Fatalf("closing store: %v", err)
		}
		logrus.Debugf("took %s", time.Since(t0))
		logrus.Debugf("%d unique variants, %d variants in samples",
			sim.UniqueVariantCount, sim.TotalVariantCount)
	},
}

func init() {
	generateCmd.Flags().StringVar(&refOverride, "ref", "", "override the parameter file's reference path")
	generateCmd.Flags().StringVar(&dbOverride, "db", "", "override the parameter file's output path")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "describe the simulation without running it")
	generateCmd.Flags().BoolVar(&parallel, "parallel", false, "run chromosome pipelines concurrently")
	rootCmd.AddCommand(generateCmd)
}
