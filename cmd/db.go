package cmd

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/genosim/genosim/popgen"
	"github.com/genosim/genosim/popgen/vcf"
)

var (
	dbSampleNames []string
	dbSampleName  string
	dbMaxIndel    int
)

// dbCmd groups read queries against an existing population store.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect or export an existing population store",
}

func openStore(path string) *popgen.Population {
	pop, err := popgen.OpenPopulation(popgen.StoreOptions{Path: path})
	if err != nil {
		logrus.Fatalf("opening store: %v", err)
	}
	return pop
}

var dbSummaryCmd = &cobra.Command{
	Use:   "summary <store.db>",
	Short: "Print store contents overview",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pop := openStore(args[0])
		names := dbSampleNames
		if len(names) == 0 {
			names = nil
		}
		text, err := pop.PrettyPrintSummary(names)
		if err != nil {
			logrus.Fatalf("summary: %v", err)
		}
		fmt.Print(text)
	},
}

var dbSamplesCmd = &cobra.Command{
	Use:   "samples <store.db>",
	Short: "List samples in the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pop := openStore(args[0])
		names, err := pop.GetSampleNames()
		if err != nil {
			logrus.Fatalf("samples: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var dbSFSCmd = &cobra.Command{
	Use:   "sfs <store.db> <chrom>",
	Short: "Print a chromosome's site frequency spectrum",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pop := openStore(args[0])
		chrom := parseChrom(args[1])
		ml, err := pop.GetVariantMasterList(chrom)
		if err != nil {
			logrus.Fatalf("master list: %v", err)
		}
		fmt.Printf("Site frequency spectrum for chrom %d\n%s", chrom, ml)
	},
}

var dbIndelCmd = &cobra.Command{
	Use:   "indel <store.db> <chrom>",
	Short: "Indel length distribution for a chromosome",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pop := openStore(args[0])
		chrom := parseChrom(args[1])
		counts, err := pop.IndelHistogram(chrom, dbSampleName, dbMaxIndel)
		if err != nil {
			logrus.Fatalf("indel histogram: %v", err)
		}
		fmt.Printf("Indel distribution: chrom %d\n  LEN | COUNT\n", chrom)
		for i, c := range counts {
			fmt.Printf("%5d | %d\n", i-dbMaxIndel, c)
		}
	},
}

var dbWriteVCFCmd = &cobra.Command{
	Use:   "write-vcf <store.db> <out.vcf[.gz]>",
	Short: "Write the master list or one sample to VCF",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pop := openStore(args[0])
		if dbSampleName != "" {
			names, err := pop.GetSampleNames()
			if err != nil {
				logrus.Fatalf("samples: %v", err)
			}
			if !contains(names, dbSampleName) {
				logrus.Fatalf("sample %q not in population", dbSampleName)
			}
		}
		if err := vcf.ExportFile(pop, dbSampleName, args[1]); err != nil {
			logrus.Fatalf("export: %v", err)
		}
	},
}

func parseChrom(s string) int {
	chrom, err := strconv.Atoi(s)
	if err != nil || chrom < 1 {
		logrus.Fatalf("chromosome must be a positive integer, got %q", s)
	}
	return chrom
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func init() {
	dbSummaryCmd.Flags().StringSliceVar(&dbSampleNames, "sample-name", nil, "restrict summary to these samples")
	dbIndelCmd.Flags().StringVar(&dbSampleName, "sample-name", "", "sample name (omit for master list)")
	dbIndelCmd.Flags().IntVar(&dbMaxIndel, "max-indel", 50, "range of indel lengths to count")
	dbWriteVCFCmd.Flags().StringVar(&dbSampleName, "sample-name", "", "sample name (omit to write the master list)")
	dbCmd.AddCommand(dbSummaryCmd, dbSamplesCmd, dbSFSCmd, dbIndelCmd, dbWriteVCFCmd)
	rootCmd.AddCommand(dbCmd)
}
