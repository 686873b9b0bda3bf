package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/genosim/genosim/popgen"
	"github.com/genosim/genosim/popgen/vcf"
)

var fromVCFSample string

// fromVCFCmd converts a single-sample VCF into a population store.
var fromVCFCmd = &cobra.Command{
	Use:   "from-vcf <in.vcf[.gz]> <out.db>",
	Short: "Convert a VCF file into a population store",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pop, err := vcf.ImportFile(args[0], popgen.StoreOptions{Path: args[1]}, fromVCFSample)
		if err != nil {
			logrus.Fatalf("import: %v", err)
		}
		if err := pop.Close(); err != nil {
			logrus.Fatalf("closing store: %v", err)
		}
	},
}

func init() {
	fromVCFCmd.Flags().StringVar(&fromVCFSample, "sample-name", "", "sample name (defaults to the VCF header's)")
	rootCmd.AddCommand(fromVCFCmd)
}
