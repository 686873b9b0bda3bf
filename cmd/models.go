package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genosim/genosim/popgen"
)

// modelsCmd lists every model registered at process start.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered variant, site and population models",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("variant models:")
		for _, name := range popgen.VariantModelNames() {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("site models:")
		for _, name := range popgen.SiteModelNames() {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("population models:")
		for _, name := range popgen.PopulationModelNames() {
			fmt.Printf("  - %s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
