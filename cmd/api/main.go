// @title med-tracker API
// @version 1.0
// @description Medicaciones, stock y fecha de aviso de reposición.
// @BasePath /
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "medtrack",
		Short:         "API de seguimiento de medicaciones",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
