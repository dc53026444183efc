package main

import (
	"fmt"
	"os"

	"github.com/dshills/flowcheck/internal/cli"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

var rootCmd = &cobra.Command{
	Use:   "flowcheck",
	Short: "Structural validator for workflow definition files",
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
