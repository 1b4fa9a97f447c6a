package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aasquery/backend/internal/client"
	"aasquery/backend/internal/model"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "aasq",
		Short:        "Run DAX and MDX queries through the aasquery service",
		SilenceUsage: true,
	}
	root.AddCommand(newQueryCommand(), newMCPCommand())
	return root
}

func newQueryCommand() *cobra.Command {
	var (
		url       string
		queryType string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "query <statement>",
		Short: "Execute a query and print the rows as JSON",
		Example: `  aasq query "EVALUATE TOPN(10, 'Product')"
  aasq query --type MDX "SELECT [Measures].[Sales Amount] ON 0 FROM [AdventureWorks]"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := model.ParseQueryType(queryType); !ok {
				return fmt.Errorf("--type must be DAX or MDX, got '%s'", queryType)
			}

			c := client.New(url, &http.Client{Timeout: timeout})
			rows, err := c.Query(cmd.Context(), queryType, args[0])
			fmt.Fprintln(cmd.OutOrStdout(), client.FormatResult(rows, err))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", defaultServiceURL(), "query endpoint (env AASQUERY_URL)")
	cmd.Flags().StringVarP(&queryType, "type", "t", "DAX", "query language: DAX or MDX")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "request timeout")
	return cmd
}

func defaultServiceURL() string {
	if url := os.Getenv("AASQUERY_URL"); url != "" {
		return url
	}
	return "http://localhost:8080/query"
}
