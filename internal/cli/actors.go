package cli

import (
	"github.com/spf13/cobra"
)

type actorInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Title    string `json:"title"`
	FullName string `json:"fullName"`
}

func newActorsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "actors",
		Short: "List the actors of your Apify account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			resp, err := client.Get("/api/v1/actors")
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != outputTable {
				return writeData(w, output, resp.Data)
			}

			var actors []actorInfo
			if err := resp.decode(&actors); err != nil {
				return err
			}
			tw := newTable(w)
			writeRow(tw, "ACTOR", "TITLE", "ID")
			for _, a := range actors {
				writeRow(tw, a.FullName, a.Title, a.ID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, json, yaml)")
	return cmd
}
