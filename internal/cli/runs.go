package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/pkg/model"
)

func newRunsCmd() *cobra.Command {
	var (
		limit  int
		offset int
		actor  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			if actor != "" {
				q.Set("actor", actor)
			}
			resp, err := client.Get("/api/v1/runs?" + q.Encode())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != outputTable {
				return writeData(w, output, resp.Data)
			}

			var recs []*model.RunRecord
			if err := resp.decode(&recs); err != nil {
				return err
			}
			tw := newTable(w)
			writeRow(tw, "RUN", "ACTOR", "STATUS", "ITEMS", "STARTED", "MESSAGE")
			for _, r := range recs {
				writeRow(tw, r.RunID, r.ActorID, r.Status.String(), strconv.Itoa(r.ItemCount),
					r.StartedAt.Local().Format(time.DateTime), oneLine(r.Message, 50))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if p := resp.Pagination; p != nil && p.HasMore {
				fmt.Fprintf(w, "Showing %d-%d of %d (use --offset %d for more)\n", p.Offset+1, p.Offset+len(recs), p.Total, p.Offset+len(recs))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	cmd.Flags().StringVar(&actor, "actor", "", "Only show runs of this actor")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, json, yaml)")
	return cmd
}
