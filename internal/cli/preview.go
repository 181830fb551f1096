package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
)

type previewInfo struct {
	Payload    json.RawMessage       `json:"payload"`
	Issues     []*form.CoercionError `json:"issues"`
	Advisories []form.Advisory       `json:"advisories"`
	Ignored    []string              `json:"ignored"`
}

func newPreviewCmd() *cobra.Command {
	var (
		sets   []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview <actor>",
		Short: "Show the input a run would submit, without running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			values, err := parseSet(sets)
			if err != nil {
				return err
			}
			resp, err := client.Post("/api/v1/actors/"+apify.URLSafeActorID(args[0])+"/preview", map[string]any{"values": values})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != outputTable {
				return writeData(w, output, resp.Data)
			}

			var info previewInfo
			if err := resp.decode(&info); err != nil {
				return err
			}
			if err := writeData(w, outputJSON, info.Payload); err != nil {
				return err
			}
			for _, issue := range info.Issues {
				fmt.Fprintf(w, "issue: %s\n", issue.Error())
			}
			for _, a := range info.Advisories {
				fmt.Fprintf(w, "warning: %s: %s\n", a.Field, a.Message)
			}
			if len(info.Ignored) > 0 {
				fmt.Fprintf(w, "ignored: %s\n", strings.Join(info.Ignored, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a field value (key=value, repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, json, yaml)")
	return cmd
}
