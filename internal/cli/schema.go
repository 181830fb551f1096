package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
)

type schemaInfo struct {
	ActorID       string                 `json:"actorId"`
	Fields        []form.FieldDescriptor `json:"fields"`
	InitialValues form.RawFormState      `json:"initialValues"`
	Widgets       []form.Widget          `json:"widgets"`
	Notice        string                 `json:"notice"`
}

func fetchSchema(actorID string) (*schemaInfo, *apiResponse, error) {
	resp, err := client.Get("/api/v1/actors/" + apify.URLSafeActorID(actorID) + "/schema")
	if err != nil {
		return nil, nil, err
	}
	var info schemaInfo
	if err := resp.decode(&info); err != nil {
		return nil, nil, err
	}
	return &info, resp, nil
}

func newSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema <actor>",
		Short: "Show the form fields generated from an actor's input schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			info, resp, err := fetchSchema(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != outputTable {
				return writeData(w, output, resp.Data)
			}
			if info.Notice != "" {
				fmt.Fprintln(w, info.Notice)
				return nil
			}

			tw := newTable(w)
			writeRow(tw, "KEY", "TYPE", "WIDGET", "LABEL", "VALUE")
			for i, f := range info.Fields {
				kind, value := "", ""
				if i < len(info.Widgets) {
					wd := info.Widgets[i]
					kind = string(wd.Kind)
					value = wd.Text
					if wd.IsToggle() {
						value = fmt.Sprint(wd.Checked)
					}
				}
				key := f.Key
				if f.Required {
					key += "*"
				}
				writeRow(tw, key, f.Type.String(), kind, f.Label(), oneLine(value, 40))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, json, yaml)")
	return cmd
}
