package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/form"
	"github.com/me/actorrun/internal/results"
)

type runInfo struct {
	RunInfo apify.Run             `json:"runInfo"`
	Results []json.RawMessage     `json:"results"`
	Issues  []*form.CoercionError `json:"issues"`
	Ignored []string              `json:"ignored"`
}

func newRunCmd() *cobra.Command {
	var (
		sets        []string
		interactive bool
		output      string
		download    string
	)

	cmd := &cobra.Command{
		Use:   "run <actor>",
		Short: "Run an actor and print its results",
		Long: `Run an actor with values applied over its schema defaults, wait for it to
finish and print the dataset rows. Use --interactive to be asked for every
field of the generated form.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			values, err := parseSet(sets)
			if err != nil {
				return err
			}
			actorID := args[0]

			if interactive {
				info, _, err := fetchSchema(actorID)
				if err != nil {
					return err
				}
				if info.Notice != "" {
					return fmt.Errorf("%s", info.Notice)
				}
				values, err = askValues(cmd.Context(), info.Widgets, values)
				if err != nil {
					return err
				}
			}

			logger.Info("running actor", "actor_id", actorID)
			resp, err := client.Post("/api/v1/actors/"+apify.URLSafeActorID(actorID)+"/run", map[string]any{"values": values})
			if err != nil {
				return err
			}

			var info runInfo
			if err := resp.decode(&info); err != nil {
				return err
			}
			view := results.Interpret(info.Results)

			if download != "" {
				if err := writeDownload(download, view); err != nil {
					return err
				}
				logger.Info("results saved", "path", download, "rows", view.Count)
			}

			w := cmd.OutOrStdout()
			if output != outputTable {
				return writeData(w, output, resp.Data)
			}

			for _, issue := range info.Issues {
				fmt.Fprintf(w, "issue: %s\n", issue.Error())
			}
			if len(info.Ignored) > 0 {
				fmt.Fprintf(w, "ignored: %s\n", strings.Join(info.Ignored, ", "))
			}
			fmt.Fprintf(w, "Run %s %s (%d rows)\n", info.RunInfo.ID, info.RunInfo.Status, view.Count)
			return writeView(w, view)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a field value (key=value, repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for every form field")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, json, yaml)")
	cmd.Flags().StringVar(&download, "download", "", "Also save the results to a file (.csv for CSV, otherwise JSON)")
	return cmd
}

// askValues prompts for each widget. Values already given with --set become
// the prompt defaults.
func askValues(ctx context.Context, widgets []form.Widget, preset map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, wd := range widgets {
		msg := wd.Label
		if wd.Required {
			msg += " (required)"
		}
		msg += ":"
		def := wd.Text
		if v, ok := preset[wd.Key].(string); ok {
			def = v
		}

		switch {
		case wd.IsToggle():
			checked := wd.Checked
			if v, ok := preset[wd.Key].(string); ok {
				checked = v == "true" || v == "on" || v == "1" || v == "yes"
			}
			ans, err := prompter.Confirm(ctx, ConfirmConfig{Message: msg, Default: checked})
			if err != nil {
				return nil, err
			}
			out[wd.Key] = ans
		case wd.Kind == form.WidgetTextArea:
			ans, err := prompter.TextArea(ctx, TextAreaConfig{Message: msg, Default: def, Help: form.TextAreaPlaceholder})
			if err != nil {
				return nil, err
			}
			out[wd.Key] = ans
		default:
			ans, err := prompter.Input(ctx, InputConfig{Message: msg, Default: def})
			if err != nil {
				return nil, err
			}
			out[wd.Key] = ans
		}
	}
	return out, nil
}

func writeDownload(path string, view *results.View) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		var buf bytes.Buffer
		if err := view.WriteCSV(&buf); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		data = buf.Bytes()
	} else {
		data = view.DownloadJSON()
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeView prints a table view as aligned columns and a raw view as is.
func writeView(w io.Writer, view *results.View) error {
	if view.Mode == results.ModeRaw {
		_, err := fmt.Fprintln(w, view.Raw)
		return err
	}
	tw := newTable(w)
	header := make([]string, len(view.Columns))
	for i, c := range view.Columns {
		header[i] = strings.ToUpper(c)
	}
	writeRow(tw, header...)
	for _, row := range view.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = oneLine(c.Text, 60)
		}
		writeRow(tw, cells...)
	}
	return tw.Flush()
}
