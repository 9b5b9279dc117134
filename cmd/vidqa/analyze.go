package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zsiec/vidqa/internal/api"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/render"
)

const (
	formatJSON = "json"
	formatText = "text"
)

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var (
		input  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "analyze <tool>",
		Short: "Run one analysis tool on a JSON request",
		Long: `Reads a tool request as JSON from a file, or from stdin when the file is "-", ` +
			`runs it and prints the result. Run "vidqa tools" for the available tools.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			tool := args[0]
			if _, ok := api.LookupTool(tool); !ok {
				return fmt.Errorf("unknown tool %q", tool)
			}

			cfg, log, err := opts.load(true)
			if err != nil {
				return err
			}
			a := newApp(cfg, log)
			defer a.Close()

			body, closeInput, err := openInput(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInput()

			res, err := api.Invoke(cmd.Context(), a.engine, tool, body)
			if err != nil {
				if format == formatJSON {
					envelope, _ := apperrors.Envelope(err, "")
					_ = writeJSON(cmd.OutOrStdout(), envelope)
				}
				return err
			}
			return writeResult(cmd.OutOrStdout(), format, api.Response{Success: true, Tool: tool, Result: res})
		},
	}

	cmd.Flags().StringVarP(&input, "file", "f", "-", "Request file, or - for stdin")
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "Output format: json or text")
	return cmd
}

func validateFormat(format string) error {
	if format != formatJSON && format != formatText {
		return fmt.Errorf("output format must be %q or %q", formatJSON, formatText)
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open request: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeResult(w io.Writer, format string, resp api.Response) error {
	if format == formatText {
		_, err := io.WriteString(w, render.New(w).Result(resp.Result))
		return err
	}
	return writeJSON(w, resp)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the analysis tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, t := range api.Tools {
				fmt.Fprintf(out, "%-32s %s\n", t.Name, t.Description)
				if len(t.Required) > 0 {
					fmt.Fprintf(out, "%-32s required: %s\n", "", strings.Join(t.Required, ", "))
				}
				if len(t.Optional) > 0 {
					fmt.Fprintf(out, "%-32s optional: %s\n", "", strings.Join(t.Optional, ", "))
				}
			}
			return nil
		},
	}
}
