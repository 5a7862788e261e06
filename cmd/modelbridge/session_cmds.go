package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"modelbridge/internal/envelope"
	"modelbridge/internal/wire"
	"modelbridge/pkg/types"
)

func newCompleteCmd(o *options) *cobra.Command {
	var (
		prompt   string
		messages string
		opts     string
		tools    string
		stream   bool
	)
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Run one completion in-process and print the envelope",
		Example: "  modelbridge complete --model qwen3-0.6b --prompt 'Write a haiku'\n" +
			"  echo '[{\"role\":\"user\",\"content\":\"hi\"}]' | modelbridge complete --messages - --stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if messages == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read messages: %w", err)
				}
				messages = string(b)
			}
			turns, gen, toolSpecs, err := parseCompleteFlags(prompt, messages, opts, tools)
			if len(turns) == 0 {
				if err == nil {
					err = errors.New("no chat turns: pass --prompt or --messages")
				}
				return err
			}
			if err != nil {
				o.log.Warn().Strs("fields", wire.MalformedFields(err)).Msg("skipped malformed fields")
			}

			a, err := newApp(o.cfg, o.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var onToken func(string)
			if stream {
				onToken = func(tok string) { fmt.Fprintln(out, envelope.RenderToken(tok)) }
			}
			res, err := a.ctrl.Complete(cmd.Context(), turns, gen, toolSpecs, onToken)
			if err != nil {
				fmt.Fprintln(out, envelope.RenderError(err.Error()))
				return err
			}
			fmt.Fprintln(out, envelope.RenderCompletion(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "Single user message")
	cmd.Flags().StringVar(&messages, "messages", "", "Chat turns array, or - to read it from stdin")
	cmd.Flags().StringVar(&opts, "options", "", `Generation options object, e.g. {"temperature":0.7,"max_tokens":64}`)
	cmd.Flags().StringVar(&tools, "tools", "", "Tools array offered to the model")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print every token as it is produced")
	return cmd
}

// parseCompleteFlags runs the wire parsers over the flag values. A prompt is
// appended as the final user turn.
func parseCompleteFlags(prompt, messages, opts, tools string) ([]types.ChatTurn, types.GenerationOptions, []types.ToolSpec, error) {
	var errs []error
	var turns []types.ChatTurn
	if strings.TrimSpace(messages) != "" {
		parsed, err := wire.ParseMessages(messages)
		if err != nil {
			errs = append(errs, err)
		}
		turns = parsed
	}
	if prompt != "" {
		turns = append(turns, types.ChatTurn{Role: types.RoleUser, Content: prompt})
	}
	gen, err := wire.ParseOptions(opts)
	if err != nil {
		errs = append(errs, err)
	}
	toolSpecs, err := wire.ParseTools(tools)
	if err != nil {
		errs = append(errs, err)
	}
	return turns, gen, toolSpecs, errors.Join(errs...)
}

func newEmbedCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed text in-process and print the embedding envelope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, o.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			vec, err := a.ctrl.Embed(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), envelope.RenderError(err.Error()))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), envelope.RenderEmbedding(vec))
			return nil
		},
	}
}

func newModelsCmd(o *options) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog with local download state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, o.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			models, err := a.ctrl.GetModels(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range models {
				mark := " "
				if m.Downloaded {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-40s %12d %s\n", mark, m.ID, m.SizeBytes, m.Quant)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cached catalog")
	return cmd
}

func newDownloadCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model into local storage, printing progress lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, o.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()
			return a.ctrl.Download(cmd.Context(), args[0], func(p float64) {
				fmt.Fprintln(out, envelope.RenderProgress(args[0], p))
			})
		},
	}
}

func newEventsCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the most recent session events from the telemetry database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.cfg.TelemetryDB == "" {
				return errors.New("no telemetry database configured (set telemetry_db or MODELBRIDGE_TELEMETRY_DB)")
			}
			a, err := newApp(o.cfg, o.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			events, err := a.events.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range events {
				fmt.Fprintf(out, "%s %-8.8s %-16s %s %v\n", e.Time.Format("2006-01-02T15:04:05.000"), e.SessionID, e.Name, e.ModelID, e.Fields)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events to print")
	return cmd
}
