package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/capitalize-ai/a2ui-playground/internal/config"
	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/probe"
	"github.com/capitalize-ai/a2ui-playground/internal/timeline"
)

var replayCursor int

var (
	probeEndpoint   string
	probeDeployment string
	probeAPIVersion string
)

// conversationsCmd lists stored conversations
var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List stored conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversations,
}

// eventsCmd prints a conversation's raw event log
var eventsCmd = &cobra.Command{
	Use:   "events <conversation-id>",
	Short: "Print the raw debug event log of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

// replayCmd prints the conversation as it looked at a cursor
var replayCmd = &cobra.Command{
	Use:   "replay <conversation-id>",
	Short: "Print the reduced conversation at a cursor position",
	Long: `Replay reduces the event log up to and including --cursor.
A cursor of -1 is the empty conversation; omit it to replay the whole log.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

// probeCmd runs the capability probe
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the capability probe against a completion endpoint",
	Long: `Runs PROBE_COMMAND with the endpoint settings on stdin.
The API key is read from A2UI_API_KEY and never passed on the command line.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	replayCmd.Flags().IntVar(&replayCursor, "cursor", -2, "Cursor position (default: live)")

	probeCmd.Flags().StringVar(&probeEndpoint, "endpoint", "", "Completion endpoint URL")
	probeCmd.Flags().StringVar(&probeDeployment, "deployment", "", "Deployment name")
	probeCmd.Flags().StringVar(&probeAPIVersion, "api-version", "", "API version")
	probeCmd.MarkFlagRequired("endpoint")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func runConversations(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	convs, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	return writeOutput(cmd.OutOrStdout(), outputFmt, &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	})
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	events, err := st.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return writeOutput(cmd.OutOrStdout(), outputFmt, &model.ListEventsResponse{
		ConversationID: args[0],
		Events:         events,
	})
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	events, err := st.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	view, err := replay(args[0], events, cmd.Flags().Changed("cursor"), replayCursor)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFmt, view)
}

// replay builds the view of events at cursor, or live when useCursor is false.
func replay(conversationID string, events []model.Event, useCursor bool, cursor int) (*model.ViewResponse, error) {
	session := timeline.NewSession(conversationID, events)
	if useCursor {
		if err := session.SetCursor(cursor); err != nil {
			return nil, err
		}
	}
	return &model.ViewResponse{
		ConversationID: conversationID,
		Cursor:         session.Cursor(),
		Length:         session.Len(),
		Live:           session.Live(),
		Messages:       session.View(),
	}, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	apiKey := os.Getenv("A2UI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("A2UI_API_KEY is not set")
	}

	cfg := config.Load()
	command, cmdArgs := cfg.ProbeArgv()
	runner := &probe.Runner{Command: command, Args: cmdArgs, Timeout: cfg.ProbeTimeout}

	report, err := runner.Run(ctx, probe.Request{
		Endpoint:   probeEndpoint,
		APIVersion: probeAPIVersion,
		Deployment: probeDeployment,
		APIKey:     apiKey,
	})
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFmt, report)
}

// writeOutput renders v as JSON or YAML. YAML output goes through the JSON
// form so both formats share field names.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
