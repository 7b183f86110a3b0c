package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpchat/internal/config"
	"github.com/BioHazard786/Warpchat/internal/signaling"
	"github.com/BioHazard786/Warpchat/internal/ui"
)

var (
	flagServer   string
	flagWatch    bool
	flagInterval time.Duration
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"r"},
	Short:   "Show rooms and calls of a running server",
	Long: `Show the live rooms, calls and relay counters of a running signaling server.

Examples:
  warpchat rooms
  warpchat rooms --server https://chat.example
  warpchat rooms --watch --interval 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := config.ServerURL(flagServer)
		fetch := snapshotFetcher(target)

		if flagWatch {
			if flagInterval < 100*time.Millisecond {
				return fmt.Errorf("interval %s is too short", flagInterval)
			}
			return ui.RunWatch(target, flagInterval, fetch)
		}

		stopSpinner := ui.RunConnectionSpinner("Contacting " + target + "...")
		defer stopSpinner()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		snap, err := fetch(ctx)
		if err != nil {
			return err
		}
		stopSpinner()

		if snap.Connections == 0 {
			ui.PrintWarning("Server has no live connections")
		}
		ui.RenderSnapshot(snap)
		return nil
	},
}

// snapshotFetcher returns a function reading GET <target>/rooms
func snapshotFetcher(target string) ui.FetchFunc {
	client := &http.Client{}
	return func(ctx context.Context) (signaling.Snapshot, error) {
		var snap signaling.Snapshot

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/rooms", nil)
		if err != nil {
			return snap, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return snap, fmt.Errorf("fetch rooms: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return snap, fmt.Errorf("fetch rooms: server answered %s", resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return snap, fmt.Errorf("decode rooms: %w", err)
		}
		return snap, nil
	}
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Server base URL (env WARPCHAT_SERVER, default http://localhost:5000)")
	roomsCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Keep refreshing until q is pressed")
	roomsCmd.Flags().DurationVarP(&flagInterval, "interval", "i", 2*time.Second, "Refresh interval for --watch")
}
