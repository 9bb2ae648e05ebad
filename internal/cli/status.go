package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/choretrack/choretrack/internal/chore"
	"github.com/choretrack/choretrack/internal/config"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status [chore-id]",
	Short: "Show chore status",
	Long: `Shows the status of chores tracked by a running daemon.

Without arguments, lists all chores with their state and progress.
With a chore ID argument, shows detailed information for that chore.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", defaultAddr(), "address of the running daemon")
	rootCmd.AddCommand(statusCmd)
}

func defaultAddr() string {
	return fmt.Sprintf("http://localhost:%d", config.DefaultServerPort)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listChores()
	}
	return showChore(args[0])
}

// fetchJSON issues a GET against the daemon and decodes the response.
func fetchJSON(path string, out any) error {
	resp, err := http.Get(statusAddr + path)
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s: %w", statusAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon error: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse daemon response: %w", err)
	}
	return nil
}

func listChores() error {
	var statuses []chore.Status
	if err := fetchJSON("/api/chores", &statuses); err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No chores configured.")
		return nil
	}

	idWidth := len("CHORE")
	stateWidth := len("STATE")
	for _, s := range statuses {
		if len(s.ID) > idWidth {
			idWidth = len(s.ID)
		}
		if len(s.State) > stateWidth {
			stateWidth = len(string(s.State))
		}
	}

	fmt.Printf("%-*s  %-*s  %s\n", idWidth, "CHORE", stateWidth, "STATE", "STEPS")
	fmt.Printf("%s  %s  %s\n", strings.Repeat("-", idWidth), strings.Repeat("-", stateWidth), "-----")
	for _, s := range statuses {
		fmt.Printf("%-*s  %-*s  %d/%d\n", idWidth, s.ID, stateWidth, string(s.State), s.StepsDone, s.StepsTotal)
	}
	return nil
}

func showChore(id string) error {
	var status chore.Status
	if err := fetchJSON("/api/chores/"+id, &status); err != nil {
		return err
	}

	fmt.Println("Chore Details")
	fmt.Println("=============")
	fmt.Println()

	printField("ID", status.ID)
	printField("Name", status.Name)
	printField("State", string(status.State))
	printField("Since", formatTime(status.StateEnteredAt))
	if status.DueSince != nil {
		printField("Due since", formatTime(*status.DueSince))
	}
	if status.NextDue != nil {
		printField("Next due", formatTime(*status.NextDue))
	}
	if status.NextReset != nil {
		printField("Next reset", formatTime(*status.NextReset))
	}
	printField("Steps", fmt.Sprintf("%d/%d", status.StepsDone, status.StepsTotal))
	if last := status.LastCompleted; last != nil {
		printField("Completed", fmt.Sprintf("%s (%s)", formatTime(last.CompletedAt), last.CompletedBy))
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("  %-12s %s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
