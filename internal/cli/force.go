package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/choretrack/choretrack/internal/chore"
)

var forceAddr string

var forceCmd = &cobra.Command{
	Use:   "force <chore-id> <due|inactive|complete|done>",
	Short: "Force a chore into a lifecycle state",
	Long: `Overrides automatic detection for one chore.

  due       mark the trigger satisfied
  inactive  reset the chore to inactive
  complete  mark the chore completed
  done      record a manual completion (only while the chore is due or started)`,
	Args: cobra.ExactArgs(2),
	RunE: runForce,
}

func init() {
	forceCmd.Flags().StringVar(&forceAddr, "addr", defaultAddr(), "address of the running daemon")
	rootCmd.AddCommand(forceCmd)
}

func runForce(cmd *cobra.Command, args []string) error {
	id, action := args[0], args[1]

	switch action {
	case "due", "inactive", "complete", "done":
	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	body, err := json.Marshal(map[string]string{"action": action})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chores/%s/force", forceAddr, id)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s: %w", forceAddr, err)
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

	var status chore.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to parse daemon response: %w", err)
	}

	fmt.Printf("%s: %s\n", status.ID, status.State)
	return nil
}
