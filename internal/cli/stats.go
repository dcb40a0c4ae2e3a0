package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundhive-network/fundhive/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("config", "c", "", "Path to config.toml (default ~/.fundhive/config.toml)")
	statsCmd.Flags().String("donor", "", "Show stats for one donor instead of the platform summary")
	statsCmd.Flags().Int("top", 10, "Leaderboard size")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Query a running daemon for platform or donor statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = daemon.DefaultPath()
	}
	cfg, err := daemon.Load(cfgPath)
	if err != nil {
		return err
	}
	base := "http://" + cfg.Addr()
	client := &http.Client{Timeout: 5 * time.Second}

	if donor, _ := cmd.Flags().GetString("donor"); donor != "" {
		var stats struct {
			Account       string `json:"account"`
			DonationCount uint64 `json:"donation_count"`
			TotalDonated  uint64 `json:"total_donated"`
		}
		if err := getJSON(client, base+"/api/donors/"+donor+"/stats", &stats); err != nil {
			return err
		}
		fmt.Printf("%s: %d donations, %d total\n", stats.Account, stats.DonationCount, stats.TotalDonated)
		return nil
	}

	var campaigns struct {
		Total int `json:"total"`
	}
	if err := getJSON(client, base+"/api/campaigns?limit=1", &campaigns); err != nil {
		return err
	}
	var pool struct {
		Balance uint64 `json:"balance"`
	}
	if err := getJSON(client, base+"/api/matching/pool", &pool); err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")
	var board struct {
		Donors []struct {
			Account      string `json:"account"`
			TotalDonated uint64 `json:"total_donated"`
		} `json:"donors"`
	}
	if err := getJSON(client, fmt.Sprintf("%s/api/leaderboard?limit=%d", base, top), &board); err != nil {
		return err
	}

	fmt.Printf("campaigns: %d\n", campaigns.Total)
	fmt.Printf("matching pool: %d\n", pool.Balance)
	fmt.Println("top donors:")
	for i, d := range board.Donors {
		fmt.Printf("  %2d. %s  %d\n", i+1, d.Account, d.TotalDonated)
	}
	return nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("query %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
