// Command bridgeupctl is a small operator CLI against a running bridgeupd's
// HTTP API: health checks and ad-hoc bridge/boat lookups.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "bridgeupctl",
	Short: "CLI for the Seaway bridge status daemon",
	Long:  `bridgeupctl is a command-line tool for querying a running bridgeupd instance.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "bridgeupd server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output raw JSON")

	rootCmd.AddCommand(healthCmd, bridgesCmd, boatsCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func fetch(path string) (map[string]any, error) {
	resp, err := httpClient.Get(serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, body)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}

func printResult(data map[string]any) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(data)
		return
	}
	for k, v := range data {
		fmt.Printf("%-28s %v\n", k, v)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon health",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := fetch("/health")
		if err != nil {
			return err
		}
		printResult(data)
		return nil
	},
}

var bridgesCmd = &cobra.Command{
	Use:   "bridges [id]",
	Short: "Show the current bridge snapshot, or one bridge by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/bridges"
		if len(args) == 1 {
			path = "/bridges/" + args[0]
		}
		data, err := fetch(path)
		if err != nil {
			return err
		}
		printResult(data)
		return nil
	},
}

var boatsCmd = &cobra.Command{
	Use:   "boats",
	Short: "Show the current vessel registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := fetch("/boats")
		if err != nil {
			return err
		}
		printResult(data)
		return nil
	},
}
