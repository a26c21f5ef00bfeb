// Package main implements the collectionctl CLI for manual operations
// against a collectiond server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the collectiond HTTP server
	serverURL string
	// workspace is sent as the X-Workspace header on service calls
	workspace string
	// token is the bearer token for authentication
	token string
	// service is the service segment of the call path
	service string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "collectionctl",
	Short: "CLI for collectiond server operations",
	Long: `collectionctl is a command-line interface for interacting with a
collectiond server. It provides a generic call command for any service
method and a health check.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9520", "collectiond server URL")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "caller workspace (X-Workspace header)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("COLLECTIOND_AUTH_TOKEN"), "bearer token (defaults to COLLECTIOND_AUTH_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&service, "service", "vectors", "service name in the call path")
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(healthCmd)
}

// callCmd invokes a service method with a JSON body
var callCmd = &cobra.Command{
	Use:   "call <namespace> <method> [body]",
	Short: "Call a service method with a JSON body",
	Long: `Call a collectiond service method. The body is a JSON object given
as an argument, from a file with @file, or from stdin with -.

Examples:
  # List collections
  collectionctl call collections list '{}' --workspace ws-1

  # Create a collection from a file
  collectionctl call collections create @settings.json --workspace ws-1

  # Insert an object from stdin
  cat object.json | collectionctl call data insert - --workspace ws-1`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runCall,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check collectiond server health",
	RunE:  runHealth,
}

// HealthResponse matches internal/rpc HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runCall handles the call command
func runCall(cmd *cobra.Command, args []string) error {
	if workspace == "" {
		return fmt.Errorf("--workspace is required")
	}
	if token == "" {
		return fmt.Errorf("no token: set --token or COLLECTIOND_AUTH_TOKEN")
	}

	body, err := readBody(args)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("body is not valid JSON")
	}

	url := fmt.Sprintf("%s/services/%s/%s/%s", serverURL, service, args[0], args[1])
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Workspace", workspace)

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		fmt.Println(string(respBody))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

// readBody resolves the body argument: literal JSON, @file, or - for stdin.
// A missing argument means an empty object.
func readBody(args []string) ([]byte, error) {
	if len(args) < 3 {
		return []byte("{}"), nil
	}
	arg := args[2]
	switch {
	case arg == "-":
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return body, nil
	case len(arg) > 1 && arg[0] == '@':
		body, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", arg[1:], err)
		}
		return body, nil
	default:
		return []byte(arg), nil
	}
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	return nil
}
