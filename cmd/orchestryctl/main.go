// Command orchestryctl is the operator CLI for the autoscaler controller:
// configure a connection, bind and unbind apps, and list current
// bindings. Grounded on cli_go/main.go's cobra command structure.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autoscaler/cmd/orchestryctl/helpers"
)

var (
	controllerURL string
	secret        string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orchestryctl",
		Short: "autoscaler controller CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "config" {
				return nil
			}
			url, sec, err := helpers.LoadConfig()
			if err != nil || url == "" {
				return fmt.Errorf("orchestryctl is not configured. Please run 'orchestryctl config' to set it up")
			}
			controllerURL = url
			secret = sec
			return nil
		},
	}

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(unbindCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure orchestryctl with controller host, port, and secret",
	Run: func(cmd *cobra.Command, args []string) {
		var host, sec string
		var port int
		fmt.Print("Host (e.g., localhost): ")
		fmt.Scanln(&host)
		fmt.Print("Port (e.g., 8080): ")
		fmt.Scanln(&port)
		fmt.Print("Secret: ")
		fmt.Scanln(&sec)

		apiURL := fmt.Sprintf("http://%s:%d", host, port)
		fmt.Printf("Connecting to autoscaler controller at %s...\n", apiURL)

		if helpers.CheckServiceRunning(apiURL) {
			if err := helpers.SaveConfig(host, port, sec); err != nil {
				fmt.Fprintln(os.Stderr, "failed to save config:", err)
				os.Exit(1)
			}
			fmt.Printf("Configuration saved to %s\n", helpers.ConfigFile)
		} else {
			fmt.Fprintln(os.Stderr, "Failed to connect. Please ensure the controller is running.")
			os.Exit(1)
		}
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind [spec.yaml]",
	Short: "Bind an application from a YAML/JSON binding spec",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		specFile := args[0]
		data, err := os.ReadFile(specFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error reading file:", err)
			os.Exit(1)
		}

		var spec interface{}
		if err := yaml.Unmarshal(data, &spec); err != nil {
			fmt.Fprintln(os.Stderr, "YAML error:", err)
			os.Exit(1)
		}
		body, _ := json.Marshal(spec)

		req, _ := http.NewRequest(http.MethodPost, controllerURL+"/bindings", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("secret", secret)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		printResponse(resp, "Bound successfully!", "Bind failed")
	},
}

var unbindCmd = &cobra.Command{
	Use:   "unbind [id]",
	Short: "Remove a binding by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/bindings/%s", controllerURL, id), nil)
		req.Header.Set("secret", secret)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		printResponse(resp, "Unbound successfully!", "Unbind failed")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bound applications",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := http.NewRequest(http.MethodGet, controllerURL+"/bindings", nil)
		req.Header.Set("secret", secret)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		printResponse(resp, "", "")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show recent scaling decisions for a binding",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/bindings/%s/scalingHistory", controllerURL, id), nil)
		req.Header.Set("secret", secret)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		printResponse(resp, "", "")
	},
}

func printResponse(resp *http.Response, successMsg, failMsg string) {
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if successMsg != "" {
			fmt.Println(successMsg)
		}
		var out interface{}
		json.Unmarshal(body, &out)
		pretty, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(pretty))
	} else {
		if failMsg != "" {
			fmt.Fprintln(os.Stderr, failMsg)
		}
		fmt.Fprintln(os.Stderr, string(body))
	}
}
