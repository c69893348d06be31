package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pw/paywallet/internal/infrastructure/postgres"
)

var (
	walletURL      string
	transactionURL string
	analyticsURL   string
	timeout        time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pwctl",
		Short: "PayWallet operations tool",
		Long:  `A command line interface for operating the PayWallet services.`,
	}

	rootCmd.PersistentFlags().StringVar(&walletURL, "wallet-url", "http://localhost:8080", "Base URL of the wallet service")
	rootCmd.PersistentFlags().StringVar(&transactionURL, "transaction-url", "http://localhost:8081", "Base URL of the transaction service")
	rootCmd.PersistentFlags().StringVar(&analyticsURL, "analytics-url", "http://localhost:8082", "Base URL of the analytics service")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(migrateCmd(), walletCmd(), reconcileCmd(), summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
		down        bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			if down {
				err = postgres.RunMigrationsDown(databaseURL, path)
			} else {
				err = postgres.RunMigrations(databaseURL, path)
			}
			if err != nil {
				fmt.Printf("Migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations OK")
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Database URL")
	cmd.Flags().StringVar(&path, "path", "migrations/wallet", "Migrations directory")
	cmd.Flags().BoolVar(&down, "down", false, "Roll back the last migration")

	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <userId>",
		Short: "Show a user's wallet",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get(walletURL + "/api/v1/wallets/" + args[0])
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	var lag, limit string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation pass on pending transfers",
		Run: func(cmd *cobra.Command, args []string) {
			post(transactionURL + "/api/v1/admin/reconcile?lag=" + lag + "&limit=" + limit)
		},
	}

	cmd.Flags().StringVar(&lag, "lag", "2m", "Only reconcile entries older than this duration")
	cmd.Flags().StringVar(&limit, "limit", "100", "Maximum transfer entries per pass")

	return cmd
}

func summaryCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Daily aggregate queries",
	}

	userCmd := &cobra.Command{
		Use:   "user <userId>",
		Short: "Show a user's daily summaries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get(analyticsURL + "/api/v1/analytics/users/" + args[0] + "/daily" + rangeQuery(from, to))
		},
	}

	systemCmd := &cobra.Command{
		Use:   "system",
		Short: "Show system-wide daily summaries",
		Run: func(cmd *cobra.Command, args []string) {
			get(analyticsURL + "/api/v1/analytics/system/daily" + rangeQuery(from, to))
		},
	}

	cmd.PersistentFlags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.AddCommand(userCmd, systemCmd)

	return cmd
}

func rangeQuery(from, to string) string {
	switch {
	case from != "" && to != "":
		return "?from=" + from + "&to=" + to
	case from != "":
		return "?from=" + from
	case to != "":
		return "?to=" + to
	default:
		return ""
	}
}

func get(url string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func post(url string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}

	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
