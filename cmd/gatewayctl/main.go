package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/gateway-core/pkg/config"
)

func main() {
	_ = config.LoadEnv() // best-effort local .env override, e.g. OPENCLAW_SERVICE_TOKEN
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Inspect and operate the multi-tenant gateway core",
	Long: `gatewayctl is a read-mostly operator CLI over the gateway's
tenant manager and config synchronizer: process stats, tenant listing,
a manual config sync, and forced eviction.`,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(evictCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print tenant manager and sync stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		stats := a.manager.Stats()
		fmt.Printf("Active instances: %d\n", stats.ActiveInstances)
		fmt.Printf("Total users:      %d\n", stats.TotalUsers)
		fmt.Printf("Cache hits:       %d\n", stats.CacheHits)
		fmt.Printf("Cache misses:     %d\n", stats.CacheMisses)
		fmt.Printf("Sync failures:    %d\n", stats.SyncFailures)
		if !stats.LastSyncAt.IsZero() {
			fmt.Printf("Last sync at:     %s\n", stats.LastSyncAt.Format("2006-01-02T15:04:05Z07:00"))
		} else {
			fmt.Println("Last sync at:     never")
		}
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect cached tenant instances",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached user ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ids := a.manager.ListUserIDs()
		if len(ids) == 0 {
			fmt.Println("No cached users")
			return nil
		}
		fmt.Printf("%-40s\n", "USER ID")
		fmt.Println(strings.Repeat("-", 40))
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Show a single instance's snapshot, loading it from disk if not cached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		snap, err := a.manager.GetInstance(args[0])
		if err != nil {
			return fmt.Errorf("fetching instance: %w", err)
		}
		fmt.Printf("User ID:          %s\n", snap.UserID)
		fmt.Printf("Status:           %s\n", snap.Status)
		fmt.Printf("Pending requests: %d\n", snap.PendingRequests)
		fmt.Printf("Last activity:    %s\n", snap.LastActivityAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersShowCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Operate the config synchronizer",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Trigger a single synchronous config sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		s := newSynchronizer(a)
		result := s.SyncNow(context.Background())
		if !result.Success {
			return fmt.Errorf("sync failed: %w", result.Error)
		}
		fmt.Printf("Sync succeeded: %d users updated\n", result.UsersUpdated)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncNowCmd)
}

var evictCmd = &cobra.Command{
	Use:   "evict USER_ID",
	Short: "Evict a cached instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		a, err := newApp()
		if err != nil {
			return err
		}
		removed, err := a.manager.ForceEvict(args[0], force)
		if err != nil {
			return fmt.Errorf("evict refused (pass --force to override): %w", err)
		}
		if !removed {
			fmt.Printf("No cached instance for %s\n", args[0])
			return nil
		}
		fmt.Printf("Evicted %s\n", args[0])
		return nil
	},
}

func init() {
	evictCmd.Flags().Bool("force", false, "evict even if pending requests are outstanding")
}
