// dashboardctl runs operator tasks against the dashboard database.
//
// Usage:
//
//	dashboardctl migrate
//	dashboardctl user set --id user-1 --weekly-goal 4
//	dashboardctl summary --user user-1 --at 2025-10-29T15:00:00Z
package main

import (
	"fmt"
	"os"

	"example.com/dashboard/cmd/dashboardctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
