package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/member-management/internal/client"
)

var (
	accessURL        string
	accessEmail      string
	accessPassword   string
	accessToken      string
	accessPath       string
	accessPermission string
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Client side access checks against a running server",
}

var accessCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Sign in and evaluate the navigation guard for one route",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		api := client.NewAPI(accessURL, nil)
		session := client.NewSession(api)

		var err error
		switch {
		case accessToken != "":
			err = session.StartWithToken(ctx, accessToken)
		case accessEmail != "":
			if accessPassword == "" {
				accessPassword = os.Getenv("MM_PASSWORD")
			}
			err = session.Start(ctx, accessEmail, accessPassword)
		default:
			return errors.New("either --token or --email is required")
		}
		if err != nil {
			fmt.Println("sign-in failed:", err)
		}
		defer session.End(ctx)

		notifier := client.NewNotifier(time.Now)
		guard := client.NewAccessGuard(session, notifier)
		defer guard.Close()

		d := guard.Navigate(ctx, client.Route{Path: accessPath, RequiredPermission: accessPermission})
		fmt.Printf("%s %s -> %s", accessPath, accessPermission, d.State)
		if d.Redirect != "" {
			fmt.Printf(" (redirect %s)", d.Redirect)
		}
		fmt.Println()

		for _, e := range notifier.List() {
			fmt.Printf("denial %s at %s\n", e.ID, e.Timestamp.Format(time.RFC3339))
		}
		if d.State != client.Authorized {
			return fmt.Errorf("access %s", d.State)
		}
		return nil
	},
}

func init() {
	accessCheckCmd.Flags().StringVar(&accessURL, "url", "http://localhost:8080/api/v1", "API base URL")
	accessCheckCmd.Flags().StringVar(&accessEmail, "email", "", "sign-in email")
	accessCheckCmd.Flags().StringVar(&accessPassword, "password", "", "sign-in password (or MM_PASSWORD)")
	accessCheckCmd.Flags().StringVar(&accessToken, "token", "", "existing access token instead of signing in")
	accessCheckCmd.Flags().StringVar(&accessPath, "path", "/", "route path to evaluate")
	accessCheckCmd.Flags().StringVar(&accessPermission, "permission", "", "permission code the route requires")
	accessCmd.AddCommand(accessCheckCmd)
}
