package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/iliassync/internal/rclone"
)

var remoteProvider string

// remoteCmd groups rclone remote helpers
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Check or create the rclone remote",
}

var remoteCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the configured rclone remote exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.rclone.CheckRemote(context.Background()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remote %q is configured.\n", a.rclone.Remote())
		return nil
	},
}

var remoteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the configured rclone remote",
	Long: `Run "rclone config create" for the configured remote name. Client id and
secret are taken from upload.client_id/upload.client_secret when both are set.
rclone may open a browser to authorize access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		err = a.rclone.CreateRemote(context.Background(), remoteProvider,
			a.cfg.Upload.ClientID, a.cfg.Upload.ClientSecret)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remote %q created.\n", a.rclone.Remote())
		return nil
	},
}

func init() {
	remoteCreateCmd.Flags().StringVarP(&remoteProvider, "provider", "p", "drive",
		"Cloud provider ("+strings.Join(rclone.Providers, ", ")+")")
	remoteCmd.AddCommand(remoteCheckCmd)
	remoteCmd.AddCommand(remoteCreateCmd)
}
