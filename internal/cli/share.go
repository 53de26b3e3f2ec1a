package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunShare(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	token, expires, err := store.IssueShareToken(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("share token: %s\n", token)
	fmt.Printf("expires:     %s\n", expires.Format("2006-01-02 15:04 MST"))
	fmt.Printf("url path:    /api/shared/%s\n", token)
	return nil
}
