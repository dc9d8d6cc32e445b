package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-par-server/internal/config"
	"github.com/jrsteele09/go-par-server/par"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired pushed requests from a SQL store",
	Long:  `Removes references that expired without being redeemed. Only the sqlite and postgres stores keep expired rows; redis expires keys itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := loadConfigFile(cmd)
		if err != nil {
			return err
		}
		c := config.New(file)
		configureLogging(c.GetEnv())

		store, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer store.Close()

		purger, ok := store.Repo.(par.Purger)
		if !ok || c.GetStoreDriver() == config.StoreMemory {
			return errors.Errorf("store %q does not support purge", c.GetStoreDriver())
		}

		deleted, err := purger.DeleteExpired(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d expired request(s)\n", deleted)
		return nil
	},
}
