// Command picogit is a thin CLI dispatcher over the picogit core. Its
// argument surface and diagnostic formatting aren't load-bearing; it
// exists only to give the core components an entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mbrt/picogit/internal/config"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("PICOGIT_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.FromEnv()
	root := newRootCmd(&cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "picogit",
		Short:         "A minimal content-addressed object store and pack decoder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Dir, "git-dir", cfg.Dir, "store root directory")

	root.AddCommand(
		newInitCmd(cfg),
		newHashObjectCmd(cfg),
		newCatFileCmd(cfg),
		newLsTreeCmd(cfg),
		newWriteTreeCmd(cfg),
		newCommitTreeCmd(cfg),
		newCheckoutCmd(cfg),
		newCloneCmd(cfg),
	)
	return root
}
