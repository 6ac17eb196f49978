package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mbrt/picogit/internal/checkout"
	"github.com/mbrt/picogit/internal/config"
	"github.com/mbrt/picogit/internal/objstore"
	"github.com/mbrt/picogit/internal/packfile"
	"github.com/mbrt/picogit/internal/transport"
	"github.com/mbrt/picogit/internal/treeio"
)

func newInitCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := objstore.New(cfg.Dir).Init(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized store in %s\n", cfg.Dir)
			return nil
		},
	}
}

func newHashObjectCmd(cfg *config.Config) *cobra.Command {
	var write bool
	c := &cobra.Command{
		Use:   "hash-object <file>",
		Short: "Compute (and optionally store) a blob's OID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "read %s", args[0])
			}

			var oid objstore.OID
			if write {
				oid, err = objstore.New(cfg.Dir).Put(objstore.TypeBlob, data)
			} else {
				oid = objstore.Hash(objstore.TypeBlob, data)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oid)
			return nil
		},
	}
	c.Flags().BoolVarP(&write, "write", "w", false, "write the object to the store")
	return c
}

func newCatFileCmd(cfg *config.Config) *cobra.Command {
	c := &cobra.Command{
		Use:   "cat-file <oid>",
		Short: "Print an object's payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := objstore.ParseOID(args[0])
			if err != nil {
				return err
			}
			_, payload, err := objstore.New(cfg.Dir).Get(oid)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}
	return c
}

func newLsTreeCmd(cfg *config.Config) *cobra.Command {
	var nameOnly bool
	c := &cobra.Command{
		Use:   "ls-tree <oid>",
		Short: "List a tree object's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := objstore.ParseOID(args[0])
			if err != nil {
				return err
			}
			typ, payload, err := objstore.New(cfg.Dir).Get(oid)
			if err != nil {
				return err
			}
			if typ != objstore.TypeTree {
				return errors.Wrapf(objstore.ErrCorruptObject, "%s is a %s, not a tree", oid, typ)
			}
			entries, err := treeio.ParseTree(payload)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				if nameOnly {
					fmt.Fprintln(out, string(e.Name))
					continue
				}
				kind := "blob"
				if e.Mode == treeio.ModeDir {
					kind = "tree"
				}
				fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, kind, e.OID, e.Name)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&nameOnly, "name-only", false, "print entry names only")
	return c
}

func newWriteTreeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree",
		Short: "Capture the current directory into a tree object",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			oid, err := treeio.Capture(objstore.New(cfg.Dir), cwd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oid)
			return nil
		},
	}
}

func newCommitTreeCmd(cfg *config.Config) *cobra.Command {
	var parents []string
	var message string
	c := &cobra.Command{
		Use:   "commit-tree <tree-oid>",
		Short: "Create a commit object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			treeOID, err := objstore.ParseOID(args[0])
			if err != nil {
				return err
			}

			parentOIDs := make([]objstore.OID, 0, len(parents))
			for _, p := range parents {
				oid, err := objstore.ParseOID(p)
				if err != nil {
					return err
				}
				parentOIDs = append(parentOIDs, oid)
			}

			author := os.Getenv("PICOGIT_AUTHOR")
			if author == "" {
				author = os.Getenv("USER")
			}
			email := os.Getenv("PICOGIT_EMAIL")
			if email == "" {
				email = os.Getenv("USER") + "@" + os.Getenv("HOSTNAME")
			}

			payload := objstore.BuildCommit(objstore.CommitSpec{
				Tree:        treeOID,
				Parents:     parentOIDs,
				Author:      author,
				AuthorEmail: email,
				AuthorTime:  time.Now(),
				Message:     message,
			})

			oid, err := objstore.New(cfg.Dir).Put(objstore.TypeCommit, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oid)
			return nil
		},
	}
	c.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit OID (repeatable)")
	c.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return c
}

func newCheckoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <commit-oid> <target-dir>",
		Short: "Materialize a commit's tree into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			commitOID, err := objstore.ParseOID(args[0])
			if err != nil {
				return err
			}
			store := objstore.New(cfg.Dir)
			typ, payload, err := store.Get(commitOID)
			if err != nil {
				return err
			}
			if typ != objstore.TypeCommit {
				return errors.Wrapf(objstore.ErrCorruptObject, "%s is a %s, not a commit", commitOID, typ)
			}
			treeOID, err := objstore.ExtractTreeOID(payload)
			if err != nil {
				return err
			}
			return checkout.Render(store, args[1], treeOID)
		},
	}
}

func newCloneCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url> <directory>",
		Short: "Clone a repository over the smart-HTTP v2 fetch protocol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(cmd.Context(), cfg, strings.TrimSuffix(args[0], "/"), args[1])
		},
	}
}

// runClone is the end-to-end clone driver: fetch refs, persist them,
// drive the Pack Decoder, then render HEAD's tree into the target
// directory.
func runClone(ctx context.Context, cfg *config.Config, url, directory string) error {
	storeDir := directory + "/" + config.DefaultDir
	store := objstore.New(storeDir)
	if err := store.Init(); err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	refs, err := transport.ListRefs(ctx, client, url)
	if err != nil {
		return err
	}

	var wants []objstore.OID
	var headOID objstore.OID
	for _, r := range refs {
		if err := store.WriteRef(r.Name, r.OID); err != nil {
			return err
		}
		wants = append(wants, r.OID)
		if r.Name == "HEAD" {
			headOID = r.OID
		}
	}
	if headOID.IsZero() {
		return errors.Wrap(objstore.ErrTransport, "server did not advertise HEAD")
	}

	pack, err := transport.FetchPack(ctx, client, url, wants)
	if err != nil {
		return err
	}

	stats, err := packfile.Decode(store, pack)
	if err != nil {
		return err
	}
	log.Info().Int("objects", stats.ObjectCount).Int("deltas", stats.ResolvedDeltas).Msg("clone: pack ingested")

	typ, commitPayload, err := store.Get(headOID)
	if err != nil {
		return err
	}
	if typ != objstore.TypeCommit {
		return errors.Wrapf(objstore.ErrCorruptObject, "HEAD %s is a %s, not a commit", headOID, typ)
	}
	treeOID, err := objstore.ExtractTreeOID(commitPayload)
	if err != nil {
		return err
	}

	if err := checkout.Render(store, directory, treeOID); err != nil {
		return err
	}

	return store.WriteRef("HEAD", headOID)
}
