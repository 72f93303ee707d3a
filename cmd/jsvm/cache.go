package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chazu/jscore/pkg/store"
)

func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the compiled chunk cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached chunks",
			Args:  cobra.NoArgs,
			RunE: opts.withCache(func(cmd *cobra.Command, cache *store.Cache, args []string) error {
				entries, err := cache.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "HASH\tNAME\tSIZE\tCREATED")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Hash[:12], e.Name, e.Size, e.Created.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "put CHUNK...",
			Short: "Add chunk files to the cache and print their hashes",
			Args:  cobra.MinimumNArgs(1),
			RunE: opts.withCache(func(cmd *cobra.Command, cache *store.Cache, args []string) error {
				for _, path := range args {
					chunk, err := opts.loadChunk(path)
					if err != nil {
						return err
					}
					hash, err := cache.Put(chunk)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", hash, path)
				}
				return nil
			}),
		},
		newCacheGetCommand(opts),
		&cobra.Command{
			Use:   "rm HASH...",
			Short: "Remove chunks from the cache",
			Args:  cobra.MinimumNArgs(1),
			RunE: opts.withCache(func(cmd *cobra.Command, cache *store.Cache, args []string) error {
				for _, hash := range args {
					if err := cache.Delete(hash); err != nil {
						return errors.Wrap(err, hash)
					}
				}
				return nil
			}),
		},
	)
	return cmd
}

func newCacheGetCommand(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get HASH",
		Short: "Write a cached chunk to a file",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withCache(func(cmd *cobra.Command, cache *store.Cache, args []string) error {
			chunk, err := cache.Get(args[0])
			if err != nil {
				return errors.Wrap(err, args[0])
			}
			return writeChunk(chunk, out, cmd.OutOrStdout())
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

// withCache opens the configured cache around fn.
func (o *options) withCache(fn func(*cobra.Command, *store.Cache, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if !o.cfg.Cache.Enabled {
			return errors.New("the chunk cache is disabled in jscore.toml")
		}
		cache, err := store.Open(o.cfg.CachePath())
		if err != nil {
			return err
		}
		defer cache.Close()
		return fn(cmd, cache, args)
	}
}
