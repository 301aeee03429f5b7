package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratewatch/internal/index"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the local index checkout",
	}

	indexCmd.AddCommand(newIndexCloneCommand(ctx))
	indexCmd.AddCommand(newIndexStatusCommand(ctx))

	return indexCmd
}

func newIndexCloneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clone",
		Short: "Clone the configured index into index.path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			repo, err := index.Clone(cmd.Context(), indexOptions(cfg))
			if err != nil {
				return err
			}
			head, err := repo.HeadTree(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cloned %s into %s (tree %s)\n", cfg.Index.URL, repo.Path(), head.Hash)
			return nil
		},
	}
}

func newIndexStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the checkout's current tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			repo, err := index.Open(cmd.Context(), indexOptions(cfg))
			if err != nil {
				return err
			}
			head, err := repo.HeadTree(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:   %s\n", repo.Path())
			fmt.Fprintf(out, "Branch: %s\n", repo.Branch())
			fmt.Fprintf(out, "Tree:   %s\n", head.Hash)
			return nil
		},
	}
}
