package main

import (
	"fmt"

	"quill/internal/bootstrap"
	"quill/internal/cache"
	"quill/internal/seed"

	"github.com/spf13/cobra"
)

func (a *app) newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert built-in or demo data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tags",
		Short: "Insert the built-in tags that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, db, closeFn, err := a.connect(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := seed.Tags(ctx, db)
			if err != nil {
				return err
			}
			cache.InvalidateTags(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d built-in tags\n", created, len(seed.DefaultTags))
			return nil
		},
	})

	var opts seed.Options
	demo := &cobra.Command{
		Use:   "demo",
		Short: "Generate fake users, posts, comments, likes and follows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, db, closeFn, err := a.connect(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := seed.Demo(ctx, db, opts)
			if err != nil {
				return err
			}
			cache.InvalidateTags(ctx)
			cache.InvalidatePostsList(ctx)

			fmt.Fprintf(cmd.OutOrStdout(),
				"users=%d posts=%d comments=%d likes=%d follows=%d tags=%d\n",
				sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Follows, sum.Tags)
			fmt.Fprintf(cmd.OutOrStdout(), "demo accounts use the password %q\n", seed.DemoPassword)
			return nil
		},
	}
	flags := demo.Flags()
	flags.IntVar(&opts.Users, "users", 20, "number of users to create")
	flags.IntVar(&opts.Posts, "posts", 60, "number of posts to create")
	flags.IntVar(&opts.MaxComments, "max-comments", 5, "maximum comments per post")
	flags.IntVar(&opts.MaxLikes, "max-likes", 8, "maximum likes per post")
	flags.IntVar(&opts.FollowsPerUser, "follows", 3, "accounts each user follows")
	flags.IntVar(&opts.MaxDays, "days", 90, "spread post dates over this many days")
	flags.Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random run")
	flags.BoolVar(&opts.Clean, "clean", false, "delete existing users and content first")
	flags.BoolVar(&opts.FastHash, "fast-hash", false, "hash demo passwords at the minimum bcrypt cost")
	cmd.AddCommand(demo)

	return cmd
}
