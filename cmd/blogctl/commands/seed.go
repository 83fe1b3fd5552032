package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/inkpress/internal/app"
	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/service"
)

var (
	seedEmail    string
	seedPassword string
	seedCount    int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo account with sample posts",
	Long: `Populate the configured environment with a demo author and a mix of
published and draft posts. Useful for local development and demos.

Requires the database, redis and elasticsearch to be reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedEmail, "email", "author@example.com", "Email for the demo account")
	seedCmd.Flags().StringVar(&seedPassword, "password", "changeme123", "Password for the demo account")
	seedCmd.Flags().IntVar(&seedCount, "posts", 5, "Number of sample posts to create")
}

type samplePost struct {
	title   string
	excerpt string
	content string
	tags    []string
	publish bool
}

var samplePosts = []samplePost{
	{
		title:   "Getting Started with Inkpress",
		excerpt: "A quick tour of writing, publishing and organizing posts.",
		content: "Inkpress keeps the writing loop short. You draft in plain text, tag as you go, and publish when the piece is ready. This post walks through the basics: creating a draft, previewing it from your dashboard, and flipping it live.\n\nEvery post gets a stable URL derived from its title, so links you share keep working even as you keep editing.",
		tags:    []string{"guides", "onboarding"},
		publish: true,
	},
	{
		title:   "Scheduling Posts for Later",
		excerpt: "Publish now, appear later: how scheduled visibility works.",
		content: "Sometimes a post is finished days before it should go out. Set a future publication time and the post stays hidden from readers until the clock catches up, while you can still see and edit it from your dashboard.\n\nSchedules are plain timestamps. Change your mind and you can pull the post back to a draft at any time.",
		tags:    []string{"guides", "publishing"},
		publish: true,
	},
	{
		title:   "Why We Archive Instead of Delete",
		excerpt: "Old posts deserve a shelf, not a shredder.",
		content: "Deleting a post removes it forever, including its URL. Archiving takes it out of circulation but keeps the record: the original publication date, the tags, the revision you last shipped.\n\nArchived posts do not show up in public listings or search, but they are one click away from being republished.",
		tags:    []string{"opinion", "publishing"},
		publish: true,
	},
	{
		title:   "Draft: Notes on Tagging Strategy",
		excerpt: "Working notes on how many tags are too many.",
		content: "Rough thinking, not ready to ship. Tags work best as a small, stable vocabulary rather than free-form keywords. Three to five per post seems to be the sweet spot in the blogs we studied.\n\nOpen question: should the platform suggest existing tags while typing to keep the vocabulary converging?",
		tags:    []string{"meta", "drafting"},
	},
	{
		title:   "Search That Respects Publication Time",
		excerpt: "Readers only find what is actually live.",
		content: "Full-text search covers titles, body text and excerpts, but it never leaks unpublished work. The index carries the publication timestamp, and every query is filtered by it, so a scheduled post becomes findable at exactly the moment it becomes readable.\n\nRelated-post suggestions ride the same filter: they are computed from shared tags across the visible set only.",
		tags:    []string{"search", "engineering"},
		publish: true,
	},
}

func runSeed() error {
	loadEnv()

	application, err := app.Initialize()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()

	account, _, err := application.Accounts.Register(ctx, service.RegisterInput{
		Name:     "Demo Author",
		Email:    seedEmail,
		Password: seedPassword,
	})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeConflict) {
			return fmt.Errorf("account %s already exists, rerun with --email", seedEmail)
		}
		return err
	}
	fmt.Printf("created account %s (id %d)\n", account.Email, account.ID)

	for i := 0; i < seedCount; i++ {
		sample := samplePosts[i%len(samplePosts)]

		in := service.CreatePostInput{
			Title:   sample.title,
			Content: sample.content,
			Excerpt: sample.excerpt,
			Tags:    sample.tags,
		}
		if sample.publish {
			in.Status = "published"
		}

		post, err := application.Posts.Create(ctx, account.ID, in)
		if err != nil {
			return fmt.Errorf("create post %q: %w", sample.title, err)
		}
		fmt.Printf("created post %s (%s)\n", post.Slug, post.Status)
	}

	return nil
}
