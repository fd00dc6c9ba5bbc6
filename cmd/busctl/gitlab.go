package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meysam81/go-bus/gitlab"
	"github.com/spf13/cobra"
)

type pageFlags struct {
	limit   int
	perPage int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 100, "Maximum number of items, 0 for all")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "Items per request (default 20)")
}

// collect drains p until limit items were read.
func collect[T any](ctx context.Context, p *gitlab.Pager[T], limit int) ([]T, error) {
	items := []T{}
	for item, err := range p.Items(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func newGitLabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitlab",
		Short: "Query the GitLab REST API",
	}
	cmd.AddCommand(
		newGitLabUserCmd(a),
		newGitLabEventsCmd(a),
		newGitLabReleasesCmd(a),
		newGitLabEnvironmentsCmd(a),
		newGitLabMergeRequestsCmd(a),
		newGitLabSnippetsCmd(a),
		newGitLabSettingsCmd(a),
	)
	return cmd
}

func newGitLabUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the user owning the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			user, _, err := client.Users.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(user)
		},
	}
}

func newGitLabEventsCmd(a *app) *cobra.Command {
	var (
		page                     pageFlags
		project, user            string
		action, target, sortFlag string
		before, after            string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List activity events of the token owner, a user or a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project != "" && user != "" {
				return errors.New("--project and --user are mutually exclusive")
			}
			filter := &gitlab.EventFilter{
				Action:     gitlab.ActionType(action),
				TargetType: gitlab.TargetType(target),
				Sort:       gitlab.SortOrder(sortFlag),
			}
			var err error
			if filter.Before, err = parseDate("before", before); err != nil {
				return err
			}
			if filter.After, err = parseDate("after", after); err != nil {
				return err
			}

			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			var pager *gitlab.Pager[*gitlab.Event]
			switch {
			case project != "":
				pager, err = client.Events.ProjectEventsPager(project, filter, page.perPage)
			case user != "":
				pager, err = client.Events.UserEventsPager(user, filter, page.perPage)
			default:
				pager = client.Events.AuthenticatedUserEventsPager(filter, page.perPage)
			}
			if err != nil {
				return err
			}
			events, err := collect(cmd.Context(), pager, page.limit)
			if err != nil {
				return err
			}
			return a.print(events)
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&project, "project", "", "Project ID or path")
	cmd.Flags().StringVar(&user, "user", "", "User ID or username")
	cmd.Flags().StringVar(&action, "action", "", "Only events with this action")
	cmd.Flags().StringVar(&target, "target-type", "", "Only events on this target type")
	cmd.Flags().StringVar(&sortFlag, "sort", "", "Sort by creation date (asc|desc)")
	cmd.Flags().StringVar(&before, "before", "", "Only events before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&after, "after", "", "Only events after this date (YYYY-MM-DD)")
	return cmd
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q", name, value)
	}
	return t, nil
}

func newGitLabReleasesCmd(a *app) *cobra.Command {
	var page pageFlags
	cmd := &cobra.Command{
		Use:   "releases <project> [tag]",
		Short: "List the releases of a project, or show one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				release, _, err := client.Releases.GetRelease(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.print(release)
			}
			pager, err := client.Releases.ReleasesPager(args[0], page.perPage)
			if err != nil {
				return err
			}
			releases, err := collect(cmd.Context(), pager, page.limit)
			if err != nil {
				return err
			}
			return a.print(releases)
		},
	}
	page.register(cmd)
	return cmd
}

func newGitLabEnvironmentsCmd(a *app) *cobra.Command {
	var (
		page pageFlags
		opts gitlab.ListEnvironmentsOptions
	)
	cmd := &cobra.Command{
		Use:   "environments <project>",
		Short: "List the environments of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			pager, err := client.Environments.EnvironmentsPager(args[0], &opts, page.perPage)
			if err != nil {
				return err
			}
			envs, err := collect(cmd.Context(), pager, page.limit)
			if err != nil {
				return err
			}
			return a.print(envs)
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&opts.Name, "name", "", "Exact environment name")
	cmd.Flags().StringVar(&opts.Search, "search", "", "Environment name search")
	cmd.Flags().StringVar(&opts.States, "states", "", "available, stopping or stopped")
	return cmd
}

func newGitLabMergeRequestsCmd(a *app) *cobra.Command {
	var (
		page  pageFlags
		state string
	)
	cmd := &cobra.Command{
		Use:   "merge-requests <project>",
		Short: "List the merge requests of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			filter := &gitlab.MergeRequestFilter{State: gitlab.MergeRequestState(state)}
			pager, err := client.MergeRequests.ProjectMergeRequestsPager(args[0], filter, page.perPage)
			if err != nil {
				return err
			}
			mrs, err := collect(cmd.Context(), pager, page.limit)
			if err != nil {
				return err
			}
			return a.print(mrs)
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&state, "state", "", "opened, closed, locked or merged")
	return cmd
}

func newGitLabSnippetsCmd(a *app) *cobra.Command {
	var (
		page    pageFlags
		content bool
	)
	cmd := &cobra.Command{
		Use:   "snippets [id]",
		Short: "List the token owner's snippets, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if len(args) == 0 {
				snippets, err := collect(ctx, client.Snippets.SnippetsPager(page.perPage), page.limit)
				if err != nil {
					return err
				}
				return a.print(snippets)
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snippet id %q", args[0])
			}
			if content {
				_, err := client.Snippets.SnippetContent(ctx, id, a.out)
				return err
			}
			snippet, _, err := client.Snippets.GetSnippet(ctx, id)
			if err != nil {
				return err
			}
			return a.print(snippet)
		},
	}
	page.register(cmd)
	cmd.Flags().BoolVar(&content, "content", false, "Print the raw snippet content")
	return cmd
}

func newGitLabSettingsCmd(a *app) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the instance application settings (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gitlabClient()
			if err != nil {
				return err
			}
			settings, _, err := client.Settings.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return a.print(settings)
			}
			picked := make(map[string]any, len(names))
			for _, name := range names {
				if v, ok := settings.Setting(name); ok {
					picked[name] = v
				}
			}
			return a.print(picked)
		},
	}
	cmd.Flags().StringSliceVar(&names, "name", nil, "Only these settings")
	return cmd
}
