package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/users-admin/internal/api"
	"github.com/aanand-mishra/users-admin/internal/controller"
	"github.com/aanand-mishra/users-admin/internal/types"
)

var (
	listPage int

	draftName  string
	draftEmail string
	updatePage int

	deleteForce bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newController(cmd.ErrOrStderr())
		if err := c.LoadPage(cmd.Context(), listPage); err != nil {
			return err
		}
		renderState(cmd.OutOrStdout(), c.State())
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Long: `Create a user. Without --name and --email an interactive form asks
for them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := types.Draft{Name: draftName, Email: draftEmail}
		if !cmd.Flags().Changed("name") || !cmd.Flags().Changed("email") {
			if err := promptDraft(cmd.Context(), "Add User", &draft); err != nil {
				return err
			}
		}

		c := newController(cmd.ErrOrStderr())
		if err := c.Submit(cmd.Context(), draft); err != nil {
			return err
		}
		renderState(cmd.OutOrStdout(), c.State())
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a user",
	Long: `Update a user found on the given page. Fields not passed as flags keep
their current value; with no flags at all an interactive form is shown,
seeded from the user.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}

		c := newController(cmd.ErrOrStderr())
		if err := c.LoadPage(cmd.Context(), updatePage); err != nil {
			return err
		}
		u, ok := c.Find(id)
		if !ok {
			return fmt.Errorf("user %d not found on page %d", id, c.State().Page)
		}
		c.BeginEdit(u)

		draft := types.DraftFrom(u)
		nameSet, emailSet := cmd.Flags().Changed("name"), cmd.Flags().Changed("email")
		if nameSet {
			draft.Name = draftName
		}
		if emailSet {
			draft.Email = draftEmail
		}
		if !nameSet && !emailSet {
			if err := promptDraft(cmd.Context(), "Edit User", &draft); err != nil {
				return err
			}
		}

		if err := c.Submit(cmd.Context(), draft); err != nil {
			return err
		}
		renderState(cmd.OutOrStdout(), c.State())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}

		confirm := promptConfirm
		if deleteForce {
			confirm = controller.Always
		}

		c := newController(cmd.ErrOrStderr())
		removed, err := c.Remove(cmd.Context(), id, confirm)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(cmd.ErrOrStderr(), "Nothing deleted.")
			return nil
		}
		renderState(cmd.OutOrStdout(), c.State())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)

	listCmd.Flags().IntVar(&listPage, "page", 1, "page to show")

	createCmd.Flags().StringVar(&draftName, "name", "", "user name")
	createCmd.Flags().StringVar(&draftEmail, "email", "", "user email")

	updateCmd.Flags().StringVar(&draftName, "name", "", "new user name")
	updateCmd.Flags().StringVar(&draftEmail, "email", "", "new user email")
	updateCmd.Flags().IntVar(&updatePage, "page", 1, "page the user is listed on")

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "delete without asking")
}

// newController builds a controller against the configured backend whose
// notifications are printed to w.
func newController(w io.Writer) *controller.Controller {
	return controller.New(api.New(cfg.API), printNotifier(w), appLogger, cfg.API.PageSize)
}

// printNotifier prints one line per notification.
func printNotifier(w io.Writer) controller.Notifier {
	return controller.NotifierFunc(func(n controller.Notification) {
		if n.Message == "" {
			fmt.Fprintf(w, "%s: %s\n", n.Level, n.Title)
			return
		}
		fmt.Fprintf(w, "%s: %s: %s\n", n.Level, n.Title, n.Message)
	})
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be an integer", s)
	}
	return id, nil
}

func promptDraft(ctx context.Context, title string, draft *types.Draft) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Enter name").
				Value(&draft.Name).
				Validate(required("name")),
			huh.NewInput().
				Title("Email").
				Placeholder("Enter email").
				Value(&draft.Email).
				Validate(required("email")),
		).Title(title),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return err
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// promptConfirm asks on the terminal before a user is deleted.
func promptConfirm(ctx context.Context, id int64) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete user %d?", id)).
				Description("Are you sure you want to delete this user?").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&ok),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
