package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/letieu/strategia/internal/library"
)

var saveCmd = &cobra.Command{
	Use:   "save [id]",
	Short: "Save an idea to the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

var unsaveCmd = &cobra.Command{
	Use:   "unsave [id]",
	Short: "Remove an idea from the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnsave,
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved ideas",
	Args:  cobra.NoArgs,
	RunE:  runSaved,
}

var similarCmd = &cobra.Command{
	Use:   "similar [id]",
	Short: "Find saved ideas close to a saved idea",
	Long: `Looks up the saved ideas nearest to the given one by embedding distance.
Needs similarity.enabled and a sqlite database.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.library.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.library.Save(ctx, it); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %q.\n", it.Title)
	return nil
}

func runUnsave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.library.Unsave(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
	return nil
}

func runSaved(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, order, err := listFlags()
	if err != nil {
		return err
	}
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return printIdeas(cmd, library.List(a.library.Saved(ctx), c, order))
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	matches, err := a.library.Similar(ctx, args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if done, err := emit(w, matches); done {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No similar ideas.")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(w, "%.4f\t%s\t%s\n", m.Distance, m.Idea.ID, m.Idea.Title)
	}
	return nil
}
