package main

import (
	"fmt"

	"github.com/Songmu/prompter"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
)

var (
	licenseEmail string
	assumeYes    bool
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Manage the license key",
	Long: `Manage the license that lifts free-tier limits.

Available subcommands:
  activate   - Store a license key
  deactivate - Remove the stored key
  status     - Show the current license`,
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate [key]",
	Short: "Store a license key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLicenseActivate,
}

var licenseDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Remove the stored license key",
	Args:  cobra.NoArgs,
	RunE:  runLicenseDeactivate,
}

var licenseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current license",
	Args:  cobra.NoArgs,
	RunE:  runLicenseStatus,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's generations and saved ideas against the free tier",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

var themeCmd = &cobra.Command{
	Use:   "theme [dark|light]",
	Short: "Show or set the display theme",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTheme,
}

func init() {
	licenseActivateCmd.Flags().StringVar(&licenseEmail, "email", "", "email the license was bought with")
	licenseDeactivateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	licenseCmd.AddCommand(licenseActivateCmd, licenseDeactivateCmd, licenseStatusCmd)
}

func runLicenseActivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		key = prompter.Prompt("License key", "")
	}

	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	l, err := a.licenses.Activate(ctx, key, licenseEmail)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "License %s activated. All features unlocked.\n", l.MaskedKey())
	return nil
}

func runLicenseDeactivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !assumeYes && !prompter.YN("Remove the license from this machine?", false) {
		return nil
	}

	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.licenses.Deactivate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "License removed.")
	return nil
}

func runLicenseStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	l := a.licenses.License(ctx)
	w := cmd.OutOrStdout()
	if done, err := emit(w, l); done {
		return err
	}
	if l == nil {
		fmt.Fprintln(w, "Free tier. Run `strategia license activate` to unlock every feature.")
		return nil
	}
	fmt.Fprintf(w, "Licensed: %s, activated %s\n", l.MaskedKey(), humanize.Time(l.ActivatedAt))
	if l.Email != "" {
		fmt.Fprintf(w, "Email: %s\n", l.Email)
	}
	for _, f := range license.Features {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	g := a.licenses.Gate(ctx)
	w := cmd.OutOrStdout()
	if done, err := emit(w, g); done {
		return err
	}
	if g.Licensed {
		fmt.Fprintf(w, "Generations today: %d (unlimited)\n", g.Usage.GenerationsToday)
		fmt.Fprintf(w, "Saved ideas: %d (unlimited)\n", g.Usage.SavedIdeasCount)
		return nil
	}
	fmt.Fprintf(w, "Generations today: %d of %d, %d left\n", g.Usage.GenerationsToday, license.FreeGenerationsPerDay, g.Remaining())
	fmt.Fprintf(w, "Saved ideas: %d of %d\n", g.Usage.SavedIdeasCount, license.FreeSavedIdeas)
	return nil
}

func runTheme(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), a.library.Theme(ctx))
		return nil
	}
	t, err := library.ParseTheme(args[0])
	if err != nil {
		return err
	}
	return a.library.SetTheme(ctx, t)
}
