package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/letieu/strategia/internal/analysis"
	"github.com/letieu/strategia/internal/export"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/library"
)

var (
	category string
	sortBy   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch of app ideas",
	Long: `Asks the model for a batch of mobile app ideas, optionally limited to one
category, and makes them the current list.

Example:
  strategia generate --category "Hyper-Casual Game"`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var refineCmd = &cobra.Command{
	Use:   "refine [idea]",
	Short: "Turn a rough idea into a scored concept",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRefine,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current ideas",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [id]",
	Short: "Run a market analysis with SWOT and a 12-month projection",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var namesCmd = &cobra.Command{
	Use:   "names [id]",
	Short: "Suggest app names",
	Args:  cobra.ExactArgs(1),
	RunE:  runNames,
}

var marketingCmd = &cobra.Command{
	Use:   "marketing [id]",
	Short: "Write launch marketing copy",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarketing,
}

var mvpCmd = &cobra.Command{
	Use:   "mvp [id]",
	Short: "Plan the minimum viable product",
	Args:  cobra.ExactArgs(1),
	RunE:  runMVP,
}

var imageCmd = &cobra.Command{
	Use:   "image [id...]",
	Short: "Generate concept art for ideas",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImage,
}

var compareCmd = &cobra.Command{
	Use:   "compare [id] [id] [id]",
	Short: "Compare two or three ideas side by side",
	Args:  cobra.RangeArgs(2, analysis.MaxCompare),
	RunE:  runCompare,
}

func init() {
	generateCmd.Flags().StringVar(&category, "category", "All", "idea category")
	for _, c := range []*cobra.Command{listCmd, savedCmd} {
		c.Flags().StringVar(&category, "category", "All", "only show this category")
		c.Flags().StringVar(&sortBy, "sort", string(library.DefaultSort), "virality-desc, virality-asc, revenue-desc or revenue-asc")
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := idea.ParseFilter(category)
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ideas, err := a.analyzer.GenerateIdeas(ctx, c)
	if err != nil {
		return err
	}
	return printIdeas(cmd, ideas)
}

func printIdeas(cmd *cobra.Command, ideas []idea.Idea) error {
	w := cmd.OutOrStdout()
	if done, err := emit(w, ideas); done {
		return err
	}
	if len(ideas) == 0 {
		fmt.Fprintln(w, "No ideas.")
		return nil
	}
	return export.Table(w, ideas)
}

func runRefine(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.analyzer.RefineIdea(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if it == nil {
		return errNoResult
	}
	return a.show(ctx, cmd.OutOrStdout(), it, func() string {
		return export.RenderMarkdown(export.NewDocument("Refined idea", time.Now(), []idea.Idea{*it}, nil))
	})
}

func runList(cmd *cobra.Command, args []string) error {
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
	return printIdeas(cmd, library.List(a.library.Current(ctx), c, order))
}

func listFlags() (idea.Category, library.Sort, error) {
	c, err := idea.ParseFilter(category)
	if err != nil {
		return "", "", err
	}
	order, err := library.ParseSort(sortBy)
	if err != nil {
		return "", "", err
	}
	return c, order, nil
}

var errNoResult = errors.New("the model returned no usable result, try again")

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.library.Find(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := a.analyzer.AnalyzeIdea(ctx, it)
	if err != nil {
		return err
	}
	if res == nil {
		return errNoResult
	}
	return a.show(ctx, cmd.OutOrStdout(), res, func() string {
		return export.RenderMarkdown(export.NewDocument(it.Title, time.Now(), []idea.Idea{it}, res))
	})
}

func runNames(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.library.Find(ctx, args[0])
	if err != nil {
		return err
	}
	names, err := a.analyzer.GenerateAppNames(ctx, it)
	if err != nil {
		return err
	}
	if names == nil {
		return errNoResult
	}
	return a.show(ctx, cmd.OutOrStdout(), names, func() string { return export.AppNames(*names) })
}

func runMarketing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.library.Find(ctx, args[0])
	if err != nil {
		return err
	}
	mc, err := a.analyzer.GenerateMarketingCopy(ctx, it)
	if err != nil {
		return err
	}
	if mc == nil {
		return errNoResult
	}
	return a.show(ctx, cmd.OutOrStdout(), mc, func() string { return export.MarketingCopy(*mc) })
}

func runMVP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.library.Find(ctx, args[0])
	if err != nil {
		return err
	}
	plan, err := a.analyzer.GenerateMVPPlan(ctx, it)
	if err != nil {
		return err
	}
	if plan == nil {
		return errNoResult
	}
	return a.show(ctx, cmd.OutOrStdout(), plan, func() string { return export.MVPPlan(*plan) })
}

func findAll(a *app, cmd *cobra.Command, ids []string) ([]idea.Idea, error) {
	out := make([]idea.Idea, 0, len(ids))
	for _, id := range ids {
		it, err := a.library.Find(cmd.Context(), id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func runImage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ideas, err := findAll(a, cmd, args)
	if err != nil {
		return err
	}
	out, err := a.analyzer.GenerateImages(ctx, ideas)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if done, err := emit(w, out); done {
		return err
	}
	for _, it := range out {
		u := it.ImageURL
		switch {
		case u == "":
			u = "(no image)"
		case strings.HasPrefix(u, "data:"):
			u = fmt.Sprintf("(inline image, %d bytes)", len(u))
		}
		fmt.Fprintf(w, "%s\t%s\n", it.ID, u)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ideas, err := findAll(a, cmd, args)
	if err != nil {
		return err
	}
	an := analysis.New(nil, a.licenses, a.library, logger)
	res, err := an.Compare(ctx, ideas)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if done, err := emit(w, res); done {
		return err
	}
	if err := export.Table(w, res.Ideas); err != nil {
		return err
	}
	for _, m := range analysis.Metrics {
		fmt.Fprintf(w, "best %s: %s\n", m, res.Winners[m])
	}
	return nil
}
