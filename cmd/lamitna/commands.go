package main

import (
	"lamitna/internal/app"
	"lamitna/internal/catalog"

	"github.com/spf13/cobra"
)

func init() {
	var (
		opts  app.MenuOptions
		useDB bool
	)
	menuCmd := &cobra.Command{
		Use:   "menu",
		Short: "Generate a menu and grocery list",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), opts.UseAI && useDB)
			if err != nil {
				return err
			}
			defer e.close()
			return e.app.GenerateMenu(cmd.Context(), opts)
		},
	}
	menuCmd.Flags().StringVarP(&opts.Cuisine, "cuisine", "c", catalog.Mixed, "Cuisine id (see `lamitna cuisines`)")
	menuCmd.Flags().IntVarP(&opts.Guests, "guests", "g", 4, "Number of guests")
	menuCmd.Flags().StringVar(&opts.MealType, "meal", "iftar", "Meal type: iftar, suhoor or both")
	menuCmd.Flags().StringVar(&opts.Mood, "mood", "", "Gathering mood, e.g. cozy or fancy")
	menuCmd.Flags().StringVar(&opts.Effort, "effort", "", "Cooking effort, e.g. simple or all_out")
	menuCmd.Flags().StringVar(&opts.Dietary, "dietary", "", "Dietary need, e.g. vegetarian")
	menuCmd.Flags().BoolVar(&opts.UseAI, "ai", false, "Ask the AI chef first")
	menuCmd.Flags().BoolVar(&useDB, "record", false, "Record AI generation metrics in the database")

	var groceryCuisine string
	groceryCmd := &cobra.Command{
		Use:   "grocery",
		Short: "Print a suggested grocery list",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()
			return e.app.PrintGroceryList(groceryCuisine)
		},
	}
	groceryCmd.Flags().StringVarP(&groceryCuisine, "cuisine", "c", catalog.Mixed, "Cuisine id")

	cuisinesCmd := &cobra.Command{
		Use:   "cuisines",
		Short: "List the offered cuisines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()
			return e.app.ListCuisines()
		},
	}

	var usageDays int
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Show AI and fallback generations per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()
			return e.app.ShowUsage(cmd.Context(), usageDays)
		},
	}
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "Number of days to report")

	var cleanupDays int
	cleanupCmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Delete generation metrics older than N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()
			return e.app.CleanupMetrics(cmd.Context(), cleanupDays)
		},
	}
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep metrics newer than this many days")

	rootCmd.AddCommand(menuCmd, groceryCmd, cuisinesCmd, usageCmd, cleanupCmd)
}
