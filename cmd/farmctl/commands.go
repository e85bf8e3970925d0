package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/dairyfarm/internal/app"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app.App) error {
				if err := a.Store.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "schema up to date")
				return nil
			})
		},
	}
}

func (c *cli) recalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate stored summaries",
	}

	var farm, date string
	daily := &cobra.Command{
		Use:   "daily-milk",
		Short: "Recalculate one farm's daily milk summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			farmID, err := parseFarm(farm)
			if err != nil {
				return err
			}
			day, err := models.ParseDate(date)
			if err != nil {
				return err
			}
			return c.with(cmd.Context(), func(a *app.App) error {
				sum, err := a.Summary.RecalculateDailyMilk(cmd.Context(), farmID, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s %s: %s L from %d cows (version %d)\n",
					farmID, sum.Date, sum.TotalDaily.StringFixed(2), sum.CowsMilked, sum.Version)
				return nil
			})
		},
	}
	daily.Flags().StringVar(&farm, "farm", "", "farm id")
	daily.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD")
	_ = daily.MarkFlagRequired("farm")
	_ = daily.MarkFlagRequired("date")

	var monthFarm string
	var year, month int
	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Recalculate one farm's monthly financial summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			farmID, err := parseFarm(monthFarm)
			if err != nil {
				return err
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("month %d is not between 1 and 12", month)
			}
			return c.with(cmd.Context(), func(a *app.App) error {
				sum, err := a.Summary.RecalculateMonthlyFinancial(cmd.Context(), farmID, year, month)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s %04d-%02d: income %s, expenses %s, net %s (version %d)\n",
					farmID, sum.Year, sum.Month, sum.TotalIncome.StringFixed(2), sum.TotalExpenses.StringFixed(2),
					sum.NetProfit.StringFixed(2), sum.Version)
				return nil
			})
		},
	}
	monthly.Flags().StringVar(&monthFarm, "farm", "", "farm id")
	monthly.Flags().IntVar(&year, "year", time.Now().Year(), "year")
	monthly.Flags().IntVar(&month, "month", int(time.Now().Month()), "month, 1-12")
	_ = monthly.MarkFlagRequired("farm")

	var allDate string
	all := &cobra.Command{
		Use:   "all",
		Short: "Recalculate every active farm for a day and its month",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := models.Today(time.Now()).AddDays(-1)
			if allDate != "" {
				d, err := models.ParseDate(allDate)
				if err != nil {
					return err
				}
				day = d
			}
			return c.with(cmd.Context(), func(a *app.App) error {
				res, err := a.Summary.RecalculateAllForDate(cmd.Context(), day)
				fmt.Fprintf(c.out, "%s: %d farms, %d daily, %d monthly\n", day, res.Farms, res.Daily, res.Monthly)
				return err
			})
		},
	}
	all.Flags().StringVar(&allDate, "date", "", "day as YYYY-MM-DD, defaults to yesterday")

	cmd.AddCommand(daily, monthly, all)
	return cmd
}

func (c *cli) browseCmd() *cobra.Command {
	var (
		filters  []string
		search   string
		ordering string
		limit    int
		offset   int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "browse <resource>",
		Short: "List the records of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := models.ListQuery{Filters: map[string]string{}, Search: search, Ordering: ordering, Limit: limit, Offset: offset}
			for _, f := range filters {
				key, value, ok := strings.Cut(f, "=")
				if !ok || key == "" {
					return fmt.Errorf("filter %q is not key=value", f)
				}
				q.Filters[key] = value
			}
			return c.with(cmd.Context(), func(a *app.App) error {
				page, err := a.Registry.Browse(cmd.Context(), args[0], q)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(c.out)
					enc.SetIndent("", "  ")
					return enc.Encode(page)
				}
				w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				columns := append([]string{"id"}, page.Columns...)
				fmt.Fprintln(w, strings.ToUpper(strings.Join(columns, "\t")))
				for _, row := range page.Rows {
					cells := make([]string, len(columns))
					for i, col := range columns {
						cells[i] = cell(row[col])
					}
					fmt.Fprintln(w, strings.Join(cells, "\t"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%d of %d\n", len(page.Rows), page.Count)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as key=value, repeatable")
	cmd.Flags().StringVar(&search, "search", "", "search text")
	cmd.Flags().StringVar(&ordering, "ordering", "", "ordering, prefix with - for descending")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *cli) resourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List browsable resources and their actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app.App) error {
				w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RESOURCE\tFILTERS\tACTIONS")
				for _, r := range a.Registry.Resources() {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, strings.Join(r.Filters, ","), strings.Join(r.Actions, ","))
				}
				return w.Flush()
			})
		},
	}
}

func (c *cli) alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Run the alert checks once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app.App) error {
				res, err := a.Alerts.Sweep(cmd.Context())
				fmt.Fprintf(c.out, "calvings %d, follow-ups %d, low stock %d\n", res.Calvings, res.FollowUps, res.LowStock)
				return err
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var farm, date string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived versions of a daily milk summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			farmID, err := parseFarm(farm)
			if err != nil {
				return err
			}
			day, err := models.ParseDate(date)
			if err != nil {
				return err
			}
			return c.with(cmd.Context(), func(a *app.App) error {
				if a.Archive == nil {
					return fmt.Errorf("no summary archive configured, set MONGODB_URI")
				}
				docs, err := a.Archive.DailyMilkHistory(cmd.Context(), farmID, day)
				if err != nil {
					return err
				}
				for _, d := range docs {
					fmt.Fprintf(c.out, "v%d %s %s L\n", d.Version, d.ComputedAt.Format(time.RFC3339), d.TotalDaily)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&farm, "farm", "", "farm id")
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("farm")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func parseFarm(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("farm %q is not a uuid", raw)
	}
	return id, nil
}
