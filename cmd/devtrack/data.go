package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/actionsum/devtrack/internal/project"
	"github.com/actionsum/devtrack/internal/reporter"
	"github.com/actionsum/devtrack/pkg/utils"

	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Scan directories for projects and register them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			roots := args
			if len(roots) == 0 {
				roots = cfg.Projects.ScanRoots
			}
			if len(roots) == 0 {
				return fmt.Errorf("no scan roots given and none configured")
			}

			depth, _ := cmd.Flags().GetInt("depth")

			db, repo, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			r := project.NewResolver(repo, project.Options{
				MaxAscent:        cfg.Projects.MaxAscent,
				ResolveThreshold: cfg.Projects.ResolveThreshold,
				ScanThreshold:    cfg.Projects.ScanThreshold,
				ScanDepth:        depth,
			})
			defer r.Wait()

			found, err := r.Scan(cmd.Context(), roots)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			fmt.Printf("Found %d projects\n", len(found))
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, p := range found {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", p.Name, strings.Join(p.Tags, ","), p.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("depth", 3, "Maximum directory depth below each root")
	return cmd
}

func projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, repo, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			projects, err := repo.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("No projects registered")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTAGS\tLAST ACTIVE\tPATH")
			for _, p := range projects {
				ago := int64(time.Since(p.UpdatedAt).Seconds())
				fmt.Fprintf(w, "%s\t%s\t%s ago\t%s\n",
					utils.Truncate(p.Name, 30), strings.Join(p.Tags, ","), utils.FormatRoundedUnit(ago), p.Path)
			}
			return w.Flush()
		},
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Generate a time report",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "today", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("include-idle") {
				includeIdle, _ := cmd.Flags().GetBool("include-idle")
				cfg.Report.ExcludeIdle = !includeIdle
			}

			db, repo, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			rep := reporter.New(cfg, repo)
			report, err := rep.GenerateReport(cmd.Context(), periodType)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				jsonStr, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Println(jsonStr)
				return nil
			}

			fmt.Print(rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Output JSON")
	cmd.Flags().Bool("include-idle", false, "Include idle intervals")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := db.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Printf("Database %s is at schema version %d\n", db.Path(), v)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded activity and error logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				fmt.Print("This will delete all tracking data. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			db, repo, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repo.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear database: %w", err)
			}

			fmt.Println("Database cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
