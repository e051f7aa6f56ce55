package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"eligibility-signposting/internal/api"
	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/config"
	"eligibility-signposting/internal/derived"
	"eligibility-signposting/internal/eligibility"
	"eligibility-signposting/internal/engine"
	"eligibility-signposting/internal/service"
	"eligibility-signposting/internal/storage"
)

const fixtureID = "fixture"

var rootCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Evaluate vaccination eligibility offline",
	Long: `Runs the eligibility rules against a person fixture and a directory of
campaign config files, without a database.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.SetupLogging(viper.GetString("log-level"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(campaignsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ELIGIBILITY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("campaigns", "campaigns", "directory of campaign config JSON files")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	_ = viper.BindPFlag("campaigns", rootCmd.PersistentFlags().Lookup("campaigns"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func evaluateCmd() *cobra.Command {
	var (
		personPath     string
		conditions     string
		category       string
		includeActions string
		asOf           string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a person fixture against the campaign directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			q, err := service.ParseQuery(includeActions, conditions, category)
			if err != nil {
				return err
			}
			when := time.Now().UTC()
			if asOf != "" {
				d, err := campaign.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				when = d.Time
			}

			p, err := storage.ReadPersonFile(personPath)
			if err != nil {
				return err
			}
			persons := storage.NewMemory()
			persons.PutPerson(fixtureID, p)

			eng := engine.NewEngine()
			if err := eng.BuildSnapshot(ctx, storage.DirSource{Dir: viper.GetString("campaigns")}); err != nil {
				return err
			}

			calc := engine.NewCalculator(derived.Default(), log.Logger)
			svc := service.New(persons, eng, calc).WithClock(func() time.Time { return when })
			res, err := svc.GetEligibilityStatus(ctx, fixtureID, q)
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(api.NewResponse(res, time.Now()))
			}
			printResult(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&personPath, "person", "", "person fixture (YAML list of attribute records)")
	cmd.Flags().StringVar(&conditions, "conditions", "ALL", "comma separated conditions, or ALL")
	cmd.Flags().StringVar(&category, "category", "ALL", "VACCINATIONS, SCREENING or ALL")
	cmd.Flags().StringVar(&includeActions, "include-actions", "Y", "Y or N")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date YYYYMMDD (default today)")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func campaignsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "campaigns",
		Short: "Validate and list the campaign directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := storage.DirSource{Dir: viper.GetString("campaigns")}.LoadCampaignConfigs(context.Background())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(configs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Target", "Type", "Start", "End", "Iterations"})
			for _, c := range configs {
				tw.AppendRow(table.Row{c.ID, c.Target, c.Type, c.StartDate, c.EndDate, len(c.Iterations)})
			}
			tw.Render()
			return nil
		},
	}
}

func printResult(res eligibility.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Condition", "Status", "Cohorts", "Rules", "Actions"})
	for _, c := range res.Conditions {
		var cohorts, rules, actions []string
		for _, g := range c.CohortResults {
			cohorts = append(cohorts, g.CohortCode)
		}
		for _, r := range c.SuitabilityRules {
			rules = append(rules, fmt.Sprintf("%s:%s", r.RuleType, r.RuleCode))
		}
		for _, a := range c.Actions {
			actions = append(actions, a.ActionCode)
		}
		tw.AppendRow(table.Row{c.Name, c.Status, strings.Join(cohorts, "\n"), strings.Join(rules, "\n"), strings.Join(actions, "\n")})
	}
	tw.Render()
	for _, c := range res.Conditions {
		fmt.Printf("%s: %s\n", c.Name, c.StatusText)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
