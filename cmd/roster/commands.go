/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/tomoncle/roster"
	"github.com/tomoncle/roster/config"
	"github.com/tomoncle/roster/database"
	"github.com/tomoncle/roster/dto"
	"github.com/tomoncle/roster/types"
	"github.com/tomoncle/roster/utils"
	"github.com/uptrace/bun"
)

var registerOnce sync.Once

type app struct {
	configPath string
	cfg        *config.Config
	db         *bun.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "roster",
		Short:         "Team and member roster backed by bun",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return database.CloseDB()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.membersCmd(),
		a.healthCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	utils.ConfigureOutput(os.Stderr)
	cfg.ApplyLogging()
	registerOnce.Do(func() { roster.RegisterSchema(database.DefaultRegistry()) })

	db, err := database.InitDB(ctx, cfg.DatabaseConfig())
	if err != nil {
		return err
	}
	a.cfg, a.db = cfg, db
	return nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := database.RunMigrations(ctx); err != nil {
				return err
			}
			applied, err := database.NewMigrationManager(a.db, database.GetLogger(), database.DefaultRegistry(), a.cfg.DatabaseConfig()).
				GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			for _, m := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Version, m.Name)
			}
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run the registered data seeders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seeded")
			return nil
		},
	}
}

type listFlags struct {
	age  int
	page int
	size int
	sort []string
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.age, "age", 0, "members of exactly this age")
	cmd.Flags().IntVar(&f.page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&f.size, "size", 10, "page size")
	cmd.Flags().StringSliceVar(&f.sort, "sort", []string{"username,desc"}, "sort expression, e.g. username,desc")
}

func (f *listFlags) request() *types.PageRequest {
	return types.NewPageRequestWithSort(f.page, f.size, types.ParseSort(f.sort...))
}

func (a *app) membersCmd() *cobra.Command {
	members := &cobra.Command{
		Use:   "members",
		Short: "List members by age",
	}

	var pf listFlags
	page := &cobra.Command{
		Use:   "page",
		Short: "Print one page of members with the total count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := roster.NewMemberService(a.db).PageDto(cmd.Context(), pf.age, pf.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printMembers(out, p.Items)
			fmt.Fprintf(out, "page %d/%d, total %d\n", p.Page+1, p.TotalPages(), p.Total)
			return nil
		},
	}
	pf.bind(page)

	var sf listFlags
	slice := &cobra.Command{
		Use:   "slice",
		Short: "Print one window of members without counting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := roster.NewMemberService(a.db).SliceDto(cmd.Context(), sf.age, sf.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printMembers(out, s.Items)
			fmt.Fprintf(out, "page %d, has next: %t\n", s.Page+1, s.HasNext())
			return nil
		},
	}
	sf.bind(slice)

	members.AddCommand(page, slice)
	return members
}

func printMembers(w io.Writer, items []*dto.MemberDto) {
	for _, m := range items {
		team, ok := m.TeamName()
		if !ok {
			team = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", m.ID(), m.Username(), team)
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print the database health status as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := database.GetHealthStatus(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("database unhealthy: %s", status.LastError)
			}
			return nil
		},
	}
}
