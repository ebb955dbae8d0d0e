package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/mcpserver"
	"github.com/starford/tidy/internal/models"
)

func onceCommand() *cli.Command {
	return &cli.Command{
		Name:      "once",
		Usage:     "Organize a folder once and print what moved",
		ArgsUsage: "[PATH]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			comps, err := openComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			target := cmd.Args().First()
			if target == "" {
				target = comps.Config.Organizer.Path
			}
			res, err := comps.Service.Cycle(ctx, target)
			if err != nil {
				return err
			}
			report := res.Report
			if report.Err != nil {
				return report.Err
			}
			if report.Empty() {
				fmt.Println(comps.Catalog.Waiting())
				return nil
			}

			fmt.Println(renderTable(
				[]string{"File", "Kind", "Folder", "Size", "Result"},
				moveRows(append(append([]models.MoveResult(nil), report.Moved...), report.Failed...)),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Printf("moved %d, failed %d in %s\n",
				len(report.Moved), len(report.Failed), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d file(s) could not be moved", len(report.Failed))
			}
			return nil
		},
	}
}

func moveRows(results []models.MoveResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, m := range results {
		result := "moved"
		if m.Error != "" {
			result = m.Error
		}
		rows = append(rows, []string{m.Name, m.Kind, m.Folder, humanize.Bytes(uint64(max(0, m.Size))), result})
	}
	return rows
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Organize a folder every interval until interrupted",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			comps, err := openComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			target := cmd.Args().First()
			if target == "" {
				target = comps.Config.Organizer.Path
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := comps.Rules.Watch(ctx); err != nil {
					comps.Logger.Warn("rules watcher failed", slog.String("error", err.Error()))
				}
			}()

			if err := comps.Organizer.Start(ctx, target); err != nil {
				return err
			}
			st := comps.Organizer.Status()
			fmt.Printf("%s\n%s every %s, Ctrl+C to stop\n", comps.Catalog.Running(), st.Target, st.Interval)

			<-ctx.Done()
			// Quitting while the loop runs stops it first; the move in
			// progress completes.
			if err := comps.Organizer.Stop(); err != nil && !errors.Is(err, apperr.ErrNotRunning) {
				return err
			}
			fmt.Println(comps.Organizer.Status().Message)
			return nil
		},
	}
}

func rulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Show and edit keyword rules",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List rules in priority order",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					comps, err := openComponents(cmd)
					if err != nil {
						return err
					}
					defer comps.Close()
					printRules(comps.Service.Rules(ctx))
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Append a rule",
				ArgsUsage: "KEYWORD FOLDER",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return fmt.Errorf("usage: tidy rules add KEYWORD FOLDER")
					}
					comps, err := openComponents(cmd)
					if err != nil {
						return err
					}
					defer comps.Close()
					if _, _, err := comps.Service.AddRule(ctx, cmd.Args().Get(0), cmd.Args().Get(1)); err != nil {
						return err
					}
					printRules(comps.Service.Rules(ctx))
					return nil
				},
			},
			{
				Name:      "update",
				Usage:     "Replace the rule at INDEX",
				ArgsUsage: "INDEX KEYWORD FOLDER",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 3 {
						return fmt.Errorf("usage: tidy rules update INDEX KEYWORD FOLDER")
					}
					index, err := strconv.Atoi(cmd.Args().Get(0))
					if err != nil {
						return fmt.Errorf("index must be an integer: %w", err)
					}
					comps, err := openComponents(cmd)
					if err != nil {
						return err
					}
					defer comps.Close()
					if _, err := comps.Service.UpdateRule(ctx, index, cmd.Args().Get(1), cmd.Args().Get(2)); err != nil {
						return err
					}
					printRules(comps.Service.Rules(ctx))
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Delete one or more rules",
				ArgsUsage: "INDEX...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Do not ask for confirmation",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() == 0 {
						return fmt.Errorf("usage: tidy rules remove INDEX...")
					}
					indices := make([]int, 0, cmd.NArg())
					for _, arg := range cmd.Args().Slice() {
						i, err := strconv.Atoi(arg)
						if err != nil {
							return fmt.Errorf("index must be an integer: %q", arg)
						}
						indices = append(indices, i)
					}

					comps, err := openComponents(cmd)
					if err != nil {
						return err
					}
					defer comps.Close()

					ok := cmd.Bool("yes")
					if !ok {
						if !isTerminal(os.Stdin) {
							return errNeedsYes
						}
						if ok, err = confirm(os.Stdin, os.Stdout, comps.Catalog.ConfirmRemove()); err != nil {
							return err
						}
						if !ok {
							return nil
						}
					}
					if err := comps.Service.RemoveRules(ctx, indices, ok); err != nil {
						return err
					}
					printRules(comps.Service.Rules(ctx))
					return nil
				},
			},
		},
	}
}

func printRules(list []models.Rule) {
	rows := make([][]string, 0, len(list))
	for i, r := range list {
		rows = append(rows, []string{strconv.Itoa(i), r.Keyword, r.Folder})
	}
	fmt.Println(renderTable([]string{"#", "Keyword", "Folder"}, rows, []columnAlignment{alignRight}))
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Show where files with these names would be moved",
		ArgsUsage: "NAME...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("usage: tidy classify NAME...")
			}
			comps, err := openComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			rows := make([][]string, 0, cmd.NArg())
			for _, name := range cmd.Args().Slice() {
				res, err := comps.Service.Classify(ctx, name)
				if err != nil {
					return err
				}
				rule := ""
				if res.Rule != nil {
					rule = fmt.Sprintf("#%d %q", res.RuleIndex, res.Rule.Keyword)
				}
				rows = append(rows, []string{res.Name, res.Folder, string(res.Kind), rule})
			}
			fmt.Println(renderTable([]string{"File", "Folder", "Kind", "Rule"}, rows, nil))
			return nil
		},
	}
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Show recent moves from the journal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum entries",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Search file names and folders",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Show totals per folder instead",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			comps, err := openComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			if cmd.Bool("stats") {
				stats, err := comps.Service.ActivityStats(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{s.Folder, s.Kind, humanize.Comma(int64(s.Files)), humanize.Bytes(uint64(max(0, s.Bytes)))})
				}
				fmt.Println(renderTable([]string{"Folder", "Kind", "Files", "Size"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
				return nil
			}

			entries, err := comps.Service.Activity(ctx, cmd.String("query"), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := "moved"
				if e.Error != "" {
					result = e.Error
				}
				rows = append(rows, []string{humanize.Time(e.At), e.Name, e.Folder, humanize.Bytes(uint64(max(0, e.Size))), result})
			}
			fmt.Println(renderTable([]string{"When", "File", "Folder", "Size", "Result"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools on stdin/stdout",
		Action: func(_ context.Context, cmd *cli.Command) error {
			comps, err := openComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()
			return mcpserver.New(comps.Service, version).ServeStdio()
		},
	}
}
