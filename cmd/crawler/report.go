package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/store"
)

var reportTopN int

var titleColor = color.New(color.FgCyan, color.Bold)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a Markdown summary of the most-referenced packages crawled so far",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		backend := store.NewRedisBackend(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB)
		st := store.New(backend, store.RetryConfig{Attempts: cfg.Store.RetryAttempts, Delay: cfg.Store.RetryDelay})

		ctx := context.Background()
		md, err := renderTopPackages(ctx, st, reportTopN)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}

		titleColor.Println("countpkg report")
		out, err := glamour.Render(md, "dark")
		if err != nil {
			fmt.Println(md)
			return nil
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVarP(&reportTopN, "top", "n", 20, "number of packages to include")
}

func renderTopPackages(ctx context.Context, st *store.Store, topN int) (string, error) {
	names, err := st.QueryAllNames(ctx, "pkg")
	if err != nil {
		return "", fmt.Errorf("failed to list packages: %w", err)
	}

	packages := make([]*model.Package, 0, len(names))
	for _, name := range names {
		pkg := model.NewPackage(name)
		if err := st.Load(ctx, pkg.Record(), pkg); err != nil {
			return "", fmt.Errorf("failed to load package %q: %w", name, err)
		}
		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].NumRepos() > packages[j].NumRepos()
	})
	if topN > 0 && len(packages) > topN {
		packages = packages[:topN]
	}

	var b strings.Builder
	b.WriteString("# Top packages\n\n")
	b.WriteString("| Package | Repos | Source files | Requirements files |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, pkg := range packages {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n",
			pkg.Name(), pkg.NumRepos(), pkg.NumPyfiles(), pkg.NumReqfiles())
	}
	return b.String(), nil
}
