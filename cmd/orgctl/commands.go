package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/orgledger/orgledger/modules/org/infrastructure/persistence"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/configuration"
	"github.com/orgledger/orgledger/pkg/eventbus"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orgctl",
		Short:         "Operational tooling for the org ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(migrateCmd(), seedCmd(), treeCmd(), historyCmd())
	return root
}

func withPool(ctx context.Context) (context.Context, *pgxpool.Pool, error) {
	conf := configuration.Use()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	return composables.WithPool(ctx, pool), pool, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, pool, err := withPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := persistence.Migrate(ctx, pool); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a small demo organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, pool, err := withPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return seed(ctx, cmd)
		},
	}
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the annotated unit hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, pool, err := withPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			conf := configuration.Use()
			repo := persistence.NewOrgRepository()
			bus := eventbus.NewEventPublisher(conf.Logger())
			tree, err := services.NewHierarchyService(repo, bus).BuildTree(ctx)
			if err != nil {
				return err
			}
			if err := services.NewStatsService(repo).AnnotateTree(ctx, tree); err != nil {
				return err
			}
			for _, root := range tree.Roots {
				printNode(cmd, root)
			}
			if len(tree.Orphans) > 0 {
				cmd.Println("orphans:")
				for _, orphan := range tree.Orphans {
					printNode(cmd, orphan)
				}
			}
			return nil
		},
	}
}

func printNode(cmd *cobra.Command, n *services.TreeNode) {
	indent := strings.Repeat("  ", n.Level)
	cmd.Printf("%s%s  [people: %d, subtree: %d]\n", indent, n.Name, n.PersonCount, n.TotalPersonCount)
	for _, c := range n.Children {
		printNode(cmd, c)
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <lineage-id>",
		Short: "Print the version chain of an assignment lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineageID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("lineage id: %w", err)
			}
			ctx, pool, err := withPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			conf := configuration.Use()
			repo := persistence.NewOrgRepository()
			bus := eventbus.NewEventPublisher(conf.Logger())
			svc := services.NewAssignmentService(repo, bus, services.AssignmentServiceOptions{})
			history, err := svc.GetHistory(ctx, lineageID)
			if err != nil {
				return err
			}
			for _, v := range history {
				validTo := "-"
				if v.ValidTo != nil {
					validTo = v.ValidTo.Format("2006-01-02")
				}
				cmd.Printf("v%d  %s  %s .. %s  %.0f%%\n",
					v.Version, v.Status, v.ValidFrom.Format("2006-01-02"), validTo, v.Percentage*100)
			}
			return nil
		},
	}
}
