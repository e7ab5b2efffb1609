// cmd/flipflow/main.go — operator CLI for the lifecycle engine.
//
// The CLI builds the same engine the daemon runs (mock mode uses the
// in-memory store and fixture gateway, other modes Postgres and the live
// client) and drives single policy runs from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"flipflow/internal/config"
	"flipflow/internal/engine"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/gateway"
	"flipflow/internal/gateway/ebay"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/internal/store/postgres"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "flipflow",
		Short:        "Marketplace listing lifecycle engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(
		profitCmd(&configFile),
		titleCmd(&configFile),
		zombiesCmd(&configFile),
		queueCmd(&configFile),
		repriceCmd(&configFile),
		offersCmd(&configFile),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine wires store + gateway + engine from config, mirroring the
// daemon's startup. The caller must Close the returned store.
func buildEngine(configFile string) (*engine.Engine, store.Store, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var st store.Store
	var gw gateway.Gateway
	if cfg.Ebay.Mode == "mock" {
		st = store.NewMemory()
		gw = mock.NewWithFixtures()
	} else {
		pg, err := postgres.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st = pg
		client, err := ebay.NewClient(cfg, logger)
		if err != nil {
			pg.Close()
			return nil, nil, err
		}
		gw = client
	}

	eng, err := engine.New(cfg, st, gw, logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return eng, st, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func profitCmd(configFile *string) *cobra.Command {
	var sale, cost, shipping string
	var adRate float64

	cmd := &cobra.Command{
		Use:   "profit",
		Short: "Calculate net profit after fees",
		RunE: func(_ *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			salePrice, err := decimal.NewFromString(sale)
			if err != nil {
				return fmt.Errorf("invalid --sale: %w", err)
			}
			costPrice, err := decimal.NewFromString(cost)
			if err != nil {
				return fmt.Errorf("invalid --cost: %w", err)
			}
			shippingCost, err := decimal.NewFromString(shipping)
			if err != nil {
				return fmt.Errorf("invalid --shipping: %w", err)
			}

			breakdown := eng.Profit().Calculate(gatekeeper.ProfitInput{
				SalePrice:     salePrice,
				PurchasePrice: costPrice,
				ShippingCost:  shippingCost,
				AdRatePercent: adRate,
			})
			return printJSON(breakdown)
		},
	}
	cmd.Flags().StringVar(&sale, "sale", "0", "sale price")
	cmd.Flags().StringVar(&cost, "cost", "0", "purchase cost")
	cmd.Flags().StringVar(&shipping, "shipping", "0", "shipping cost")
	cmd.Flags().Float64Var(&adRate, "ad-rate", 0, "promoted listing ad rate percent")
	return cmd
}

func titleCmd(configFile *string) *cobra.Command {
	var brand, model string

	cmd := &cobra.Command{
		Use:   "title [raw title]",
		Short: "Sanitize a listing title",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			result := eng.Titles().Sanitize(gatekeeper.TitleRequest{
				Title: args[0],
				Brand: brand,
				Model: model,
			})
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "brand to front-load")
	cmd.Flags().StringVar(&model, "model", "", "model to front-load")
	return cmd
}

func zombiesCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zombies",
		Short: "Detect and resurrect stale listings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Scan active listings for zombies",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := eng.ScanZombies(c.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	})

	var listingID int64
	resurrect := &cobra.Command{
		Use:   "resurrect",
		Short: "Run the kill-and-clone pipeline for one listing",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := eng.Resurrect(c.Context(), listingID)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	resurrect.Flags().Int64Var(&listingID, "id", 0, "listing id")
	resurrect.MarkFlagRequired("id")
	cmd.AddCommand(resurrect)

	return cmd
}

func queueCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "SmartQueue operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show queue counts and surge window state",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			status, err := eng.QueueStatus(c.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	})

	var dryRun bool
	release := &cobra.Command{
		Use:   "release",
		Short: "Release the next pending batch",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			released, err := eng.ReleaseBatch(c.Context(), dryRun)
			if err != nil {
				return err
			}
			return printJSON(released)
		},
	}
	release.Flags().BoolVar(&dryRun, "dry-run", false, "select without publishing")
	cmd.AddCommand(release)

	return cmd
}

func repriceCmd(configFile *string) *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "reprice",
		Short: "Apply the markdown ladder to active listings",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			if preview {
				report, err := eng.PreviewReprice(c.Context())
				if err != nil {
					return err
				}
				return printJSON(report)
			}
			report, err := eng.RunRepricer(c.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "compute without mutating")
	return cmd
}

func offersCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "Watcher offer operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Send tiered offers to watchers",
		RunE: func(c *cobra.Command, _ []string) error {
			eng, st, err := buildEngine(*configFile)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := eng.RunOfferScan(c.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	})

	return cmd
}
