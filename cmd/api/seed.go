package main

import (
	"encoding/json"
	"fmt"
	"os"

	"fulfillment-engine/internal/core/logger"
	customeradapter "fulfillment-engine/internal/features/customers/adapters"
	customers "fulfillment-engine/internal/features/customers/domain"
	inventoryadapter "fulfillment-engine/internal/features/inventory/adapters"
	inventory "fulfillment-engine/internal/features/inventory/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// catalog is the seed file layout.
type catalog struct {
	Products  []inventory.Product  `json:"products"`
	Customers []customers.Customer `json:"customers"`
}

func seedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load products and customer accounts from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap(configDir)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer db.Close()

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var data catalog
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}

			ctx := cmd.Context()
			products := inventoryadapter.NewRedisProductStore(db)
			for i := range data.Products {
				if err := products.Save(ctx, &data.Products[i]); err != nil {
					return err
				}
			}

			directory := customeradapter.NewRedisDirectory(db)
			for i := range data.Customers {
				if err := directory.Save(ctx, &data.Customers[i]); err != nil {
					return err
				}
			}

			logger.Get().Info("Seed complete",
				zap.String("file", file),
				zap.Int("products", len(data.Products)),
				zap.Int("customers", len(data.Customers)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seed/catalog.json", "seed file path")
	return cmd
}
