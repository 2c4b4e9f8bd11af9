package main

import (
	"context"

	"github.com/shopspring/decimal"

	"supplies-pos/internal/services/pos/handler"
)

var starterCatalog = []handler.ProductInput{
	{Name: "Ballpen (Black)", Category: "Writing", Price: decimal.RequireFromString("12.00"), Stock: 120},
	{Name: "Ballpen (Blue)", Category: "Writing", Price: decimal.RequireFromString("12.00"), Stock: 120},
	{Name: "Pencil No. 2", Category: "Writing", Price: decimal.RequireFromString("8.00"), Stock: 200},
	{Name: "Eraser", Category: "Writing", Price: decimal.RequireFromString("10.00"), Stock: 80},
	{Name: "Spiral Notebook", Category: "Paper", Price: decimal.RequireFromString("45.00"), Stock: 60},
	{Name: "Yellow Pad", Category: "Paper", Price: decimal.RequireFromString("35.00"), Stock: 50},
	{Name: "Bond Paper (Short, 50s)", Category: "Paper", Price: decimal.RequireFromString("60.00"), Stock: 30},
	{Name: "Crayons (16 colors)", Category: "Art", Price: decimal.RequireFromString("85.00"), Stock: 25},
	{Name: "Glue Stick", Category: "Art", Price: decimal.RequireFromString("25.00"), Stock: 40},
	{Name: "Ruler (12 in)", Category: "Tools", Price: decimal.RequireFromString("15.00"), Stock: 70},
	{Name: "Scissors", Category: "Tools", Price: decimal.RequireFromString("55.00"), Stock: 8},
}

// seedCatalog is a no-op once any product exists.
func seedCatalog(ctx context.Context, pos *handler.POSHandler) (int, error) {
	existing, err := pos.AdminListProducts(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, in := range starterCatalog {
		if _, err := pos.CreateProduct(ctx, in); err != nil {
			return 0, err
		}
	}
	return len(starterCatalog), nil
}
