package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"checkout-service/models"
)

type MySQLCatalog struct {
	db *sql.DB
}

func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (r *MySQLCatalog) FindByPriceRefs(ctx context.Context, refs []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(refs))
	if len(refs) == 0 {
		return products, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(refs)), ",")
	args := make([]any, len(refs))
	for i, ref := range refs {
		args[i] = ref
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price_ref, unit_price, currency FROM products WHERE price_ref IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceRef, &p.UnitPrice, &p.Currency); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products[p.PriceRef] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}
