package mysql

import (
	"context"
	"database/sql"
	"errors"

	"tavern-bot/internal/domain"
)

type MySQLPriceRepository struct {
	db *sql.DB
}

func NewMySQLPriceRepository(db *sql.DB) *MySQLPriceRepository {
	return &MySQLPriceRepository{db: db}
}

func (r *MySQLPriceRepository) GetItem(ctx context.Context, key string) (*domain.PricedItem, error) {
	query := `
        SELECT item_key, category, average_cost, low_cost, high_cost, restricted
        FROM priced_items
        WHERE item_key = ?
    `

	var item domain.PricedItem
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&item.Key, &item.Category,
		&item.AverageCost, &item.LowCost, &item.HighCost, &item.Restricted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &item, nil
}

func (r *MySQLPriceRepository) ListItems(ctx context.Context) ([]*domain.PricedItem, error) {
	query := `
        SELECT item_key, category, average_cost, low_cost, high_cost, restricted
        FROM priced_items
        ORDER BY item_key ASC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.PricedItem
	for rows.Next() {
		var item domain.PricedItem
		err := rows.Scan(&item.Key, &item.Category,
			&item.AverageCost, &item.LowCost, &item.HighCost, &item.Restricted)
		if err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *MySQLPriceRepository) UpsertItem(ctx context.Context, item *domain.PricedItem) error {
	query := `
        INSERT INTO priced_items (item_key, category, average_cost, low_cost, high_cost, restricted)
        VALUES (?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            category = VALUES(category),
            average_cost = VALUES(average_cost),
            low_cost = VALUES(low_cost),
            high_cost = VALUES(high_cost),
            restricted = VALUES(restricted)
    `
	_, err := r.db.ExecContext(ctx, query,
		item.Key, item.Category,
		item.AverageCost, item.LowCost, item.HighCost, item.Restricted)
	return err
}
