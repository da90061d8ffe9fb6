package store

import (
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

func (s *Store) RecordActivity(a *models.Activity) error {
	query := `
		INSERT INTO activity (kind, product_id, product_sku, product_name, base_url, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := s.DB.Exec(query, a.Kind, a.ProductID, a.ProductSKU, a.ProductName, a.BaseURL, a.Actor)
	return err
}

// RecentActivity lists the newest entries first.
func (s *Store) RecentActivity(limit int) ([]models.Activity, error) {
	query := `
		SELECT id, kind, product_id, product_sku, product_name, base_url, actor, created_at
		FROM activity
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.ProductID, &a.ProductSKU, &a.ProductName, &a.BaseURL, &a.Actor, &a.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
