package store

import (
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

type DashboardStats struct {
	ProductUpdates  int
	SettingsUpdates int
	ActivityByActor map[string]int
	Recent          []models.Activity
}

const recentActivityLimit = 10

func (s *Store) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{
		ActivityByActor: make(map[string]int),
	}

	// 1. Totals per kind
	rows, err := s.DB.Query("SELECT kind, COUNT(*) FROM activity GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		switch kind {
		case models.ActivityProductUpdate:
			stats.ProductUpdates = count
		case models.ActivitySettingsUpdate:
			stats.SettingsUpdates = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Per actor
	actorRows, err := s.DB.Query("SELECT actor, COUNT(*) FROM activity GROUP BY actor")
	if err != nil {
		return nil, err
	}
	defer actorRows.Close()
	for actorRows.Next() {
		var actor string
		var count int
		if err := actorRows.Scan(&actor, &count); err != nil {
			return nil, err
		}
		stats.ActivityByActor[actor] = count
	}
	if err := actorRows.Err(); err != nil {
		return nil, err
	}

	// 3. Latest entries
	stats.Recent, err = s.RecentActivity(recentActivityLimit)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
