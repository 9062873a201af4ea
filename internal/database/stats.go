package database

// Stats summarizes the application history for reporting.
type Stats struct {
	Total        int
	ByStatus     map[string]int
	AverageScore float64
	TopCompanies []CompanyCount
}

// CompanyCount is one row of the most-applied-to companies list.
type CompanyCount struct {
	Company string
	Count   int
}

// Stats aggregates totals, per-status counts, the mean match score, and
// the ten companies with the most records.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByStatus: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM applications`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(
		`SELECT COALESCE(AVG(match_score), 0) FROM applications WHERE match_score > 0`,
	).Scan(&stats.AverageScore); err != nil {
		return nil, err
	}

	companies, err := s.db.Query(
		`SELECT company, COUNT(*) AS n FROM applications GROUP BY company ORDER BY n DESC, company ASC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer companies.Close()
	for companies.Next() {
		var cc CompanyCount
		if err := companies.Scan(&cc.Company, &cc.Count); err != nil {
			return nil, err
		}
		stats.TopCompanies = append(stats.TopCompanies, cc)
	}
	return stats, companies.Err()
}
