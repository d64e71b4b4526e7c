package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"umn-housing-scraper/models"
)

// PostgresWriter mirrors the combined listing set into PostgreSQL. Inserts
// use ON CONFLICT DO NOTHING on listing_id, so the database stays
// first-seen-wins like the accumulator.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			listing_id          TEXT PRIMARY KEY,
			building_name       TEXT NOT NULL DEFAULT '',
			full_address        TEXT NOT NULL DEFAULT '',
			city                TEXT NOT NULL DEFAULT '',
			zip                 VARCHAR(10) NOT NULL DEFAULT '',
			lat                 DOUBLE PRECISION,
			lon                 DOUBLE PRECISION,
			dist_to_campus_km   NUMERIC(6,2),
			unit_label          TEXT NOT NULL DEFAULT '',
			beds                NUMERIC(4,1),
			baths               NUMERIC(4,1),
			sqft                INTEGER,
			rent_raw            TEXT NOT NULL DEFAULT '',
			rent_min            NUMERIC(10,2),
			rent_max            NUMERIC(10,2),
			price_type          VARCHAR(20) NOT NULL DEFAULT 'unknown',
			is_per_bed          BOOLEAN NOT NULL DEFAULT FALSE,
			is_student_branded  BOOLEAN NOT NULL DEFAULT FALSE,
			scrape_date         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			source_url          TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_listings_rent_min ON listings(rent_min);
		CREATE INDEX IF NOT EXISTS idx_listings_beds     ON listings(beds);
		CREATE INDEX IF NOT EXISTS idx_listings_dist     ON listings(dist_to_campus_km);
	`)
	return err
}

// Write batch-inserts new listings, leaving already-stored rows untouched.
func (pw *PostgresWriter) Write(listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []models.Listing) error {
	const cols = 20
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, l := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for p := 0; p < cols; p++ {
			placeholders[p] = fmt.Sprintf("$%d", base+p+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.ListingID, l.BuildingName, l.FullAddress, l.City, l.Zip,
			nullFloat(l.Lat), nullFloat(l.Lon), nullFloat(l.DistToCampusKm),
			l.UnitLabel, nullFloat(l.Beds), nullFloat(l.Baths), nullInt(l.Sqft),
			l.RentRaw, nullFloat(l.RentMin), nullFloat(l.RentMax), string(l.PriceType),
			l.IsPerBed, l.IsStudentBranded, l.ScrapeDate, l.SourceURL)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (
			listing_id, building_name, full_address, city, zip,
			lat, lon, dist_to_campus_km,
			unit_label, beds, baths, sqft,
			rent_raw, rent_min, rent_max, price_type,
			is_per_bed, is_student_branded, scrape_date, source_url
		)
		VALUES %s
		ON CONFLICT (listing_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
