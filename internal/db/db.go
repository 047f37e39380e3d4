// Package db is the optional Postgres archive. The API works entirely
// without it; it only runs when DATABASE_URL is configured, keeping a
// history of aggregated items beyond the live 100-item window.
package db

import (
	"context"
	"fmt"
	"time"

	"regwatch/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database wraps the pgx connection pool.
type Database struct {
	Pool *pgxpool.Pool
}

// New creates a connection pool for connString.
func New(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Database{Pool: pool}, nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

// CreateSchema creates the archive tables if they do not exist.
func (db *Database) CreateSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS news_items (
            id SERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            link VARCHAR(2048) UNIQUE NOT NULL,
            pub_date TIMESTAMP WITH TIME ZONE NOT NULL,
            source TEXT NOT NULL,
            content_snippet TEXT,
            category TEXT,
            archived_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS feedback (
            id SERIAL PRIMARY KEY,
            client_ip VARCHAR(45) NOT NULL,
            message TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	return err
}

// SaveNewsItem archives one aggregated item. Items already seen (same
// link) are ignored.
func (db *Database) SaveNewsItem(ctx context.Context, item models.NewsItem) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO news_items (title, link, pub_date, source, content_snippet, category)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (link) DO NOTHING
    `, item.Title, item.Link, item.Published, item.Source, item.ContentSnippet, item.Category)
	return err
}

// SaveFeedback stores one sanitized user submission.
func (db *Database) SaveFeedback(ctx context.Context, clientIP, message string) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO feedback (client_ip, message)
        VALUES ($1, $2)
    `, clientIP, message)
	return err
}

// RecentNews returns up to limit archived items, newest first.
func (db *Database) RecentNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT title, link, pub_date, source, COALESCE(content_snippet, ''), COALESCE(category, '')
        FROM news_items
        ORDER BY pub_date DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.NewsItem
	for rows.Next() {
		var item models.NewsItem
		if err := rows.Scan(&item.Title, &item.Link, &item.Published, &item.Source, &item.ContentSnippet, &item.Category); err != nil {
			return nil, err
		}
		item.PubDate = item.Published.UTC().Format(time.RFC3339)
		items = append(items, item)
	}
	return items, rows.Err()
}
