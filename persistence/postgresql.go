// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/wfunc/trivia/models"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// PostgreSQL 数据库实现. It shares the game_records layout with the GORM
// store, so either can read what the other wrote.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	// 创建游戏记录表
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_id TEXT NOT NULL,
            visibility TEXT NOT NULL,
            winner TEXT,
            players JSONB NOT NULL,
            rounds BIGINT DEFAULT 0,
            tie_break BOOLEAN DEFAULT false,
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ,
            duration BIGINT DEFAULT 0
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_winner ON game_records(winner);
        CREATE INDEX IF NOT EXISTS idx_game_records_deleted_at ON game_records(deleted_at);
    `)

	return err
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, rec *models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO game_records
            (room_id, visibility, winner, players, rounds, tie_break, started_at, finished_at, duration)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err = p.db.ExecContext(ctx, query,
		rec.RoomID,
		rec.Visibility,
		rec.Winner,
		players,
		rec.Rounds,
		rec.TieBreak,
		rec.StartedAt,
		rec.FinishedAt,
		int64(rec.Duration().Seconds()))

	return err
}

func (p *PostgreSQL) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	query := `
        SELECT room_id, visibility, winner, players, rounds, tie_break, started_at, finished_at
        FROM game_records
        WHERE deleted_at IS NULL
        ORDER BY finished_at DESC
        LIMIT $1
    `
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		var (
			rec     models.GameRecord
			winner  sql.NullString
			players []byte
		)
		if err := rows.Scan(&rec.RoomID, &rec.Visibility, &winner, &players,
			&rec.Rounds, &rec.TieBreak, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Winner = winner.String
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
