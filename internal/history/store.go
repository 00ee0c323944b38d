package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/pushhub/pkg/event"
	"github.com/nao1215/pushhub/pkg/migration"
	_ "modernc.org/sqlite"
)

// DefaultDSN はインメモリDBを指すデフォルトの接続文字列。
const DefaultDSN = ":memory:"

// DefaultLimit は取得件数が指定されない場合の上限。
const DefaultLimit = 50

// MaxLimit は1回に取得できる件数の上限。
const MaxLimit = 500

//go:embed migrations/*.up.sql
var migrations embed.FS

// ErrNilEvent はnilのイベントを追記しようとした場合のエラー。
var ErrNilEvent = errors.New("イベントがnilです")

// Store はイベント履歴のSQLiteストア。
type Store struct {
	db *sql.DB
}

// Open はdsnのSQLiteを開き、スキーマを適用したStoreを返す。
// dsnが空の場合はインメモリDBを使用する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// インメモリDBは接続ごとに別DBになるため1接続に固定する
	db.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, db, migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Append はイベントを追記する。
func (s *Store) Append(ctx context.Context, e *event.Event) error {
	if e == nil {
		return ErrNilEvent
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.AggregateID, string(e.AggregateType), string(e.EventType),
		string(e.Data), e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	return nil
}

// List は新しい順に最大limit件のイベントを返す。
func (s *Store) List(ctx context.Context, limit int) ([]*event.Event, error) {
	return s.query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, data, created_at
		FROM events ORDER BY seq DESC LIMIT ?`, normalizeLimit(limit))
}

// ListByType は指定タイプのイベントを新しい順に最大limit件返す。
func (s *Store) ListByType(ctx context.Context, eventType event.Type, limit int) ([]*event.Event, error) {
	return s.query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, data, created_at
		FROM events WHERE event_type = ? ORDER BY seq DESC LIMIT ?`,
		string(eventType), normalizeLimit(limit))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var (
			e                                 event.Event
			aggregateType, eventType, data, t string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &aggregateType, &eventType, &data, &t); err != nil {
			return nil, fmt.Errorf("イベントの読み込みに失敗: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("作成日時のパースに失敗: %w", err)
		}
		e.AggregateType = event.AggregateType(aggregateType)
		e.EventType = event.Type(eventType)
		e.Data = []byte(data)
		e.CreatedAt = createdAt
		events = append(events, &e)
	}
	return events, rows.Err()
}

// normalizeLimit は取得件数を1からMaxLimitの範囲に収める。
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
