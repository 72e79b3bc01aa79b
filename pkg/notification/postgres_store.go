package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage persists notification history in PostgreSQL.
// Metadata and DeliveryInfo are stored as JSONB. The schema is created by
// the goose migration in migrations/.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification store on the
// given connection pool.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	return &PostgresStorage{pool: pool}, nil
}

const notificationColumns = `id, user_id, type, title, message, status, metadata,
	created_at, sent_at, delivered_at, read_at, error_message, delivery_info`

func (s *PostgresStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrIDRequired
	}

	meta, err := marshalJSONMap(n.Metadata)
	if err != nil {
		return err
	}
	info, err := marshalJSONMap(n.DeliveryInfo)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, string(n.Status),
		meta, n.CreatedAt, n.SentAt, n.DeliveredAt, n.ReadAt,
		nullableString(n.ErrorMessage), info,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func (s *PostgresStorage) Update(ctx context.Context, n Notification) error {
	info, err := marshalJSONMap(n.DeliveryInfo)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, sent_at = $3, delivered_at = $4, read_at = $5,
			error_message = $6, delivery_info = $7
		WHERE id = $1`,
		n.ID, string(n.Status), n.SentAt, n.DeliveredAt, n.ReadAt,
		nullableString(n.ErrorMessage), info,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}

	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	if result == nil {
		result = []Notification{}
	}
	return result, nil
}

func (s *PostgresStorage) CountByStatus(ctx context.Context, userID string, status Status) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, string(status),
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return count, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		n      Notification
		typ    string
		status string
		meta   []byte
		info   []byte
		errMsg *string
		sentAt *time.Time
		deliv  *time.Time
		readAt *time.Time
	)

	if err := row.Scan(
		&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &status, &meta,
		&n.CreatedAt, &sentAt, &deliv, &readAt, &errMsg, &info,
	); err != nil {
		return nil, err
	}

	n.Type = Type(typ)
	n.Status = Status(status)
	n.SentAt = sentAt
	n.DeliveredAt = deliv
	n.ReadAt = readAt
	if errMsg != nil {
		n.ErrorMessage = *errMsg
	}

	if err := unmarshalJSONMap(meta, &n.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalJSONMap(info, &n.DeliveryInfo); err != nil {
		return nil, err
	}

	return &n, nil
}

func marshalJSONMap(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return b, nil
}

func unmarshalJSONMap(b []byte, dst *map[string]any) error {
	if len(b) == 0 || strings.TrimSpace(string(b)) == "{}" {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
