package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const logCols = `id, user_id, action, resource_type, resource_id, old_values, new_values,
	ip_address, user_agent, endpoint, method, request_id, timestamp`

func (r *repoPG) Create(ctx context.Context, l *Log) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_logs (
			id, user_id, action, resource_type, resource_id, old_values, new_values,
			ip_address, user_agent, endpoint, method, request_id, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		l.ID, l.UserID, l.Action, l.ResourceType, l.ResourceID, l.OldValues, l.NewValues,
		l.IPAddress, l.UserAgent, l.Endpoint, l.Method, l.RequestID, l.Timestamp,
	)
	return err
}

func (r *repoPG) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*Log, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE resource_type = $1 AND resource_id = $2`,
		resourceType, resourceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM audit_logs
		 WHERE resource_type = $1 AND resource_id = $2
		 ORDER BY timestamp DESC LIMIT $3 OFFSET $4`,
		resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectLogs(rows, total)
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.From != nil {
		add("timestamp >= $%d", *f.From)
	}
	if f.To != nil {
		add("timestamp <= $%d", *f.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM audit_logs%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
			logCols, where, len(args)+1, len(args)+2),
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectLogs(rows, total)
}

var sensitiveActions = []string{ActionDelete, ActionPurge, ActionReopen}

func (r *repoPG) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	s := &Summary{
		ByAction: make(map[string]int),
		ByUser:   make(map[string]int),
		From:     from,
		To:       to,
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT action, COUNT(*) FROM audit_logs
		WHERE timestamp >= $1 AND timestamp <= $2
		GROUP BY action`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		s.ByAction[action] = count
		s.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	userRows, err := r.conn(ctx).Query(ctx, `
		SELECT user_id, COUNT(*) FROM audit_logs
		WHERE timestamp >= $1 AND timestamp <= $2
		GROUP BY user_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer userRows.Close()
	for userRows.Next() {
		var user string
		var count int
		if err := userRows.Scan(&user, &count); err != nil {
			return nil, err
		}
		s.ByUser[user] = count
	}
	if err := userRows.Err(); err != nil {
		return nil, err
	}

	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE timestamp >= $1 AND timestamp <= $2 AND action = ANY($3)`,
		from, to, sensitiveActions).Scan(&s.SensitiveActions); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *repoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectLogs(rows pgx.Rows, total int) ([]*Log, int, error) {
	var logs []*Log
	for rows.Next() {
		var l Log
		err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID, &l.OldValues, &l.NewValues,
			&l.IPAddress, &l.UserAgent, &l.Endpoint, &l.Method, &l.RequestID, &l.Timestamp,
		)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, &l)
	}
	return logs, total, nil
}
