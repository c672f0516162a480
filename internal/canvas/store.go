package canvas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the SQLite-backed pod and connection registry.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreatePod inserts a pod. An empty ID is replaced with a fresh UUID; an
// empty status defaults to idle.
func (s *Store) CreatePod(ctx context.Context, p Pod) (Pod, error) {
	if p.CanvasID == "" {
		return Pod{}, fmt.Errorf("canvas_id is empty")
	}
	if p.Name == "" {
		return Pod{}, fmt.Errorf("pod name is empty")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PodIdle
	}
	if _, err := ParsePodStatus(string(p.Status)); err != nil {
		return Pod{}, err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
INSERT INTO pods(canvas_id, id, name, agent, status, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, p.CanvasID, p.ID, p.Name, p.Agent, p.Status, fmtTime(now), fmtTime(now))
	if err != nil {
		return Pod{}, fmt.Errorf("create pod: %w", err)
	}
	return p, nil
}

// GetPod returns ErrPodNotFound if the pod does not exist on the canvas.
func (s *Store) GetPod(ctx context.Context, canvasID, podID string) (Pod, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT canvas_id, id, name, agent, status, created_at, updated_at
FROM pods WHERE canvas_id = ? AND id = ?;
`, canvasID, podID)
	return scanPod(row)
}

// SetPodStatus transitions a pod's status.
func (s *Store) SetPodStatus(ctx context.Context, canvasID, podID string, status PodStatus) error {
	if _, err := ParsePodStatus(string(status)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE pods SET status = ?, updated_at = ? WHERE canvas_id = ? AND id = ?;
`, status, fmtTime(time.Now().UTC()), canvasID, podID)
	if err != nil {
		return fmt.Errorf("set pod status: %w", err)
	}
	return checkAffected(res, ErrPodNotFound)
}

// ListPods returns all pods on a canvas ordered by creation time.
func (s *Store) ListPods(ctx context.Context, canvasID string) ([]Pod, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT canvas_id, id, name, agent, status, created_at, updated_at
FROM pods WHERE canvas_id = ? ORDER BY created_at ASC, rowid ASC;
`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	defer rows.Close()

	var out []Pod
	for rows.Next() {
		p, err := scanPod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateConnection inserts a connection after validating its endpoints exist.
func (s *Store) CreateConnection(ctx context.Context, c Connection) (Connection, error) {
	if c.CanvasID == "" {
		return Connection{}, fmt.Errorf("canvas_id is empty")
	}
	if _, err := ParseTriggerMode(string(c.TriggerMode)); err != nil {
		return Connection{}, err
	}
	if c.SourcePodID == c.TargetPodID {
		return Connection{}, fmt.Errorf("connection source and target are the same pod")
	}
	if _, err := s.GetPod(ctx, c.CanvasID, c.SourcePodID); err != nil {
		return Connection{}, fmt.Errorf("source pod: %w", err)
	}
	if _, err := s.GetPod(ctx, c.CanvasID, c.TargetPodID); err != nil {
		return Connection{}, fmt.Errorf("target pod: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DecideStatus == "" {
		c.DecideStatus = DecideNone
	}
	if c.ConnectionStatus == "" {
		c.ConnectionStatus = ConnectionIdle
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
INSERT INTO connections(
  canvas_id, id, source_pod_id, target_pod_id, trigger_mode,
  decide_status, decide_reason, connection_status, created_at, updated_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, c.CanvasID, c.ID, c.SourcePodID, c.TargetPodID, c.TriggerMode,
		c.DecideStatus, nullable(c.DecideReason), c.ConnectionStatus, fmtTime(now), fmtTime(now))
	if err != nil {
		return Connection{}, fmt.Errorf("create connection: %w", err)
	}
	return c, nil
}

// GetConnection returns ErrConnectionNotFound if the connection does not exist.
func (s *Store) GetConnection(ctx context.Context, canvasID, id string) (Connection, error) {
	row := s.db.QueryRowContext(ctx, connectionSelect+` WHERE canvas_id = ? AND id = ?;`, canvasID, id)
	return scanConnection(row)
}

// FindBySourcePod returns all connections leaving a pod, oldest first.
func (s *Store) FindBySourcePod(ctx context.Context, canvasID, podID string) ([]Connection, error) {
	return s.findConnections(ctx, connectionSelect+` WHERE canvas_id = ? AND source_pod_id = ? ORDER BY created_at ASC, rowid ASC;`, canvasID, podID)
}

// FindByTargetPod returns all connections entering a pod, oldest first.
func (s *Store) FindByTargetPod(ctx context.Context, canvasID, podID string) ([]Connection, error) {
	return s.findConnections(ctx, connectionSelect+` WHERE canvas_id = ? AND target_pod_id = ? ORDER BY created_at ASC, rowid ASC;`, canvasID, podID)
}

// ListConnections returns all connections on a canvas.
func (s *Store) ListConnections(ctx context.Context, canvasID string) ([]Connection, error) {
	return s.findConnections(ctx, connectionSelect+` WHERE canvas_id = ? ORDER BY created_at ASC, rowid ASC;`, canvasID)
}

// UpdateDecideStatus records the arbitration outcome for an ai-decide
// connection. reason may be empty.
func (s *Store) UpdateDecideStatus(ctx context.Context, canvasID, id string, status DecideStatus, reason string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE connections SET decide_status = ?, decide_reason = ?, updated_at = ?
WHERE canvas_id = ? AND id = ?;
`, status, nullable(reason), fmtTime(time.Now().UTC()), canvasID, id)
	if err != nil {
		return fmt.Errorf("update decide status: %w", err)
	}
	return checkAffected(res, ErrConnectionNotFound)
}

// UpdateConnectionStatus flips a connection between idle and active.
func (s *Store) UpdateConnectionStatus(ctx context.Context, canvasID, id string, status ConnectionStatus) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE connections SET connection_status = ?, updated_at = ?
WHERE canvas_id = ? AND id = ?;
`, status, fmtTime(time.Now().UTC()), canvasID, id)
	if err != nil {
		return fmt.Errorf("update connection status: %w", err)
	}
	return checkAffected(res, ErrConnectionNotFound)
}

// DeleteConnection removes a connection from the canvas.
func (s *Store) DeleteConnection(ctx context.Context, canvasID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE canvas_id = ? AND id = ?;`, canvasID, id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return checkAffected(res, ErrConnectionNotFound)
}

const connectionSelect = `
SELECT canvas_id, id, source_pod_id, target_pod_id, trigger_mode,
       decide_status, decide_reason, connection_status, created_at, updated_at
FROM connections`

func (s *Store) findConnections(ctx context.Context, query string, args ...any) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPod(row rowScanner) (Pod, error) {
	var (
		p          Pod
		statusS    string
		createdAtS string
		updatedAtS string
	)
	err := row.Scan(&p.CanvasID, &p.ID, &p.Name, &p.Agent, &statusS, &createdAtS, &updatedAtS)
	if errors.Is(err, sql.ErrNoRows) {
		return Pod{}, ErrPodNotFound
	}
	if err != nil {
		return Pod{}, fmt.Errorf("scan pod: %w", err)
	}
	p.Status = PodStatus(statusS)
	p.CreatedAt = parseTime(createdAtS)
	p.UpdatedAt = parseTime(updatedAtS)
	return p, nil
}

func scanConnection(row rowScanner) (Connection, error) {
	var (
		c          Connection
		modeS      string
		decideS    string
		reason     sql.NullString
		connStatus string
		createdAtS string
		updatedAtS string
	)
	err := row.Scan(&c.CanvasID, &c.ID, &c.SourcePodID, &c.TargetPodID, &modeS,
		&decideS, &reason, &connStatus, &createdAtS, &updatedAtS)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("scan connection: %w", err)
	}
	c.TriggerMode = TriggerMode(modeS)
	c.DecideStatus = DecideStatus(decideS)
	if reason.Valid {
		c.DecideReason = reason.String
	}
	c.ConnectionStatus = ConnectionStatus(connStatus)
	c.CreatedAt = parseTime(createdAtS)
	c.UpdatedAt = parseTime(updatedAtS)
	return c, nil
}

func checkAffected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fmtTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
