package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// PipelineStatus enumerates a pipeline's terminal and non-terminal states
// (spec §4.6 state machine, lifted to pipeline scope per spec §7).
type PipelineStatus string

const (
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelineCancelled PipelineStatus = "cancelled"
)

// ActionStatus enumerates one action row's state machine (spec §4.6).
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionRunning   ActionStatus = "running"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionSkipped   ActionStatus = "skipped"
)

// Action is one row of fbox_pipeline_actions.
type Action struct {
	ActionID       string
	PipelineID     string
	NodeName       string
	Kind           string
	ExecutionOrder int
	Status         ActionStatus
	Since          *string
	Until          *string
	Attempt        int
	Reason         string
	ErrorMessage   string
}

// OpenPipeline inserts a new running pipeline row bound to graphID and
// returns its generated id.
func (s *Store) OpenPipeline(ctx context.Context, graphID int64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fbox_pipelines (pipeline_id, graph_id, status, started_at) VALUES (?, ?, ?, ?)`,
		id, graphID, string(PipelineRunning), nowFunc().UTC().Format(timeLayout))
	if err != nil {
		return "", streamyerrors.NewStoreError("open_pipeline", err)
	}
	return id, nil
}

// ClosePipeline writes the pipeline's terminal status and finished_at.
func (s *Store) ClosePipeline(ctx context.Context, pipelineID string, status PipelineStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fbox_pipelines SET status = ?, finished_at = ? WHERE pipeline_id = ?`,
		string(status), nowFunc().UTC().Format(timeLayout), pipelineID)
	if err != nil {
		return streamyerrors.NewStoreError("close_pipeline", err)
	}
	return nil
}

// EmitAction inserts a pending action row and returns its generated id. The
// row exists in pending before any external side effect begins, per spec
// §5's metadata ordering guarantee. executionOrder must be unique within
// pipelineID (invariant 5).
func (s *Store) EmitAction(ctx context.Context, pipelineID, nodeName, kind string, executionOrder int, since, until *string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fbox_pipeline_actions (action_id, pipeline_id, node_name, kind, execution_order, status, since, until, attempt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, pipelineID, nodeName, kind, executionOrder, string(ActionPending), since, until)
	if err != nil {
		return "", streamyerrors.NewStoreError("emit_action", err)
	}
	return id, nil
}

// MarkRunning transitions an action to running and records the attempt
// number, written before external side effects begin.
func (s *Store) MarkRunning(ctx context.Context, actionID string, attempt int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fbox_pipeline_actions SET status = ?, attempt = ?, started_at = ? WHERE action_id = ?`,
		string(ActionRunning), attempt, nowFunc().UTC().Format(timeLayout), actionID)
	if err != nil {
		return streamyerrors.NewStoreError("mark_running", err)
	}
	return nil
}

// MarkTerminal transitions an action to a terminal state (completed,
// failed, or skipped), optionally carrying a reason/error message.
func (s *Store) MarkTerminal(ctx context.Context, actionID string, status ActionStatus, reason, errMessage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fbox_pipeline_actions SET status = ?, reason = ?, error_message = ?, finished_at = ? WHERE action_id = ?`,
		string(status), nullableString(reason), nullableString(errMessage), nowFunc().UTC().Format(timeLayout), actionID)
	if err != nil {
		return streamyerrors.NewStoreError("mark_terminal", err)
	}
	return nil
}

// ActionsForPipeline returns every action row belonging to pipelineID, used
// to build the pipeline summary and to check upstream status for the
// dependency-skip policy.
func (s *Store) ActionsForPipeline(ctx context.Context, pipelineID string) ([]Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_id, pipeline_id, node_name, kind, execution_order, status, attempt,
		        COALESCE(reason, ''), COALESCE(error_message, '')
		 FROM fbox_pipeline_actions WHERE pipeline_id = ? ORDER BY execution_order`, pipelineID)
	if err != nil {
		return nil, streamyerrors.NewStoreError("actions_for_pipeline", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ActionID, &a.PipelineID, &a.NodeName, &a.Kind, &a.ExecutionOrder, &a.Status, &a.Attempt, &a.Reason, &a.ErrorMessage); err != nil {
			return nil, streamyerrors.NewStoreError("actions_for_pipeline", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, streamyerrors.NewStoreError("actions_for_pipeline", err)
	}
	return out, nil
}

// LastCompletedWindowUntil returns the latest `until` recorded for a
// completed action against nodeName across every prior pipeline, used to
// compute a time-partitioned adapter's next `since` (spec §4.5).
func (s *Store) LastCompletedWindowUntil(ctx context.Context, nodeName string) (time.Time, bool, error) {
	var until sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(until) FROM fbox_pipeline_actions WHERE node_name = ? AND status = ? AND until IS NOT NULL`,
		nodeName, string(ActionCompleted)).Scan(&until)
	if err != nil {
		return time.Time{}, false, streamyerrors.NewStoreError("last_completed_window_until", err)
	}
	if !until.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(timeLayout, until.String)
	if err != nil {
		return time.Time{}, false, streamyerrors.NewStoreError("last_completed_window_until", err)
	}
	return t, true, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
