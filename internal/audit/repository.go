package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// Repository persists completed evaluations for later review.
// ⭐ SSOT: audit rows are written and read here and nowhere else
//
// A nil *Repository is a valid no-op sink, so callers can wire it
// unconditionally and let configuration decide whether rows land.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository on an existing pool
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the audit schema and tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}

	ddl := []string{
		`CREATE SCHEMA IF NOT EXISTS audit`,
		`CREATE TABLE IF NOT EXISTS audit.risk_states (
			state_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			dominant_state TEXT NOT NULL,
			instability_score DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			ambiguity DOUBLE PRECISION NOT NULL,
			directional_bias TEXT,
			contributing_pressures JSONB NOT NULL,
			interactions JSONB NOT NULL,
			valid_horizons JSONB NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			explanation TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS audit.gate_events (
			gate_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			risk_state_id TEXT NOT NULL,
			allowed_behaviors JSONB NOT NULL,
			forbidden_behaviors JSONB NOT NULL,
			aggressiveness_limit DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			enforced_until TIMESTAMPTZ NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			explanation TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS gate_events_symbol_detected_at_idx
			ON audit.gate_events (symbol, detected_at DESC)`,
	}

	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure audit schema: %w", err)
		}
	}
	return nil
}

// SaveRiskState saves one estimated risk state. Re-inserting the same
// state_id is a no-op, so replayed runs stay idempotent.
func (r *Repository) SaveRiskState(ctx context.Context, s core.RiskState) error {
	if r == nil || r.pool == nil {
		return nil
	}

	contributingJSON, err := json.Marshal(s.ContributingPressures)
	if err != nil {
		return fmt.Errorf("failed to marshal contributing pressures: %w", err)
	}
	interactionsJSON, err := json.Marshal(s.Interactions)
	if err != nil {
		return fmt.Errorf("failed to marshal interactions: %w", err)
	}
	horizonsJSON, err := json.Marshal(s.ValidHorizons)
	if err != nil {
		return fmt.Errorf("failed to marshal valid horizons: %w", err)
	}

	var bias *string
	if s.DirectionalBias != nil {
		v := string(*s.DirectionalBias)
		bias = &v
	}

	query := `
		INSERT INTO audit.risk_states (
			state_id, symbol, dominant_state, instability_score, confidence,
			ambiguity, directional_bias, contributing_pressures, interactions,
			valid_horizons, detected_at, explanation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (state_id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		s.StateID, s.Symbol, string(s.DominantState), s.InstabilityScore,
		s.Confidence, s.Ambiguity, bias, contributingJSON, interactionsJSON,
		horizonsJSON, s.DetectedAt, s.Explanation,
	)
	if err != nil {
		return fmt.Errorf("failed to save risk state: %w", err)
	}

	return nil
}

// SaveGateEvent saves one derived behavior gate. Re-inserting the same
// gate_id is a no-op.
func (r *Repository) SaveGateEvent(ctx context.Context, g core.BehaviorGate) error {
	if r == nil || r.pool == nil {
		return nil
	}

	allowedJSON, err := json.Marshal(g.AllowedBehaviors)
	if err != nil {
		return fmt.Errorf("failed to marshal allowed behaviors: %w", err)
	}
	forbiddenJSON, err := json.Marshal(g.ForbiddenBehaviors)
	if err != nil {
		return fmt.Errorf("failed to marshal forbidden behaviors: %w", err)
	}

	query := `
		INSERT INTO audit.gate_events (
			gate_id, symbol, risk_state_id, allowed_behaviors,
			forbidden_behaviors, aggressiveness_limit, confidence,
			enforced_until, detected_at, explanation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (gate_id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		g.GateID, g.Symbol, g.RiskStateID, allowedJSON, forbiddenJSON,
		g.AggressivenessLimit, g.Confidence, g.EnforcedUntil, g.DetectedAt,
		g.Explanation,
	)
	if err != nil {
		return fmt.Errorf("failed to save gate event: %w", err)
	}

	return nil
}

// LatestGate retrieves the most recent gate recorded for a symbol.
// Returns nil without error when no gate has been recorded yet.
func (r *Repository) LatestGate(ctx context.Context, symbol string) (*core.BehaviorGate, error) {
	if r == nil || r.pool == nil {
		return nil, nil
	}

	query := `
		SELECT gate_id, symbol, risk_state_id, allowed_behaviors,
		       forbidden_behaviors, aggressiveness_limit, confidence,
		       enforced_until, detected_at, explanation
		FROM audit.gate_events
		WHERE symbol = $1
		ORDER BY detected_at DESC, gate_id DESC
		LIMIT 1
	`

	var (
		g             core.BehaviorGate
		allowedJSON   []byte
		forbiddenJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&g.GateID, &g.Symbol, &g.RiskStateID, &allowedJSON, &forbiddenJSON,
		&g.AggressivenessLimit, &g.Confidence, &g.EnforcedUntil, &g.DetectedAt,
		&g.Explanation,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest gate: %w", err)
	}

	if err := json.Unmarshal(allowedJSON, &g.AllowedBehaviors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allowed behaviors: %w", err)
	}
	if err := json.Unmarshal(forbiddenJSON, &g.ForbiddenBehaviors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forbidden behaviors: %w", err)
	}

	g.DetectedAt = g.DetectedAt.UTC()
	g.EnforcedUntil = g.EnforcedUntil.UTC()

	return &g, nil
}
