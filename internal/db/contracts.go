package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

// ErrContractNotFound is returned when a contract does not exist or does
// not belong to the requesting user.
var ErrContractNotFound = errors.New("contract not found")

// Contract is one persisted extraction result. The full record is stored
// as JSONB; frequently queried fields are denormalized into columns.
type Contract struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"userId"`
	Record      *models.ContractRecord `json:"record"`
	RawText     string                 `json:"rawText,omitempty"`
	Confidence  float64                `json:"confidence"`
	DocumentKey string                 `json:"documentKey,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// SaveContract inserts a new contract row. The caller sets ID beforehand
// so the HTTP layer can reference the stored object in MinIO.
func SaveContract(ctx context.Context, c *Contract) error {
	if Pool == nil {
		return errors.New("database not available")
	}

	recordJSON, err := json.Marshal(c.Record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	query := `
		INSERT INTO contracts (
			id, user_id, customer_name, phone, order_number, plan_name,
			plan_charge, contract_date, record, raw_text, confidence,
			document_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = Pool.QueryRow(ctx, query,
		c.ID, c.UserID,
		c.Record.CustomerName, c.Record.Phone, c.Record.OrderNumber,
		c.Record.PlanName, c.Record.PlanCharge, c.Record.ContractDate,
		recordJSON, c.RawText, c.Confidence, c.DocumentKey,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting contract: %w", err)
	}
	return nil
}

// GetContractByID fetches one contract scoped to its owner.
func GetContractByID(ctx context.Context, id, userID uuid.UUID) (*Contract, error) {
	if Pool == nil {
		return nil, errors.New("database not available")
	}

	query := `
		SELECT id, user_id, record, COALESCE(raw_text, ''), confidence,
		       COALESCE(document_key, ''), created_at, updated_at
		FROM contracts
		WHERE id = $1 AND user_id = $2`

	var c Contract
	var recordJSON []byte
	err := Pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &recordJSON, &c.RawText, &c.Confidence,
		&c.DocumentKey, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contract: %w", err)
	}

	c.Record = models.NewContractRecord()
	if err := json.Unmarshal(recordJSON, c.Record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &c, nil
}

// GetContractsPaginated lists a user's contracts newest first and returns
// the total row count for the pager.
func GetContractsPaginated(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Contract, int, error) {
	if Pool == nil {
		return nil, 0, errors.New("database not available")
	}

	var total int
	if err := Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contracts WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting contracts: %w", err)
	}

	query := `
		SELECT id, user_id, record, confidence, COALESCE(document_key, ''),
		       created_at, updated_at
		FROM contracts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying contracts: %w", err)
	}
	defer rows.Close()

	contracts := []Contract{}
	for rows.Next() {
		var c Contract
		var recordJSON []byte
		if err := rows.Scan(&c.ID, &c.UserID, &recordJSON, &c.Confidence,
			&c.DocumentKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning contract: %w", err)
		}
		c.Record = models.NewContractRecord()
		if err := json.Unmarshal(recordJSON, c.Record); err != nil {
			return nil, 0, fmt.Errorf("decoding record: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, total, rows.Err()
}

// updatableColumns maps the record fields a client may correct to their
// denormalized columns.
var updatableColumns = map[string]string{
	"customer_name": "customer_name",
	"phone":         "phone",
	"order_number":  "order_number",
	"plan_name":     "plan_name",
	"plan_charge":   "plan_charge",
	"contract_date": "contract_date",
}

// UpdateContract applies manual field corrections. Both the denormalized
// column and the JSONB record are updated so reads stay consistent.
func UpdateContract(ctx context.Context, id, userID uuid.UUID, updates map[string]interface{}) error {
	if Pool == nil {
		return errors.New("database not available")
	}
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{id, userID}
	i := 3
	for field, value := range updates {
		col, ok := updatableColumns[field]
		if !ok {
			return fmt.Errorf("field %q is not updatable", field)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, value)
		i++
		setClauses = append(setClauses, fmt.Sprintf("record = jsonb_set(record, '{%s}', to_jsonb($%d::text))", field, i))
		args = append(args, value)
		i++
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE contracts SET %s WHERE id = $1 AND user_id = $2`,
		strings.Join(setClauses, ", "),
	)

	tag, err := Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

// ReplaceContractRecord overwrites the stored extraction after a
// reprocess, keeping the denormalized columns in sync.
func ReplaceContractRecord(ctx context.Context, id, userID uuid.UUID, record *models.ContractRecord, rawText string, confidence float64) error {
	if Pool == nil {
		return errors.New("database not available")
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	query := `
		UPDATE contracts
		SET customer_name = $3, phone = $4, order_number = $5, plan_name = $6,
		    plan_charge = $7, contract_date = $8, record = $9, raw_text = $10,
		    confidence = $11, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`

	tag, err := Pool.Exec(ctx, query, id, userID,
		record.CustomerName, record.Phone, record.OrderNumber, record.PlanName,
		record.PlanCharge, record.ContractDate, recordJSON, rawText, confidence)
	if err != nil {
		return fmt.Errorf("replacing contract record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

// DeleteContract removes a contract row scoped to its owner.
func DeleteContract(ctx context.Context, id, userID uuid.UUID) error {
	if Pool == nil {
		return errors.New("database not available")
	}

	tag, err := Pool.Exec(ctx,
		`DELETE FROM contracts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

// MonthlyStats aggregates a month of processed contracts.
type MonthlyStats struct {
	Month           string  `json:"month"`
	ContractCount   int     `json:"contractCount"`
	AvgConfidence   float64 `json:"avgConfidence"`
	TotalPlanCharge float64 `json:"totalPlanCharge"`
}

// GetMonthlyStats returns per-month aggregates for the last twelve months.
func GetMonthlyStats(ctx context.Context, userID uuid.UUID) ([]MonthlyStats, error) {
	if Pool == nil {
		return nil, errors.New("database not available")
	}

	query := `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
		       COUNT(*),
		       COALESCE(AVG(confidence), 0),
		       COALESCE(SUM(plan_charge), 0)
		FROM contracts
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '12 months'
		GROUP BY month
		ORDER BY month DESC`

	rows, err := Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying monthly stats: %w", err)
	}
	defer rows.Close()

	stats := []MonthlyStats{}
	for rows.Next() {
		var s MonthlyStats
		if err := rows.Scan(&s.Month, &s.ContractCount, &s.AvgConfidence, &s.TotalPlanCharge); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
