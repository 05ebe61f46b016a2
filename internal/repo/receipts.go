package repo

import (
	"context"
	"database/sql"
	"strings"

	"labdesk/internal/domain"
)

func (r Repo) InsertReceipt(ctx context.Context, tx *sql.Tx, rec domain.SampleReceipt) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO sample_receipts(id,project_id,client_id,received_by,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		rec.ID, rec.ProjectID, rec.ClientID, rec.ReceivedBy, rec.Status, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return err
	}
	for _, s := range rec.Samples {
		if err := r.InsertSample(ctx, tx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) InsertSample(ctx context.Context, tx *sql.Tx, s domain.SampleLine) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO receipt_samples(id,receipt_id,description,quantity,condition) VALUES (?,?,?,?,?)`,
		s.ID, s.ReceiptID, s.Description, s.Quantity, nullable(s.Condition))
	return err
}

func (r Repo) DeleteSample(ctx context.Context, tx *sql.Tx, receiptID, sampleID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM receipt_samples WHERE receipt_id=? AND id=?`, receiptID, sampleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetReceipt(ctx context.Context, id string) (domain.SampleReceipt, error) {
	rec, err := r.getReceiptRow(ctx, r.DB.QueryRowContext(ctx, `SELECT id,project_id,client_id,received_by,status,created_at,updated_at FROM sample_receipts WHERE id=?`, id))
	if err != nil {
		return rec, err
	}
	samples, err := r.listSamples(ctx, id)
	if err != nil {
		return rec, err
	}
	rec.Samples = samples
	decisions, err := r.ListReceiptDecisions(ctx, id)
	if err != nil {
		return rec, err
	}
	rec.Decisions = decisions
	return rec, nil
}

func (r Repo) GetReceiptTx(ctx context.Context, tx *sql.Tx, id string) (domain.SampleReceipt, error) {
	return r.getReceiptRow(ctx, tx.QueryRowContext(ctx, `SELECT id,project_id,client_id,received_by,status,created_at,updated_at FROM sample_receipts WHERE id=?`, id))
}

func (r Repo) getReceiptRow(ctx context.Context, row *sql.Row) (domain.SampleReceipt, error) {
	var rec domain.SampleReceipt
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.ClientID, &rec.ReceivedBy, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) listSamples(ctx context.Context, receiptID string) ([]domain.SampleLine, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,receipt_id,description,quantity,COALESCE(condition,'') FROM receipt_samples WHERE receipt_id=? ORDER BY id ASC`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SampleLine
	for rows.Next() {
		var s domain.SampleLine
		if err := rows.Scan(&s.ID, &s.ReceiptID, &s.Description, &s.Quantity, &s.Condition); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

type ReceiptFilters struct {
	ProjectID string
	ClientID  string
	Status    string
	Limit     int
}

func (r Repo) ListReceipts(ctx context.Context, f ReceiptFilters) ([]domain.SampleReceipt, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.ClientID != "" {
		clauses = append(clauses, "client_id=?")
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT id,project_id,client_id,received_by,status,created_at,updated_at FROM sample_receipts ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SampleReceipt
	for rows.Next() {
		var rec domain.SampleReceipt
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.ClientID, &rec.ReceivedBy, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}

func (r Repo) UpdateReceiptStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE sample_receipts SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	return err
}

func (r Repo) TouchReceipt(ctx context.Context, tx *sql.Tx, id, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE sample_receipts SET updated_at=? WHERE id=?`, updatedAt, id)
	return err
}

func (r Repo) InsertReceiptDecision(ctx context.Context, tx *sql.Tx, d domain.ReceiptDecision) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO receipt_decisions(receipt_id,status,previous_status,decided_by,note,ts) VALUES (?,?,?,?,?,?)`,
		d.ReceiptID, d.Status, d.PreviousStatus, d.DecidedBy, nullable(d.Note), d.TS)
	return err
}

func (r Repo) ListReceiptDecisions(ctx context.Context, receiptID string) ([]domain.ReceiptDecision, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,receipt_id,status,previous_status,decided_by,COALESCE(note,''),ts FROM receipt_decisions WHERE receipt_id=? ORDER BY id ASC`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ReceiptDecision
	for rows.Next() {
		var d domain.ReceiptDecision
		if err := rows.Scan(&d.ID, &d.ReceiptID, &d.Status, &d.PreviousStatus, &d.DecidedBy, &d.Note, &d.TS); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}

func (r Repo) DeleteReceipt(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM attachments WHERE owner_kind='receipt' AND owner_id=?`,
		`DELETE FROM receipt_samples WHERE receipt_id=?`,
		`DELETE FROM receipt_decisions WHERE receipt_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sample_receipts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
