package repo

import (
	"context"
	"database/sql"
	"strings"

	"labdesk/internal/domain"
)

func (r Repo) InsertQuotation(ctx context.Context, tx *sql.Tx, q domain.Quotation) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO quotations(id,number,project_id,client_id,revision_of,revision,status,currency,tax_percent,subtotal,tax,total,issued_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		q.ID, q.Number, q.ProjectID, q.ClientID, nullableStringPtr(q.RevisionOf), q.Revision, q.Status, q.Currency,
		q.TaxPercent, q.Subtotal, q.Tax, q.Total, nullableStringPtr(q.IssuedAt), q.CreatedAt, q.UpdatedAt); err != nil {
		return err
	}
	for _, item := range q.Items {
		if err := r.InsertQuotationItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) InsertQuotationItem(ctx context.Context, tx *sql.Tx, item domain.QuotationItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO quotation_items(id,quotation_id,description,quantity,unit_price,amount) VALUES (?,?,?,?,?,?)`,
		item.ID, item.QuotationID, item.Description, item.Quantity, item.UnitPrice, item.Amount)
	return err
}

func (r Repo) ReplaceQuotationItems(ctx context.Context, tx *sql.Tx, quotationID string, items []domain.QuotationItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM quotation_items WHERE quotation_id=?`, quotationID); err != nil {
		return err
	}
	for _, item := range items {
		if err := r.InsertQuotationItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetQuotation(ctx context.Context, id string) (domain.Quotation, error) {
	q, err := scanQuotation(r.DB.QueryRowContext(ctx, `SELECT id,number,project_id,client_id,revision_of,revision,status,currency,tax_percent,subtotal,tax,total,issued_at,created_at,updated_at FROM quotations WHERE id=?`, id))
	if err != nil {
		return q, err
	}
	items, err := r.listQuotationItems(ctx, id)
	if err != nil {
		return q, err
	}
	q.Items = items
	return q, nil
}

func (r Repo) GetQuotationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Quotation, error) {
	q, err := scanQuotation(tx.QueryRowContext(ctx, `SELECT id,number,project_id,client_id,revision_of,revision,status,currency,tax_percent,subtotal,tax,total,issued_at,created_at,updated_at FROM quotations WHERE id=?`, id))
	if err != nil {
		return q, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT id,quotation_id,description,quantity,unit_price,amount FROM quotation_items WHERE quotation_id=? ORDER BY id ASC`, id)
	if err != nil {
		return q, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.QuotationItem
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Amount); err != nil {
			return q, err
		}
		q.Items = append(q.Items, item)
	}
	return q, rows.Err()
}

func scanQuotation(row *sql.Row) (domain.Quotation, error) {
	var q domain.Quotation
	var revisionOf, issuedAt sql.NullString
	err := row.Scan(&q.ID, &q.Number, &q.ProjectID, &q.ClientID, &revisionOf, &q.Revision, &q.Status, &q.Currency,
		&q.TaxPercent, &q.Subtotal, &q.Tax, &q.Total, &issuedAt, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return q, ErrNotFound
	}
	if err != nil {
		return q, err
	}
	assignNullString(&q.RevisionOf, revisionOf)
	assignNullString(&q.IssuedAt, issuedAt)
	return q, nil
}

func (r Repo) listQuotationItems(ctx context.Context, quotationID string) ([]domain.QuotationItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,quotation_id,description,quantity,unit_price,amount FROM quotation_items WHERE quotation_id=? ORDER BY id ASC`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.QuotationItem
	for rows.Next() {
		var item domain.QuotationItem
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Amount); err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

type QuotationFilters struct {
	ProjectID string
	ClientID  string
	Status    string
	Limit     int
}

func (r Repo) ListQuotations(ctx context.Context, f QuotationFilters) ([]domain.Quotation, error) {
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
	query := `SELECT id,number,project_id,client_id,revision_of,revision,status,currency,tax_percent,subtotal,tax,total,issued_at,created_at,updated_at FROM quotations ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Quotation
	for rows.Next() {
		var q domain.Quotation
		var revisionOf, issuedAt sql.NullString
		if err := rows.Scan(&q.ID, &q.Number, &q.ProjectID, &q.ClientID, &revisionOf, &q.Revision, &q.Status, &q.Currency,
			&q.TaxPercent, &q.Subtotal, &q.Tax, &q.Total, &issuedAt, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		assignNullString(&q.RevisionOf, revisionOf)
		assignNullString(&q.IssuedAt, issuedAt)
		res = append(res, q)
	}
	return res, nil
}

func (r Repo) UpdateQuotationStatus(ctx context.Context, tx *sql.Tx, id, status string, issuedAt *string, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE quotations SET status=?, issued_at=COALESCE(?,issued_at), updated_at=? WHERE id=?`,
		status, nullableStringPtr(issuedAt), updatedAt, id)
	return err
}

func (r Repo) UpdateQuotationTotals(ctx context.Context, tx *sql.Tx, id string, subtotal, tax, total float64, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE quotations SET subtotal=?, tax=?, total=?, updated_at=? WHERE id=?`,
		subtotal, tax, total, updatedAt, id)
	return err
}

func (r Repo) DeleteQuotation(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM quotation_items WHERE quotation_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quotations WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextQuotationSeq increments and returns the quotation sequence counter.
func (r Repo) NextQuotationSeq(ctx context.Context, tx *sql.Tx) (int, error) {
	var next int
	if err := tx.QueryRowContext(ctx, `SELECT next FROM quotation_seq WHERE id=1`).Scan(&next); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quotation_seq SET next=? WHERE id=1`, next+1); err != nil {
		return 0, err
	}
	return next, nil
}
