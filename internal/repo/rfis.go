package repo

import (
	"context"
	"database/sql"
	"strings"

	"labdesk/internal/domain"
)

func (r Repo) InsertRFI(ctx context.Context, tx *sql.Tx, rfi domain.RFI) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO rfis(id,initiation_type,subject,description,project_id,client_id,lab_initiator,client_initiator,status,date_submitted,date_resolved,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rfi.ID, rfi.InitiationType, rfi.Subject, rfi.Description, nullableStringPtr(rfi.ProjectID), nullableStringPtr(rfi.ClientID),
		nullableStringPtr(rfi.LabInitiator), nullableStringPtr(rfi.ClientInitiator), rfi.Status, rfi.DateSubmitted,
		nullableStringPtr(rfi.DateResolved), rfi.CreatedAt, rfi.UpdatedAt); err != nil {
		return err
	}
	if err := r.insertReceivers(ctx, tx, rfi.ID, "lab", rfi.LabReceivers); err != nil {
		return err
	}
	return r.insertReceivers(ctx, tx, rfi.ID, "client", rfi.ClientReceivers)
}

func (r Repo) insertReceivers(ctx context.Context, tx *sql.Tx, rfiID, kind string, ids []string) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO rfi_receivers(rfi_id,receiver_kind,receiver_id,position) VALUES (?,?,?,?)`,
			rfiID, kind, id, i); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetRFI(ctx context.Context, id string) (domain.RFI, error) {
	rfi, err := r.getRFIRow(ctx, id)
	if err != nil {
		return rfi, err
	}
	if err := r.loadRFIDetails(ctx, &rfi); err != nil {
		return rfi, err
	}
	return rfi, nil
}

func (r Repo) GetRFITx(ctx context.Context, tx *sql.Tx, id string) (domain.RFI, error) {
	var rfi domain.RFI
	var projectID, clientID, labInit, clientInit, resolved sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT id,initiation_type,subject,description,project_id,client_id,lab_initiator,client_initiator,status,date_submitted,date_resolved,created_at,updated_at FROM rfis WHERE id=?`, id).
		Scan(&rfi.ID, &rfi.InitiationType, &rfi.Subject, &rfi.Description, &projectID, &clientID, &labInit, &clientInit,
			&rfi.Status, &rfi.DateSubmitted, &resolved, &rfi.CreatedAt, &rfi.UpdatedAt)
	if err == sql.ErrNoRows {
		return rfi, ErrNotFound
	}
	if err != nil {
		return rfi, err
	}
	assignNullString(&rfi.ProjectID, projectID)
	assignNullString(&rfi.ClientID, clientID)
	assignNullString(&rfi.LabInitiator, labInit)
	assignNullString(&rfi.ClientInitiator, clientInit)
	assignNullString(&rfi.DateResolved, resolved)
	rows, err := tx.QueryContext(ctx, `SELECT receiver_kind,receiver_id FROM rfi_receivers WHERE rfi_id=? ORDER BY position ASC`, id)
	if err != nil {
		return rfi, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind, recv string
		if err := rows.Scan(&kind, &recv); err != nil {
			return rfi, err
		}
		if kind == "lab" {
			rfi.LabReceivers = append(rfi.LabReceivers, recv)
		} else {
			rfi.ClientReceivers = append(rfi.ClientReceivers, recv)
		}
	}
	return rfi, nil
}

func (r Repo) getRFIRow(ctx context.Context, id string) (domain.RFI, error) {
	var rfi domain.RFI
	var projectID, clientID, labInit, clientInit, resolved sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,initiation_type,subject,description,project_id,client_id,lab_initiator,client_initiator,status,date_submitted,date_resolved,created_at,updated_at FROM rfis WHERE id=?`, id).
		Scan(&rfi.ID, &rfi.InitiationType, &rfi.Subject, &rfi.Description, &projectID, &clientID, &labInit, &clientInit,
			&rfi.Status, &rfi.DateSubmitted, &resolved, &rfi.CreatedAt, &rfi.UpdatedAt)
	if err == sql.ErrNoRows {
		return rfi, ErrNotFound
	}
	if err != nil {
		return rfi, err
	}
	assignNullString(&rfi.ProjectID, projectID)
	assignNullString(&rfi.ClientID, clientID)
	assignNullString(&rfi.LabInitiator, labInit)
	assignNullString(&rfi.ClientInitiator, clientInit)
	assignNullString(&rfi.DateResolved, resolved)
	return rfi, nil
}

func (r Repo) loadRFIDetails(ctx context.Context, rfi *domain.RFI) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT receiver_kind,receiver_id FROM rfi_receivers WHERE rfi_id=? ORDER BY position ASC`, rfi.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var kind, recv string
		if err := rows.Scan(&kind, &recv); err != nil {
			return err
		}
		if kind == "lab" {
			rfi.LabReceivers = append(rfi.LabReceivers, recv)
		} else {
			rfi.ClientReceivers = append(rfi.ClientReceivers, recv)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	messages, err := r.ListMessages(ctx, rfi.ID)
	if err != nil {
		return err
	}
	rfi.Conversation = messages
	history, err := r.ListStatusHistory(ctx, rfi.ID)
	if err != nil {
		return err
	}
	rfi.StatusHistory = history
	attachments, err := r.ListAttachments(ctx, "rfi", rfi.ID)
	if err != nil {
		return err
	}
	rfi.Attachments = attachments
	return nil
}

type RFIFilters struct {
	ProjectID      string
	ClientID       string
	Status         string
	InitiationType string
	Limit          int
}

func (r Repo) ListRFIs(ctx context.Context, f RFIFilters) ([]domain.RFI, error) {
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
	if f.InitiationType != "" {
		clauses = append(clauses, "initiation_type=?")
		args = append(args, f.InitiationType)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT id,initiation_type,subject,description,project_id,client_id,lab_initiator,client_initiator,status,date_submitted,date_resolved,created_at,updated_at FROM rfis ` + where + ` ORDER BY date_submitted DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RFI
	for rows.Next() {
		var rfi domain.RFI
		var projectID, clientID, labInit, clientInit, resolved sql.NullString
		if err := rows.Scan(&rfi.ID, &rfi.InitiationType, &rfi.Subject, &rfi.Description, &projectID, &clientID, &labInit, &clientInit,
			&rfi.Status, &rfi.DateSubmitted, &resolved, &rfi.CreatedAt, &rfi.UpdatedAt); err != nil {
			return nil, err
		}
		assignNullString(&rfi.ProjectID, projectID)
		assignNullString(&rfi.ClientID, clientID)
		assignNullString(&rfi.LabInitiator, labInit)
		assignNullString(&rfi.ClientInitiator, clientInit)
		assignNullString(&rfi.DateResolved, resolved)
		res = append(res, rfi)
	}
	return res, nil
}

func (r Repo) UpdateRFIStatus(ctx context.Context, tx *sql.Tx, id, status string, dateResolved *string, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE rfis SET status=?, date_resolved=?, updated_at=? WHERE id=?`,
		status, nullableStringPtr(dateResolved), updatedAt, id)
	return err
}

func (r Repo) TouchRFI(ctx context.Context, tx *sql.Tx, id, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE rfis SET updated_at=? WHERE id=?`, updatedAt, id)
	return err
}

func (r Repo) DeleteRFI(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM attachments WHERE owner_kind='message' AND owner_id IN (SELECT key FROM rfi_messages WHERE rfi_id=?)`,
		`DELETE FROM attachments WHERE owner_kind='rfi' AND owner_id=?`,
		`DELETE FROM rfi_messages WHERE rfi_id=?`,
		`DELETE FROM rfi_status_history WHERE rfi_id=?`,
		`DELETE FROM rfi_receivers WHERE rfi_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM rfis WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertMessage(ctx context.Context, tx *sql.Tx, m domain.ConversationMessage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO rfi_messages(key,rfi_id,message,sent_by_client,lab_sender,client_sender,is_official,ts) VALUES (?,?,?,?,?,?,?,?)`,
		m.Key, m.RFIID, m.Message, boolInt(m.SentByClient), nullableStringPtr(m.LabSender), nullableStringPtr(m.ClientSender),
		boolInt(m.IsOfficialResponse), m.Timestamp)
	return err
}

func (r Repo) GetMessageTx(ctx context.Context, tx *sql.Tx, rfiID, key string) (domain.ConversationMessage, error) {
	var m domain.ConversationMessage
	var labSender, clientSender sql.NullString
	var sentByClient, official int
	err := tx.QueryRowContext(ctx, `SELECT key,rfi_id,message,sent_by_client,lab_sender,client_sender,is_official,ts FROM rfi_messages WHERE rfi_id=? AND key=?`, rfiID, key).
		Scan(&m.Key, &m.RFIID, &m.Message, &sentByClient, &labSender, &clientSender, &official, &m.Timestamp)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	m.SentByClient = sentByClient != 0
	m.IsOfficialResponse = official != 0
	assignNullString(&m.LabSender, labSender)
	assignNullString(&m.ClientSender, clientSender)
	return m, nil
}

func (r Repo) ListMessages(ctx context.Context, rfiID string) ([]domain.ConversationMessage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key,rfi_id,message,sent_by_client,lab_sender,client_sender,is_official,ts FROM rfi_messages WHERE rfi_id=? ORDER BY ts ASC, key ASC`, rfiID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		var labSender, clientSender sql.NullString
		var sentByClient, official int
		if err := rows.Scan(&m.Key, &m.RFIID, &m.Message, &sentByClient, &labSender, &clientSender, &official, &m.Timestamp); err != nil {
			return nil, err
		}
		m.SentByClient = sentByClient != 0
		m.IsOfficialResponse = official != 0
		assignNullString(&m.LabSender, labSender)
		assignNullString(&m.ClientSender, clientSender)
		attachments, err := r.ListAttachments(ctx, "message", m.Key)
		if err != nil {
			return nil, err
		}
		m.Attachments = attachments
		res = append(res, m)
	}
	return res, nil
}

func (r Repo) SetMessageOfficial(ctx context.Context, tx *sql.Tx, rfiID, key string, official bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE rfi_messages SET is_official=? WHERE rfi_id=? AND key=?`, boolInt(official), rfiID, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearOfficialResponses unsets the flag on every message of the thread.
func (r Repo) ClearOfficialResponses(ctx context.Context, tx *sql.Tx, rfiID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE rfi_messages SET is_official=0 WHERE rfi_id=?`, rfiID)
	return err
}

func (r Repo) HasOfficialResponse(ctx context.Context, tx *sql.Tx, rfiID string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM rfi_messages WHERE rfi_id=? AND is_official=1`, rfiID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) CountMessagesTx(ctx context.Context, tx *sql.Tx, rfiID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM rfi_messages WHERE rfi_id=?`, rfiID).Scan(&n)
	return n, err
}

func (r Repo) InsertStatusHistory(ctx context.Context, tx *sql.Tx, h domain.StatusHistoryEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO rfi_status_history(rfi_id,status,previous_status,changed_by,reason,ts) VALUES (?,?,?,?,?,?)`,
		h.RFIID, h.Status, h.PreviousStatus, h.ChangedBy, nullable(h.Reason), h.TS)
	return err
}

func (r Repo) ListStatusHistory(ctx context.Context, rfiID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,rfi_id,status,previous_status,changed_by,COALESCE(reason,''),ts FROM rfi_status_history WHERE rfi_id=? ORDER BY id ASC`, rfiID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusHistoryEntry
	for rows.Next() {
		var h domain.StatusHistoryEntry
		if err := rows.Scan(&h.ID, &h.RFIID, &h.Status, &h.PreviousStatus, &h.ChangedBy, &h.Reason, &h.TS); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, nil
}

func (r Repo) InsertAttachment(ctx context.Context, tx *sql.Tx, a domain.Attachment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO attachments(id,owner_kind,owner_id,file_name,content_type,size_bytes,created_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.OwnerKind, a.OwnerID, a.FileName, nullable(a.ContentType), a.SizeBytes, a.CreatedAt)
	return err
}

func (r Repo) ListAttachments(ctx context.Context, ownerKind, ownerID string) ([]domain.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,owner_kind,owner_id,file_name,COALESCE(content_type,''),COALESCE(size_bytes,0),created_at FROM attachments WHERE owner_kind=? AND owner_id=? ORDER BY created_at ASC, id ASC`, ownerKind, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.OwnerKind, &a.OwnerID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func assignNullString(dst **string, v sql.NullString) {
	if v.Valid {
		s := v.String
		*dst = &s
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
