package engine

import (
	"context"

	"github.com/google/uuid"

	"labdesk/internal/domain"
	"labdesk/internal/events"
)

// ReceiptCreateOptions are parameters for recording a sample receipt.
type ReceiptCreateOptions struct {
	ID         string
	ProjectID  string
	ClientID   string
	ReceivedBy string
	Samples    []SampleOptions
	ActorID    string
}

// SampleOptions describes one sample line item.
type SampleOptions struct {
	Description string
	Quantity    int
	Condition   string
}

func (e Engine) CreateReceipt(ctx context.Context, opts ReceiptCreateOptions) (domain.SampleReceipt, error) {
	if opts.ProjectID == "" || opts.ClientID == "" {
		return domain.SampleReceipt{}, validationf("project and client are required")
	}
	if opts.ReceivedBy == "" {
		return domain.SampleReceipt{}, validationf("received_by is required")
	}
	project, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.SampleReceipt{}, err
	}
	if project.ClientID != opts.ClientID {
		return domain.SampleReceipt{}, validationf("project %s does not belong to client %s", opts.ProjectID, opts.ClientID)
	}
	if _, err := e.Repo.GetPersonnel(ctx, opts.ReceivedBy); err != nil {
		return domain.SampleReceipt{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowStr()
	rec := domain.SampleReceipt{
		ID:         id,
		ProjectID:  opts.ProjectID,
		ClientID:   opts.ClientID,
		ReceivedBy: opts.ReceivedBy,
		Status:     "draft",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, s := range opts.Samples {
		line, err := buildSampleLine(rec.ID, s)
		if err != nil {
			return domain.SampleReceipt{}, err
		}
		rec.Samples = append(rec.Samples, line)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SampleReceipt{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "receipt.manage"); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := e.Repo.InsertReceipt(ctx, tx, rec); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := e.Events.Append(ctx, tx, "receipt.created", "receipt", rec.ID, opts.ActorID, events.EventPayload{
		"project_id": rec.ProjectID,
		"samples":    len(rec.Samples),
	}); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SampleReceipt{}, err
	}
	return rec, nil
}

func buildSampleLine(receiptID string, s SampleOptions) (domain.SampleLine, error) {
	if s.Description == "" {
		return domain.SampleLine{}, validationf("sample description is required")
	}
	qty := s.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return domain.SampleLine{}, validationf("sample quantity must be positive")
	}
	return domain.SampleLine{
		ID:          uuid.New().String(),
		ReceiptID:   receiptID,
		Description: s.Description,
		Quantity:    qty,
		Condition:   s.Condition,
	}, nil
}

// AddSample appends a line item; allowed only while the receipt is editable.
func (e Engine) AddSample(ctx context.Context, receiptID string, s SampleOptions, actorID string) (domain.SampleLine, error) {
	line, err := buildSampleLine(receiptID, s)
	if err != nil {
		return domain.SampleLine{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SampleLine{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "receipt.manage"); err != nil {
		return domain.SampleLine{}, err
	}
	rec, err := e.Repo.GetReceiptTx(ctx, tx, receiptID)
	if err != nil {
		return domain.SampleLine{}, err
	}
	if !receiptEditable(rec.Status) {
		return domain.SampleLine{}, validationf("samples can only be changed while the receipt is in draft or rejected, not %s", rec.Status)
	}
	if err := e.Repo.InsertSample(ctx, tx, line); err != nil {
		return domain.SampleLine{}, err
	}
	if err := e.Repo.TouchReceipt(ctx, tx, receiptID, e.nowStr()); err != nil {
		return domain.SampleLine{}, err
	}
	if err := e.Events.Append(ctx, tx, "receipt.sample.added", "receipt", receiptID, actorID, events.EventPayload{"sample_id": line.ID}); err != nil {
		return domain.SampleLine{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SampleLine{}, err
	}
	return line, nil
}

func (e Engine) RemoveSample(ctx context.Context, receiptID, sampleID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "receipt.manage"); err != nil {
		return err
	}
	rec, err := e.Repo.GetReceiptTx(ctx, tx, receiptID)
	if err != nil {
		return err
	}
	if !receiptEditable(rec.Status) {
		return validationf("samples can only be changed while the receipt is in draft or rejected, not %s", rec.Status)
	}
	if err := e.Repo.DeleteSample(ctx, tx, receiptID, sampleID); err != nil {
		return err
	}
	if err := e.Repo.TouchReceipt(ctx, tx, receiptID, e.nowStr()); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "receipt.sample.removed", "receipt", receiptID, actorID, events.EventPayload{"sample_id": sampleID}); err != nil {
		return err
	}
	return tx.Commit()
}

func receiptEditable(status string) bool {
	return status == "draft" || status == "rejected"
}

// ReceiptStatusOptions are parameters for advancing a receipt.
type ReceiptStatusOptions struct {
	ReceiptID string
	Status    string
	Note      string
	DecidedBy string
	ActorID   string
}

// UpdateReceiptStatus moves a receipt along its verification chain and appends
// an immutable decision record. Rejecting requires a note.
func (e Engine) UpdateReceiptStatus(ctx context.Context, opts ReceiptStatusOptions) (domain.SampleReceipt, error) {
	if opts.DecidedBy == "" {
		return domain.SampleReceipt{}, validationf("decided_by is required")
	}
	requireNote := true
	if e.Config != nil {
		requireNote = e.Config.Receipts.RequireRejectNote
	}
	if opts.Status == "rejected" && requireNote && opts.Note == "" {
		return domain.SampleReceipt{}, validationf("a note is required when rejecting a receipt")
	}
	perm := "receipt.manage"
	if opts.Status == "approved" || opts.Status == "rejected" {
		perm = "receipt.decide"
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SampleReceipt{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, perm); err != nil {
		return domain.SampleReceipt{}, err
	}
	rec, err := e.Repo.GetReceiptTx(ctx, tx, opts.ReceiptID)
	if err != nil {
		return domain.SampleReceipt{}, err
	}
	if rec.Status == opts.Status {
		return e.Repo.GetReceipt(ctx, opts.ReceiptID)
	}
	if err := ensureReceiptTransition(rec.Status, opts.Status); err != nil {
		return domain.SampleReceipt{}, err
	}
	now := e.nowStr()
	decision := domain.ReceiptDecision{
		ReceiptID:      rec.ID,
		Status:         opts.Status,
		PreviousStatus: rec.Status,
		DecidedBy:      opts.DecidedBy,
		Note:           opts.Note,
		TS:             now,
	}
	if err := e.Repo.InsertReceiptDecision(ctx, tx, decision); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := e.Repo.UpdateReceiptStatus(ctx, tx, rec.ID, opts.Status, now); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := e.Events.Append(ctx, tx, "receipt.status.updated", "receipt", rec.ID, opts.ActorID, events.EventPayload{
		"from": rec.Status,
		"to":   opts.Status,
	}); err != nil {
		return domain.SampleReceipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SampleReceipt{}, err
	}
	return e.Repo.GetReceipt(ctx, opts.ReceiptID)
}

func ensureReceiptTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "draft":
		if newStatus == "submitted" {
			return nil
		}
	case "submitted":
		if newStatus == "approved" || newStatus == "rejected" {
			return nil
		}
	case "rejected":
		if newStatus == "draft" || newStatus == "submitted" {
			return nil
		}
	case "approved":
		if newStatus == "sent_to_client" {
			return nil
		}
	case "sent_to_client":
		if newStatus == "client_acknowledged" {
			return nil
		}
	}
	return validationf("invalid receipt status transition %s -> %s", oldStatus, newStatus)
}

// DeleteReceipt removes a draft receipt with its samples and decisions.
func (e Engine) DeleteReceipt(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "receipt.manage"); err != nil {
		return err
	}
	rec, err := e.Repo.GetReceiptTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !receiptEditable(rec.Status) {
		return validationf("only draft or rejected receipts can be deleted")
	}
	if err := e.Repo.DeleteReceipt(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "receipt.deleted", "receipt", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}
