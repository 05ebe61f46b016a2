package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"labdesk/internal/domain"
	"labdesk/internal/events"
)

// QuotationCreateOptions are parameters for drafting a quotation.
type QuotationCreateOptions struct {
	ID        string
	ProjectID string
	ClientID  string
	Items     []QuotationItemOptions
	ActorID   string
}

// QuotationItemOptions describes one billable line.
type QuotationItemOptions struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

func (e Engine) CreateQuotation(ctx context.Context, opts QuotationCreateOptions) (domain.Quotation, error) {
	if e.Config == nil {
		return domain.Quotation{}, fmt.Errorf("config not loaded")
	}
	if opts.ProjectID == "" || opts.ClientID == "" {
		return domain.Quotation{}, validationf("project and client are required")
	}
	if len(opts.Items) == 0 {
		return domain.Quotation{}, validationf("at least one line item is required")
	}
	project, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Quotation{}, err
	}
	if project.ClientID != opts.ClientID {
		return domain.Quotation{}, validationf("project %s does not belong to client %s", opts.ProjectID, opts.ClientID)
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowStr()
	q := domain.Quotation{
		ID:         id,
		ProjectID:  opts.ProjectID,
		ClientID:   opts.ClientID,
		Revision:   1,
		Status:     "draft",
		Currency:   e.Config.Billing.Currency,
		TaxPercent: e.Config.Billing.TaxPercent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, it := range opts.Items {
		item, err := buildQuotationItem(q.ID, it)
		if err != nil {
			return domain.Quotation{}, err
		}
		q.Items = append(q.Items, item)
	}
	q.Subtotal, q.Tax, q.Total = computeTotals(q.Items, q.TaxPercent)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quotation{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "quote.manage"); err != nil {
		return domain.Quotation{}, err
	}
	seq, err := e.Repo.NextQuotationSeq(ctx, tx)
	if err != nil {
		return domain.Quotation{}, err
	}
	q.Number = fmt.Sprintf("%s-%04d", e.Config.Billing.NumberPrefix, seq)
	if err := e.Repo.InsertQuotation(ctx, tx, q); err != nil {
		return domain.Quotation{}, err
	}
	if err := e.Events.Append(ctx, tx, "quotation.created", "quotation", q.ID, opts.ActorID, events.EventPayload{
		"number": q.Number,
		"total":  q.Total,
	}); err != nil {
		return domain.Quotation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Quotation{}, err
	}
	return q, nil
}

func buildQuotationItem(quotationID string, it QuotationItemOptions) (domain.QuotationItem, error) {
	if strings.TrimSpace(it.Description) == "" {
		return domain.QuotationItem{}, validationf("item description is required")
	}
	qty := it.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 || it.UnitPrice < 0 {
		return domain.QuotationItem{}, validationf("item quantity and unit price must not be negative")
	}
	return domain.QuotationItem{
		ID:          uuid.New().String(),
		QuotationID: quotationID,
		Description: it.Description,
		Quantity:    qty,
		UnitPrice:   it.UnitPrice,
		Amount:      round2(qty * it.UnitPrice),
	}, nil
}

func computeTotals(items []domain.QuotationItem, taxPercent float64) (subtotal, tax, total float64) {
	for _, it := range items {
		subtotal += it.Amount
	}
	subtotal = round2(subtotal)
	tax = round2(subtotal * taxPercent / 100)
	total = round2(subtotal + tax)
	return subtotal, tax, total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ReplaceQuotationItems swaps the line items of a draft quotation and
// recomputes its totals.
func (e Engine) ReplaceQuotationItems(ctx context.Context, quotationID string, items []QuotationItemOptions, actorID string) (domain.Quotation, error) {
	if len(items) == 0 {
		return domain.Quotation{}, validationf("at least one line item is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quotation{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "quote.manage"); err != nil {
		return domain.Quotation{}, err
	}
	q, err := e.Repo.GetQuotationTx(ctx, tx, quotationID)
	if err != nil {
		return domain.Quotation{}, err
	}
	if q.Status != "draft" {
		return domain.Quotation{}, validationf("only draft quotations can be edited")
	}
	var rebuilt []domain.QuotationItem
	for _, it := range items {
		item, err := buildQuotationItem(q.ID, it)
		if err != nil {
			return domain.Quotation{}, err
		}
		rebuilt = append(rebuilt, item)
	}
	if err := e.Repo.ReplaceQuotationItems(ctx, tx, q.ID, rebuilt); err != nil {
		return domain.Quotation{}, err
	}
	subtotal, tax, total := computeTotals(rebuilt, q.TaxPercent)
	if err := e.Repo.UpdateQuotationTotals(ctx, tx, q.ID, subtotal, tax, total, e.nowStr()); err != nil {
		return domain.Quotation{}, err
	}
	if err := e.Events.Append(ctx, tx, "quotation.updated", "quotation", q.ID, actorID, events.EventPayload{"total": total}); err != nil {
		return domain.Quotation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Quotation{}, err
	}
	return e.Repo.GetQuotation(ctx, quotationID)
}

// SetQuotationStatus advances a quotation: draft -> issued -> accepted|declined.
func (e Engine) SetQuotationStatus(ctx context.Context, id, status, actorID string) (domain.Quotation, error) {
	perm := "quote.manage"
	if status == "issued" {
		perm = "quote.issue"
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quotation{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, perm); err != nil {
		return domain.Quotation{}, err
	}
	q, err := e.Repo.GetQuotationTx(ctx, tx, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	if q.Status == status {
		return e.Repo.GetQuotation(ctx, id)
	}
	if err := ensureQuotationTransition(q.Status, status); err != nil {
		return domain.Quotation{}, err
	}
	now := e.nowStr()
	var issuedAt *string
	if status == "issued" {
		issuedAt = &now
	}
	if err := e.Repo.UpdateQuotationStatus(ctx, tx, id, status, issuedAt, now); err != nil {
		return domain.Quotation{}, err
	}
	if err := e.Events.Append(ctx, tx, "quotation.status.updated", "quotation", id, actorID, events.EventPayload{
		"from": q.Status,
		"to":   status,
	}); err != nil {
		return domain.Quotation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Quotation{}, err
	}
	return e.Repo.GetQuotation(ctx, id)
}

func ensureQuotationTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "draft":
		if newStatus == "issued" {
			return nil
		}
	case "issued":
		if newStatus == "accepted" || newStatus == "declined" {
			return nil
		}
	}
	return validationf("invalid quotation status transition %s -> %s", oldStatus, newStatus)
}

// ReviseQuotation creates a new draft linked to an issued or declined parent.
// The copy and the link are written in one transaction; the parent keeps its
// status and history.
func (e Engine) ReviseQuotation(ctx context.Context, parentID, actorID string) (domain.Quotation, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quotation{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "quote.manage"); err != nil {
		return domain.Quotation{}, err
	}
	parent, err := e.Repo.GetQuotationTx(ctx, tx, parentID)
	if err != nil {
		return domain.Quotation{}, err
	}
	if parent.Status != "issued" && parent.Status != "declined" {
		return domain.Quotation{}, validationf("only issued or declined quotations can be revised, not %s", parent.Status)
	}
	now := e.nowStr()
	rev := domain.Quotation{
		ID:         uuid.New().String(),
		Number:     fmt.Sprintf("%s-R%d", baseNumber(parent.Number), parent.Revision+1),
		ProjectID:  parent.ProjectID,
		ClientID:   parent.ClientID,
		RevisionOf: &parent.ID,
		Revision:   parent.Revision + 1,
		Status:     "draft",
		Currency:   parent.Currency,
		TaxPercent: parent.TaxPercent,
		Subtotal:   parent.Subtotal,
		Tax:        parent.Tax,
		Total:      parent.Total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, it := range parent.Items {
		rev.Items = append(rev.Items, domain.QuotationItem{
			ID:          uuid.New().String(),
			QuotationID: rev.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		})
	}
	if err := e.Repo.InsertQuotation(ctx, tx, rev); err != nil {
		return domain.Quotation{}, err
	}
	if err := e.Events.Append(ctx, tx, "quotation.revised", "quotation", rev.ID, actorID, events.EventPayload{
		"revision_of": parent.ID,
		"revision":    rev.Revision,
	}); err != nil {
		return domain.Quotation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Quotation{}, err
	}
	return rev, nil
}

// baseNumber strips a -R<n> suffix so revisions of revisions don't stack.
func baseNumber(number string) string {
	if i := strings.LastIndex(number, "-R"); i > 0 {
		suffix := number[i+2:]
		digits := len(suffix) > 0
		for _, r := range suffix {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			return number[:i]
		}
	}
	return number
}

// DeleteQuotation removes a draft quotation with its items.
func (e Engine) DeleteQuotation(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "quote.manage"); err != nil {
		return err
	}
	q, err := e.Repo.GetQuotationTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if q.Status != "draft" {
		return validationf("only draft quotations can be deleted")
	}
	if err := e.Repo.DeleteQuotation(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "quotation.deleted", "quotation", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}
