package engine

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"labdesk/internal/domain"
	"labdesk/internal/events"
)

// RFICreateOptions are parameters for opening an RFI thread. Exactly one
// participant group must be populated, matching InitiationType.
type RFICreateOptions struct {
	ID              string
	InitiationType  string
	Subject         string
	Description     string
	ProjectID       string
	ClientID        string
	LabInitiator    string
	ClientInitiator string
	LabReceivers    []string
	ClientReceivers []string
	Attachments     []AttachmentOptions
	ActorID         string
}

// AttachmentOptions describes a file reference to record.
type AttachmentOptions struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

func (e Engine) CreateRFI(ctx context.Context, opts RFICreateOptions) (domain.RFI, error) {
	if opts.Subject == "" {
		return domain.RFI{}, validationf("subject is required")
	}
	if opts.Description == "" {
		return domain.RFI{}, validationf("description is required")
	}
	switch opts.InitiationType {
	case "internal_internal":
		if opts.LabInitiator == "" {
			return domain.RFI{}, validationf("lab_initiator is required for internal_internal")
		}
		if len(opts.LabReceivers) == 0 {
			return domain.RFI{}, validationf("at least one lab_receiver is required for internal_internal")
		}
		if opts.ClientInitiator != "" || len(opts.ClientReceivers) != 0 {
			return domain.RFI{}, validationf("client participants are not permitted for internal_internal")
		}
	case "internal_external":
		if opts.LabInitiator == "" {
			return domain.RFI{}, validationf("lab_initiator is required for internal_external")
		}
		if len(opts.ClientReceivers) == 0 {
			return domain.RFI{}, validationf("at least one client_receiver is required for internal_external")
		}
		if opts.ClientInitiator != "" || len(opts.LabReceivers) != 0 {
			return domain.RFI{}, validationf("only lab_initiator and client_receivers are permitted for internal_external")
		}
	case "external_internal":
		if opts.ClientInitiator == "" {
			return domain.RFI{}, validationf("client_initiator is required for external_internal")
		}
		if opts.LabInitiator != "" || len(opts.ClientReceivers) != 0 {
			return domain.RFI{}, validationf("only client_initiator and lab_receivers are permitted for external_internal")
		}
	default:
		return domain.RFI{}, validationf("initiation_type must be internal_internal, internal_external or external_internal")
	}
	if opts.InitiationType != "internal_internal" {
		if opts.ProjectID == "" || opts.ClientID == "" {
			return domain.RFI{}, validationf("project and client are required for %s", opts.InitiationType)
		}
	}
	var project *domain.Project
	if opts.ProjectID != "" {
		p, err := e.Repo.GetProject(ctx, opts.ProjectID)
		if err != nil {
			return domain.RFI{}, err
		}
		project = &p
	}
	if opts.ClientID != "" {
		if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
			return domain.RFI{}, err
		}
		if project != nil && project.ClientID != opts.ClientID {
			return domain.RFI{}, validationf("project %s does not belong to client %s", opts.ProjectID, opts.ClientID)
		}
	}
	if opts.LabInitiator != "" {
		if _, err := e.Repo.GetPersonnel(ctx, opts.LabInitiator); err != nil {
			return domain.RFI{}, err
		}
	}
	for _, pid := range opts.LabReceivers {
		if _, err := e.Repo.GetPersonnel(ctx, pid); err != nil {
			return domain.RFI{}, err
		}
	}
	if opts.ClientInitiator != "" {
		if err := e.ensureContactMembership(ctx, opts.ClientInitiator, project, opts.ClientID); err != nil {
			return domain.RFI{}, err
		}
	}
	for _, cid := range opts.ClientReceivers {
		if err := e.ensureContactMembership(ctx, cid, project, opts.ClientID); err != nil {
			return domain.RFI{}, err
		}
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowStr()
	rfi := domain.RFI{
		ID:              id,
		InitiationType:  opts.InitiationType,
		Subject:         opts.Subject,
		Description:     opts.Description,
		ProjectID:       optionalString(opts.ProjectID),
		ClientID:        optionalString(opts.ClientID),
		LabInitiator:    optionalString(opts.LabInitiator),
		ClientInitiator: optionalString(opts.ClientInitiator),
		LabReceivers:    opts.LabReceivers,
		ClientReceivers: opts.ClientReceivers,
		Status:          "open",
		DateSubmitted:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RFI{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "rfi.manage"); err != nil {
		return domain.RFI{}, err
	}
	if err := e.Repo.InsertRFI(ctx, tx, rfi); err != nil {
		return domain.RFI{}, err
	}
	for _, att := range opts.Attachments {
		a := domain.Attachment{
			ID:          uuid.New().String(),
			OwnerKind:   "rfi",
			OwnerID:     rfi.ID,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
			CreatedAt:   now,
		}
		if err := e.Repo.InsertAttachment(ctx, tx, a); err != nil {
			return domain.RFI{}, err
		}
		rfi.Attachments = append(rfi.Attachments, a)
	}
	if err := e.Events.Append(ctx, tx, "rfi.created", "rfi", rfi.ID, opts.ActorID, events.EventPayload{
		"initiation_type": rfi.InitiationType,
		"subject":         rfi.Subject,
		"status":          rfi.Status,
	}); err != nil {
		return domain.RFI{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RFI{}, err
	}
	return rfi, nil
}

// ensureContactMembership checks that a contact belongs to the client and, when
// a project is given, sits in its contact membership set.
func (e Engine) ensureContactMembership(ctx context.Context, contactID string, project *domain.Project, clientID string) error {
	contact, err := e.Repo.GetContact(ctx, contactID)
	if err != nil {
		return err
	}
	if clientID != "" && contact.ClientID != clientID {
		return validationf("contact %s is not linked to client %s", contactID, clientID)
	}
	if project != nil {
		for _, member := range project.ContactPersons {
			if member == contactID {
				return nil
			}
		}
		return validationf("contact %s is not a member of project %s", contactID, project.ID)
	}
	return nil
}

// MessageOptions are parameters for appending a conversation message.
type MessageOptions struct {
	RFIID        string
	Message      string
	SentByClient bool
	SenderID     string
	Attachments  []AttachmentOptions
	ActorID      string
}

func (e Engine) AppendMessage(ctx context.Context, opts MessageOptions) (domain.ConversationMessage, error) {
	if opts.Message == "" && len(opts.Attachments) == 0 {
		return domain.ConversationMessage{}, validationf("message text or attachments required")
	}
	if opts.SenderID == "" {
		return domain.ConversationMessage{}, validationf("sender is required")
	}
	if opts.SentByClient {
		if _, err := e.Repo.GetContact(ctx, opts.SenderID); err != nil {
			return domain.ConversationMessage{}, err
		}
	} else {
		if _, err := e.Repo.GetPersonnel(ctx, opts.SenderID); err != nil {
			return domain.ConversationMessage{}, err
		}
	}
	now := e.nowStr()
	msg := domain.ConversationMessage{
		Key:          uuid.New().String(),
		RFIID:        opts.RFIID,
		Message:      opts.Message,
		SentByClient: opts.SentByClient,
		Timestamp:    now,
	}
	if opts.SentByClient {
		msg.ClientSender = &opts.SenderID
	} else {
		msg.LabSender = &opts.SenderID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ConversationMessage{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "rfi.manage"); err != nil {
		return domain.ConversationMessage{}, err
	}
	rfi, err := e.Repo.GetRFITx(ctx, tx, opts.RFIID)
	if err != nil {
		return domain.ConversationMessage{}, err
	}
	existing, err := e.Repo.CountMessagesTx(ctx, tx, rfi.ID)
	if err != nil {
		return domain.ConversationMessage{}, err
	}
	if err := e.Repo.InsertMessage(ctx, tx, msg); err != nil {
		return domain.ConversationMessage{}, err
	}
	for _, att := range opts.Attachments {
		a := domain.Attachment{
			ID:          uuid.New().String(),
			OwnerKind:   "message",
			OwnerID:     msg.Key,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
			CreatedAt:   now,
		}
		if err := e.Repo.InsertAttachment(ctx, tx, a); err != nil {
			return domain.ConversationMessage{}, err
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	// First message moves the thread out of open.
	if existing == 0 && rfi.Status == "open" {
		if err := e.transitionTx(ctx, tx, &rfi, "in_progress", opts.SenderID, ""); err != nil {
			return domain.ConversationMessage{}, err
		}
	} else if err := e.Repo.TouchRFI(ctx, tx, rfi.ID, now); err != nil {
		return domain.ConversationMessage{}, err
	}
	if err := e.Events.Append(ctx, tx, "rfi.message.appended", "rfi", rfi.ID, opts.ActorID, events.EventPayload{
		"message_key":    msg.Key,
		"sent_by_client": msg.SentByClient,
	}); err != nil {
		return domain.ConversationMessage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ConversationMessage{}, err
	}
	return msg, nil
}

// SetOfficialResponse marks or unmarks a message as the authoritative answer.
// Marking resolves the thread; unmarking leaves the status untouched.
func (e Engine) SetOfficialResponse(ctx context.Context, rfiID, messageKey string, isOfficial bool, actorID string) (domain.RFI, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RFI{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "rfi.respond"); err != nil {
		return domain.RFI{}, err
	}
	rfi, err := e.Repo.GetRFITx(ctx, tx, rfiID)
	if err != nil {
		return domain.RFI{}, err
	}
	if _, err := e.Repo.GetMessageTx(ctx, tx, rfiID, messageKey); err != nil {
		return domain.RFI{}, err
	}
	if isOfficial {
		if err := e.Repo.ClearOfficialResponses(ctx, tx, rfiID); err != nil {
			return domain.RFI{}, err
		}
		if err := e.Repo.SetMessageOfficial(ctx, tx, rfiID, messageKey, true); err != nil {
			return domain.RFI{}, err
		}
		if rfi.Status != "resolved" {
			if err := e.transitionTx(ctx, tx, &rfi, "resolved", actorID, ""); err != nil {
				return domain.RFI{}, err
			}
		}
	} else {
		if err := e.Repo.SetMessageOfficial(ctx, tx, rfiID, messageKey, false); err != nil {
			return domain.RFI{}, err
		}
		if err := e.Repo.TouchRFI(ctx, tx, rfiID, e.nowStr()); err != nil {
			return domain.RFI{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "rfi.official_response.set", "rfi", rfiID, actorID, events.EventPayload{
		"message_key": messageKey,
		"is_official": isOfficial,
	}); err != nil {
		return domain.RFI{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RFI{}, err
	}
	return e.Repo.GetRFI(ctx, rfiID)
}

// StatusUpdateOptions are parameters for an explicit status change.
type StatusUpdateOptions struct {
	RFIID              string
	Status             string
	Reason             string
	ChangedBy          string
	OfficialMessageKey string
	ActorID            string
}

func (e Engine) UpdateStatus(ctx context.Context, opts StatusUpdateOptions) (domain.RFI, error) {
	switch opts.Status {
	case "open", "in_progress", "resolved":
	default:
		return domain.RFI{}, validationf("status must be open, in_progress or resolved")
	}
	if opts.ChangedBy == "" {
		return domain.RFI{}, validationf("changed_by is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RFI{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "rfi.manage"); err != nil {
		return domain.RFI{}, err
	}
	rfi, err := e.Repo.GetRFITx(ctx, tx, opts.RFIID)
	if err != nil {
		return domain.RFI{}, err
	}
	if rfi.Status == opts.Status {
		// Same-status update is a deliberate no-op; no history entry.
		return e.Repo.GetRFI(ctx, opts.RFIID)
	}
	if rfi.Status == "resolved" && opts.Status == "open" && opts.Reason == "" {
		return domain.RFI{}, validationf("reason is required to reopen a resolved rfi")
	}
	if err := ensureRFITransition(rfi.Status, opts.Status); err != nil {
		return domain.RFI{}, err
	}
	if opts.Status == "resolved" && opts.OfficialMessageKey != "" {
		if _, err := e.Repo.GetMessageTx(ctx, tx, opts.RFIID, opts.OfficialMessageKey); err != nil {
			return domain.RFI{}, err
		}
		if err := e.Repo.ClearOfficialResponses(ctx, tx, opts.RFIID); err != nil {
			return domain.RFI{}, err
		}
		if err := e.Repo.SetMessageOfficial(ctx, tx, opts.RFIID, opts.OfficialMessageKey, true); err != nil {
			return domain.RFI{}, err
		}
	}
	if err := e.transitionTx(ctx, tx, &rfi, opts.Status, opts.ChangedBy, opts.Reason); err != nil {
		return domain.RFI{}, err
	}
	if err := e.Events.Append(ctx, tx, "rfi.status.updated", "rfi", rfi.ID, opts.ActorID, events.EventPayload{
		"status": opts.Status,
		"reason": opts.Reason,
	}); err != nil {
		return domain.RFI{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RFI{}, err
	}
	return e.Repo.GetRFI(ctx, opts.RFIID)
}

// DeleteRFI removes the thread permanently, cascading to messages, history,
// receivers and attachments.
func (e Engine) DeleteRFI(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "rfi.manage"); err != nil {
		return err
	}
	if _, err := e.Repo.GetRFITx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Repo.DeleteRFI(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "rfi.deleted", "rfi", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// transitionTx applies a status change and its history entry inside the
// caller's transaction. The caller has already validated the transition.
func (e Engine) transitionTx(ctx context.Context, tx *sql.Tx, rfi *domain.RFI, newStatus, changedBy, reason string) error {
	now := e.nowStr()
	var dateResolved *string
	if newStatus == "resolved" {
		dateResolved = &now
	}
	entry := domain.StatusHistoryEntry{
		RFIID:          rfi.ID,
		Status:         newStatus,
		PreviousStatus: rfi.Status,
		ChangedBy:      changedBy,
		Reason:         reason,
		TS:             now,
	}
	if err := e.Repo.InsertStatusHistory(ctx, tx, entry); err != nil {
		return err
	}
	if err := e.Repo.UpdateRFIStatus(ctx, tx, rfi.ID, newStatus, dateResolved, now); err != nil {
		return err
	}
	rfi.Status = newStatus
	rfi.DateResolved = dateResolved
	return nil
}

func ensureRFITransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "open":
		if newStatus == "in_progress" || newStatus == "resolved" {
			return nil
		}
	case "in_progress":
		if newStatus == "resolved" {
			return nil
		}
	case "resolved":
		if newStatus == "open" {
			return nil
		}
	}
	return validationf("invalid rfi status transition %s -> %s", oldStatus, newStatus)
}
