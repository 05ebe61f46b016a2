package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/repo"
)

// ClientCreateOptions are parameters for registering a client.
type ClientCreateOptions struct {
	ID      string
	Name    string
	Address string
	Email   string
	Phone   string
	ActorID string
}

func (e Engine) CreateClient(ctx context.Context, opts ClientCreateOptions) (domain.Client, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Client{}, validationf("client name is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := e.Repo.GetClient(ctx, id); err == nil {
		return domain.Client{}, conflictf("client %s already exists", id)
	} else if err != repo.ErrNotFound {
		return domain.Client{}, err
	}
	c := domain.Client{
		ID:        id,
		Name:      opts.Name,
		Address:   opts.Address,
		Email:     opts.Email,
		Phone:     opts.Phone,
		Status:    "active",
		CreatedAt: e.nowStr(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "directory.manage"); err != nil {
		return domain.Client{}, err
	}
	if err := e.Repo.InsertClient(ctx, tx, c); err != nil {
		return domain.Client{}, err
	}
	if err := e.Events.Append(ctx, tx, "client.created", "client", c.ID, opts.ActorID, events.EventPayload{"name": c.Name}); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func (e Engine) UpdateClient(ctx context.Context, id string, name, address, email, phone, status *string, actorID string) (domain.Client, error) {
	if status != nil && *status != "active" && *status != "archived" {
		return domain.Client{}, validationf("client status must be active or archived")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "directory.manage"); err != nil {
		return domain.Client{}, err
	}
	if err := e.Repo.UpdateClient(ctx, tx, id, name, address, email, phone, status); err != nil {
		return domain.Client{}, err
	}
	if err := e.Events.Append(ctx, tx, "client.updated", "client", id, actorID, events.EventPayload{}); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	return e.Repo.GetClient(ctx, id)
}

// ContactCreateOptions are parameters for adding a client contact.
type ContactCreateOptions struct {
	ID       string
	ClientID string
	Name     string
	Email    string
	Phone    string
	Title    string
	ActorID  string
}

func (e Engine) CreateContact(ctx context.Context, opts ContactCreateOptions) (domain.ContactPerson, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.ContactPerson{}, validationf("contact name is required")
	}
	if opts.ClientID == "" {
		return domain.ContactPerson{}, validationf("client is required")
	}
	if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
		return domain.ContactPerson{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := e.Repo.GetContact(ctx, id); err == nil {
		return domain.ContactPerson{}, conflictf("contact %s already exists", id)
	} else if err != repo.ErrNotFound {
		return domain.ContactPerson{}, err
	}
	c := domain.ContactPerson{
		ID:        id,
		ClientID:  opts.ClientID,
		Name:      opts.Name,
		Email:     opts.Email,
		Phone:     opts.Phone,
		Title:     opts.Title,
		CreatedAt: e.nowStr(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ContactPerson{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "directory.manage"); err != nil {
		return domain.ContactPerson{}, err
	}
	if err := e.Repo.InsertContact(ctx, tx, c); err != nil {
		return domain.ContactPerson{}, err
	}
	if err := e.Events.Append(ctx, tx, "contact.created", "contact", c.ID, opts.ActorID, events.EventPayload{"client_id": c.ClientID, "name": c.Name}); err != nil {
		return domain.ContactPerson{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ContactPerson{}, err
	}
	return c, nil
}

// DeleteContact removes a contact permanently, including its project links.
func (e Engine) DeleteContact(ctx context.Context, id, actorID string) error {
	if _, err := e.Repo.GetContact(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "directory.manage"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_contacts WHERE contact_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contact_persons WHERE id=?`, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "contact.deleted", "contact", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// DepartmentCreateOptions are parameters for creating a department.
type DepartmentCreateOptions struct {
	ID        string
	Name      string
	ManagerID string
	ActorID   string
}

func (e Engine) CreateDepartment(ctx context.Context, opts DepartmentCreateOptions) (domain.Department, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Department{}, validationf("department name is required")
	}
	if opts.ManagerID != "" {
		if _, err := e.Repo.GetPersonnel(ctx, opts.ManagerID); err != nil {
			return domain.Department{}, err
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := e.Repo.GetDepartment(ctx, id); err == nil {
		return domain.Department{}, conflictf("department %s already exists", id)
	} else if err != repo.ErrNotFound {
		return domain.Department{}, err
	}
	d := domain.Department{
		ID:        id,
		Name:      opts.Name,
		ManagerID: optionalString(opts.ManagerID),
		CreatedAt: e.nowStr(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Department{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "directory.manage"); err != nil {
		return domain.Department{}, err
	}
	if err := e.Repo.InsertDepartment(ctx, tx, d); err != nil {
		return domain.Department{}, err
	}
	if err := e.Events.Append(ctx, tx, "department.created", "department", d.ID, opts.ActorID, events.EventPayload{"name": d.Name}); err != nil {
		return domain.Department{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Department{}, err
	}
	return d, nil
}

// PersonnelCreateOptions are parameters for registering lab personnel.
type PersonnelCreateOptions struct {
	ID           string
	Name         string
	Email        string
	DepartmentID string
	Role         string
	ActorID      string
}

func (e Engine) CreatePersonnel(ctx context.Context, opts PersonnelCreateOptions) (domain.Personnel, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Personnel{}, validationf("personnel name is required")
	}
	if opts.DepartmentID != "" {
		if _, err := e.Repo.GetDepartment(ctx, opts.DepartmentID); err != nil {
			return domain.Personnel{}, err
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := e.Repo.GetPersonnel(ctx, id); err == nil {
		return domain.Personnel{}, conflictf("personnel %s already exists", id)
	} else if err != repo.ErrNotFound {
		return domain.Personnel{}, err
	}
	p := domain.Personnel{
		ID:           id,
		Name:         opts.Name,
		Email:        opts.Email,
		DepartmentID: optionalString(opts.DepartmentID),
		Role:         opts.Role,
		Status:       "active",
		CreatedAt:    e.nowStr(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Personnel{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "directory.manage"); err != nil {
		return domain.Personnel{}, err
	}
	if err := e.Repo.InsertPersonnel(ctx, tx, p); err != nil {
		return domain.Personnel{}, err
	}
	if err := e.Events.Append(ctx, tx, "personnel.created", "personnel", p.ID, opts.ActorID, events.EventPayload{"name": p.Name}); err != nil {
		return domain.Personnel{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Personnel{}, err
	}
	return p, nil
}

func (e Engine) SetPersonnelStatus(ctx context.Context, id, status, actorID string) (domain.Personnel, error) {
	if status != "active" && status != "inactive" {
		return domain.Personnel{}, validationf("personnel status must be active or inactive")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Personnel{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "directory.manage"); err != nil {
		return domain.Personnel{}, err
	}
	if err := e.Repo.UpdatePersonnelStatus(ctx, tx, id, status); err != nil {
		return domain.Personnel{}, err
	}
	if err := e.Events.Append(ctx, tx, "personnel.updated", "personnel", id, actorID, events.EventPayload{"status": status}); err != nil {
		return domain.Personnel{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Personnel{}, err
	}
	return e.Repo.GetPersonnel(ctx, id)
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ID             string
	ClientID       string
	Name           string
	Description    string
	ContactPersons []string
	ActorID        string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Project{}, validationf("project name is required")
	}
	if opts.ClientID == "" {
		return domain.Project{}, validationf("client is required")
	}
	if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
		return domain.Project{}, err
	}
	for _, cid := range opts.ContactPersons {
		contact, err := e.Repo.GetContact(ctx, cid)
		if err != nil {
			return domain.Project{}, err
		}
		if contact.ClientID != opts.ClientID {
			return domain.Project{}, validationf("contact %s does not belong to client %s", cid, opts.ClientID)
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := e.Repo.GetProject(ctx, id); err == nil {
		return domain.Project{}, conflictf("project %s already exists", id)
	} else if err != repo.ErrNotFound {
		return domain.Project{}, err
	}
	p := domain.Project{
		ID:             id,
		ClientID:       opts.ClientID,
		Name:           opts.Name,
		Description:    opts.Description,
		Status:         "active",
		ContactPersons: opts.ContactPersons,
		CreatedAt:      e.nowStr(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, opts.ActorID, "directory.manage"); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.created", "project", p.ID, opts.ActorID, events.EventPayload{"client_id": p.ClientID, "name": p.Name}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// SetProjectContacts replaces a project's contact membership set.
func (e Engine) SetProjectContacts(ctx context.Context, projectID string, contactIDs []string, actorID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	for _, cid := range contactIDs {
		contact, err := e.Repo.GetContact(ctx, cid)
		if err != nil {
			return domain.Project{}, err
		}
		if contact.ClientID != p.ClientID {
			return domain.Project{}, validationf("contact %s does not belong to client %s", cid, p.ClientID)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "directory.manage"); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.ReplaceProjectContacts(ctx, tx, projectID, contactIDs); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.contacts.updated", "project", projectID, actorID, events.EventPayload{"contacts": contactIDs}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.ContactPersons = contactIDs
	return p, nil
}

func (e Engine) UpdateProject(ctx context.Context, id string, name, description, status *string, actorID string) (domain.Project, error) {
	if status != nil {
		switch *status {
		case "active", "completed", "archived":
		default:
			return domain.Project{}, validationf("project status must be active, completed or archived")
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.requirePermission(ctx, tx, actorID, "directory.manage"); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpdateProject(ctx, tx, id, name, description, status); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.updated", "project", id, actorID, events.EventPayload{}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, id)
}
