package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertClient(ctx context.Context, tx *sql.Tx, c domain.Client) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO clients(id,name,address,email,phone,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Address), nullable(c.Email), nullable(c.Phone), c.Status, c.CreatedAt)
	return err
}

func (r Repo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	var c domain.Client
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(address,''),COALESCE(email,''),COALESCE(phone,''),status,created_at FROM clients WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Address, &c.Email, &c.Phone, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListClients(ctx context.Context, status string) ([]domain.Client, error) {
	clauses := []string{"1=1"}
	var args []any
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT id,name,COALESCE(address,''),COALESCE(email,''),COALESCE(phone,''),status,created_at FROM clients WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Email, &c.Phone, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) UpdateClient(ctx context.Context, tx *sql.Tx, id string, name, address, email, phone, status *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if address != nil {
		fields = append(fields, "address=?")
		args = append(args, nullable(*address))
	}
	if email != nil {
		fields = append(fields, "email=?")
		args = append(args, nullable(*email))
	}
	if phone != nil {
		fields = append(fields, "phone=?")
		args = append(args, nullable(*phone))
	}
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE clients SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertContact(ctx context.Context, tx *sql.Tx, c domain.ContactPerson) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contact_persons(id,client_id,name,email,phone,title,created_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.ClientID, c.Name, nullable(c.Email), nullable(c.Phone), nullable(c.Title), c.CreatedAt)
	return err
}

func (r Repo) GetContact(ctx context.Context, id string) (domain.ContactPerson, error) {
	var c domain.ContactPerson
	err := r.DB.QueryRowContext(ctx, `SELECT id,client_id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(title,''),created_at FROM contact_persons WHERE id=?`, id).
		Scan(&c.ID, &c.ClientID, &c.Name, &c.Email, &c.Phone, &c.Title, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListContacts(ctx context.Context, clientID string) ([]domain.ContactPerson, error) {
	clauses := []string{"1=1"}
	var args []any
	if clientID != "" {
		clauses = append(clauses, "client_id=?")
		args = append(args, clientID)
	}
	query := `SELECT id,client_id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(title,''),created_at FROM contact_persons WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ContactPerson
	for rows.Next() {
		var c domain.ContactPerson
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Name, &c.Email, &c.Phone, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) InsertDepartment(ctx context.Context, tx *sql.Tx, d domain.Department) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO departments(id,name,manager_id,created_at) VALUES (?,?,?,?)`,
		d.ID, d.Name, nullableStringPtr(d.ManagerID), d.CreatedAt)
	return err
}

func (r Repo) GetDepartment(ctx context.Context, id string) (domain.Department, error) {
	var d domain.Department
	var manager sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,manager_id,created_at FROM departments WHERE id=?`, id).
		Scan(&d.ID, &d.Name, &manager, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if manager.Valid {
		d.ManagerID = &manager.String
	}
	return d, err
}

func (r Repo) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,manager_id,created_at FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Department
	for rows.Next() {
		var d domain.Department
		var manager sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &manager, &d.CreatedAt); err != nil {
			return nil, err
		}
		if manager.Valid {
			d.ManagerID = &manager.String
		}
		res = append(res, d)
	}
	return res, nil
}

func (r Repo) InsertPersonnel(ctx context.Context, tx *sql.Tx, p domain.Personnel) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO personnel(id,name,email,department_id,role,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Email), nullableStringPtr(p.DepartmentID), nullable(p.Role), p.Status, p.CreatedAt)
	return err
}

func (r Repo) GetPersonnel(ctx context.Context, id string) (domain.Personnel, error) {
	var p domain.Personnel
	var dept sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(email,''),department_id,COALESCE(role,''),status,created_at FROM personnel WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Email, &dept, &p.Role, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if dept.Valid {
		p.DepartmentID = &dept.String
	}
	return p, err
}

func (r Repo) ListPersonnel(ctx context.Context, departmentID, status string) ([]domain.Personnel, error) {
	clauses := []string{"1=1"}
	var args []any
	if departmentID != "" {
		clauses = append(clauses, "department_id=?")
		args = append(args, departmentID)
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT id,name,COALESCE(email,''),department_id,COALESCE(role,''),status,created_at FROM personnel WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY name ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Personnel
	for rows.Next() {
		var p domain.Personnel
		var dept sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &dept, &p.Role, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		if dept.Valid {
			p.DepartmentID = &dept.String
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpdatePersonnelStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE personnel SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects(id,client_id,name,description,status,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.ClientID, p.Name, nullable(p.Description), p.Status, p.CreatedAt); err != nil {
		return err
	}
	return r.ReplaceProjectContacts(ctx, tx, p.ID, p.ContactPersons)
}

func (r Repo) ReplaceProjectContacts(ctx context.Context, tx *sql.Tx, projectID string, contactIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_contacts WHERE project_id=?`, projectID); err != nil {
		return err
	}
	for _, cid := range contactIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_contacts(project_id,contact_id) VALUES (?,?)`, projectID, cid); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT id,client_id,name,COALESCE(description,''),status,created_at FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	contacts, err := r.listProjectContacts(ctx, id)
	if err != nil {
		return p, err
	}
	p.ContactPersons = contacts
	return p, nil
}

func (r Repo) listProjectContacts(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT contact_id FROM project_contacts WHERE project_id=? ORDER BY contact_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r Repo) ListProjects(ctx context.Context, clientID, status string) ([]domain.Project, error) {
	clauses := []string{"1=1"}
	var args []any
	if clientID != "" {
		clauses = append(clauses, "client_id=?")
		args = append(args, clientID)
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT id,client_id,name,COALESCE(description,''),status,created_at FROM projects WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, id string, name, description, status *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertLabConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO lab_config(id,config_json,created_at,updated_at) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, string(payload), now, now)
	return err
}

func (r Repo) GetLabConfig(ctx context.Context) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM lab_config WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var e domain.Event
	var entityID, payload sql.NullString
	if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
		return e, err
	}
	if entityID.Valid {
		e.EntityID = entityID.String
	}
	if payload.Valid {
		e.Payload = payload.String
	}
	return e, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
