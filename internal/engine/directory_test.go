package engine_test

import (
	"errors"
	"testing"

	"labdesk/internal/engine"
	"labdesk/internal/repo"
)

func TestClientCreateIsAtomicWithAuditEvent(t *testing.T) {
	env := newTestEnv(t)
	// Make the audit insert fail so the whole mutation must roll back.
	if _, err := env.Engine.DB.Exec(`DROP TABLE events`); err != nil {
		t.Fatalf("drop events: %v", err)
	}
	_, err := env.Engine.CreateClient(env.Ctx, engine.ClientCreateOptions{ID: "acme", Name: "Acme Ltd", ActorID: "tester"})
	if err == nil {
		t.Fatalf("expected create to fail without events table")
	}
	if _, err := env.Engine.Repo.GetClient(env.Ctx, "acme"); err != repo.ErrNotFound {
		t.Fatalf("client row must not survive the failed mutation, got err=%v", err)
	}
}

func TestPersonnelStatusChangeIsAtomicWithAuditEvent(t *testing.T) {
	env := newRFIEnv(t)
	if _, err := env.Engine.DB.Exec(`DROP TABLE events`); err != nil {
		t.Fatalf("drop events: %v", err)
	}
	if _, err := env.Engine.SetPersonnelStatus(env.Ctx, "pat", "inactive", "tester"); err == nil {
		t.Fatalf("expected status change to fail without events table")
	}
	p, err := env.Engine.Repo.GetPersonnel(env.Ctx, "pat")
	if err != nil {
		t.Fatalf("get personnel: %v", err)
	}
	if p.Status != "active" {
		t.Fatalf("status change must roll back, got %s", p.Status)
	}
}

func TestDuplicateExplicitIDsConflict(t *testing.T) {
	env := newRFIEnv(t)
	var cErr engine.ConflictError

	_, err := env.Engine.CreateClient(env.Ctx, engine.ClientCreateOptions{ID: "acme", Name: "Other Acme", ActorID: "tester"})
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict for duplicate client id, got %v", err)
	}
	_, err = env.Engine.CreateContact(env.Ctx, engine.ContactCreateOptions{ID: "carol", ClientID: "acme", Name: "Carol 2", ActorID: "tester"})
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict for duplicate contact id, got %v", err)
	}
	_, err = env.Engine.CreatePersonnel(env.Ctx, engine.PersonnelCreateOptions{ID: "pat", Name: "Pat 2", ActorID: "tester"})
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict for duplicate personnel id, got %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{ID: "road", ClientID: "acme", Name: "Road 2", ActorID: "tester"})
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict for duplicate project id, got %v", err)
	}
}
