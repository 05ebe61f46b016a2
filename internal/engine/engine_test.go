package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/db"
	"labdesk/internal/engine"
	"labdesk/internal/migrate"
	"labdesk/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("lab-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

// seedDirectory creates a client "acme" with contact "carol", personnel
// "pat"/"quinn", and project "road" linked to carol.
func seedDirectory(t *testing.T, env testEnv) {
	t.Helper()
	if _, err := env.Engine.CreateClient(env.Ctx, engine.ClientCreateOptions{ID: "acme", Name: "Acme Ltd", ActorID: "tester"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := env.Engine.CreateContact(env.Ctx, engine.ContactCreateOptions{ID: "carol", ClientID: "acme", Name: "Carol", ActorID: "tester"}); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	for _, id := range []string{"pat", "quinn"} {
		if _, err := env.Engine.CreatePersonnel(env.Ctx, engine.PersonnelCreateOptions{ID: id, Name: id, ActorID: "tester"}); err != nil {
			t.Fatalf("create personnel %s: %v", id, err)
		}
	}
	if _, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		ID: "road", ClientID: "acme", Name: "Road tests", ContactPersons: []string{"carol"}, ActorID: "tester",
	}); err != nil {
		t.Fatalf("create project: %v", err)
	}
}

func newRFIEnv(t *testing.T) testEnv {
	env := newTestEnv(t)
	seedDirectory(t, env)
	return env
}

func createRFI(t *testing.T, env testEnv) string {
	t.Helper()
	rfi, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		InitiationType:  "internal_external",
		Subject:         "Concrete strength results",
		Description:     "When will the 28-day results be ready?",
		ProjectID:       "road",
		ClientID:        "acme",
		LabInitiator:    "pat",
		ClientReceivers: []string{"carol"},
		ActorID:         "tester",
	})
	if err != nil {
		t.Fatalf("create rfi: %v", err)
	}
	return rfi.ID
}

func TestCreateRFIStartsOpenWithEmptyHistory(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	rfi, err := env.Engine.Repo.GetRFI(env.Ctx, id)
	if err != nil {
		t.Fatalf("get rfi: %v", err)
	}
	if rfi.Status != "open" {
		t.Fatalf("expected open, got %s", rfi.Status)
	}
	if len(rfi.Conversation) != 0 || len(rfi.StatusHistory) != 0 {
		t.Fatalf("expected empty conversation and history, got %d/%d", len(rfi.Conversation), len(rfi.StatusHistory))
	}
	if rfi.DateSubmitted == "" {
		t.Fatalf("expected date_submitted set")
	}
}

func TestRFIParticipantValidation(t *testing.T) {
	env := newRFIEnv(t)
	cases := []struct {
		name string
		opts engine.RFICreateOptions
	}{
		{"internal_external without lab initiator", engine.RFICreateOptions{
			InitiationType: "internal_external", Subject: "s", Description: "d",
			ProjectID: "road", ClientID: "acme", ClientReceivers: []string{"carol"},
		}},
		{"internal_external with client initiator", engine.RFICreateOptions{
			InitiationType: "internal_external", Subject: "s", Description: "d",
			ProjectID: "road", ClientID: "acme", LabInitiator: "pat",
			ClientInitiator: "carol", ClientReceivers: []string{"carol"},
		}},
		{"external_internal without client initiator", engine.RFICreateOptions{
			InitiationType: "external_internal", Subject: "s", Description: "d",
			ProjectID: "road", ClientID: "acme",
		}},
		{"external_internal with client receivers", engine.RFICreateOptions{
			InitiationType: "external_internal", Subject: "s", Description: "d",
			ProjectID: "road", ClientID: "acme", ClientInitiator: "carol",
			ClientReceivers: []string{"carol"},
		}},
		{"internal_internal with client participants", engine.RFICreateOptions{
			InitiationType: "internal_internal", Subject: "s", Description: "d",
			LabInitiator: "pat", LabReceivers: []string{"quinn"},
			ClientReceivers: []string{"carol"},
		}},
		{"internal_external without project", engine.RFICreateOptions{
			InitiationType: "internal_external", Subject: "s", Description: "d",
			LabInitiator: "pat", ClientReceivers: []string{"carol"},
		}},
	}
	for _, tc := range cases {
		tc.opts.ActorID = "tester"
		if _, err := env.Engine.CreateRFI(env.Ctx, tc.opts); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
	// internal_internal needs no project or client
	if _, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		InitiationType: "internal_internal", Subject: "s", Description: "d",
		LabInitiator: "pat", LabReceivers: []string{"quinn"}, ActorID: "tester",
	}); err != nil {
		t.Fatalf("internal_internal: %v", err)
	}
}

func TestRFIContactMembership(t *testing.T) {
	env := newRFIEnv(t)
	// dave belongs to acme but is not linked to the project
	if _, err := env.Engine.CreateContact(env.Ctx, engine.ContactCreateOptions{ID: "dave", ClientID: "acme", Name: "Dave", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		InitiationType: "internal_external", Subject: "s", Description: "d",
		ProjectID: "road", ClientID: "acme", LabInitiator: "pat",
		ClientReceivers: []string{"dave"}, ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected membership error")
	}
	var vErr engine.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestFirstMessageMovesToInProgress(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	if _, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{
		RFIID: id, Message: "Results expected Friday.", SenderID: "pat", ActorID: "tester",
	}); err != nil {
		t.Fatalf("append message: %v", err)
	}
	rfi, err := env.Engine.Repo.GetRFI(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rfi.Status != "in_progress" {
		t.Fatalf("expected in_progress, got %s", rfi.Status)
	}
	if len(rfi.StatusHistory) != 1 || rfi.StatusHistory[0].Status != "in_progress" || rfi.StatusHistory[0].PreviousStatus != "open" {
		t.Fatalf("unexpected history: %+v", rfi.StatusHistory)
	}
	// second message leaves the status alone
	if _, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{
		RFIID: id, Message: "Thanks!", SenderID: "carol", SentByClient: true, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	rfi, _ = env.Engine.Repo.GetRFI(env.Ctx, id)
	if rfi.Status != "in_progress" || len(rfi.StatusHistory) != 1 {
		t.Fatalf("second message must not add history: %s %d", rfi.Status, len(rfi.StatusHistory))
	}
	if len(rfi.Conversation) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rfi.Conversation))
	}
}

func TestOfficialResponseResolvesAndIsExclusive(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	m1, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "first", SenderID: "pat", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	m2, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "second", SenderID: "quinn", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	rfi, err := env.Engine.SetOfficialResponse(env.Ctx, id, m1.Key, true, "tester")
	if err != nil {
		t.Fatalf("set official: %v", err)
	}
	if rfi.Status != "resolved" || rfi.DateResolved == nil {
		t.Fatalf("expected resolved with date, got %s", rfi.Status)
	}
	// moving the flag must clear the previous one and not double-resolve
	historyBefore := len(rfi.StatusHistory)
	rfi, err = env.Engine.SetOfficialResponse(env.Ctx, id, m2.Key, true, "tester")
	if err != nil {
		t.Fatal(err)
	}
	official := 0
	for _, m := range rfi.Conversation {
		if m.IsOfficialResponse {
			official++
			if m.Key != m2.Key {
				t.Fatalf("wrong official message %s", m.Key)
			}
		}
	}
	if official != 1 {
		t.Fatalf("expected exactly one official response, got %d", official)
	}
	if len(rfi.StatusHistory) != historyBefore {
		t.Fatalf("re-marking must not add history")
	}
	// unmarking clears the flag but does not reopen
	rfi, err = env.Engine.SetOfficialResponse(env.Ctx, id, m2.Key, false, "tester")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range rfi.Conversation {
		if m.IsOfficialResponse {
			t.Fatalf("expected no official response")
		}
	}
	if rfi.Status != "resolved" {
		t.Fatalf("unmarking must keep resolved, got %s", rfi.Status)
	}
}

func TestReopenRequiresReason(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	m, _ := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "answer", SenderID: "pat", ActorID: "tester"})
	if _, err := env.Engine.SetOfficialResponse(env.Ctx, id, m.Key, true, "tester"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "open", ChangedBy: "pat", ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected reason required")
	}
	rfi, err := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "open", Reason: "client sent new samples", ChangedBy: "pat", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if rfi.Status != "open" {
		t.Fatalf("expected open, got %s", rfi.Status)
	}
	last := rfi.StatusHistory[len(rfi.StatusHistory)-1]
	if last.Status != "open" || last.Reason != "client sent new samples" {
		t.Fatalf("unexpected last history entry: %+v", last)
	}
}

func TestSameStatusUpdateIsNoOp(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	rfi, err := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "open", ChangedBy: "pat", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if rfi.Status != "open" || len(rfi.StatusHistory) != 0 {
		t.Fatalf("no-op must not touch history: %s %d", rfi.Status, len(rfi.StatusHistory))
	}
}

func TestInvalidRFITransition(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	if _, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "x", SenderID: "pat", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	// in_progress -> open is not allowed
	_, err := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "open", Reason: "r", ChangedBy: "pat", ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected transition error")
	}
}

func TestStatusMatchesLastHistoryEntry(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	m, _ := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "answer", SenderID: "pat", ActorID: "tester"})
	_, _ = env.Engine.SetOfficialResponse(env.Ctx, id, m.Key, true, "tester")
	rfi, _ := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "open", Reason: "more info needed", ChangedBy: "quinn", ActorID: "tester",
	})
	if n := len(rfi.StatusHistory); n == 0 || rfi.StatusHistory[n-1].Status != rfi.Status {
		t.Fatalf("status %s must match last history entry %+v", rfi.Status, rfi.StatusHistory)
	}
}

func TestResolveViaStatusUpdateWithOfficialMessage(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	m, _ := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "final answer", SenderID: "pat", ActorID: "tester"})
	rfi, err := env.Engine.UpdateStatus(env.Ctx, engine.StatusUpdateOptions{
		RFIID: id, Status: "resolved", ChangedBy: "pat", OfficialMessageKey: m.Key, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rfi.Status != "resolved" {
		t.Fatalf("expected resolved, got %s", rfi.Status)
	}
	if len(rfi.Conversation) != 1 || !rfi.Conversation[0].IsOfficialResponse {
		t.Fatalf("expected message marked official")
	}
}

func TestDeleteRFICascades(t *testing.T) {
	env := newRFIEnv(t)
	id := createRFI(t, env)
	if _, err := env.Engine.AppendMessage(env.Ctx, engine.MessageOptions{RFIID: id, Message: "x", SenderID: "pat", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteRFI(env.Ctx, id, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetRFI(env.Ctx, id); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	msgs, err := env.Engine.Repo.ListMessages(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected messages removed, got %d", len(msgs))
	}
}

func TestProjectClientMismatch(t *testing.T) {
	env := newRFIEnv(t)
	if _, err := env.Engine.CreateClient(env.Ctx, engine.ClientCreateOptions{ID: "globex", Name: "Globex", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateRFI(env.Ctx, engine.RFICreateOptions{
		InitiationType: "internal_external", Subject: "s", Description: "d",
		ProjectID: "road", ClientID: "globex", LabInitiator: "pat",
		ClientReceivers: []string{"carol"}, ActorID: "tester",
	})
	if err == nil {
		t.Fatalf("expected project/client mismatch error")
	}
}
