package engine_test

import (
	"testing"

	"labdesk/internal/engine"
)

func createReceipt(t *testing.T, env testEnv) string {
	t.Helper()
	rec, err := env.Engine.CreateReceipt(env.Ctx, engine.ReceiptCreateOptions{
		ProjectID:  "road",
		ClientID:   "acme",
		ReceivedBy: "pat",
		Samples: []engine.SampleOptions{
			{Description: "Concrete core #1", Quantity: 3, Condition: "intact"},
			{Description: "Soil bag"},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return rec.ID
}

func setReceiptStatus(t *testing.T, env testEnv, id, status, note string) error {
	t.Helper()
	_, err := env.Engine.UpdateReceiptStatus(env.Ctx, engine.ReceiptStatusOptions{
		ReceiptID: id, Status: status, Note: note, DecidedBy: "quinn", ActorID: "tester",
	})
	return err
}

func TestReceiptVerificationChain(t *testing.T) {
	env := newRFIEnv(t)
	id := createReceipt(t, env)
	for _, status := range []string{"submitted", "approved", "sent_to_client", "client_acknowledged"} {
		if err := setReceiptStatus(t, env, id, status, ""); err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
	}
	rec, err := env.Engine.Repo.GetReceipt(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != "client_acknowledged" {
		t.Fatalf("expected client_acknowledged, got %s", rec.Status)
	}
	if len(rec.Decisions) != 4 {
		t.Fatalf("expected 4 decision records, got %d", len(rec.Decisions))
	}
	if rec.Decisions[0].PreviousStatus != "draft" {
		t.Fatalf("first decision must start from draft: %+v", rec.Decisions[0])
	}
}

func TestReceiptRejectRequiresNote(t *testing.T) {
	env := newRFIEnv(t)
	id := createReceipt(t, env)
	if err := setReceiptStatus(t, env, id, "submitted", ""); err != nil {
		t.Fatal(err)
	}
	if err := setReceiptStatus(t, env, id, "rejected", ""); err == nil {
		t.Fatalf("expected note required")
	}
	if err := setReceiptStatus(t, env, id, "rejected", "mislabeled samples"); err != nil {
		t.Fatalf("reject with note: %v", err)
	}
	// rejected receipts can be fixed and resubmitted
	if err := setReceiptStatus(t, env, id, "submitted", ""); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestReceiptSamplesLockedAfterSubmit(t *testing.T) {
	env := newRFIEnv(t)
	id := createReceipt(t, env)
	line, err := env.Engine.AddSample(env.Ctx, id, engine.SampleOptions{Description: "Extra core"}, "tester")
	if err != nil {
		t.Fatalf("add sample while draft: %v", err)
	}
	if err := setReceiptStatus(t, env, id, "submitted", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddSample(env.Ctx, id, engine.SampleOptions{Description: "Late arrival"}, "tester"); err == nil {
		t.Fatalf("expected add blocked after submit")
	}
	if err := env.Engine.RemoveSample(env.Ctx, id, line.ID, "tester"); err == nil {
		t.Fatalf("expected remove blocked after submit")
	}
	// rejection reopens editing
	if err := setReceiptStatus(t, env, id, "rejected", "recount needed"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.RemoveSample(env.Ctx, id, line.ID, "tester"); err != nil {
		t.Fatalf("remove after reject: %v", err)
	}
}

func TestReceiptInvalidTransition(t *testing.T) {
	env := newRFIEnv(t)
	id := createReceipt(t, env)
	if err := setReceiptStatus(t, env, id, "approved", ""); err == nil {
		t.Fatalf("draft -> approved must fail")
	}
	if err := setReceiptStatus(t, env, id, "client_acknowledged", ""); err == nil {
		t.Fatalf("draft -> client_acknowledged must fail")
	}
}

func TestReceiptDeleteOnlyWhileEditable(t *testing.T) {
	env := newRFIEnv(t)
	id := createReceipt(t, env)
	if err := setReceiptStatus(t, env, id, "submitted", ""); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteReceipt(env.Ctx, id, "tester"); err == nil {
		t.Fatalf("expected delete blocked after submit")
	}
	if err := setReceiptStatus(t, env, id, "rejected", "wrong project"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteReceipt(env.Ctx, id, "tester"); err != nil {
		t.Fatalf("delete rejected receipt: %v", err)
	}
}
