package vault

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/illarion/passvault/internal/testutil"
)

func TestStoreOpenDecryptsBlob(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()
	seedBlob(t, root, Record{Label: "a.com", Secret: "A"})

	st := newStore(root, b)
	state, diag, err := st.Open(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if state != StateOpen {
		t.Errorf("State = %v, want open (%s)", state, diag)
	}
	if st.Dirty() {
		t.Error("Freshly decrypted working copy must not be dirty")
	}

	data, err := root.ReadFile(PlaintextFile)
	if err != nil {
		t.Fatalf("Working copy missing: %v", err)
	}
	if string(data) != "a.com\nA\n\n" {
		t.Errorf("Working copy = %q", data)
	}
}

func TestStoreOpenTwice(t *testing.T) {
	root := openRoot(t)
	st := newStore(root, testutil.NewFakeBackend())

	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, _, err := st.Open(context.Background(), encrypted); err == nil {
		t.Error("Second Open on an open store should fail")
	}
}

func TestStoreReconcileMergesLeftover(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()
	seedBlob(t, root, Record{Label: "sealed.com", Secret: "S"})

	leftover, _ := EncodeAll([]Record{{Label: "stray.com", Secret: "T"}})
	if err := os.WriteFile(root.Join(PlaintextFile), leftover, 0600); err != nil {
		t.Fatalf("seed leftover: %v", err)
	}

	st := newStore(root, b)
	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !st.Dirty() {
		t.Error("Merged working copy must be dirty")
	}

	records, errs, err := st.Records()
	if err != nil || len(errs) != 0 {
		t.Fatalf("Records failed: %v %v", err, errs)
	}
	if len(records) != 2 || records[0].Label != "sealed.com" || records[1].Label != "stray.com" {
		t.Errorf("Merged records = %+v", records)
	}

	ok, diag, err := st.Seal(context.Background(), encrypted)
	if !ok || err != nil {
		t.Fatalf("Seal failed: %s %v", diag, err)
	}
	if got := blobRecords(t, root); len(got) != 2 {
		t.Errorf("Blob records = %+v", got)
	}
}

func TestStoreReconcileKeepsMatchingLeftover(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()
	seedBlob(t, root, Record{Label: "a.com", Secret: "A"})

	same, _ := EncodeAll([]Record{{Label: "a.com", Secret: "A"}})
	if err := os.WriteFile(root.Join(PlaintextFile), same, 0600); err != nil {
		t.Fatalf("seed leftover: %v", err)
	}

	st := newStore(root, b)
	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if st.Dirty() {
		t.Error("Leftover identical to the blob must not be dirty")
	}

	ok, diag, _ := st.Seal(context.Background(), encrypted)
	if !ok || diag != NothingToSeal {
		t.Errorf("Seal = %v %q, want nothing to seal", ok, diag)
	}
	if b.Encrypts() != 0 {
		t.Error("Unchanged vault must not be re-encrypted")
	}
	if exists(t, root, PlaintextFile) {
		t.Error("Clean working copy should be removed")
	}
	if !exists(t, root, BlobFile) {
		t.Error("Blob must remain")
	}
}

func TestStoreLeftoverWithoutBlob(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()

	leftover, _ := EncodeAll([]Record{{Label: "only.com", Secret: "O"}})
	if err := os.WriteFile(root.Join(PlaintextFile), leftover, 0600); err != nil {
		t.Fatalf("seed leftover: %v", err)
	}

	st := newStore(root, b)
	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !st.Dirty() {
		t.Fatal("Leftover with no blob must be sealed at end")
	}
	if ok, diag, err := st.Seal(context.Background(), encrypted); !ok || err != nil {
		t.Fatalf("Seal failed: %s %v", diag, err)
	}
	if got := blobRecords(t, root); len(got) != 1 || got[0].Label != "only.com" {
		t.Errorf("Blob records = %+v", got)
	}
}

func TestStoreSealDetectsExternalEdit(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()
	seedBlob(t, root, Record{Label: "a.com", Secret: "A"})

	st := newStore(root, b)
	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	edited, _ := EncodeAll([]Record{{Label: "a.com", Secret: "changed"}})
	if err := os.WriteFile(root.Join(PlaintextFile), edited, 0600); err != nil {
		t.Fatalf("edit working copy: %v", err)
	}

	if ok, diag, err := st.Seal(context.Background(), encrypted); !ok || err != nil {
		t.Fatalf("Seal failed: %s %v", diag, err)
	}
	if b.Encrypts() != 1 {
		t.Errorf("Encrypt called %d times, want 1", b.Encrypts())
	}
	if got := blobRecords(t, root); len(got) != 1 || got[0].Secret != "changed" {
		t.Errorf("Blob records = %+v", got)
	}
}

func TestStoreSealWithoutOpen(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()

	ok, diag, err := newStore(root, b).Seal(context.Background(), encrypted)
	if !ok || diag != NothingToSeal || err != nil {
		t.Errorf("Seal = %v %q %v, want nothing to seal", ok, diag, err)
	}
	if b.Encrypts() != 0 {
		t.Error("Seal without Open must not encrypt")
	}
}

func TestStoreAppendRequiresOpen(t *testing.T) {
	root := openRoot(t)
	st := newStore(root, testutil.NewFakeBackend())

	if err := st.AppendRecord(Record{Label: "a", Secret: "b"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
	if _, _, err := st.Records(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
}

func TestStoreRecordsReportsMalformed(t *testing.T) {
	root := openRoot(t)
	st := newStore(root, testutil.NewFakeBackend())
	if _, _, err := st.Open(context.Background(), Config{}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := root.Append(PlaintextFile, []byte("broken\n\nok.com\nsecret\n\n")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, errs, err := st.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 || records[0].Label != "ok.com" {
		t.Errorf("Records = %+v", records)
	}
	if len(errs) != 1 {
		t.Errorf("Malformed = %v, want 1 error", errs)
	}
}

func TestStoreDegradedIsTerminal(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()
	b.Unavailable = true

	st := newStore(root, b)
	if state, _, _ := st.Open(context.Background(), encrypted); state != StateDegraded {
		t.Fatalf("State = %v, want degraded", state)
	}
	if !errors.Is(st.Cause(), ErrBackendUnavailable) {
		t.Errorf("Cause = %v, want ErrBackendUnavailable", st.Cause())
	}

	st.Seal(context.Background(), encrypted)
	if _, _, err := st.Open(context.Background(), encrypted); err == nil {
		t.Error("Open after degrade in the same run should fail")
	}
}

func TestCachedProbe(t *testing.T) {
	b := testutil.NewFakeBackend()
	p := BackendProbe(context.Background(), b)

	for range 3 {
		if !p.Available() {
			t.Fatal("Probe should report available")
		}
	}
	if b.Probes() != 1 {
		t.Errorf("Backend probed %d times, want 1", b.Probes())
	}
}

func TestStoreAppendTerminatesLastRecord(t *testing.T) {
	for _, existing := range []string{"a.com\nA\n", "a.com\nA", "a.com\r\nA\r\n"} {
		t.Run(strconv.Quote(existing), func(t *testing.T) {
			root := openRoot(t)
			if err := os.WriteFile(root.Join(PlaintextFile), []byte(existing), 0600); err != nil {
				t.Fatalf("seed working copy: %v", err)
			}

			st := newStore(root, testutil.NewFakeBackend())
			if _, _, err := st.Open(context.Background(), Config{}); err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if err := st.AppendRecord(Record{Label: "b.com", Secret: "B"}); err != nil {
				t.Fatalf("AppendRecord failed: %v", err)
			}

			records, errs, err := st.Records()
			if err != nil || len(errs) != 0 {
				t.Fatalf("Records failed: %v %v", err, errs)
			}
			if len(records) != 2 || records[0] != (Record{"a.com", "A"}) || records[1] != (Record{"b.com", "B"}) {
				t.Errorf("Records = %+v", records)
			}
		})
	}
}

func TestStoreReconcileUnterminatedBlob(t *testing.T) {
	root := openRoot(t)
	b := testutil.NewFakeBackend()

	if err := os.WriteFile(root.Join(BlobFile), testutil.Seal([]byte("sealed.com\nS\n")), 0600); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	leftover, _ := EncodeAll([]Record{{Label: "stray.com", Secret: "T"}})
	if err := os.WriteFile(root.Join(PlaintextFile), leftover, 0600); err != nil {
		t.Fatalf("seed leftover: %v", err)
	}

	st := newStore(root, b)
	if _, _, err := st.Open(context.Background(), encrypted); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	records, errs, err := st.Records()
	if err != nil || len(errs) != 0 {
		t.Fatalf("Records failed: %v %v", err, errs)
	}
	if len(records) != 2 || records[0].Label != "sealed.com" || records[1].Label != "stray.com" {
		t.Errorf("Merged records = %+v", records)
	}
}
