package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/lock"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/state"
	"github.com/Ning0612/drivemirror/internal/testutil"
)

const rootRef = "https://drive.google.com/drive/folders/root?usp=sharing"

func sampleDrive() *testutil.FakeDrive {
	d := testutil.NewFakeDrive()
	d.AddFile("root", "a", "a.txt", []byte("alpha"))
	d.AddFile("root", "b", "b.txt", []byte("bravo"))
	d.AddFolder("root", "sub", "sub")
	d.AddFile("sub", "c", "c.txt", []byte("charlie"))
	return d
}

func newService(t *testing.T, drive *testutil.FakeDrive, history *state.Manager, reporter progress.Reporter) *MirrorService {
	t.Helper()
	svc, err := NewMirrorService(drive, Options{Verify: true, History: history, Reporter: reporter})
	if err != nil {
		t.Fatalf("NewMirrorService() error = %v", err)
	}
	return svc
}

func TestNewMirrorService_NilRemote(t *testing.T) {
	if _, err := NewMirrorService(nil, Options{}); err == nil {
		t.Error("expected error for nil remote")
	}
}

func TestRun_MirrorsTree(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	history, err := state.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer history.Close()

	tracker := progress.NewTracker(nil)
	svc := newService(t, sampleDrive(), history, tracker)

	result, err := svc.Run(context.Background(), rootRef, dest, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != state.StatusSuccess || result.Summary.Downloaded != 3 {
		t.Errorf("result = %+v", result)
	}
	if snap := tracker.Snapshot(); snap.Completed != 3 || snap.Total != 3 {
		t.Errorf("progress = %+v, want 3/3", snap)
	}

	data, err := os.ReadFile(filepath.Join(dest, "sub", "c.txt"))
	if err != nil || string(data) != "charlie" {
		t.Errorf("sub/c.txt = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, lock.LockFileName)); !os.IsNotExist(err) {
		t.Error("destination lock was not released")
	}

	runs, err := history.GetHistory("root", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID || runs[0].Downloaded != 3 || runs[0].Status != state.StatusSuccess {
		t.Errorf("history = %+v", runs)
	}
}

func TestRun_SecondRunSkipsEverything(t *testing.T) {
	dest := t.TempDir()
	drive := sampleDrive()
	svc := newService(t, drive, nil, nil)

	if _, err := svc.Run(context.Background(), rootRef, dest, 4); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	opens := drive.TotalOpens()

	result, err := svc.Run(context.Background(), rootRef, dest, 4)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if result.Summary.Skipped != 3 || drive.TotalOpens() != opens {
		t.Errorf("second run summary = %+v, extra opens = %d", result.Summary, drive.TotalOpens()-opens)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	drive := sampleDrive()
	drive.FailOpen("b", domain.ErrPermissionDenied)
	drive.FailList("sub", domain.ErrRateLimited)

	result, err := newService(t, drive, nil, nil).Run(context.Background(), rootRef, t.TempDir(), 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != state.StatusPartial {
		t.Errorf("Status = %s, want partial", result.Status)
	}
	if result.Summary.Failed != 1 || result.Summary.FailedFolders != 1 || result.Summary.Downloaded != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestRun_InvalidReference(t *testing.T) {
	drive := sampleDrive()
	_, err := newService(t, drive, nil, nil).Run(context.Background(), "https://example.com/folders/x", t.TempDir(), 2)

	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Errorf("error = %v, want ErrInvalidReference", err)
	}
	if len(drive.Events()) != 0 {
		t.Error("remote was contacted for an invalid reference")
	}
}

func TestRun_DestinationLocked(t *testing.T) {
	dest := t.TempDir()
	history, err := state.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer history.Close()

	held, err := lock.New(dest)
	if err != nil {
		t.Fatalf("lock.New() error = %v", err)
	}
	if err := held.Acquire("other-run", "other-folder"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	drive := sampleDrive()
	_, err = newService(t, drive, history, nil).Run(context.Background(), rootRef, dest, 2)

	if !errors.Is(err, domain.ErrMirrorInProgress) {
		t.Errorf("error = %v, want ErrMirrorInProgress", err)
	}
	if drive.ListCalls("root") != 0 {
		t.Error("locked destination was still walked")
	}

	runs, _ := history.GetAllHistory(10)
	if len(runs) != 1 || runs[0].Status != state.StatusFailed || runs[0].Error == "" {
		t.Errorf("aborted run not recorded: %+v", runs)
	}
}

func TestRun_DestinationIsFile(t *testing.T) {
	file := testutil.CreateTestFile(t, t.TempDir(), "taken", []byte("x"))

	_, err := newService(t, sampleDrive(), nil, nil).Run(context.Background(), rootRef, file, 2)
	if !errors.Is(err, domain.ErrNotDirectory) {
		t.Errorf("error = %v, want ErrNotDirectory", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newService(t, sampleDrive(), nil, nil).Run(ctx, rootRef, t.TempDir(), 2)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if result == nil || result.Status != state.StatusFailed {
		t.Errorf("result = %+v, want failed status", result)
	}
}

func TestRun_CredentialsRejectedAtRoot(t *testing.T) {
	dest := t.TempDir()
	history, err := state.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer history.Close()

	drive := sampleDrive()
	drive.FailList("root", domain.ErrUnauthorized)

	result, err := newService(t, drive, history, nil).Run(context.Background(), rootRef, dest, 2)

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *domain.AuthError", err)
	}
	if result == nil || result.Status != state.StatusFailed {
		t.Errorf("result = %+v, want failed status", result)
	}
	if drive.TotalOpens() != 0 {
		t.Errorf("%d downloads started with rejected credentials", drive.TotalOpens())
	}

	runs, err := history.GetHistory("root", 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("GetHistory() = %v, %v", runs, err)
	}
	if runs[0].Status != state.StatusFailed || runs[0].Error == "" {
		t.Errorf("recorded run = %+v", runs[0])
	}
	if _, err := os.Stat(filepath.Join(dest, lock.LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file left behind after an auth failure")
	}
}

func TestRun_RemoteLockFileIsNotSkipped(t *testing.T) {
	drive := sampleDrive()
	drive.AddFile("root", "remote-lock", lock.LockFileName, []byte("{}"))

	result, err := newService(t, drive, nil, nil).Run(context.Background(), rootRef, t.TempDir(), 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Summary.Failed != 1 || result.Summary.Skipped != 0 {
		t.Errorf("summary = %+v, want the remote lock file reported as failed", result.Summary)
	}
	if result.Status != state.StatusPartial {
		t.Errorf("Status = %s, want %s", result.Status, state.StatusPartial)
	}
}
