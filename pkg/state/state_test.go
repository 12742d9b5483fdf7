package state

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManagerWithDir(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestSaveAndGet(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&Record{
		Name:       "vm-test123",
		PID:        4242,
		Status:     StatusRunning,
		SocketPath: "/tmp/vm-test123-api.sock",
	}))

	rec, err := mgr.Get("vm-test123")
	require.NoError(t, err)
	assert.Equal(t, 4242, rec.PID)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Equal(t, "/tmp/vm-test123-api.sock", rec.SocketPath)
	assert.False(t, rec.StartedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Get("vm-nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVMNotFound))
}

func TestSaveUpsertsExisting(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&Record{Name: "vm-a", Status: StatusStarting}))
	require.NoError(t, mgr.Save(&Record{Name: "vm-a", PID: 99, Status: StatusRunning}))

	recs, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, StatusRunning, recs[0].Status)
	assert.Equal(t, 99, recs[0].PID)
}

func TestSetStatus(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&Record{Name: "vm-a", PID: 99, Status: StatusRunning}))
	require.NoError(t, mgr.SetStatus("vm-a", StatusStopped, 0))

	rec, err := mgr.Get("vm-a")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, rec.Status)
	assert.Equal(t, 0, rec.PID)

	err = mgr.SetStatus("vm-missing", StatusStopped, 0)
	assert.True(t, errors.Is(err, ErrVMNotFound))
}

func TestRemoveStoppedVM(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&Record{Name: "vm-a", Status: StatusStopped}))
	require.NoError(t, mgr.Remove("vm-a"))

	_, err := mgr.Get("vm-a")
	assert.True(t, errors.Is(err, ErrVMNotFound))
}

func TestRemoveRunningVMWithLiveProcess(t *testing.T) {
	mgr := newTestManager(t)

	// Our own PID is certainly alive.
	require.NoError(t, mgr.Save(&Record{Name: "vm-live", PID: os.Getpid(), Status: StatusRunning}))

	err := mgr.Remove("vm-live")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVMRunning))
}

func TestRemoveRunningVMWithDeadProcess(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Save(&Record{Name: "vm-dead", PID: 999999999, Status: StatusRunning}))
	require.NoError(t, mgr.Remove("vm-dead"))
}
