package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/model"
)

var (
	addrA = "cosmos1" + strings.Repeat("a", 38)
	addrB = "osmo1" + strings.Repeat("b", 38)
	addrC = "celestia1" + strings.Repeat("c", 38)
)

type memoryBackend struct {
	saved   []*model.Subscriber
	saves   int
	saveErr error
}

func (m *memoryBackend) Load() ([]*model.Subscriber, error) {
	return m.saved, nil
}

func (m *memoryBackend) Save(subscribers []*model.Subscriber) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.saved = subscribers
	return nil
}

func newTestRepository(t *testing.T) (*SubscriptionRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.json")
	repo := NewSubscriptionRepository(NewFileBackend(path, zap.NewNop()), zap.NewNop())
	require.NoError(t, repo.Load())
	return repo, path
}

func TestAddAddress_RegistrationScenario(t *testing.T) {
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.AddAddress("42", addrA))
	assert.ErrorIs(t, repo.AddAddress("42", addrA), ErrAlreadyExists)
	assert.ErrorIs(t, repo.AddAddress("42", "cosmos1"+strings.Repeat("a", 37)), ErrInvalidFormat)

	assert.Equal(t, []string{addrA}, repo.Addresses("42"))
}

func TestAddAddress_InvalidIsNeverPersisted(t *testing.T) {
	backend := &memoryBackend{}
	repo := NewSubscriptionRepository(backend, zap.NewNop())

	require.ErrorIs(t, repo.AddAddress("1", "juno1"+strings.Repeat("a", 38)), ErrInvalidFormat)
	assert.Equal(t, 0, backend.saves)
	assert.Empty(t, repo.Snapshot())
}

func TestAddAddress_SameAddressDifferentSubscribers(t *testing.T) {
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.AddAddress("1", addrA))
	require.NoError(t, repo.AddAddress("2", addrA))

	assert.Len(t, repo.Snapshot(), 2)
}

func TestRemoveAddress(t *testing.T) {
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.AddAddress("1", addrA))
	require.NoError(t, repo.AddAddress("1", addrB))
	require.NoError(t, repo.AddAddress("1", addrC))

	require.NoError(t, repo.RemoveAddress("1", addrB))
	assert.Equal(t, []string{addrA, addrC}, repo.Addresses("1"))

	assert.ErrorIs(t, repo.RemoveAddress("1", addrB), ErrNotFound)
	assert.ErrorIs(t, repo.RemoveAddress("unknown", addrA), ErrNotFound)
}

func TestRecordNotified_SetsOnlyGrow(t *testing.T) {
	repo, _ := newTestRepository(t)
	require.NoError(t, repo.AddAddress("1", addrA))

	require.NoError(t, repo.RecordUnbondNotified("1", addrA, []string{"abc123"}))
	require.NoError(t, repo.RecordUnbondNotified("1", addrA, []string{"def456", "abc123"}))
	assert.True(t, repo.RecordJailNotified("1", addrA, "cosmosvaloper1x"))
	assert.False(t, repo.RecordJailNotified("1", addrA, "cosmosvaloper1x"))

	wa := repo.Snapshot()[0].Find(addrA)
	require.NotNil(t, wa)
	assert.ElementsMatch(t, []string{"abc123", "def456"}, wa.NotifiedUnbondHashes.ToSlice())
	assert.ElementsMatch(t, []string{"cosmosvaloper1x"}, wa.NotifiedJailedValidators.ToSlice())
}

func TestRecordNotified_RemovedAddressIsIgnored(t *testing.T) {
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.RecordUnbondNotified("1", addrA, []string{"abc123"}))
	assert.False(t, repo.RecordJailNotified("1", addrA, "val"))
	assert.Empty(t, repo.Snapshot())
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	repo, _ := newTestRepository(t)
	require.NoError(t, repo.AddAddress("1", addrA))

	snap := repo.Snapshot()
	snap[0].Addresses[0].NotifiedUnbondHashes.Add("mutated")

	fresh := repo.Snapshot()
	assert.False(t, fresh[0].Addresses[0].NotifiedUnbondHashes.Contains("mutated"))
}

func TestSave_RoundTrip(t *testing.T) {
	repo, path := newTestRepository(t)

	require.NoError(t, repo.AddAddress("100", addrA))
	require.NoError(t, repo.AddAddress("100", addrC))
	require.NoError(t, repo.AddAddress("100", addrB))
	require.NoError(t, repo.AddAddress("200", addrB))
	require.NoError(t, repo.RemoveAddress("200", addrB))
	require.NoError(t, repo.RecordUnbondNotified("100", addrC, []string{"h1", "h2"}))
	repo.RecordJailNotified("100", addrA, "cosmosvaloper1a")
	require.NoError(t, repo.Save())

	reloaded := NewSubscriptionRepository(NewFileBackend(path, zap.NewNop()), zap.NewNop())
	require.NoError(t, reloaded.Load())

	before := repo.Snapshot()
	after := reloaded.Snapshot()
	require.Len(t, after, len(before))

	byID := make(map[string]*model.Subscriber)
	for _, s := range after {
		byID[s.ID] = s
	}
	for _, want := range before {
		got, ok := byID[want.ID]
		require.True(t, ok, "subscriber %s missing after reload", want.ID)
		require.Len(t, got.Addresses, len(want.Addresses))
		for i := range want.Addresses {
			assert.Equal(t, want.Addresses[i].Address, got.Addresses[i].Address)
			assert.True(t, want.Addresses[i].NotifiedUnbondHashes.Equal(got.Addresses[i].NotifiedUnbondHashes))
			assert.True(t, want.Addresses[i].NotifiedJailedValidators.Equal(got.Addresses[i].NotifiedJailedValidators))
		}
	}
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	backend := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())

	subs, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestFileBackend_LegacyFileWithoutJailField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	legacy := `{"555":[{"cosmosAddress":"` + addrA + `","notifiedHashes":["AA","BB"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	subs, err := NewFileBackend(path, zap.NewNop()).Load()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "555", subs[0].ID)
	assert.ElementsMatch(t, []string{"AA", "BB"}, subs[0].Addresses[0].NotifiedUnbondHashes.ToSlice())
	assert.Equal(t, 0, subs[0].Addresses[0].NotifiedJailedValidators.Cardinality())
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileBackend(path, zap.NewNop()).Load()
	require.Error(t, err)
}

func TestSave_ErrorIsWrapped(t *testing.T) {
	boom := errors.New("disk full")
	repo := NewSubscriptionRepository(&memoryBackend{saveErr: boom}, zap.NewNop())

	err := repo.AddAddress("1", addrA)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, repo.Addresses("1"))
	assert.Empty(t, repo.Snapshot(), "subscriber created by the failed add is dropped")
}

func TestAddAddress_FailedSaveCanBeRetried(t *testing.T) {
	backend := &memoryBackend{}
	repo := NewSubscriptionRepository(backend, zap.NewNop())
	require.NoError(t, repo.AddAddress("1", addrA))

	backend.saveErr = errors.New("disk full")
	require.Error(t, repo.AddAddress("1", addrB))
	assert.Equal(t, []string{addrA}, repo.Addresses("1"))

	backend.saveErr = nil
	require.NoError(t, repo.AddAddress("1", addrB))
	assert.Equal(t, []string{addrA, addrB}, repo.Addresses("1"))
	require.Len(t, backend.saved, 1)
	assert.Len(t, backend.saved[0].Addresses, 2)
}

func TestRemoveAddress_FailedSaveRestoresAddress(t *testing.T) {
	backend := &memoryBackend{}
	repo := NewSubscriptionRepository(backend, zap.NewNop())
	require.NoError(t, repo.AddAddress("1", addrA))
	require.NoError(t, repo.AddAddress("1", addrB))
	require.NoError(t, repo.AddAddress("1", addrC))
	require.NoError(t, repo.RecordUnbondNotified("1", addrB, []string{"abc123"}))

	backend.saveErr = errors.New("disk full")
	require.Error(t, repo.RemoveAddress("1", addrB))
	assert.Equal(t, []string{addrA, addrB, addrC}, repo.Addresses("1"))

	var restored *model.WatchedAddress
	for _, sub := range repo.Snapshot() {
		restored = sub.Find(addrB)
	}
	require.NotNil(t, restored)
	assert.True(t, restored.NotifiedUnbondHashes.Contains("abc123"), "notified state survives the revert")

	backend.saveErr = nil
	require.NoError(t, repo.RemoveAddress("1", addrB))
	assert.Equal(t, []string{addrA, addrC}, repo.Addresses("1"))
}

func TestRecordUnbondNotified_FailedSaveKeepsHashes(t *testing.T) {
	backend := &memoryBackend{}
	repo := NewSubscriptionRepository(backend, zap.NewNop())
	require.NoError(t, repo.AddAddress("1", addrA))

	backend.saveErr = errors.New("disk full")
	require.Error(t, repo.RecordUnbondNotified("1", addrA, []string{"abc123"}))

	backend.saveErr = nil
	require.NoError(t, repo.Save())
	assert.True(t, backend.saved[0].Addresses[0].NotifiedUnbondHashes.Contains("abc123"))
}
