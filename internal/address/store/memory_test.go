package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"

	"addresshub/internal/address/models"
)

type AddressStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func (s *AddressStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func TestAddressStoreSuite(t *testing.T) {
	suite.Run(t, new(AddressStoreSuite))
}

func (s *AddressStoreSuite) newAddress(userID id.UserID, name string) *models.Address {
	now := time.Now()
	return &models.Address{
		ID:         id.AddressID(uuid.New()),
		UserID:     userID,
		Name:       name,
		Line:       "enc:line",
		Street:     "enc:street",
		Suburb:     "enc:suburb",
		Region:     "enc:region",
		PostalCode: "enc:postal",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TestCreationAndLookups verifies basic create/find behavior and ownership scoping.
func (s *AddressStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds address by ID", func() {
		addr := s.newAddress(id.UserID(uuid.New()), "home")
		s.Require().NoError(s.store.Create(s.ctx, addr))

		found, err := s.store.FindByID(s.ctx, addr.ID)
		s.Require().NoError(err)
		s.Equal(addr.Name, found.Name)
		s.Equal(addr.Line, found.Line)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.AddressID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		addr := s.newAddress(id.UserID(uuid.New()), "home")
		s.Require().NoError(s.store.Create(s.ctx, addr))
		s.ErrorIs(s.store.Create(s.ctx, addr), sentinel.ErrConflict)
	})

	s.Run("scoped lookup hides other users' addresses", func() {
		owner := id.UserID(uuid.New())
		addr := s.newAddress(owner, "home")
		s.Require().NoError(s.store.Create(s.ctx, addr))

		_, err := s.store.FindByIDForUser(s.ctx, addr.ID, id.UserID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		found, err := s.store.FindByIDForUser(s.ctx, addr.ID, owner)
		s.Require().NoError(err)
		s.Equal(addr.ID, found.ID)
	})
}

// TestListByUser verifies active-only listing ordered newest first.
func (s *AddressStoreSuite) TestListByUser() {
	userID := id.UserID(uuid.New())

	older := s.newAddress(userID, "older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := s.newAddress(userID, "newer")
	inactive := s.newAddress(userID, "inactive")
	inactive.IsActive = false
	foreign := s.newAddress(id.UserID(uuid.New()), "foreign")

	for _, a := range []*models.Address{older, newer, inactive, foreign} {
		s.Require().NoError(s.store.Create(s.ctx, a))
	}

	got, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("newer", got[0].Name)
	s.Equal("older", got[1].Name)
}

// TestDefaultInvariant verifies at most one default per user across create,
// update and SetDefault.
func (s *AddressStoreSuite) TestDefaultInvariant() {
	userID := id.UserID(uuid.New())

	s.Run("create with default clears previous default", func() {
		first := s.newAddress(userID, "first")
		first.IsDefault = true
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.newAddress(userID, "second")
		second.IsDefault = true
		s.Require().NoError(s.store.Create(s.ctx, second))

		got, err := s.store.FindByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.False(got.IsDefault)

		def, err := s.store.FindDefault(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(second.ID, def.ID)
	})

	s.Run("SetDefault moves the flag", func() {
		third := s.newAddress(userID, "third")
		s.Require().NoError(s.store.Create(s.ctx, third))
		s.Require().NoError(s.store.SetDefault(s.ctx, userID, third.ID))

		def, err := s.store.FindDefault(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(third.ID, def.ID)
	})

	s.Run("SetDefault rejects inactive address", func() {
		gone := s.newAddress(userID, "gone")
		gone.IsActive = false
		s.Require().NoError(s.store.Create(s.ctx, gone))
		s.ErrorIs(s.store.SetDefault(s.ctx, userID, gone.ID), sentinel.ErrNotFound)
	})

	s.Run("FindDefault without default returns ErrNotFound", func() {
		_, err := s.store.FindDefault(s.ctx, id.UserID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestBatchSelection verifies the three sync queues and their limits.
func (s *AddressStoreSuite) TestBatchSelection() {
	userID := id.UserID(uuid.New())

	pending := s.newAddress(userID, "pending")

	stale := s.newAddress(userID, "stale")
	stale.IsSynced = true
	stale.NeedsSync = true

	clean := s.newAddress(userID, "clean")
	clean.IsSynced = true

	deleted := s.newAddress(userID, "deleted")
	deleted.IsActive = false
	deleted.IsSynced = true

	for _, a := range []*models.Address{pending, stale, clean, deleted} {
		s.Require().NoError(s.store.Create(s.ctx, a))
	}

	s.Run("pending excludes synced and inactive rows", func() {
		got, err := s.store.SelectPending(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(pending.ID, got[0].ID)
	})

	s.Run("stale selects only dirty synced rows", func() {
		got, err := s.store.SelectStale(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(stale.ID, got[0].ID)
	})

	s.Run("pending deletion selects inactive synced rows", func() {
		got, err := s.store.SelectPendingDeletion(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(deleted.ID, got[0].ID)
	})

	s.Run("counts agree with selections", func() {
		n, err := s.store.CountPending(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)

		n, err = s.store.CountStale(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)

		n, err = s.store.CountPendingDeletion(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("limit caps selection size", func() {
		extra := s.newAddress(userID, "extra")
		s.Require().NoError(s.store.Create(s.ctx, extra))

		got, err := s.store.SelectPending(s.ctx, 1)
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

// TestSyncWriteBack verifies MarkSynced and MarkDeletedFromLedger touch only
// sync metadata.
func (s *AddressStoreSuite) TestSyncWriteBack() {
	userID := id.UserID(uuid.New())

	s.Run("MarkSynced sets metadata and clears dirty bit", func() {
		addr := s.newAddress(userID, "home")
		addr.NeedsSync = true
		s.Require().NoError(s.store.Create(s.ctx, addr))

		syncedAt := time.Now()
		s.Require().NoError(s.store.MarkSynced(s.ctx, addr.ID, models.SyncResult{
			TxRef:           "0xabc",
			BlockRef:        42,
			BlobRef:         "QmBlob",
			SyncedAt:        syncedAt,
			SourceUpdatedAt: addr.UpdatedAt,
		}))

		got, err := s.store.FindByID(s.ctx, addr.ID)
		s.Require().NoError(err)
		s.True(got.IsSynced)
		s.False(got.NeedsSync)
		s.Require().NotNil(got.TxRef)
		s.Equal("0xabc", *got.TxRef)
		s.Require().NotNil(got.BlockRef)
		s.Equal(int64(42), *got.BlockRef)
		s.Require().NotNil(got.BlobRef)
		s.Equal("QmBlob", *got.BlobRef)
		s.Equal(addr.Name, got.Name) // content untouched
	})

	s.Run("MarkSynced keeps dirty bit when the row advanced mid-sync", func() {
		addr := s.newAddress(userID, "racing")
		s.Require().NoError(s.store.Create(s.ctx, addr))
		selectedAt := addr.UpdatedAt

		// Owner edit lands while the selected snapshot is in flight.
		addr.Line = "enc:line-v2"
		addr.MarkDirty(selectedAt.Add(time.Second))
		s.Require().NoError(s.store.Update(s.ctx, addr))

		s.Require().NoError(s.store.MarkSynced(s.ctx, addr.ID, models.SyncResult{
			TxRef:           "0xold",
			BlockRef:        45,
			SyncedAt:        time.Now(),
			SourceUpdatedAt: selectedAt,
		}))

		got, err := s.store.FindByID(s.ctx, addr.ID)
		s.Require().NoError(err)
		s.True(got.IsSynced)
		s.True(got.NeedsSync, "the edit must stay queued for the next cycle")
	})

	s.Run("MarkSynced keeps existing blob ref when result has none", func() {
		addr := s.newAddress(userID, "keep-blob")
		blob := "QmExisting"
		addr.BlobRef = &blob
		s.Require().NoError(s.store.Create(s.ctx, addr))

		s.Require().NoError(s.store.MarkSynced(s.ctx, addr.ID, models.SyncResult{
			TxRef:    "0xdef",
			BlockRef: 43,
			SyncedAt: time.Now(),
		}))

		got, err := s.store.FindByID(s.ctx, addr.ID)
		s.Require().NoError(err)
		s.Require().NotNil(got.BlobRef)
		s.Equal("QmExisting", *got.BlobRef)
	})

	s.Run("MarkDeletedFromLedger clears the synced flag", func() {
		addr := s.newAddress(userID, "bye")
		addr.IsActive = false
		addr.IsSynced = true
		s.Require().NoError(s.store.Create(s.ctx, addr))

		s.Require().NoError(s.store.MarkDeletedFromLedger(s.ctx, addr.ID, models.SyncResult{
			TxRef:    "0xdead",
			BlockRef: 44,
			SyncedAt: time.Now(),
		}))

		got, err := s.store.FindByID(s.ctx, addr.ID)
		s.Require().NoError(err)
		s.False(got.IsSynced)
		s.False(got.NeedsSync)
	})

	s.Run("unknown address returns ErrNotFound", func() {
		err := s.store.MarkSynced(s.ctx, id.AddressID(uuid.New()), models.SyncResult{SyncedAt: time.Now()})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCloneSemantics verifies callers cannot mutate stored state through
// returned pointers.
func (s *AddressStoreSuite) TestCloneSemantics() {
	addr := s.newAddress(id.UserID(uuid.New()), "home")
	s.Require().NoError(s.store.Create(s.ctx, addr))

	got, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	got.Name = "mutated"

	again, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	s.Equal("home", again.Name)
}
