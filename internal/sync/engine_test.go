package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"addresshub/internal/address/models"
	"addresshub/internal/address/store"
	"addresshub/internal/crypto"
	"addresshub/internal/ledger"
	"addresshub/internal/sync/mocks"
	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"
)

type EngineSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *store.Memory
	cipher     *crypto.FieldCipher
	mockLedger *mocks.MockLedgerClient
	engine     *Engine
	ctx        context.Context
	now        time.Time
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewMemory()

	cipher, err := crypto.New(crypto.Config{Password: "test-password", Salt: "test-salt"})
	s.Require().NoError(err)
	s.cipher = cipher

	s.mockLedger = mocks.NewMockLedgerClient(s.ctrl)
	s.engine = New(s.store, s.mockLedger, ledger.NewStaticSigner("operator"), s.cipher, Config{
		BatchSize:      10,
		RetryLimit:     3,
		RetryBaseDelay: time.Millisecond,
	})
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// seedAddress inserts an active, unsynced address with encrypted fields, the
// same shape the write path produces.
func (s *EngineSuite) seedAddress(name string, userID id.UserID) *models.Address {
	addr, err := models.NewAddress(id.AddressID(uuid.New()), userID, name, map[string]string{
		"line":        "42 Wallaby Way",
		"street":      "Wallaby Way",
		"suburb":      "Harbourside",
		"region":      "NSW",
		"postal_code": "2000",
	}, false, s.now)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Second)

	enc, err := s.cipher.EncryptFields(addr.FieldMap(), models.EncryptedFields)
	s.Require().NoError(err)
	addr.ApplyFieldMap(enc)

	s.Require().NoError(s.store.Create(s.ctx, addr))
	return addr
}

// TestUnreachableLedger verifies the whole-batch failure path: no per-item
// calls, every item reported failed, no sync flag touched, and the batch
// retried as a whole up to the ceiling.
func (s *EngineSuite) TestUnreachableLedger() {
	for i := 0; i < 3; i++ {
		s.seedAddress(fmt.Sprintf("addr-%d", i), id.UserID(uuid.New()))
	}
	// initial attempt plus three retries
	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(false).Times(4)

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, result.Processed)
	s.Equal(3, result.Failed)
	s.Len(result.Errors, 3)
	for _, itemErr := range result.Errors {
		s.ErrorIs(itemErr, sentinel.ErrUnavailable)
	}

	rows, err := s.store.SelectPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(rows, 3)
	for _, row := range rows {
		s.False(row.IsSynced)
		s.Nil(row.TxRef)
	}
}

// TestRejectedItemIsTerminal verifies a per-item rejection fails only that
// item, is never retried, and leaves the other rows synced.
func (s *EngineSuite) TestRejectedItemIsTerminal() {
	userID := id.UserID(uuid.New())
	s.seedAddress("good-1", userID)
	bad := s.seedAddress("bad", userID)
	s.seedAddress("good-2", userID)

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), ledger.Signer("operator")).
		DoAndReturn(func(_ context.Context, record ledger.Record, _ ledger.Signer) (ledger.StoreResult, error) {
			if record.Name == "bad" {
				return ledger.StoreResult{}, fmt.Errorf("store record: %w", sentinel.ErrRejected)
			}
			return ledger.StoreResult{TxRef: "0xabc", BlockRef: 7}, nil
		}).
		Times(3)

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Failed)
	s.Require().Len(result.Errors, 1)
	s.Equal(bad.ID, result.Errors[0].AddressID)
	s.ErrorIs(result.Errors[0], sentinel.ErrRejected)

	rejected, err := s.store.FindByID(s.ctx, bad.ID)
	s.Require().NoError(err)
	s.False(rejected.IsSynced)

	pending, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)

	rows, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	for _, row := range rows {
		if row.ID == bad.ID {
			continue
		}
		s.True(row.IsSynced)
		s.Require().NotNil(row.TxRef)
		s.Equal("0xabc", *row.TxRef)
	}
}

// TestMidBatchDisconnection verifies that a node going away mid-batch fails
// the remaining items without calling the ledger for them.
func (s *EngineSuite) TestMidBatchDisconnection() {
	userID := id.UserID(uuid.New())
	first := s.seedAddress("first", userID)
	s.seedAddress("second", userID)
	s.seedAddress("third", userID)

	gomock.InOrder(
		s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true),
		s.mockLedger.EXPECT().
			Store(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ledger.StoreResult{TxRef: "0x1", BlockRef: 1}, nil),
		s.mockLedger.EXPECT().
			Store(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ledger.StoreResult{}, fmt.Errorf("dial node: %w", sentinel.ErrUnavailable)),
	)

	result, retryable := s.engine.ExecuteBatch(s.ctx, s.mustPrepare(3))
	s.Equal(1, result.Processed)
	s.Equal(2, result.Failed)
	s.False(retryable, "a partially processed batch must not be retried as a whole")

	row, err := s.store.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.True(row.IsSynced)
}

func (s *EngineSuite) mustPrepare(n int) []Payload {
	addrs, err := s.store.SelectPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(addrs, n)
	payloads, prepErrs := s.engine.PrepareBatch(s.ctx, addrs, false)
	s.Require().Empty(prepErrs)
	return payloads
}

// TestPreparationFailureDropsItem verifies a per-item preparation failure is
// reported without aborting the rest of the batch.
func (s *EngineSuite) TestPreparationFailureDropsItem() {
	goodUser := id.UserID(uuid.New())
	badUser := id.UserID(uuid.New())
	s.seedAddress("resolvable", goodUser)
	dropped := s.seedAddress("unresolvable", badUser)

	s.engine.signers = signerExcept{deny: badUser}
	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ledger.StoreResult{TxRef: "0x2", BlockRef: 2}, nil)

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Failed)
	s.Require().Len(result.Errors, 1)
	s.Equal(dropped.ID, result.Errors[0].AddressID)
}

// TestPlaintextLegacyRowStillSyncs verifies the fallback decryption policy on
// the prepare path: rows written before encryption sync their stored values.
func (s *EngineSuite) TestPlaintextLegacyRowStillSyncs() {
	addr, err := models.NewAddress(id.AddressID(uuid.New()), id.UserID(uuid.New()), "legacy", map[string]string{
		"line":        "1 Old Plain Rd",
		"street":      "Old Plain Rd",
		"suburb":      "Historic",
		"region":      "VIC",
		"postal_code": "3000",
	}, false, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, addr))

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record ledger.Record, _ ledger.Signer) (ledger.StoreResult, error) {
			s.Equal("1 Old Plain Rd", record.Line)
			return ledger.StoreResult{TxRef: "0x3", BlockRef: 3}, nil
		})

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(0, result.Failed)
}

// TestDeleteBatchTombstones verifies soft-deleted synced addresses are
// removed from the ledger and flagged as no longer on it.
func (s *EngineSuite) TestDeleteBatchTombstones() {
	addr := s.seedAddress("leaving", id.UserID(uuid.New()))
	s.Require().NoError(s.store.MarkSynced(s.ctx, addr.ID, models.SyncResult{
		TxRef: "0x4", BlockRef: 4, SyncedAt: s.now,
	}))

	row, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	row.ApplyDeactivation(s.now)
	s.Require().NoError(s.store.Update(s.ctx, row))

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Delete(gomock.Any(), ledger.KeyFromAddressID(addr.ID), ledger.Signer("operator")).
		Return(ledger.StoreResult{TxRef: "0x5", BlockRef: 5}, nil)

	result, err := s.engine.SyncDeletions(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)

	row, err = s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	s.False(row.IsSynced)

	remaining, err := s.store.CountPendingDeletion(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, remaining)
}

// TestBlobFailureIsNonFatal verifies the record still syncs when the blob
// store is down, just without a blob reference.
func (s *EngineSuite) TestBlobFailureIsNonFatal() {
	addr := s.seedAddress("bloblless", id.UserID(uuid.New()))

	blobs := mocks.NewMockBlobStore(s.ctrl)
	blobs.EXPECT().PutBlob(gomock.Any(), gomock.Any()).Return("", errors.New("ipfs daemon not responding"))
	s.engine.blobs = blobs

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ledger.StoreResult{TxRef: "0x6", BlockRef: 6}, nil)

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)

	row, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	s.True(row.IsSynced)
	s.Nil(row.BlobRef)
}

// TestMidSyncEditStaysQueued verifies an owner edit landing between batch
// selection and write-back keeps its dirty bit, so the new content is picked
// up by the next cycle instead of the ledger staying stale.
func (s *EngineSuite) TestMidSyncEditStaysQueued() {
	addr := s.seedAddress("racing", id.UserID(uuid.New()))

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ledger.Record, _ ledger.Signer) (ledger.StoreResult, error) {
			// Owner edit while the ledger write is in flight.
			row, err := s.store.FindByID(s.ctx, addr.ID)
			s.Require().NoError(err)
			row.MarkDirty(row.UpdatedAt.Add(time.Second))
			s.Require().NoError(s.store.Update(s.ctx, row))
			return ledger.StoreResult{TxRef: "0x9", BlockRef: 9}, nil
		})

	result, err := s.engine.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)

	row, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	s.True(row.IsSynced)
	s.True(row.NeedsSync, "the mid-flight edit must survive the write-back")

	stale, err := s.store.CountStale(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stale)
}

// TestStaleSelection verifies an owner edit after a successful sync routes
// the record through the update batch.
func (s *EngineSuite) TestStaleSelection() {
	addr := s.seedAddress("edited", id.UserID(uuid.New()))
	s.Require().NoError(s.store.MarkSynced(s.ctx, addr.ID, models.SyncResult{
		TxRef: "0x7", BlockRef: 7, SyncedAt: s.now,
	}))

	row, err := s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	row.MarkDirty(s.now.Add(time.Minute))
	s.Require().NoError(s.store.Update(s.ctx, row))

	s.mockLedger.EXPECT().IsConnected(gomock.Any()).Return(true)
	s.mockLedger.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ledger.StoreResult{TxRef: "0x8", BlockRef: 8}, nil)

	result, err := s.engine.SyncStale(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Processed)

	row, err = s.store.FindByID(s.ctx, addr.ID)
	s.Require().NoError(err)
	s.False(row.NeedsSync)
	s.Require().NotNil(row.TxRef)
	s.Equal("0x8", *row.TxRef)
}

// signerExcept resolves every user to the operator identity except one.
type signerExcept struct {
	deny id.UserID
}

func (r signerExcept) Resolve(_ context.Context, userID id.UserID) (ledger.Signer, error) {
	if userID == r.deny {
		return "", errors.New("no signing identity on file")
	}
	return "operator", nil
}
