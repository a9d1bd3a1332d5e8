package dbaccess_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util/daghash"
)

func prepareDatabaseForTest(t *testing.T, testName string) (*dbaccess.DatabaseContext, func()) {
	path, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	databaseContext, err := dbaccess.New(path)
	if err != nil {
		t.Fatalf("%s: New unexpectedly failed: %s", testName, err)
	}
	teardown := func() {
		if err := databaseContext.Close(); err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
		os.RemoveAll(path)
	}
	return databaseContext, teardown
}

func lowHashForTest(seed byte) *daghash.Hash {
	hash := &daghash.Hash{}
	for i := daghash.TagSize; i < daghash.HashSize; i++ {
		hash[i] = seed
	}
	return hash
}

// TestBlockStoreRoundTrip persists block bytes and metadata and reads
// both back.
func TestBlockStoreRoundTrip(t *testing.T) {
	databaseContext, teardown := prepareDatabaseForTest(t, "TestBlockStoreRoundTrip")
	defer teardown()

	lowHash := lowHashForTest(7)
	blockBytes := make([]byte, 512)
	blockBytes[0] = 0xab
	infoBytes := []byte("derived metadata")

	exists, err := dbaccess.HasBlock(databaseContext, lowHash)
	if err != nil {
		t.Fatalf("HasBlock unexpectedly failed: %s", err)
	}
	if exists {
		t.Fatal("HasBlock is true on an empty store")
	}

	// Both writes ride one transaction; afterwards both are visible.
	dbTx, err := databaseContext.NewTx()
	if err != nil {
		t.Fatalf("NewTx unexpectedly failed: %s", err)
	}
	if err := dbaccess.StoreBlock(dbTx, lowHash, blockBytes); err != nil {
		t.Fatalf("StoreBlock unexpectedly failed: %s", err)
	}
	if err := dbaccess.StoreBlockInfo(dbTx, lowHash, infoBytes); err != nil {
		t.Fatalf("StoreBlockInfo unexpectedly failed: %s", err)
	}
	if err := dbTx.Commit(); err != nil {
		t.Fatalf("Commit unexpectedly failed: %s", err)
	}

	gotBlock, err := dbaccess.FetchBlock(databaseContext, lowHash)
	if err != nil {
		t.Fatalf("FetchBlock unexpectedly failed: %s", err)
	}
	if !bytes.Equal(gotBlock, blockBytes) {
		t.Fatal("block bytes changed across the store")
	}
	gotInfo, err := dbaccess.FetchBlockInfo(databaseContext, lowHash)
	if err != nil {
		t.Fatalf("FetchBlockInfo unexpectedly failed: %s", err)
	}
	if !bytes.Equal(gotInfo, infoBytes) {
		t.Fatal("info bytes changed across the store")
	}

	// Duplicate block bodies are refused.
	if err := dbaccess.StoreBlock(databaseContext, lowHash, blockBytes); err == nil {
		t.Fatal("StoreBlock accepted a duplicate block")
	}

	// Unknown keys surface as not-found.
	_, err = dbaccess.FetchBlock(databaseContext, lowHashForTest(8))
	if !dbaccess.IsNotFoundError(err) {
		t.Fatalf("FetchBlock of a missing block returned %v, want not-found", err)
	}
}

// TestRolledBackTxLeavesNoTrace ensures an uncommitted transaction's
// writes never become visible.
func TestRolledBackTxLeavesNoTrace(t *testing.T) {
	databaseContext, teardown := prepareDatabaseForTest(t, "TestRolledBackTxLeavesNoTrace")
	defer teardown()

	lowHash := lowHashForTest(9)
	dbTx, err := databaseContext.NewTx()
	if err != nil {
		t.Fatalf("NewTx unexpectedly failed: %s", err)
	}
	if err := dbaccess.StoreBlock(dbTx, lowHash, make([]byte, 512)); err != nil {
		t.Fatalf("StoreBlock unexpectedly failed: %s", err)
	}
	if err := dbTx.Rollback(); err != nil {
		t.Fatalf("Rollback unexpectedly failed: %s", err)
	}

	exists, err := dbaccess.HasBlock(databaseContext, lowHash)
	if err != nil {
		t.Fatalf("HasBlock unexpectedly failed: %s", err)
	}
	if exists {
		t.Fatal("a rolled-back write is visible")
	}
}

// TestMainChainBlocksBetween checks that height iteration is ascending
// and respects its bounds.
func TestMainChainBlocksBetween(t *testing.T) {
	databaseContext, teardown := prepareDatabaseForTest(t, "TestMainChainBlocksBetween")
	defer teardown()

	// Insert heights out of order; iteration must come back sorted.
	heights := []uint64{5, 1, 300, 2, 256}
	for _, height := range heights {
		if err := dbaccess.StoreMainChainBlock(databaseContext, height,
			lowHashForTest(byte(height))); err != nil {
			t.Fatalf("StoreMainChainBlock(%d) unexpectedly failed: %s", height, err)
		}
	}

	got, err := dbaccess.MainChainBlocksBetween(databaseContext, 2, 256)
	if err != nil {
		t.Fatalf("MainChainBlocksBetween unexpectedly failed: %s", err)
	}
	want := []*daghash.Hash{lowHashForTest(2), lowHashForTest(5), lowHashForTest(0)}
	if len(got) != len(want) {
		t.Fatalf("iteration returned %d hashes, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].IsEqual(want[i]) {
			t.Fatalf("iteration result %d is %s, want %s", i, got[i], want[i])
		}
	}

	// Removal shrinks the range.
	if err := dbaccess.RemoveMainChainBlock(databaseContext, 5); err != nil {
		t.Fatalf("RemoveMainChainBlock unexpectedly failed: %s", err)
	}
	got, err = dbaccess.MainChainBlocksBetween(databaseContext, 0, 1000)
	if err != nil {
		t.Fatalf("MainChainBlocksBetween unexpectedly failed: %s", err)
	}
	if len(got) != 4 {
		t.Fatalf("iteration after removal returned %d hashes, want 4", len(got))
	}

	// The per-height lookup agrees.
	lowHash, err := dbaccess.FetchMainChainBlockByHeight(databaseContext, 300)
	if err != nil {
		t.Fatalf("FetchMainChainBlockByHeight unexpectedly failed: %s", err)
	}
	var height300 uint64 = 300
	if !lowHash.IsEqual(lowHashForTest(byte(height300))) {
		t.Fatalf("height 300 resolves to %s, want seed %d", lowHash, byte(height300))
	}
}

// TestMetaRoundTrip stores and reloads the meta record.
func TestMetaRoundTrip(t *testing.T) {
	databaseContext, teardown := prepareDatabaseForTest(t, "TestMetaRoundTrip")
	defer teardown()

	exists, err := dbaccess.HasMeta(databaseContext)
	if err != nil {
		t.Fatalf("HasMeta unexpectedly failed: %s", err)
	}
	if exists {
		t.Fatal("HasMeta is true on a fresh store")
	}

	metaBytes := []byte{1, 0, 0x47, 0x41, 0x44, 0x58}
	if err := dbaccess.StoreMeta(databaseContext, metaBytes); err != nil {
		t.Fatalf("StoreMeta unexpectedly failed: %s", err)
	}
	got, err := dbaccess.FetchMeta(databaseContext)
	if err != nil {
		t.Fatalf("FetchMeta unexpectedly failed: %s", err)
	}
	if !bytes.Equal(got, metaBytes) {
		t.Fatal("meta bytes changed across the store")
	}
}
