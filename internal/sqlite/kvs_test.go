package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstack/fieldstore/pkg/types"
)

func entry(tableID, partition, aspect, key, valueType, value string) types.KeyValueEntry {
	return types.KeyValueEntry{
		TableID: tableID, Partition: partition, Aspect: aspect,
		Key: key, ValueType: valueType, Value: value,
	}
}

func TestPutKVSEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert then overwrite", func(t *testing.T) {
		store, conn := setupStore(t)

		e := entry("households", types.KVSPartitionTable, types.KVSAspectDefault,
			types.KVSKeyDisplayName, types.KVSValueTypeString, "Households")
		require.NoError(t, store.PutKVSEntry(ctx, conn, e))

		e.Value = "Homesteads"
		require.NoError(t, store.PutKVSEntry(ctx, conn, e))

		got, err := store.GetKVSEntries(ctx, conn, "households", "", "", "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Homesteads", got[0].Value)
	})

	t.Run("blank value deletes instead of storing", func(t *testing.T) {
		store, conn := setupStore(t)

		e := entry("households", types.KVSPartitionTable, types.KVSAspectDefault,
			types.KVSKeySortCol, types.KVSValueTypeString, "name")
		require.NoError(t, store.PutKVSEntry(ctx, conn, e))

		e.Value = ""
		require.NoError(t, store.PutKVSEntry(ctx, conn, e))

		got, err := store.GetKVSEntries(ctx, conn, "households", "", "", "")
		require.NoError(t, err)
		assert.Empty(t, got, "blank entries are never stored")
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		store, conn := setupStore(t)
		err := store.PutKVSEntry(ctx, conn,
			entry("", types.KVSPartitionTable, "default", "k", types.KVSValueTypeString, "v"))
		assert.ErrorIs(t, err, types.ErrInvalidKVSEntry)
	})
}

func TestPutKVSEntriesBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("clear replaces a table's entries atomically", func(t *testing.T) {
		store, conn := setupStore(t)
		require.NoError(t, store.PutKVSEntry(ctx, conn,
			entry("households", types.KVSPartitionTable, "default", "old", types.KVSValueTypeString, "x")))

		err := store.PutKVSEntries(ctx, conn, "households", []types.KeyValueEntry{
			entry("households", types.KVSPartitionTable, "default", "a", types.KVSValueTypeString, "1"),
			entry("households", types.KVSPartitionTable, "default", "b", types.KVSValueTypeString, "2"),
		}, true)
		require.NoError(t, err)

		got, err := store.GetKVSEntries(ctx, conn, "households", "", "", "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Key)
		assert.Equal(t, "b", got[1].Key)
	})

	t.Run("entry for another table rejected", func(t *testing.T) {
		store, conn := setupStore(t)
		err := store.PutKVSEntries(ctx, conn, "households", []types.KeyValueEntry{
			entry("surveys", types.KVSPartitionTable, "default", "a", types.KVSValueTypeString, "1"),
		}, false)
		assert.ErrorIs(t, err, types.ErrInvalidKVSEntry)
	})
}

func TestGetKVSEntriesFilters(t *testing.T) {
	ctx := context.Background()
	store, conn := setupStore(t)

	require.NoError(t, store.PutKVSEntries(ctx, conn, "households", []types.KeyValueEntry{
		entry("households", types.KVSPartitionTable, "default", "displayName", types.KVSValueTypeString, "H"),
		entry("households", types.KVSPartitionColumn, "name", "displayName", types.KVSValueTypeString, "Name"),
		entry("households", types.KVSPartitionColumn, "name", "displayVisible", types.KVSValueTypeBool, "true"),
	}, false))

	got, err := store.GetKVSEntries(ctx, conn, "households", types.KVSPartitionColumn, "", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetKVSEntries(ctx, conn, "households", "", "", "displayName")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetKVSEntries(ctx, conn, "households", types.KVSPartitionColumn, "name", "displayVisible")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "true", got[0].Value)
}

func TestDeleteKVSEntries(t *testing.T) {
	ctx := context.Background()
	store, conn := setupStore(t)

	require.NoError(t, store.PutKVSEntries(ctx, conn, "households", []types.KeyValueEntry{
		entry("households", types.KVSPartitionTable, "default", "displayName", types.KVSValueTypeString, "H"),
		entry("households", types.KVSPartitionColumn, "name", "displayName", types.KVSValueTypeString, "Name"),
	}, false))

	require.NoError(t, store.DeleteKVSEntries(ctx, conn, "households", types.KVSPartitionColumn, "", ""))

	got, err := store.GetKVSEntries(ctx, conn, "households", "", "", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.KVSPartitionTable, got[0].Partition)
}
