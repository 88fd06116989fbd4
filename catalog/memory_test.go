package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
)

func TestMemoryLookupTableAndColumn(t *testing.T) {
	cat := catalog.NewMemory(0)
	cat.AddTable(catalog.TableDescriptor{
		ID:         1,
		Name:       "r",
		Schema:     []catalog.ColumnDescriptor{{ID: 1, Name: "x", Type: "int", SizeBytes: 8}},
		Statistics: catalog.TableStatistics{Cardinality: 100, PageCount: 2},
	})

	require.Equal(t, 8192, cat.PageSize())
	require.True(t, cat.HasTable("r"))
	require.False(t, cat.HasTable("missing"))

	td, err := cat.LookupTable("r")
	require.NoError(t, err)
	require.Equal(t, catalog.TableID(1), td.ID)

	col, err := cat.LookupColumn(1, "x")
	require.NoError(t, err)
	require.Equal(t, "int", col.Type)

	_, err = cat.LookupColumn(1, "missing")
	require.Error(t, err)

	_, err = cat.LookupTable("missing")
	require.Error(t, err)
}

func TestMemoryNameOfResolvesIDBackToName(t *testing.T) {
	cat := catalog.NewMemory(0)
	cat.AddTable(catalog.TableDescriptor{ID: 7, Name: "orders"})
	require.Equal(t, "orders", cat.NameOf(7))
	require.Equal(t, "", cat.NameOf(99))
}

func TestMemoryStatisticsOfAcceptsIDOrName(t *testing.T) {
	cat := catalog.NewMemory(0)
	cat.AddTable(catalog.TableDescriptor{
		ID:         1,
		Name:       "r",
		Statistics: catalog.TableStatistics{Cardinality: 42, PageCount: 3},
	})

	byID, err := cat.StatisticsOf(catalog.TableID(1))
	require.NoError(t, err)
	require.Equal(t, catalog.TableStatistics{Cardinality: 42, PageCount: 3}, byID)

	byName, err := cat.StatisticsOf("r")
	require.NoError(t, err)
	require.Equal(t, byID, byName)

	_, err = cat.StatisticsOf("missing")
	require.Error(t, err)
}

func TestMemoryIndexesOfUnknownTableErrors(t *testing.T) {
	cat := catalog.NewMemory(0)
	_, err := cat.IndexesOf(99)
	require.Error(t, err)
}
