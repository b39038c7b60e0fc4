package engine

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayardsearch/bayard/internal/metadata"
)

func testSchema() metadata.Schema {
	return metadata.Schema{Fields: []metadata.Field{
		{Name: metadata.ReservedID, Type: metadata.FieldText, Stored: true, Indexed: true, Tokenizer: "raw"},
		{Name: metadata.ReservedTimestamp, Type: metadata.FieldDate, Stored: true, Indexed: true, Fast: true},
		{Name: "title", Type: metadata.FieldText, Stored: true, Indexed: true},
		{Name: "rank", Type: metadata.FieldI64, Stored: true, Indexed: true, Fast: true},
	}}
}

func TestUpsertByIDReplacesPreviousVersion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	e.PutDocs(schema, [][]byte{[]byte(`{"id":"doc-1","fields":{"title":"first"}}`)})
	require.NoError(t, e.Commit())

	e.PutDocs(schema, [][]byte{[]byte(`{"id":"doc-1","fields":{"title":"second"}}`)})
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{Query: `title:second`, CollectionKind: CountAndTopDocs, Fields: []string{"title"}, Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalHits)
}

func TestPutDocsSkipsDocumentsWithoutID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	e.PutDocs(schema, [][]byte{[]byte(`{"fields":{"title":"no id here"}}`)})
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{Query: "title:here", CollectionKind: Count, Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalHits)
}

func TestRollbackDiscardsPendingBatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	e.PutDocs(schema, [][]byte{[]byte(`{"id":"doc-1","fields":{"title":"ghost"}}`)})
	e.Rollback()
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{Query: "title:ghost", CollectionKind: Count, Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalHits)
}

func TestSearchRejectsSortOnNonFastField(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Search(schema, SearchRequest{Query: "title:anything", Sort: &Sort{Field: "title", Order: Desc}, Hits: 10})
	assert.Error(t, err)
}

func TestSearchProjectionExcludesReservedFields(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	e.PutDocs(schema, [][]byte{[]byte(`{"id":"doc-1","fields":{"title":"hello"}}`)})
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{
		Query:          "title:hello",
		CollectionKind: CountAndTopDocs,
		Fields:         []string{"title", metadata.ReservedID, metadata.ReservedTimestamp},
		Hits:           10,
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	_, hasID := res.Documents[0][metadata.ReservedID]
	assert.False(t, hasID, "reserved fields must never be projected, even when requested")
}

func TestSearchSortsByFastFieldWithWindow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	for i := 1; i <= 5; i++ {
		e.PutDocs(schema, [][]byte{[]byte(fmt.Sprintf(`{"id":"doc-%d","fields":{"title":"entry","rank":%d}}`, i, i))})
	}
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{
		Query:          "*",
		CollectionKind: CountAndTopDocs,
		Sort:           &Sort{Field: "rank", Order: Desc},
		Fields:         []string{"rank"},
		Offset:         1,
		Hits:           2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.TotalHits)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, float64(4), res.Documents[0]["rank"])
	assert.Equal(t, float64(3), res.Documents[1]["rank"])

	asc, err := e.Search(schema, SearchRequest{
		Query:          "*",
		CollectionKind: CountAndTopDocs,
		Sort:           &Sort{Field: "rank", Order: Asc},
		Fields:         []string{"rank"},
		Hits:           2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), asc.TotalHits)
	require.Len(t, asc.Documents, 2)
	assert.Equal(t, float64(1), asc.Documents[0]["rank"])
	assert.Equal(t, float64(2), asc.Documents[1]["rank"])
}

func TestSearchMatchAllCountsEveryDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shard")
	schema := testSchema()
	e, err := Create(dir, schema, nil, nil)
	require.NoError(t, err)
	defer e.Close()

	e.PutDocs(schema, [][]byte{
		[]byte(`{"id":"doc-1","fields":{"title":"alpha"}}`),
		[]byte(`{"id":"doc-2","fields":{"title":"bravo"}}`),
	})
	require.NoError(t, e.Commit())

	res, err := e.Search(schema, SearchRequest{Query: "*", CollectionKind: Count, Hits: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalHits)
}
