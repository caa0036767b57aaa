package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
	"github.com/cognicore/shaper/pkg/shaper/store/storetest"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return st
}

func TestContract(t *testing.T) {
	storetest.RunContract(t, openTemp)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "model.db")

	st, err := OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	id, err := st.SaveChar(ctx, shape.NewChar(1, []shape.RunElement{{Symbol: shape.Literal('q'), Count: 2}}))
	require.NoError(t, err)
	sc := shape.NewSampleCount()
	sc.Add("label")
	_, err = st.SavePattern(ctx, shape.Pattern{Level: 1, Elements: []shape.RunElement{{Symbol: shape.Ref(id), Count: 1}}}, sc)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer st.Close()

	c, ok, err := st.LoadChar(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []shape.RunElement{{Symbol: shape.Literal('q'), Count: 2}}, c.Cluster)

	recs, err := st.LoadPatterns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, shape.Ref(id), recs[0].Pattern.Elements[0].Symbol)
}

func TestSQLiteForeignIDIsMissing(t *testing.T) {
	st := openTemp(t)
	defer st.Close()

	_, ok, err := st.LoadChar(context.Background(), "01HZX-not-a-row")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteDamagedRowIsCorrupt(t *testing.T) {
	ctx := context.Background()
	raw := openTemp(t)
	defer raw.Close()
	st := raw.(*sqliteStore)

	_, err := st.db.ExecContext(ctx, `INSERT INTO chars (level, cluster) VALUES (1, '[{"k":"?","n":1}]')`)
	require.NoError(t, err)

	_, err = st.LoadChars(ctx, 1)
	assert.ErrorIs(t, err, internalerr.ErrCorrupt)
}
