package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/litedb/internal/engine"
)

func TestAttach_MemoryThenDetach(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	require.NoError(t, db.Attach(ctx, MemoryPath, "aux"))
	require.NoError(t, db.Execute(ctx, "create table aux.x(v int)"))

	names, err := db.Databases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "aux"}, names)

	require.NoError(t, db.Detach(ctx, "aux"))
	err = db.Execute(ctx, "create table aux.x(v int)")
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindPrepare))
	assert.Contains(t, db.LastError(), "unknown database aux")
}

func TestAttach_FileWithQuote(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	file := filepath.Join(t.TempDir(), "it's.db")

	require.NoError(t, db.Attach(ctx, file, "other"))
	require.NoError(t, db.Execute(ctx, "CREATE TABLE other.t(v INTEGER); INSERT INTO other.t VALUES (9)"))
	require.NoError(t, db.Detach(ctx, "other"))

	again := openTestDB(t, file)
	n, err := again.IntQuery(ctx, "SELECT v FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestAttach_RejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	for _, name := range []string{"", "1aux", "aux db", "aux;DETACH main", `a"b`} {
		err := db.Attach(ctx, MemoryPath, name)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "name %q", name)
	}
	assert.ErrorIs(t, db.Detach(ctx, "no-dash"), ErrInvalidIdentifier)
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "aux", want: "aux"},
		{name: "underscore first", in: "_tmp1", want: "_tmp1"},
		{name: "keyword", in: "order", want: "order"},
		{name: "unicode letters", in: "données", want: "données"},
		{name: "decomposed folds to NFC", in: "café", want: "café"},
		{name: "empty", in: "", wantErr: true},
		{name: "digit first", in: "9lives", wantErr: true},
		{name: "space", in: "a b", wantErr: true},
		{name: "quote", in: `a"`, wantErr: true},
		{name: "too long", in: string(make([]byte, 129)), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateIdentifier(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
