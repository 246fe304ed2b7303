package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/rebuild"
	"github.com/roach88/tnpcore/internal/testutil"
)

func rebuiltPart(t *testing.T, edits ...rebuild.Edit) *rebuild.Result {
	t.Helper()
	o := rebuild.New(testutil.Kernel(t),
		rebuild.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		rebuild.WithPassTokens(rebuild.NewFixedGenerator("p1", "p2", "p3")),
	)
	ws := rebuild.NewWorkspace(o, testutil.Part())
	res, err := ws.Rebuild(context.Background(), "")
	require.NoError(t, err)
	for _, e := range edits {
		res, err = ws.Apply(context.Background(), e)
		require.NoError(t, err)
	}
	return res
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// The drifted state carries drift records and a warning envelope.
	res := rebuiltPart(t, rebuild.SetParams{Feature: "box", Params: ir.NewObject(ir.P("size", ir.Int(20)))})
	doc := res.Document
	require.NoError(t, s.SaveDocument(ctx, doc, res.Pass.Seq))

	got, err := s.LoadDocument(ctx, "part")
	require.NoError(t, err)

	wantDigest, err := canon.Digest(doc)
	require.NoError(t, err)
	gotDigest, err := canon.Digest(got)
	require.NoError(t, err)
	assert.Equal(t, wantDigest, gotDigest)

	for i := range doc.Features {
		want, err := canon.EncodeSlots(doc.Features[i].Slots)
		require.NoError(t, err)
		have, err := canon.EncodeSlots(got.Features[i].Slots)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(have), doc.Features[i].ID)
	}
	assert.Equal(t, doc.Policy, got.Policy)
	assert.Equal(t, doc.ActiveSnapshot, got.ActiveSnapshot)
	assert.Empty(t, got.Shapes, "shape cache is not persisted")
	assert.Equal(t, ir.StatusWarning, got.Feature("pad").Status.Status)
}

func TestSaveDocument_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res := rebuiltPart(t)
	require.NoError(t, s.SaveDocument(ctx, res.Document, 1))

	smaller := res.Document.Clone()
	require.NoError(t, smaller.DeleteFeature("round"))
	require.NoError(t, s.SaveDocument(ctx, smaller, 2))

	got, err := s.LoadDocument(ctx, "part")
	require.NoError(t, err)
	assert.Len(t, got.Features, 2)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, DocumentInfo{Name: "part", Digest: docs[0].Digest, Features: 2, SavedSeq: 2}, docs[0])
}

func TestSaveDocument_RequiresName(t *testing.T) {
	s := createTestStore(t)
	doc := testutil.Part()
	doc.Name = ""
	assert.Error(t, s.SaveDocument(context.Background(), doc, 0))
}

func TestLoadDocument_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LoadDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadedDocument_RebuildsCold(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res := rebuiltPart(t)
	require.NoError(t, s.SaveDocument(ctx, res.Document, res.Pass.Seq))
	doc, err := s.LoadDocument(ctx, "part")
	require.NoError(t, err)

	k := testutil.Kernel(t)
	o := rebuild.New(k, rebuild.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	again, err := o.Rebuild(ctx, doc, "round")
	require.NoError(t, err)

	assert.Equal(t, []string{"box", "pad", "round"}, k.Calls())
	assert.Equal(t, res.Pass.Digest, again.Pass.Digest)
}

func TestPasses_RecordAndList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := rebuiltPart(t)
	require.NoError(t, s.SaveDocument(ctx, first.Document, first.Pass.Seq))
	require.NoError(t, s.RecordPass(ctx, "part", first.Pass))
	require.NoError(t, s.RecordPass(ctx, "part", first.Pass), "duplicate token is ignored")

	second := rebuiltPart(t, rebuild.SetParams{Feature: "box", Params: ir.NewObject(ir.P("size", ir.Int(30)))})
	require.NoError(t, s.RecordPass(ctx, "part", second.Pass))

	passes, err := s.ListPasses(ctx, "part")
	require.NoError(t, err)
	require.Len(t, passes, 2)

	assert.Equal(t, "p1", passes[0].Token)
	assert.Equal(t, int64(1), passes[0].Seq)
	assert.Equal(t, 3, passes[0].Counts[ir.StatusOk])
	assert.Equal(t, first.Pass.Digest, passes[0].Digest)

	assert.Equal(t, "p2", passes[1].Token)
	assert.Equal(t, "box", passes[1].Start)
	assert.Equal(t, 3, passes[1].Evaluated)
	assert.Equal(t, 1, passes[1].Counts[ir.StatusOk])
	assert.Equal(t, 1, passes[1].Counts[ir.StatusError])
	assert.Equal(t, 1, passes[1].Counts[ir.StatusBlocked])

	all, err := s.ListPasses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestPasses_RequireSavedDocument(t *testing.T) {
	s := createTestStore(t)
	res := rebuiltPart(t)
	assert.Error(t, s.RecordPass(context.Background(), "unsaved", res.Pass))
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	seq, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}
