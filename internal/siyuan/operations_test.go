package siyuan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/siyuanflow/internal/siyuan"
	"github.com/starford/siyuanflow/internal/testutil"
)

func TestSetBlockAttrs_DropsDisallowedKeys(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/attr/setBlockAttrs", nil)
	c := k.Client(t)

	err := c.SetBlockAttrs(context.Background(), "b1", map[string]string{
		"title":     "T",
		"custom-x":  "y",
		"forbidden": "z",
	})
	require.NoError(t, err)

	calls := k.Calls("/api/attr/setBlockAttrs")
	require.Len(t, calls, 1)
	assert.Equal(t, "b1", calls[0].Payload["id"])
	assert.Equal(t, map[string]any{"title": "T", "custom-x": "y"}, calls[0].Payload["attrs"])
}

func TestAllowedAttr(t *testing.T) {
	for _, k := range []string{"title", "name", "alias", "memo", "bookmark", "icon", "custom-", "custom-due"} {
		assert.True(t, siyuan.AllowedAttr(k), k)
	}
	for _, k := range []string{"", "type", "id", "Custom-x", "updated", "titles"} {
		assert.False(t, siyuan.AllowedAttr(k), k)
	}
}

func TestListDocsInNotebook_FallbackTitleAndFiltering(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/file/readDir", []map[string]any{
		{"name": "20230101-abc.sy", "isDir": false, "isSymlink": false, "updated": 1700000000},
		{"name": "sub", "isDir": true},
	})
	k.Fail("/api/attr/getBlockAttrs", 404, "block not found")
	c := k.Client(t)

	docs, err := c.ListDocsInNotebook(context.Background(), "nbA")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "20230101-abc", docs[0].ID)
	assert.Equal(t, "20230101-abc", docs[0].Title)
	assert.Equal(t, "20230101-abc.sy", docs[0].Name)
	assert.Equal(t, int64(1700000000), docs[0].Updated)
	assert.False(t, docs[0].IsDir)

	dirCalls := k.Calls("/api/file/readDir")
	require.Len(t, dirCalls, 1)
	assert.Equal(t, "/data/nbA", dirCalls[0].Payload["path"])
}

func TestListDocsInNotebook_MixedLookups(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/file/readDir", []map[string]any{
		{"name": "a.sy"},
		{"name": "b.sy"},
		{"name": "c.sy"},
		{"name": "notes.json"},
	})
	k.Handle("/api/attr/getBlockAttrs", func(p map[string]any) testutil.Reply {
		switch p["id"] {
		case "a":
			return testutil.Reply{Data: map[string]string{"title": "Alpha"}}
		case "b":
			return testutil.Reply{Code: 1, Msg: "fail"}
		default:
			return testutil.Reply{Data: map[string]string{"icon": "1f4d4"}}
		}
	})
	c := k.Client(t)

	docs, err := c.ListDocsInNotebook(context.Background(), "nb")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	assert.Equal(t, "Alpha", docs[0].Title)
	assert.Equal(t, "b", docs[1].Title)
	assert.Equal(t, "c", docs[2].Title, "empty title falls back to id")
}

func TestListDocsInNotebook_ListingErrorPropagates(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Fail("/api/file/readDir", 404, "not found")
	c := k.Client(t)

	_, err := c.ListDocsInNotebook(context.Background(), "nb")
	assert.True(t, siyuan.IsKind(err, siyuan.KindApplication))
}

func TestListDocsInNotebook_EmptyIsNotNil(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/file/readDir", []any{})
	c := k.Client(t)

	docs, err := c.ListDocsInNotebook(context.Background(), "nb")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMoveDocsByID_AlwaysSendsArray(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/filetree/moveDocsByID", nil)
	c := k.Client(t)

	require.NoError(t, c.MoveDocsByID(context.Background(), []string{"a", "b"}, "c"))
	require.NoError(t, c.MoveDocsByID(context.Background(), []string{"a"}, "c"))

	calls := k.Calls("/api/filetree/moveDocsByID")
	require.Len(t, calls, 2)
	assert.Equal(t, []any{"a", "b"}, calls[0].Payload["fromIDs"])
	assert.Equal(t, []any{"a"}, calls[1].Payload["fromIDs"])
	assert.Equal(t, "c", calls[1].Payload["toID"])
}

func TestCreateDocWithMd(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/filetree/createDocWithMd", "20240101120000-abcdefg")
	c := k.Client(t)

	id, err := c.CreateDocWithMd(context.Background(), "nb", "/Inbox/Note", "# Hi")
	require.NoError(t, err)
	assert.Equal(t, "20240101120000-abcdefg", id)

	p := k.Calls("/api/filetree/createDocWithMd")[0].Payload
	assert.Equal(t, map[string]any{"notebook": "nb", "path": "/Inbox/Note", "markdown": "# Hi"}, p)
}

func TestGetIDsByHPath(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/filetree/getIDsByHPath", []string{"id1", "id2"})
	c := k.Client(t)

	ids, err := c.GetIDsByHPath(context.Background(), "/Inbox", "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"id1", "id2"}, ids)
	assert.Equal(t, map[string]any{"path": "/Inbox", "notebook": "nb"}, k.Calls("")[0].Payload)
}

func TestBlockOps_DefaultDataType(t *testing.T) {
	k := testutil.NewKernel(t)
	tx := []map[string]any{{"doOperations": []map[string]any{{"action": "insert", "id": "new1", "data": "<div/>"}}}}
	k.OK("/api/block/appendBlock", tx)
	k.OK("/api/block/prependBlock", tx)
	k.OK("/api/block/updateBlock", tx)
	c := k.Client(t)
	ctx := context.Background()

	got, err := c.AppendBlock(ctx, "p1", "text", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new1", got[0].DoOperations[0].ID)

	_, err = c.PrependBlock(ctx, "p1", "text", siyuan.DataTypeDOM)
	require.NoError(t, err)
	_, err = c.UpdateBlock(ctx, "b1", "text", "")
	require.NoError(t, err)

	assert.Equal(t, "markdown", k.Calls("/api/block/appendBlock")[0].Payload["dataType"])
	assert.Equal(t, "dom", k.Calls("/api/block/prependBlock")[0].Payload["dataType"])
	assert.Equal(t, map[string]any{"id": "b1", "data": "text", "dataType": "markdown"},
		k.Calls("/api/block/updateBlock")[0].Payload)
}

func TestInsertBlock_OmitsEmptyAnchors(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/block/insertBlock", []any{})
	c := k.Client(t)

	_, err := c.InsertBlock(context.Background(), "hi", "", siyuan.InsertAnchor{PreviousID: "prev"})
	require.NoError(t, err)

	p := k.Calls("/api/block/insertBlock")[0].Payload
	assert.Equal(t, map[string]any{"data": "hi", "dataType": "markdown", "previousID": "prev"}, p)
}

func TestGetChildBlocksAndKramdown(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/block/getChildBlocks", []map[string]any{
		{"id": "c1", "type": "h", "subType": "h1"},
		{"id": "c2", "type": "p"},
	})
	k.OK("/api/block/getBlockKramdown", map[string]any{"id": "c1", "kramdown": "# Title\n{: id=\"c1\"}"})
	c := k.Client(t)
	ctx := context.Background()

	children, err := c.GetChildBlocks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []siyuan.ChildBlock{{ID: "c1", Type: "h", SubType: "h1"}, {ID: "c2", Type: "p"}}, children)

	kd, err := c.GetBlockKramdown(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", kd.ID)
	assert.Contains(t, kd.Kramdown, "# Title")
}

func TestPushMsg_DefaultTimeout(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/notification/pushMsg", map[string]any{"id": "m1"})
	k.OK("/api/notification/pushErrMsg", map[string]any{"id": "m2"})
	c := k.Client(t)
	ctx := context.Background()

	msg, err := c.PushMsg(ctx, "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	_, err = c.PushErrMsg(ctx, "bad", 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, float64(7000), k.Calls("/api/notification/pushMsg")[0].Payload["timeout"])
	assert.Equal(t, float64(2000), k.Calls("/api/notification/pushErrMsg")[0].Payload["timeout"])
}

func TestNotebooks(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/notebook/lsNotebooks", map[string]any{"notebooks": []map[string]any{
		{"id": "nb1", "name": "Work", "icon": "1f4d4", "sort": 1, "closed": false},
		{"id": "nb2", "name": "Old", "sort": 2, "closed": true},
	}})
	k.OK("/api/notebook/createNotebook", map[string]any{"notebook": map[string]any{"id": "nb3", "name": "New"}})
	k.OK("/api/notebook/renameNotebook", nil)
	k.OK("/api/notebook/removeNotebook", nil)
	k.OK("/api/notebook/openNotebook", nil)
	k.OK("/api/notebook/closeNotebook", nil)
	c := k.Client(t)
	ctx := context.Background()

	nbs, err := c.ListNotebooks(ctx)
	require.NoError(t, err)
	require.Len(t, nbs, 2)
	assert.Equal(t, siyuan.Notebook{ID: "nb2", Name: "Old", Sort: 2, Closed: true}, nbs[1])

	nb, err := c.CreateNotebook(ctx, "New")
	require.NoError(t, err)
	assert.Equal(t, "nb3", nb.ID)

	require.NoError(t, c.RenameNotebook(ctx, "nb3", "Renamed"))
	require.NoError(t, c.RemoveNotebook(ctx, "nb3"))
	require.NoError(t, c.OpenNotebook(ctx, "nb2"))
	require.NoError(t, c.CloseNotebook(ctx, "nb2"))

	assert.Equal(t, map[string]any{"notebook": "nb3", "name": "Renamed"}, k.Calls("/api/notebook/renameNotebook")[0].Payload)
	assert.Equal(t, map[string]any{"notebook": "nb3"}, k.Calls("/api/notebook/removeNotebook")[0].Payload)
	assert.Equal(t, map[string]any{"notebook": "nb2"}, k.Calls("/api/notebook/openNotebook")[0].Payload)
	assert.Equal(t, map[string]any{"notebook": "nb2"}, k.Calls("/api/notebook/closeNotebook")[0].Payload)
}

func TestQueryTemplateExportVersion(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/query/sql", []map[string]any{{"id": "b1", "content": "x"}})
	k.OK("/api/template/renderSprig", "2024-01-01")
	k.OK("/api/export/exportMdContent", map[string]any{"hPath": "/Inbox/Note", "content": "# Note"})
	k.OK("/api/system/version", "3.1.0")
	k.OK("/api/system/currentTime", int64(1735689600123))
	c := k.Client(t)
	ctx := context.Background()

	rows, err := c.SQL(ctx, "SELECT * FROM blocks")
	require.NoError(t, err)
	assert.Equal(t, "b1", rows[0]["id"])
	assert.Equal(t, "SELECT * FROM blocks", k.Calls("/api/query/sql")[0].Payload["stmt"])

	out, err := c.RenderSprig(ctx, `{{now | date "2006-01-02"}}`)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", out)

	doc, err := c.ExportMdContent(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, siyuan.ExportedDocument{HPath: "/Inbox/Note", Content: "# Note"}, doc)

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", v)
	assert.NoError(t, c.Ping(ctx))

	now, err := c.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600123), now)
}
