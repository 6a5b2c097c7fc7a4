package siyuan_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/siyuanflow/internal/siyuan"
	"github.com/starford/siyuanflow/internal/testutil"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := siyuan.New(siyuan.Config{Token: "x"})
	require.Error(t, err)
}

func TestRequest_SendsAuthAndJSON(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/system/version", "3.1.0")
	c := k.Client(t)

	_, err := c.Request(context.Background(), "/api/system/version", nil)
	require.NoError(t, err)

	calls := k.Calls("/api/system/version")
	require.Len(t, calls, 1)
	assert.Equal(t, "Token "+testutil.KernelToken, calls[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json", calls[0].Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{}, calls[0].Payload, "nil payload is sent as an empty object")
}

func TestRequest_ReturnsDataVerbatim(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"string", "hello", `"hello"`},
		{"number", 42, `42`},
		{"object", map[string]any{"a": 1, "b": []any{"x"}}, `{"a":1,"b":["x"]}`},
		{"array", []any{1, "two", nil}, `[1,"two",null]`},
		{"null", nil, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testutil.NewKernel(t)
			k.OK("/api/query/sql", tt.data)
			c := k.Client(t)

			got, err := c.Request(context.Background(), "/api/query/sql", siyuan.Payload{"stmt": "SELECT 1"})
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestRequest_ApplicationError(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/block/getBlockKramdown", func(map[string]any) testutil.Reply {
		return testutil.Reply{Code: 17, Msg: "boom", Data: map[string]any{"hint": "x"}}
	})
	c := k.Client(t)

	payload := siyuan.Payload{"id": "b1"}
	_, err := c.Request(context.Background(), "/api/block/getBlockKramdown", payload)
	require.Error(t, err)

	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindApplication, e.Kind)
	assert.Equal(t, "17", e.Code)
	n, ok := e.IntCode()
	assert.True(t, ok)
	assert.Equal(t, 17, n)
	assert.Contains(t, e.Error(), "boom")
	assert.Contains(t, e.Error(), "17")
	assert.Equal(t, "API Error (/api/block/getBlockKramdown): boom (Code: 17)", e.Error())
	assert.JSONEq(t, `{"hint":"x"}`, string(e.RawData))
	assert.Equal(t, "/api/block/getBlockKramdown", e.Endpoint)
	assert.Equal(t, payload, e.Payload)
}

func TestRequest_ApplicationErrorEmptyMsg(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Fail("/api/attr/getBlockAttrs", 1, "")
	c := k.Client(t)

	_, err := c.Request(context.Background(), "/api/attr/getBlockAttrs", siyuan.Payload{"id": "b1"})
	require.Error(t, err)
	assert.True(t, siyuan.IsKind(err, siyuan.KindApplication))
	assert.Contains(t, err.Error(), "Unknown error")
	assert.Contains(t, err.Error(), "(Code: 1)")
}

func TestRequest_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := siyuan.New(siyuan.Config{BaseURL: url, Token: "t"})
	require.NoError(t, err)

	payload := siyuan.Payload{"id": "x"}
	_, err = c.Request(context.Background(), "/api/filetree/getHPathByID", payload)
	require.Error(t, err)

	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindTransport, e.Kind)
	assert.Equal(t, siyuan.CodeNetworkError, e.Code)
	assert.Contains(t, e.Error(), "Request Failed (/api/filetree/getHPathByID):")
	assert.Contains(t, e.Error(), "(Code: NetworkError)")
	assert.Equal(t, payload, e.Payload)
	assert.NotNil(t, errors.Unwrap(e))
}

func TestRequest_HTTPStatusWithEnvelope(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/notebook/lsNotebooks", func(map[string]any) testutil.Reply {
		return testutil.Reply{Status: http.StatusUnauthorized, Code: -1, Msg: "Auth failed"}
	})
	c := k.Client(t)

	_, err := c.Request(context.Background(), "/api/notebook/lsNotebooks", nil)
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindTransport, e.Kind)
	assert.Equal(t, "-1", e.Code)
	assert.Equal(t, "Request Failed (/api/notebook/lsNotebooks): Auth failed (Code: -1)", e.Error())
}

func TestRequest_HTTPStatusWithoutEnvelope(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/notebook/lsNotebooks", func(map[string]any) testutil.Reply {
		return testutil.Reply{Status: http.StatusBadGateway, Raw: "upstream down"}
	})
	c := k.Client(t)

	_, err := c.Request(context.Background(), "/api/notebook/lsNotebooks", nil)
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindTransport, e.Kind)
	assert.Equal(t, "502", e.Code)
	assert.Contains(t, e.Message, "502")
	assert.Nil(t, e.RawData)
}

func TestRequest_UnexpectedOnUnencodablePayload(t *testing.T) {
	k := testutil.NewKernel(t)
	c := k.Client(t)

	payload := siyuan.Payload{"n": math.Inf(1)}
	_, err := c.Request(context.Background(), "/api/query/sql", payload)
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindUnexpected, e.Kind)
	assert.Empty(t, e.Code)
	assert.Contains(t, e.Error(), "Unexpected error during request (/api/query/sql): ")
	assert.Empty(t, k.Calls(""), "nothing reaches the wire")
}

func TestRequest_UnexpectedOnGarbageBody(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/system/version", func(map[string]any) testutil.Reply {
		return testutil.Reply{Raw: "<html>not json</html>"}
	})
	c := k.Client(t)

	_, err := c.Request(context.Background(), "/api/system/version", nil)
	assert.True(t, siyuan.IsKind(err, siyuan.KindUnexpected))
}

func TestRequest_MissingCodeIsUnexpected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"foreign error body", `{"error":"bad gateway config"}`},
		{"data without code", `{"msg":"x","data":{"a":1}}`},
		{"null", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testutil.NewKernel(t)
			k.Handle("/api/system/version", func(map[string]any) testutil.Reply {
				return testutil.Reply{Raw: tt.body}
			})
			c := k.Client(t)

			data, err := c.Request(context.Background(), "/api/system/version", nil)
			assert.Nil(t, data)
			e, ok := siyuan.AsError(err)
			require.True(t, ok)
			assert.Equal(t, siyuan.KindUnexpected, e.Kind)
			assert.Empty(t, e.Code)
			assert.Equal(t, "/api/system/version", e.Endpoint)
		})
	}
}

func TestRequest_ExplicitZeroCodeIsSuccess(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/system/version", func(map[string]any) testutil.Reply {
		return testutil.Reply{Raw: `{"code":0,"msg":""}`}
	})
	c := k.Client(t)

	data, err := c.Request(context.Background(), "/api/system/version", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(data))
}

func TestTypedCall_DecodeFailureIsUnexpected(t *testing.T) {
	k := testutil.NewKernel(t)
	k.OK("/api/system/version", map[string]any{"not": "a string"})
	c := k.Client(t)

	_, err := c.Version(context.Background())
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindUnexpected, e.Kind)
	assert.Equal(t, "/api/system/version", e.Endpoint)
}

func TestRequest_ContextTimeoutIsTransport(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	c, err := siyuan.New(siyuan.Config{BaseURL: srv.URL, Token: "t"}, siyuan.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "/api/system/version", nil)
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindTransport, e.Kind)
	assert.Equal(t, siyuan.CodeNetworkError, e.Code)
}

func TestError_NotDoubleWrapped(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Fail("/api/attr/getBlockAttrs", 5, "nope")
	c := k.Client(t)

	_, err := c.GetBlockAttrs(context.Background(), "b1")
	e, ok := siyuan.AsError(err)
	require.True(t, ok)
	assert.Equal(t, siyuan.KindApplication, e.Kind)
	assert.Nil(t, e.Err, "application errors wrap nothing")
}

func TestError_KindMarshalsByName(t *testing.T) {
	e := &siyuan.Error{Kind: siyuan.KindTransport, Code: "502", Endpoint: "/api/x", Payload: siyuan.Payload{}}
	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"Transport"`)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	k := testutil.NewKernel(t)
	k.Handle("/api/filetree/getHPathByID", func(p map[string]any) testutil.Reply {
		return testutil.Reply{Data: "/" + p["id"].(string)}
	})
	c := k.Client(t)

	ids := []string{"a", "b", "c", "d", "e", "f"}
	errs := make(chan error, len(ids))
	for _, id := range ids {
		go func() {
			got, err := c.GetHPathByID(context.Background(), id)
			if err == nil && got != "/"+id {
				err = errors.New("mismatched response for " + id)
			}
			errs <- err
		}()
	}
	for range ids {
		assert.NoError(t, <-errs)
	}
}
