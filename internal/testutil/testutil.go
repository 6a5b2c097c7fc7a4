// Package testutil provides shared test helpers: a fake SiYuan kernel,
// temporary vaults, and temporary journals.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/siyuan"
	"github.com/starford/siyuanflow/internal/storage"
)

// KernelToken is the token the fake kernel expects.
const KernelToken = "test-token"

// Call is one request received by the fake kernel.
type Call struct {
	Endpoint string
	Header   http.Header
	Payload  map[string]any
}

// Reply is what a handler answers with. A zero Status means 200.
type Reply struct {
	Status int
	Code   int
	Msg    string
	Data   any
	Raw    string // written verbatim instead of an envelope when set
}

// HandlerFunc computes the reply for a request payload.
type HandlerFunc func(payload map[string]any) Reply

// Kernel is an in-process stand-in for the SiYuan kernel API.
type Kernel struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    []Call
	handlers map[string]HandlerFunc
}

// NewKernel starts a fake kernel that is shut down with the test.
func NewKernel(t *testing.T) *Kernel {
	t.Helper()
	k := &Kernel{handlers: make(map[string]HandlerFunc)}

	r := chi.NewRouter()
	r.Post("/api/*", k.serve)

	k.Server = httptest.NewServer(r)
	t.Cleanup(k.Server.Close)
	return k
}

// Handle registers h for endpoint.
func (k *Kernel) Handle(endpoint string, h HandlerFunc) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.handlers[endpoint] = h
}

// OK makes endpoint answer with a successful envelope carrying data.
func (k *Kernel) OK(endpoint string, data any) {
	k.Handle(endpoint, func(map[string]any) Reply { return Reply{Data: data} })
}

// Fail makes endpoint answer with an application error envelope.
func (k *Kernel) Fail(endpoint string, code int, msg string) {
	k.Handle(endpoint, func(map[string]any) Reply { return Reply{Code: code, Msg: msg} })
}

// Calls returns the requests received for endpoint, or all requests when
// endpoint is empty.
func (k *Kernel) Calls(endpoint string) []Call {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []Call
	for _, c := range k.calls {
		if endpoint == "" || c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// Client returns a client pointed at the fake kernel.
func (k *Kernel) Client(t *testing.T, opts ...siyuan.Option) *siyuan.Client {
	t.Helper()
	c, err := siyuan.New(siyuan.Config{BaseURL: k.Server.URL, Token: KernelToken}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (k *Kernel) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	k.mu.Lock()
	k.calls = append(k.calls, Call{Endpoint: r.URL.Path, Header: r.Header.Clone(), Payload: payload})
	h, ok := k.handlers[r.URL.Path]
	k.mu.Unlock()

	reply := Reply{Code: -1, Msg: "no handler for " + r.URL.Path}
	if ok {
		reply = h(payload)
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if reply.Raw != "" {
		_, _ = io.WriteString(w, reply.Raw)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": reply.Code,
		"msg":  reply.Msg,
		"data": reply.Data,
	})
}

// TestJournal creates a temporary journal that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "siyuanflow-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
