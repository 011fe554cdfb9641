package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addresshub/pkg/platform/sentinel"
)

func TestIPFSClient_PutGet(t *testing.T) {
	stored := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v0/add"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			cid := "Qm" + string(rune('a'+len(stored)))
			stored[cid] = data
			require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"Hash": cid}))
		case strings.HasPrefix(r.URL.Path, "/api/v0/cat"):
			data, ok := stored[r.URL.Query().Get("arg")]
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write(data)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewIPFSClient(srv.URL)
	ctx := context.Background()

	ref, err := client.PutBlob(ctx, []byte(`{"name":"Home"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	data, err := client.GetBlob(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Home"}`), data)

	_, err = client.GetBlob(ctx, "QmMissing")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestIPFSClient_Disabled(t *testing.T) {
	client := NewIPFSClient("")

	_, err := client.PutBlob(context.Background(), []byte("data"))
	require.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, err = client.GetBlob(context.Background(), "QmX")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}
