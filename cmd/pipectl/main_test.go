package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-pipe/pkg/registry"
)

func TestServerEndpoints(t *testing.T) {
	conf := registry.DefaultConfig()
	conf.Count = 2
	reg, err := registry.New(conf)
	require.NoError(t, err)
	defer reg.Close()

	ts := httptest.NewServer(newServer("", reg).Handler)
	defer ts.Close()

	for _, path := range []string{"/live", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pipe_capacity_bytes{pipe="pipe1"} 4000`)
	assert.Contains(t, string(body), `pipectl_healthcheck_status`)
}
