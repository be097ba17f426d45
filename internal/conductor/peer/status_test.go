package peer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	t.Run("runner worker pool", func(t *testing.T) {
		st, err := ParseStatus([]byte(`{"workerPool":[
			{"cpuUsage":{"user":1.5,"system":0.5}},
			{"cpuUsage":{"user":0.1}},
			{"id":"no-usage"}
		]}`))
		require.NoError(t, err)

		workers := st.Workers()
		require.Len(t, workers, 3)
		require.InDelta(t, 2.0, workers[0].Load(), 1e-9)
		require.InDelta(t, 0.1, workers[1].Load(), 1e-9)
		require.Zero(t, workers[2].Load())
	})

	t.Run("gateway fields", func(t *testing.T) {
		st, err := ParseStatus([]byte(`{"ok":true,"version":"1.4.2","uptime":12.5,"system":{}}`))
		require.NoError(t, err)
		require.True(t, st.OK())
		require.Equal(t, "1.4.2", st.Version())
		require.InDelta(t, 12.5, st.Uptime(), 1e-9)
		require.Empty(t, st.Workers())
	})

	t.Run("empty documents", func(t *testing.T) {
		for _, body := range []string{"", "  ", "null", "{}", "[]", "not json"} {
			_, err := ParseStatus([]byte(body))
			require.ErrorIs(t, err, ErrEmptyStatus, body)
		}
	})

	t.Run("relays raw document", func(t *testing.T) {
		st, err := ParseStatus([]byte(` {"ok":true} `))
		require.NoError(t, err)

		out, err := json.Marshal(struct {
			Status *Status `json:"status"`
		}{st})
		require.NoError(t, err)
		require.JSONEq(t, `{"status":{"ok":true}}`, string(out))
	})
}
