package notify

import (
	"bufio"
	"testing"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRouterSendWritesToBoundSink exercises the router against a real
// pseudo-terminal pair, standing in for the external collaborator's
// notification FIFO: the master side acts as the test's reader, the
// slave side is what the router would open as a Sink.
func TestRouterSendWritesToBoundSink(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	r := NewRouter()
	r.Bind(0, slave)

	require.NoError(t, r.Send(0, []byte("hello channel 0\n")))

	reader := bufio.NewReader(master)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello channel 0\n", line)
}

func TestRouterSendToUnboundChannelIsNoop(t *testing.T) {
	r := NewRouter()
	assert.NoError(t, r.Send(5, []byte("dropped")))
}

func TestRouterUnbindClosesSink(t *testing.T) {
	_, slave, err := pty.Open()
	require.NoError(t, err)

	r := NewRouter()
	r.Bind(1, slave)
	require.NoError(t, r.Unbind(1))

	_, err = slave.Write([]byte("x"))
	assert.Error(t, err, "the sink must be closed after Unbind")

	assert.NoError(t, r.Send(1, []byte("dropped, channel unbound")))
}
