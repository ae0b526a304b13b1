package chain

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEVM serves the evm_* namespace the way Hardhat Network does.
type fakeEVM struct {
	offset    int64
	blocks    int
	snapshots map[string]int64
}

func (f *fakeEVM) IncreaseTime(seconds int64) (int64, error) {
	f.offset += seconds
	return f.offset, nil
}

func (f *fakeEVM) Mine() (string, error) {
	f.blocks++
	return "0x0", nil
}

func (f *fakeEVM) Snapshot() (string, error) {
	id := "0x1"
	f.snapshots[id] = f.offset
	return id, nil
}

func (f *fakeEVM) Revert(id string) (bool, error) {
	offset, ok := f.snapshots[id]
	if !ok {
		return false, nil
	}
	delete(f.snapshots, id)
	f.offset = offset
	return true, nil
}

func newTestDevNode(t *testing.T) (*DevNode, *fakeEVM) {
	t.Helper()
	evm := &fakeEVM{snapshots: map[string]int64{}}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("evm", evm))
	t.Cleanup(server.Stop)

	client := rpc.DialInProc(server)
	t.Cleanup(client.Close)
	return NewDevNode(client), evm
}

func TestDevNodeAdvance(t *testing.T) {
	node, evm := newTestDevNode(t)
	ctx := context.Background()

	require.NoError(t, node.Advance(ctx, 31*time.Second))
	assert.Equal(t, int64(31), evm.offset)
	assert.Equal(t, 1, evm.blocks)
}

func TestDevNodeSnapshotRevert(t *testing.T) {
	node, evm := newTestDevNode(t)
	ctx := context.Background()

	id, err := node.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, node.IncreaseTime(ctx, time.Minute))
	assert.Equal(t, int64(60), evm.offset)

	require.NoError(t, node.Revert(ctx, id))
	assert.Equal(t, int64(0), evm.offset)

	err = node.Revert(ctx, id)
	assert.Error(t, err, "snapshots are single use")
}
