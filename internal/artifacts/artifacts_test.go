package artifacts

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testABI = `[{"inputs":[{"internalType":"uint256","name":"entranceFee","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},{"inputs":[],"name":"getEntranceFee","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeHardhatTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeJSON(t, filepath.Join(root, "contracts", "Lottery.sol", "Lottery.json"), map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     "Lottery",
		"sourceName":       "contracts/Lottery.sol",
		"abi":              json.RawMessage(testABI),
		"bytecode":         "0x6001600c60003960016000f300",
		"deployedBytecode": "0x00",
	})
	writeJSON(t, filepath.Join(root, "contracts", "Lottery.sol", "Lottery.dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": "../../build-info/4f1c.json",
	})
	writeJSON(t, filepath.Join(root, "build-info", "4f1c.json"), map[string]any{
		"id":              "4f1c",
		"solcVersion":     "0.8.7",
		"solcLongVersion": "0.8.7+commit.e28d00a7",
		"input":           map[string]any{"language": "Solidity"},
	})
	writeJSON(t, filepath.Join(root, "contracts", "test", "VRFCoordinatorV2Mock.sol", "VRFCoordinatorV2Mock.json"), map[string]any{
		"contractName": "VRFCoordinatorV2Mock",
		"sourceName":   "contracts/test/VRFCoordinatorV2Mock.sol",
		"abi":          json.RawMessage(`[]`),
		"bytecode":     map[string]string{"object": "0x6080"},
	})
	writeJSON(t, filepath.Join(root, "contracts", "interfaces", "ILottery.sol", "ILottery.json"), map[string]any{
		"contractName": "ILottery",
		"sourceName":   "contracts/interfaces/ILottery.sol",
		"abi":          json.RawMessage(`[]`),
		"bytecode":     "0x",
	})
	return root
}

func TestLoaderLoad(t *testing.T) {
	l := NewLoader(writeHardhatTree(t))

	a, err := l.Load("Lottery")
	require.NoError(t, err)
	assert.Equal(t, "Lottery", a.ContractName)
	assert.Equal(t, "contracts/Lottery.sol:Lottery", a.FullyQualifiedName())

	code, err := a.Bytecode.Bytes()
	require.NoError(t, err)
	assert.Len(t, code, 13)

	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, "getEntranceFee")
	assert.Len(t, parsed.Constructor.Inputs, 1)

	again, err := l.Load("Lottery")
	require.NoError(t, err)
	assert.Same(t, a, again, "second load is served from cache")
}

func TestLoaderObjectBytecode(t *testing.T) {
	l := NewLoader(writeHardhatTree(t))

	a, err := l.Load("VRFCoordinatorV2Mock")
	require.NoError(t, err)
	assert.Equal(t, "0x6080", a.Bytecode.String())
}

func TestLoaderEmptyBytecode(t *testing.T) {
	l := NewLoader(writeHardhatTree(t))

	a, err := l.Load("ILottery")
	require.NoError(t, err)
	_, err = a.Bytecode.Bytes()
	assert.True(t, errors.Is(err, ErrEmptyBytecode))
}

func TestLoaderNotFound(t *testing.T) {
	l := NewLoader(writeHardhatTree(t))
	_, err := l.Load("Missing")
	assert.True(t, errors.Is(err, ErrArtifactNotFound))

	l = NewLoader(filepath.Join(t.TempDir(), "nope"))
	_, err = l.Load("Lottery")
	assert.True(t, errors.Is(err, ErrArtifactNotFound))
}

func TestLoaderAmbiguous(t *testing.T) {
	root := writeHardhatTree(t)
	writeJSON(t, filepath.Join(root, "contracts", "v2", "Lottery.sol", "Lottery.json"), map[string]any{
		"contractName": "Lottery",
		"sourceName":   "contracts/v2/Lottery.sol",
		"abi":          json.RawMessage(`[]`),
		"bytecode":     "0x00",
	})

	_, err := NewLoader(root).Load("Lottery")
	assert.True(t, errors.Is(err, ErrAmbiguousArtifact))
}

func TestLoaderBuildInfo(t *testing.T) {
	l := NewLoader(writeHardhatTree(t))

	a, err := l.Load("Lottery")
	require.NoError(t, err)

	bi, err := l.BuildInfo(a)
	require.NoError(t, err)
	assert.Equal(t, "v0.8.7+commit.e28d00a7", bi.CompilerVersion())
	assert.JSONEq(t, `{"language":"Solidity"}`, string(bi.Input))

	mock, err := l.Load("VRFCoordinatorV2Mock")
	require.NoError(t, err)
	_, err = l.BuildInfo(mock)
	assert.True(t, errors.Is(err, ErrNoBuildInfo))
}

func TestBytecodeLinkReferences(t *testing.T) {
	b := NewBytecode("0x6080__$a1b2$__6080")
	_, err := b.Bytes()
	assert.Error(t, err)
}
