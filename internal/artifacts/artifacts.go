// Package artifacts loads compiled contract artifacts from a Hardhat artifacts directory.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrArtifactNotFound is returned when no artifact matches the contract name.
	ErrArtifactNotFound = errors.New("artifacts: artifact not found")
	// ErrAmbiguousArtifact is returned when more than one source defines the contract name.
	ErrAmbiguousArtifact = errors.New("artifacts: contract name is ambiguous")
	// ErrEmptyBytecode is returned for interfaces and abstract contracts.
	ErrEmptyBytecode = errors.New("artifacts: artifact has no bytecode")
	// ErrNoBuildInfo is returned when the debug file does not point at a build-info file.
	ErrNoBuildInfo = errors.New("artifacts: build info not available")
)

// Artifact is a compiled Solidity contract as written by Hardhat.
type Artifact struct {
	Format           string          `json:"_format,omitempty"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         Bytecode        `json:"bytecode"`
	DeployedBytecode Bytecode        `json:"deployedBytecode,omitempty"`

	path string
}

// Bytecode accepts both a plain hex string ("0x6080...") and the
// {"object": "0x6080..."} form emitted by older toolchains.
type Bytecode struct {
	hex string
}

// NewBytecode wraps a hex string.
func NewBytecode(hex string) Bytecode {
	return Bytecode{hex: hex}
}

// UnmarshalJSON handles both string and object bytecode formats.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.hex = s
		return nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		b.hex = obj.Object
		return nil
	}

	return fmt.Errorf("bytecode must be a string or object with 'object' field")
}

// MarshalJSON marshals the bytecode as a string.
func (b Bytecode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.hex)
}

// String returns the bytecode hex string.
func (b Bytecode) String() string {
	return b.hex
}

// Bytes decodes the bytecode. Link references are not supported.
func (b Bytecode) Bytes() ([]byte, error) {
	h := strings.TrimPrefix(b.hex, "0x")
	if h == "" {
		return nil, ErrEmptyBytecode
	}
	if strings.Contains(h, "__") {
		return nil, fmt.Errorf("bytecode has unresolved library links")
	}
	return hexutil.Decode("0x" + h)
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi of %s: %w", a.ContractName, err)
	}
	return parsed, nil
}

// FullyQualifiedName returns "contracts/Lottery.sol:Lottery".
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// Path returns the file the artifact was read from.
func (a *Artifact) Path() string {
	return a.path
}

// BuildInfo is the subset of a Hardhat build-info file needed for verification.
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

// CompilerVersion returns the explorer-style version, e.g. "v0.8.7+commit.e28d00a7".
func (b *BuildInfo) CompilerVersion() string {
	return "v" + b.SolcLongVersion
}

// Loader reads artifacts below a root directory and caches them by contract name.
type Loader struct {
	root string

	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewLoader creates a loader rooted at an artifacts directory.
func NewLoader(root string) *Loader {
	return &Loader{
		root:  root,
		cache: make(map[string]*Artifact),
	}
}

// Root returns the artifacts directory.
func (l *Loader) Root() string {
	return l.root
}

// Load finds and parses the artifact for a contract name.
func (l *Loader) Load(name string) (*Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.cache[name]; ok {
		return a, nil
	}

	path, err := l.find(name)
	if err != nil {
		return nil, err
	}

	a, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	l.cache[name] = a
	return a, nil
}

func (l *Loader) find(name string) (string, error) {
	var matches []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name+".json" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (no artifacts at %s)", ErrArtifactNotFound, name, l.root)
		}
		return "", fmt.Errorf("scan artifacts: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %s in %s", ErrAmbiguousArtifact, name, strings.Join(matches, ", "))
	}
}

// ReadFile parses a single artifact file.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if a.ContractName == "" {
		a.ContractName = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	a.path = path
	return &a, nil
}

// BuildInfo resolves the build-info file through the artifact's .dbg.json sibling.
func (l *Loader) BuildInfo(a *Artifact) (*BuildInfo, error) {
	if a.path == "" {
		return nil, ErrNoBuildInfo
	}

	dbgPath := strings.TrimSuffix(a.path, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no debug file", ErrNoBuildInfo, a.ContractName)
		}
		return nil, fmt.Errorf("read debug file: %w", err)
	}

	var dbg struct {
		BuildInfo string `json:"buildInfo"`
	}
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("parse debug file: %w", err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoBuildInfo, dbgPath)
	}

	biPath := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	data, err = os.ReadFile(biPath)
	if err != nil {
		return nil, fmt.Errorf("read build info: %w", err)
	}

	var bi BuildInfo
	if err := json.Unmarshal(data, &bi); err != nil {
		return nil, fmt.Errorf("parse build info: %w", err)
	}
	if bi.SolcLongVersion == "" || len(bi.Input) == 0 {
		return nil, fmt.Errorf("%w: %s is incomplete", ErrNoBuildInfo, biPath)
	}
	return &bi, nil
}
