// Package frontend writes deployed contract addresses and ABIs into the web app's constants.
package frontend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidABIFormat is returned when the ABI is not a JSON array.
var ErrInvalidABIFormat = errors.New("frontend: ABI is not a JSON array")

// Syncer updates the addresses and ABI files consumed by the frontend.
type Syncer struct {
	AddressesFile string
	ABIFile       string
	Logger        *slog.Logger
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// UpdateContractAddresses adds address to the list kept under chainID.
// The file maps decimal chain ids to address lists. A missing file starts empty.
func (s *Syncer) UpdateContractAddresses(chainID uint64, address common.Address) error {
	current := map[string][]string{}

	data, err := os.ReadFile(s.AddressesFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read addresses file: %w", err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("parse addresses file %s: %w", s.AddressesFile, err)
		}
		// A literal null decodes to a nil map.
		if current == nil {
			current = map[string][]string{}
		}
	}

	key := strconv.FormatUint(chainID, 10)
	addr := address.Hex()
	if containsAddress(current[key], addr) {
		s.logger().Debug("address already recorded",
			slog.String("chain_id", key),
			slog.String("address", addr),
		)
		return nil
	}
	current[key] = append(current[key], addr)

	out, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}
	if err := writeFile(s.AddressesFile, out); err != nil {
		return err
	}

	s.logger().Info("frontend addresses updated",
		slog.String("chain_id", key),
		slog.String("address", addr),
		slog.String("file", s.AddressesFile),
	)
	return nil
}

// UpdateABI writes the contract ABI. Anything but a JSON array is rejected
// with ErrInvalidABIFormat and the file is left untouched.
func (s *Syncer) UpdateABI(abiJSON []byte) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(abiJSON, &entries); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidABIFormat, err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, abiJSON); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidABIFormat, err)
	}
	if err := writeFile(s.ABIFile, buf.Bytes()); err != nil {
		return err
	}

	s.logger().Info("frontend ABI updated",
		slog.Int("entries", len(entries)),
		slog.String("file", s.ABIFile),
	)
	return nil
}

func containsAddress(list []string, addr string) bool {
	for _, a := range list {
		if strings.EqualFold(a, addr) {
			return true
		}
	}
	return false
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
