// Package deploy runs the ordered, tagged deploy scripts against a network.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/bohdan-ly/lottery-smart-contract/internal/artifacts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/deployments"
	"github.com/bohdan-ly/lottery-smart-contract/internal/frontend"
	"github.com/bohdan-ly/lottery-smart-contract/internal/network"
	"github.com/bohdan-ly/lottery-smart-contract/internal/verify"
)

// Environment is what every deploy script runs against.
type Environment struct {
	Network   *network.Params
	Backend   chain.Backend
	Deployer  *chain.Signer
	Artifacts *artifacts.Loader
	Store     deployments.Store

	// Verifier is nil when no explorer API key is configured.
	Verifier verify.Verifier
	// Frontend is nil unless frontend sync is enabled.
	Frontend *frontend.Syncer

	Logger *slog.Logger
}

func (e *Environment) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Environment) validate() error {
	switch {
	case e.Network == nil:
		return errors.New("deploy: network params are required")
	case e.Backend == nil:
		return errors.New("deploy: backend is required")
	case e.Deployer == nil:
		return errors.New("deploy: deployer signer is required")
	case e.Artifacts == nil:
		return errors.New("deploy: artifacts loader is required")
	case e.Store == nil:
		return errors.New("deploy: deployments store is required")
	}
	return nil
}

// Get returns the recorded deployment of name on the current network.
func (e *Environment) Get(ctx context.Context, name string) (*deployments.Record, error) {
	return e.Store.Get(ctx, e.Network.Name, name)
}

// Deploy deploys the named artifact with constructor args, waits for the
// network's block confirmations and records the result.
func (e *Environment) Deploy(ctx context.Context, name string, args ...interface{}) (*deployments.Record, error) {
	artifact, err := e.Artifacts.Load(name)
	if err != nil {
		return nil, err
	}
	parsed, err := artifact.ParsedABI()
	if err != nil {
		return nil, err
	}
	code, err := artifact.Bytecode.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ctorData, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor args: %w", name, err)
	}

	opts, err := e.Deployer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	address, tx, _, err := bind.DeployContract(opts, parsed, code, e.Backend, args...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}

	e.logger().Info("deploying contract",
		slog.String("contract", name),
		slog.String("tx", tx.Hash().Hex()),
	)

	confirmations := e.Network.BlockConfirmations
	receipt, err := chain.WaitConfirmed(ctx, e.Backend, tx, confirmations)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}

	rec := &deployments.Record{
		Network:         e.Network.Name,
		ChainID:         e.Network.ChainID,
		Name:            name,
		Address:         address,
		ABI:             artifact.ABI,
		Args:            formatArgs(args),
		ConstructorData: ctorData,
		TransactionHash: tx.Hash(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		Deployer:        e.Deployer.Address(),
	}
	if err := e.Store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("record %s deployment: %w", name, err)
	}

	e.logger().Info("contract deployed",
		slog.String("contract", name),
		slog.String("address", address.Hex()),
		slog.Uint64("gas_used", receipt.GasUsed),
		slog.Uint64("block", rec.BlockNumber),
	)
	return rec, nil
}

// VerifyDeployment submits a recorded deployment to the block explorer.
func (e *Environment) VerifyDeployment(ctx context.Context, rec *deployments.Record) error {
	if e.Verifier == nil {
		return errors.New("deploy: no verifier configured")
	}
	artifact, err := e.Artifacts.Load(rec.Name)
	if err != nil {
		return err
	}
	buildInfo, err := e.Artifacts.BuildInfo(artifact)
	if err != nil {
		return err
	}

	// Constructor data without the bytecode prefix is exactly the ABI-encoded args.
	return e.Verifier.Verify(ctx, verify.Request{
		ChainID:         rec.ChainID,
		Address:         rec.Address,
		ContractName:    artifact.FullyQualifiedName(),
		CompilerVersion: buildInfo.CompilerVersion(),
		SourceCode:      buildInfo.Input,
		ConstructorArgs: rec.ConstructorData,
	})
}

func formatArgs(args []interface{}) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case *big.Int:
			out = append(out, v.String())
		case common.Address:
			out = append(out, v.Hex())
		case common.Hash:
			out = append(out, v.Hex())
		case [32]byte:
			out = append(out, hexutil.Encode(v[:]))
		case uint64:
			out = append(out, strconv.FormatUint(v, 10))
		case uint32:
			out = append(out, strconv.FormatUint(uint64(v), 10))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
