package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/bohdan-ly/lottery-smart-contract/internal/chain"
	"github.com/bohdan-ly/lottery-smart-contract/internal/contracts"
	"github.com/bohdan-ly/lottery-smart-contract/internal/deployments"
	"github.com/bohdan-ly/lottery-smart-contract/internal/frontend"
)

// ErrNoMockCoordinator is returned when the lottery is deployed to a
// development network before the coordinator mock.
var ErrNoMockCoordinator = errors.New("deploy: VRFCoordinatorV2Mock is not deployed, run the mocks step first")

const separator = "----------------------------------------"

var (
	// BaseFee is the mock coordinator's flat premium per request, 0.25 LINK.
	BaseFee = new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(4))
	// GasPriceLink is the mock's LINK per gas.
	GasPriceLink = big.NewInt(1e9)
	// VRFSubFundAmount funds the mock subscription, 2 LINK.
	VRFSubFundAmount = new(big.Int).Mul(big.NewInt(2), big.NewInt(params.Ether))
)

// MocksScript deploys the VRF coordinator mock on development networks.
type MocksScript struct {
	BaseFee      *big.Int
	GasPriceLink *big.Int
}

func NewMocksScript() *MocksScript {
	return &MocksScript{BaseFee: BaseFee, GasPriceLink: GasPriceLink}
}

func (*MocksScript) Name() string   { return "00-deploy-mocks" }
func (*MocksScript) Tags() []string { return []string{"all", "mocks"} }

func (s *MocksScript) Run(ctx context.Context, env *Environment) error {
	log := env.logger()
	if !env.Network.IsDevelopment() {
		log.Debug("skipping mocks on live network", slog.String("network", env.Network.Name))
		return nil
	}

	log.Info("Local network detected. Deploying mocks...")
	if _, err := env.Deploy(ctx, contracts.CoordinatorName, s.BaseFee, s.GasPriceLink); err != nil {
		return err
	}
	log.Info("Mocks Deployed")
	log.Info("------------------------------")
	return nil
}

// LotteryScript deploys the lottery. On development networks it also creates,
// funds and registers a mock VRF subscription.
type LotteryScript struct {
	SubFundAmount *big.Int
}

func NewLotteryScript() *LotteryScript {
	return &LotteryScript{SubFundAmount: VRFSubFundAmount}
}

func (*LotteryScript) Name() string   { return "01-deploy-lottery" }
func (*LotteryScript) Tags() []string { return []string{"all", "lottery"} }

func (s *LotteryScript) Run(ctx context.Context, env *Environment) error {
	log := env.logger()
	p := env.Network

	var (
		mock           *contracts.VRFCoordinatorV2Mock
		coordinator    common.Address
		subscriptionID uint64
	)
	if p.IsDevelopment() {
		rec, err := env.Get(ctx, contracts.CoordinatorName)
		if errors.Is(err, deployments.ErrNotFound) {
			return ErrNoMockCoordinator
		}
		if err != nil {
			return err
		}
		mock = contracts.NewVRFCoordinatorV2Mock(rec.Address, env.Backend)
		coordinator = rec.Address

		subscriptionID, err = s.createSubscription(ctx, env, mock)
		if err != nil {
			return err
		}
	} else {
		coordinator = p.VRFCoordinator
		subscriptionID = p.SubscriptionID
	}

	rec, err := env.Deploy(ctx, contracts.LotteryName,
		coordinator,
		p.EntranceFee,
		[32]byte(p.GasLane),
		subscriptionID,
		p.CallbackGasLimit,
		p.IntervalBig(),
	)
	if err != nil {
		return err
	}

	if mock != nil {
		opts, err := env.Deployer.TransactOpts(ctx)
		if err != nil {
			return err
		}
		tx, err := mock.AddConsumer(opts, subscriptionID, rec.Address)
		if err != nil {
			return fmt.Errorf("add consumer: %w", err)
		}
		if _, err := chain.WaitConfirmed(ctx, env.Backend, tx, 1); err != nil {
			return fmt.Errorf("add consumer: %w", err)
		}
		log.Info("lottery registered as VRF consumer", slog.Uint64("subscription_id", subscriptionID))
	}

	if !p.IsDevelopment() && env.Verifier != nil {
		if err := env.VerifyDeployment(ctx, rec); err != nil {
			log.Error("verification failed",
				slog.String("contract", rec.Name),
				slog.String("error", err.Error()),
			)
		}
	}

	log.Info(separator)
	return nil
}

func (s *LotteryScript) createSubscription(ctx context.Context, env *Environment, mock *contracts.VRFCoordinatorV2Mock) (uint64, error) {
	opts, err := env.Deployer.TransactOpts(ctx)
	if err != nil {
		return 0, err
	}
	tx, err := mock.CreateSubscription(opts)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}
	receipt, err := chain.WaitConfirmed(ctx, env.Backend, tx, 1)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}
	created, err := mock.FindSubscriptionCreated(receipt)
	if err != nil {
		return 0, err
	}

	// Usually funded with LINK on a real network.
	opts, err = env.Deployer.TransactOpts(ctx)
	if err != nil {
		return 0, err
	}
	tx, err = mock.FundSubscription(opts, created.SubId, s.SubFundAmount)
	if err != nil {
		return 0, fmt.Errorf("fund subscription: %w", err)
	}
	if _, err := chain.WaitConfirmed(ctx, env.Backend, tx, 1); err != nil {
		return 0, fmt.Errorf("fund subscription: %w", err)
	}

	env.logger().Info("VRF subscription created",
		slog.Uint64("subscription_id", created.SubId),
		slog.String("funded", s.SubFundAmount.String()),
	)
	return created.SubId, nil
}

// FrontendScript writes the lottery address and ABI into the frontend when enabled.
type FrontendScript struct{}

func (FrontendScript) Name() string   { return "99-update-frontend" }
func (FrontendScript) Tags() []string { return []string{"all", "frontend"} }

func (FrontendScript) Run(ctx context.Context, env *Environment) error {
	if env.Frontend == nil {
		return nil
	}
	log := env.logger()
	log.Info("Updating frontend...")

	rec, err := env.Get(ctx, contracts.LotteryName)
	if err != nil {
		return err
	}
	if err := env.Frontend.UpdateContractAddresses(rec.ChainID, rec.Address); err != nil {
		return err
	}
	if err := env.Frontend.UpdateABI(rec.ABI); err != nil {
		if errors.Is(err, frontend.ErrInvalidABIFormat) {
			log.Warn("ABI had invalid format, please check and try again.")
			return nil
		}
		return err
	}
	return nil
}
