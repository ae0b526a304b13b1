package deployments

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenPostgres creates a connection pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies all pending migrations. dsn must be a postgres:// URL.
func Migrate(dsn string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// PostgresStore keeps records in the deployments table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	prepare(rec)

	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("Save: marshal args: %w", err)
	}
	abiJSON := rec.ABI
	if len(abiJSON) == 0 {
		abiJSON = json.RawMessage("[]")
	}

	query := `
		INSERT INTO deployments (id, network, chain_id, name, address, abi, args, constructor_data,
			transaction_hash, block_number, deployer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (network, name) DO UPDATE SET
			chain_id = EXCLUDED.chain_id,
			address = EXCLUDED.address,
			abi = EXCLUDED.abi,
			args = EXCLUDED.args,
			constructor_data = EXCLUDED.constructor_data,
			transaction_hash = EXCLUDED.transaction_hash,
			block_number = EXCLUDED.block_number,
			deployer = EXCLUDED.deployer,
			created_at = EXCLUDED.created_at
		RETURNING id`

	err = s.pool.QueryRow(ctx, query,
		rec.ID, rec.Network, int64(rec.ChainID), rec.Name, rec.Address.Hex(), []byte(abiJSON), args,
		[]byte(rec.ConstructorData), rec.TransactionHash.Hex(), int64(rec.BlockNumber), rec.Deployer.Hex(), rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

const selectRecord = `
	SELECT id, network, chain_id, name, address, abi, args, constructor_data,
		transaction_hash, block_number, deployer, created_at
	FROM deployments`

func (s *PostgresStore) Get(ctx context.Context, network, name string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectRecord+` WHERE network = $1 AND name = $2`, network, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, name, network)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, network string) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, selectRecord+` WHERE network = $1 ORDER BY name`, network)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, network string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM deployments WHERE network = $1`, network); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                       Record
		chainID, blockNumber      int64
		address, txHash, deployer string
		abiJSON, args, ctorData   []byte
	)
	err := row.Scan(&rec.ID, &rec.Network, &chainID, &rec.Name, &address, &abiJSON, &args, &ctorData,
		&txHash, &blockNumber, &deployer, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(args, &rec.Args); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	rec.ChainID = uint64(chainID)
	rec.BlockNumber = uint64(blockNumber)
	rec.Address = common.HexToAddress(address)
	rec.TransactionHash = common.HexToHash(txHash)
	rec.Deployer = common.HexToAddress(deployer)
	rec.ABI = json.RawMessage(abiJSON)
	if len(ctorData) > 0 {
		rec.ConstructorData = ctorData
	}
	return &rec, nil
}
