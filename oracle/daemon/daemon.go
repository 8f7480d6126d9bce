package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/flightsurety/oracle/catalog"
	"github.com/GPTx-global/flightsurety/oracle/chain"
	"github.com/GPTx-global/flightsurety/oracle/config"
	"github.com/GPTx-global/flightsurety/oracle/coordinator"
	"github.com/GPTx-global/flightsurety/oracle/health"
	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/notify"
	"github.com/GPTx-global/flightsurety/oracle/registry"
	"github.com/GPTx-global/flightsurety/oracle/server"
	"github.com/GPTx-global/flightsurety/oracle/types"
	"github.com/GPTx-global/flightsurety/oracle/worker"
)

type Daemon struct {
	client    *chain.Client
	app       *chain.App
	data      *chain.Data
	publisher notify.Publisher

	accounts      Accounts
	jobManager    *worker.JobManager
	registry      *registry.Registry
	catalog       *catalog.Generator
	coordinator   *coordinator.Coordinator
	healthChecker *health.HealthChecker
	server        *server.Server

	ctx  context.Context
	wg   sync.WaitGroup
	errc chan error
}

// New connects to the chain node and binds the contracts.
func New(ctx context.Context) (*Daemon, error) {
	d := new(Daemon)
	d.ctx = ctx
	d.errc = make(chan error, 2)

	appAddress, dataAddress, err := contractAddresses()
	if err != nil {
		return nil, err
	}

	clt, err := chain.Dial(ctx, config.ChainEndpoint())
	if err != nil {
		return nil, err
	}
	d.client = clt

	d.app, err = chain.NewApp(appAddress, config.AppArtifact(), clt)
	if err != nil {
		clt.Close()
		return nil, fmt.Errorf("failed to bind app contract: %w", err)
	}

	d.data, err = chain.NewData(dataAddress, config.DataArtifact(), clt)
	if err != nil {
		clt.Close()
		return nil, fmt.Errorf("failed to bind data contract: %w", err)
	}

	d.publisher, err = notify.New(config.NatsURL(), config.NatsSubject())
	if err != nil {
		clt.Close()
		return nil, err
	}

	d.jobManager = worker.NewJobManager(config.ChannelSize())
	d.registry = registry.New(d.app)
	d.healthChecker = health.NewHealthChecker(30 * time.Second)

	return d, nil
}

func contractAddresses() (common.Address, common.Address, error) {
	if !common.IsHexAddress(config.AppAddress()) {
		return common.Address{}, common.Address{}, errorsmod.Wrapf(types.ErrInvalidConfig, "app address %q", config.AppAddress())
	}
	if !common.IsHexAddress(config.DataAddress()) {
		return common.Address{}, common.Address{}, errorsmod.Wrapf(types.ErrInvalidConfig, "data address %q", config.DataAddress())
	}

	return common.HexToAddress(config.AppAddress()), common.HexToAddress(config.DataAddress()), nil
}

// Start bootstraps airlines and oracles, then starts the coordinator, the
// health checker and the HTTP server. It returns once everything runs.
func (d *Daemon) Start() error {
	all, err := d.client.Accounts(d.ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	d.accounts, err = ResolveAccounts(all,
		config.OwnerIndex(),
		config.AirlineStart(), config.AirlineCount(),
		config.OracleStart(), config.OracleCount())
	if err != nil {
		return err
	}
	log.Infof("owner %s, %d airlines, %d oracle accounts", d.accounts.Owner.Hex(), len(d.accounts.Airlines), len(d.accounts.Oracles))

	if ok, err := d.app.IsOperational(d.ctx, d.accounts.Owner); err != nil {
		log.Errorf("failed to read operational status: %v", err)
	} else if !ok {
		log.Warnf("app contract %s is not operational", d.app.Address().Hex())
	}

	registered := BootstrapAirlines(d.ctx, d.data, d.app, d.app.Address(), d.accounts)
	log.Infof("%d of %d airlines registered", len(registered), len(d.accounts.Airlines))

	if _, err := d.registry.Register(d.ctx, d.accounts.Oracles); err != nil {
		return fmt.Errorf("failed to register oracles: %w", err)
	}
	for _, id := range d.registry.Identities() {
		log.Infof("oracle %s has indexes %v", id.Address.Hex(), id.Indexes)
	}

	d.jobManager.Start(d.ctx, config.Workers())

	d.catalog = catalog.New(d.app, d.jobManager, CatalogAirlines(registered, d.accounts), config.Flights(), config.MinOffset(), config.MaxOffset())
	d.coordinator = coordinator.New(d.app, d.app, d.registry, d.jobManager, d.publisher, config.FromBlock())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.coordinator.Run(d.ctx); err != nil {
			d.errc <- fmt.Errorf("coordinator stopped: %w", err)
		}
	}()

	d.healthChecker.AddCheck(health.ChainCheck(d.client))
	d.healthChecker.AddCheck(health.OraclePoolCheck(d.registry.Len))
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.healthChecker.Start(d.ctx)
	}()

	d.server = server.New(config.ServerListen(), d.catalog, d.registry, d.healthChecker)
	go func() {
		if err := d.server.Start(); err != nil {
			d.errc <- fmt.Errorf("http server stopped: %w", err)
		}
	}()

	log.Infof("awaiting OracleRequest events to submit responses")
	return nil
}

// Err reports a component that stopped on its own.
func (d *Daemon) Err() <-chan error {
	return d.errc
}

// Stop shuts down the server, waits for the coordinator and the worker pool,
// and closes the chain connection. The caller cancels the daemon context first.
func (d *Daemon) Stop() {
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.server.Shutdown(ctx); err != nil {
			log.Errorf("failed to shut down http server: %v", err)
		}
		cancel()
	}

	d.wg.Wait()
	d.jobManager.Stop()
	d.publisher.Close()
	d.client.Close()
	log.Infof("daemon stopped")
}
