package catalog

import (
	"cmp"
	"context"
	"math/big"
	"math/rand"
	"slices"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/metrics"
	"github.com/GPTx-global/flightsurety/oracle/types"
	"github.com/GPTx-global/flightsurety/oracle/worker"
)

// FlightRegistrar registers a flight on chain on behalf of its airline.
type FlightRegistrar interface {
	RegisterFlight(ctx context.Context, airline common.Address, flight string, timestamp *big.Int) error
}

// Dispatcher runs jobs in the background without blocking the caller.
type Dispatcher interface {
	SubmitJob(job worker.Job) bool
}

type Generator struct {
	registrar  FlightRegistrar
	dispatcher Dispatcher
	airlines   []common.Address
	flights    []string
	minOffset  int64
	maxOffset  int64

	now   func() time.Time
	randN func(n int64) int64

	mu      sync.RWMutex
	current []types.SyntheticFlight

	registrations cmap.ConcurrentMap[string, types.Registration]
}

// New creates a generator over the fixed flight numbers. Departure times are
// now plus an offset in [minOffset, maxOffset).
func New(registrar FlightRegistrar, dispatcher Dispatcher, airlines []common.Address, flights []string, minOffset, maxOffset time.Duration) *Generator {
	return &Generator{
		registrar:     registrar,
		dispatcher:    dispatcher,
		airlines:      slices.Clone(airlines),
		flights:       slices.Clone(flights),
		minOffset:     minOffset.Milliseconds(),
		maxOffset:     maxOffset.Milliseconds(),
		now:           time.Now,
		randN:         rand.Int63n,
		registrations: cmap.New[types.Registration](),
	}
}

// Generate builds a fresh catalog with one entry per flight number, replaces
// the current catalog with it, and queues on-chain registration of every
// entry. It returns before any registration is confirmed.
func (g *Generator) Generate() ([]types.SyntheticFlight, error) {
	if len(g.airlines) == 0 {
		return nil, types.ErrNoAirlines
	}

	now := g.now().UnixMilli()
	catalog := make([]types.SyntheticFlight, 0, len(g.flights))
	for _, number := range g.flights {
		catalog = append(catalog, types.SyntheticFlight{
			FlightNumber: number,
			Airline:      g.airlines[g.randN(int64(len(g.airlines)))],
			Timestamp:    now + g.offset(),
		})
	}

	g.mu.Lock()
	g.current = catalog
	g.mu.Unlock()
	metrics.CatalogsGenerated.Inc()

	for _, flight := range catalog {
		g.register(flight)
	}
	g.prune(catalog)

	return slices.Clone(catalog), nil
}

func (g *Generator) offset() int64 {
	if g.maxOffset <= g.minOffset {
		return g.minOffset
	}
	return g.minOffset + g.randN(g.maxOffset-g.minOffset)
}

func (g *Generator) register(flight types.SyntheticFlight) {
	key := flight.Key()
	g.registrations.Set(key, types.Registration{Flight: flight, State: types.RegistrationPending})

	ok := g.dispatcher.SubmitJob(worker.Job{
		Name: "registerFlight " + key,
		Run: func(ctx context.Context) {
			err := g.registrar.RegisterFlight(ctx, flight.Airline, flight.FlightNumber, flight.TimestampSeconds())
			g.complete(flight, err)
		},
	})
	if !ok {
		g.complete(flight, errorsmod.Wrap(types.ErrChainTransaction, "registration queue full"))
	}
}

// prune drops settled registrations of flights that left the catalog.
// Pending entries stay until their job completes.
func (g *Generator) prune(catalog []types.SyntheticFlight) {
	keep := make(map[string]struct{}, len(catalog))
	for _, flight := range catalog {
		keep[flight.Key()] = struct{}{}
	}

	for _, key := range g.registrations.Keys() {
		if _, ok := keep[key]; ok {
			continue
		}
		g.registrations.RemoveCb(key, func(_ string, reg types.Registration, exists bool) bool {
			return exists && reg.State != types.RegistrationPending
		})
	}
}

func (g *Generator) complete(flight types.SyntheticFlight, err error) {
	reg := types.Registration{Flight: flight, State: types.RegistrationRegistered}
	if err != nil {
		reg.State = types.RegistrationFailed
		reg.Error = err.Error()
		metrics.FlightRegistrations.WithLabelValues(metrics.ResultFailure).Inc()
		log.Errorf("failed to register flight %s for airline %s: %v", flight.Key(), flight.Airline.Hex(), err)
	} else {
		metrics.FlightRegistrations.WithLabelValues(metrics.ResultSuccess).Inc()
		log.Debugf("flight %s registered for airline %s", flight.Key(), flight.Airline.Hex())
	}

	g.registrations.Set(flight.Key(), reg)
}

// Current returns the last generated catalog, or nil before the first call
// to Generate.
func (g *Generator) Current() []types.SyntheticFlight {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Clone(g.current)
}

// Registration returns the on-chain registration status of flight.
func (g *Generator) Registration(flight types.SyntheticFlight) (types.Registration, bool) {
	return g.registrations.Get(flight.Key())
}

// Registrations returns the registrations of the current catalog and of
// earlier flights still pending, ordered by flight number and departure time.
func (g *Generator) Registrations() []types.Registration {
	res := make([]types.Registration, 0, g.registrations.Count())
	for _, reg := range g.registrations.Items() {
		res = append(res, reg)
	}

	slices.SortFunc(res, func(a, b types.Registration) int {
		if c := cmp.Compare(a.Flight.FlightNumber, b.Flight.FlightNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Flight.Timestamp, b.Flight.Timestamp)
	})
	return res
}

// Airlines returns the airline pool flights are drawn from.
func (g *Generator) Airlines() []common.Address {
	return slices.Clone(g.airlines)
}
