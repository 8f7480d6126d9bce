package coordinator

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/patrickmn/go-cache"

	"github.com/GPTx-global/flightsurety/oracle/config"
	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/metrics"
	"github.com/GPTx-global/flightsurety/oracle/notify"
	"github.com/GPTx-global/flightsurety/oracle/retry"
	"github.com/GPTx-global/flightsurety/oracle/types"
	"github.com/GPTx-global/flightsurety/oracle/worker"
)

const seenTTL = time.Hour

var errSubscriptionClosed = errors.New("subscription closed")

type RequestSource interface {
	WatchOracleRequests(ctx context.Context, fromBlock uint64, sink chan<- types.StatusRequestEvent) (event.Subscription, error)
}

type ResponseSubmitter interface {
	SubmitOracleResponse(ctx context.Context, resp types.OracleResponse) error
}

type IdentitySource interface {
	Identities() []types.OracleIdentity
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job worker.Job) error
}

// Coordinator answers every OracleRequest event on behalf of the registered
// oracles holding the requested index.
type Coordinator struct {
	source     RequestSource
	submitter  ResponseSubmitter
	identities IdentitySource
	dispatcher Dispatcher
	publisher  notify.Publisher

	fromBlock uint64
	retryCfg  *retry.RetryConfig
	randN     func(n int) int

	seen      *cache.Cache
	lastBlock atomic.Uint64
}

func New(source RequestSource, submitter ResponseSubmitter, identities IdentitySource, dispatcher Dispatcher, publisher notify.Publisher, fromBlock uint64) *Coordinator {
	if publisher == nil {
		publisher = notify.Nop{}
	}

	return &Coordinator{
		source:     source,
		submitter:  submitter,
		identities: identities,
		dispatcher: dispatcher,
		publisher:  publisher,
		fromBlock:  fromBlock,
		retryCfg:   retry.NetworkRetryConfig(),
		randN:      rand.Intn,
		seen:       cache.New(seenTTL, 10*time.Minute),
	}
}

// Run listens for OracleRequest events until ctx is done. A failed
// subscription is re-established from the last block seen.
func (c *Coordinator) Run(ctx context.Context) error {
	from := c.fromBlock
	log.Infof("coordinator listening for oracle requests from block %d", from)

	for {
		events := make(chan types.StatusRequestEvent, config.ChannelSize())

		var sub event.Subscription
		err := retry.Do(ctx, c.retryCfg, func() error {
			var err error
			sub, err = c.source.WatchOracleRequests(ctx, from, events)
			return err
		}, retry.Always)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("failed to subscribe to oracle requests: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryCfg.MaxDelay):
			}
			continue
		}

		err = c.listen(ctx, sub, events)
		sub.Unsubscribe()
		if err == nil {
			log.Infof("coordinator stopped")
			return nil
		}

		from = max(c.fromBlock, c.lastBlock.Load())
		metrics.Resubscriptions.Inc()
		log.Errorf("oracle request subscription failed: %v, resubscribing from block %d", err, from)
	}
}

func (c *Coordinator) listen(ctx context.Context, sub event.Subscription, events <-chan types.StatusRequestEvent) error {
	for {
		select {
		case ev := <-events:
			c.HandleEvent(ctx, ev)
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return errSubscriptionClosed
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// HandleEvent draws one status code for ev and queues a submission for
// every identity holding the requested index. It returns the number of
// submissions queued. Events already handled are skipped.
func (c *Coordinator) HandleEvent(ctx context.Context, ev types.StatusRequestEvent) int {
	if err := c.seen.Add(ev.Key(), ev.BlockNumber, cache.DefaultExpiration); err != nil {
		metrics.RequestsDuplicated.Inc()
		log.Debugf("skipping duplicate oracle request %s", ev.Key())
		return 0
	}
	metrics.RequestsReceived.Inc()

	for {
		last := c.lastBlock.Load()
		if ev.BlockNumber <= last || c.lastBlock.CompareAndSwap(last, ev.BlockNumber) {
			break
		}
	}

	code := RandomStatusCode(c.randN)
	responses := Plan(ev, c.identities.Identities(), code)
	log.Infof("oracle request index %d for %s@%s (airline %s): %d responders, status %s",
		ev.Index, ev.Flight, ev.Timestamp, ev.Airline.Hex(), len(responses), types.StatusName(code))

	queued := 0
	for _, resp := range responses {
		resp := resp
		err := c.dispatcher.Dispatch(ctx, worker.Job{
			Name: "submitOracleResponse " + resp.Oracle.Hex(),
			Run: func(ctx context.Context) {
				c.submit(ctx, resp)
			},
		})
		if err != nil {
			log.Errorf("oracle %s index %d: response not queued: %v", resp.Oracle.Hex(), resp.Index, err)
			continue
		}
		queued++
	}

	return queued
}

func (c *Coordinator) submit(ctx context.Context, resp types.OracleResponse) {
	err := c.submitter.SubmitOracleResponse(ctx, resp)

	status := strconv.Itoa(int(resp.StatusCode))
	outcome := notify.Outcome{
		Response:  resp,
		Status:    types.StatusName(resp.StatusCode),
		Submitted: err == nil,
		Time:      time.Now(),
	}
	if err != nil {
		outcome.Error = err.Error()
		metrics.ResponsesSubmitted.WithLabelValues(metrics.ResultFailure, status).Inc()
		log.Errorf("oracle %s index %d failed to submit response for %s: %v", resp.Oracle.Hex(), resp.Index, resp.Flight, err)
	} else {
		metrics.ResponsesSubmitted.WithLabelValues(metrics.ResultSuccess, status).Inc()
		log.Debugf("oracle %s index %d submitted %s for %s", resp.Oracle.Hex(), resp.Index, outcome.Status, resp.Flight)
	}

	if err := c.publisher.Publish(outcome); err != nil {
		log.Errorf("failed to publish oracle outcome: %v", err)
	}
}

// Plan lists the responses due for ev: one per identity holding the
// requested index, all carrying code.
func Plan(ev types.StatusRequestEvent, identities []types.OracleIdentity, code uint8) []types.OracleResponse {
	var res []types.OracleResponse
	for _, id := range identities {
		if !id.Has(ev.Index) {
			continue
		}
		res = append(res, types.OracleResponse{
			Oracle:     id.Address,
			Index:      ev.Index,
			Airline:    ev.Airline,
			Flight:     ev.Flight,
			Timestamp:  ev.Timestamp,
			StatusCode: code,
		})
	}
	return res
}

// RandomStatusCode returns a multiple of 10 in [10, 50]. randN(n) must
// return a value in [0, n).
func RandomStatusCode(randN func(n int) int) uint8 {
	r := randN(50) + 1
	return uint8((r + 9) / 10 * 10)
}
