package health

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/GPTx-global/flightsurety/oracle/log"
)

type HealthCheck interface {
	Check(ctx context.Context) error
	Name() string
}

// HealthChecker runs its checks periodically and keeps the last result of each.
type HealthChecker struct {
	checks   map[string]HealthCheck
	mutex    sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	status   map[string]HealthStatus
}

type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"lastCheck"`
	LastError string    `json:"lastError,omitempty"`
}

func NewHealthChecker(interval time.Duration) *HealthChecker {
	return &HealthChecker{
		checks:   make(map[string]HealthCheck),
		status:   make(map[string]HealthStatus),
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// AddCheck registers check. It counts as healthy until it first runs.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()

	name := check.Name()
	hc.checks[name] = check
	hc.status[name] = HealthStatus{Healthy: true, LastCheck: time.Now()}

	log.Debugf("added health check: %s", name)
}

// Start runs all checks immediately and then every interval until ctx is done.
func (hc *HealthChecker) Start(ctx context.Context) {
	log.Debugf("health checker started, interval %v", hc.interval)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.RunChecks(ctx)

	for {
		select {
		case <-ticker.C:
			hc.RunChecks(ctx)
		case <-ctx.Done():
			log.Debugf("health checker stopped")
			return
		}
	}
}

// RunChecks runs every check concurrently and waits for all of them.
func (hc *HealthChecker) RunChecks(ctx context.Context) {
	hc.mutex.RLock()
	checks := make([]HealthCheck, 0, len(hc.checks))
	for _, check := range hc.checks {
		checks = append(checks, check)
	}
	hc.mutex.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		check := check
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
			err := check.Check(checkCtx)
			cancel()

			status := HealthStatus{Healthy: err == nil, LastCheck: time.Now()}
			if err != nil {
				status.LastError = err.Error()
				log.Warnf("health check failed - %s: %v", check.Name(), err)
			}

			hc.mutex.Lock()
			hc.status[check.Name()] = status
			hc.mutex.Unlock()
		}()
	}
	wg.Wait()
}

func (hc *HealthChecker) GetStatus() map[string]HealthStatus {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	return maps.Clone(hc.status)
}

// IsHealthy reports whether every check passed on its last run.
func (hc *HealthChecker) IsHealthy() bool {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	for _, status := range hc.status {
		if !status.Healthy {
			return false
		}
	}

	return true
}

// FuncCheck adapts a function to HealthCheck.
type FuncCheck struct {
	name      string
	checkFunc func(ctx context.Context) error
}

func NewFuncCheck(name string, checkFunc func(ctx context.Context) error) *FuncCheck {
	return &FuncCheck{name: name, checkFunc: checkFunc}
}

func (c *FuncCheck) Check(ctx context.Context) error {
	return c.checkFunc(ctx)
}

func (c *FuncCheck) Name() string {
	return c.name
}

// Pinger is a reachable chain node.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChainCheck fails when the chain node does not answer.
func ChainCheck(p Pinger) *FuncCheck {
	return NewFuncCheck("chain", p.Ping)
}

// OraclePoolCheck fails when no oracle could be registered.
func OraclePoolCheck(size func() int) *FuncCheck {
	return NewFuncCheck("oracles", func(context.Context) error {
		if size() == 0 {
			return fmt.Errorf("no registered oracles")
		}
		return nil
	})
}
