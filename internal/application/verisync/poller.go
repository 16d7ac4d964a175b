package verisync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// Poller periodically checks the processing status of submitted invoices
// until the authority reports a terminal outcome. It scans the repository
// on each tick, so invoices that were submitted before a restart are
// picked up again and nothing keeps per-invoice timers alive.
type Poller struct {
	invoices     billing.InvoiceRepository
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewPoller creates an invoice status poller
func NewPoller(
	invoices billing.InvoiceRepository,
	orchestrator *Orchestrator,
	interval time.Duration,
	logger *zap.Logger,
) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		invoices:     invoices,
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger.Named("verisync.poller"),
	}
}

// Start launches the polling loop. It is a no-op when already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(ctx)
	p.logger.Info("invoice status poller started",
		zap.Duration("interval", p.interval))
}

// Stop terminates the polling loop and waits for the in-flight pass to
// finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info("invoice status poller stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll refreshes every invoice still waiting on the authority's pipeline
func (p *Poller) poll(ctx context.Context) {
	filter := shared.DefaultFilter()
	filter.PageSize = 200

	pending, err := p.invoices.FindBySyncStatus(ctx, taxsync.StatusSubmitted, filter)
	if err != nil {
		p.logger.Error("failed to list submitted invoices", zap.Error(err))
		return
	}

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		invoice := &pending[i]
		if _, err := p.orchestrator.RefreshInvoiceStatus(ctx, invoice.ID); err != nil {
			p.logger.Warn("status refresh failed",
				zap.String("invoice", invoice.FullNumber()),
				zap.Error(err))
		}
	}
}
