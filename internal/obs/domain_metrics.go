package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesFinalizedTotal counts finalize outcomes by result and payment method.
	SalesFinalizedTotal *prometheus.CounterVec
	// NumberingConflictTotal counts document-number collisions that forced a retry.
	NumberingConflictTotal *prometheus.CounterVec
	// ParkedTicketOpsTotal counts park/list/recover outcomes.
	ParkedTicketOpsTotal *prometheus.CounterVec
	// DrawerCloseTotal counts drawer session closes by reconciliation outcome.
	DrawerCloseTotal *prometheus.CounterVec
	// SideEffectFailureTotal counts non-fatal downstream side-effect failures
	// (stock sync, cash-movement attribution) surfaced after a committed sale.
	SideEffectFailureTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_finalized_total",
			Help:      "Count of sale finalize outcomes.",
		}, []string{"result", "payment_method"})
		NumberingConflictTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbering_conflict_total",
			Help:      "Count of document number collisions by prefix.",
		}, []string{"prefix"})
		ParkedTicketOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parked_ticket_ops_total",
			Help:      "Count of parked ticket operations by action and result.",
		}, []string{"action", "result"})
		DrawerCloseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drawer_close_total",
			Help:      "Count of drawer session closes by outcome (balanced, overage, shortage).",
		}, []string{"result"})
		SideEffectFailureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failure_total",
			Help:      "Count of best-effort side effects that failed after the sale committed.",
		}, []string{"effect"})
		mustRegister(reg,
			SalesFinalizedTotal,
			NumberingConflictTotal,
			ParkedTicketOpsTotal,
			DrawerCloseTotal,
			SideEffectFailureTotal,
		)
	})
}
