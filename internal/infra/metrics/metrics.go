package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// カート→チェックアウト→注文の件数
type Metrics struct {
	cartMutations      *prometheus.CounterVec
	cartMerges         *prometheus.CounterVec
	checkoutsCreated   prometheus.Counter
	paymentsConfirmed  prometheus.Counter
	checkoutsFinalized prometheus.Counter
	versionConflicts   *prometheus.CounterVec
	orderStatusUpdates *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cartMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation.",
		}, []string{"op"}),
		cartMerges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_merges_total",
			Help:      "Guest cart merges by outcome.",
		}, []string{"outcome"}),
		checkoutsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_created_total",
			Help:      "Checkout sessions created.",
		}),
		paymentsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_payments_confirmed_total",
			Help:      "Checkout sessions marked paid.",
		}),
		checkoutsFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_finalized_total",
			Help:      "Checkout sessions converted into orders.",
		}),
		versionConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "version_conflicts_total",
			Help:      "Optimistic concurrency conflicts by entity.",
		}, []string{"entity"}),
		orderStatusUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_status_updates_total",
			Help:      "Administrative order status changes by new status.",
		}, []string{"status"}),
	}
}

// nilでも呼べるようにしておく（テストではmetricsなし）

func (m *Metrics) CartMutation(op string) {
	if m != nil {
		m.cartMutations.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) CartMerge(outcome string) {
	if m != nil {
		m.cartMerges.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) CheckoutCreated() {
	if m != nil {
		m.checkoutsCreated.Inc()
	}
}

func (m *Metrics) PaymentConfirmed() {
	if m != nil {
		m.paymentsConfirmed.Inc()
	}
}

func (m *Metrics) CheckoutFinalized() {
	if m != nil {
		m.checkoutsFinalized.Inc()
	}
}

func (m *Metrics) VersionConflict(entity string) {
	if m != nil {
		m.versionConflicts.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) OrderStatusUpdated(status string) {
	if m != nil {
		m.orderStatusUpdates.WithLabelValues(status).Inc()
	}
}
