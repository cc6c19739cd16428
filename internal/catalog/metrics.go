package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	resultOK    = "ok"
	resultError = "error"
)

type Metrics struct {
	Products    prometheus.Gauge
	StoreWrites *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products currently in the catalog",
		}),
		StoreWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_store_writes_total",
				Help: "Catalog persistence attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.Products, m.StoreWrites)
	return m
}

func (m *Metrics) setProducts(n int) {
	if m == nil {
		return
	}
	m.Products.Set(float64(n))
}

func (m *Metrics) storeWrite(err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.StoreWrites.WithLabelValues(result).Inc()
}
