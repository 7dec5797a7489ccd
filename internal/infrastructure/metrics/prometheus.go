package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rukioi/legal-saas-api/internal/application/ports"
)

var _ ports.AuthMetrics = (*AuthMetrics)(nil)

// AuthMetrics adaptador Prometheus del puerto ports.AuthMetrics.
type AuthMetrics struct {
	logins         *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	keyConsumption *prometheus.CounterVec
	refreshReuse   *prometheus.CounterVec
	bookkeeping    *prometheus.CounterVec
}

// NewAuthMetrics crea y registra los contadores en reg (prometheus.DefaultRegisterer si es nil).
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &AuthMetrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Intentos de login por tipo de sujeto y resultado",
		}, []string{"subject", "result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registros de usuario con clave por resultado",
		}, []string{"result"}),
		keyConsumption: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registration_key_consumptions_total",
			Help: "Consumos de claves de registro por resultado",
		}, []string{"result"}),
		refreshReuse: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_token_reuse_total",
			Help: "Refresh tokens presentados después de rotados o revocados",
		}, []string{"subject"}),
		bookkeeping: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_bookkeeping_failures_total",
			Help: "Fallos en efectos secundarios best-effort",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{m.logins, m.registrations, m.keyConsumption, m.refreshReuse, m.bookkeeping} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *AuthMetrics) Login(subject, result string) {
	m.logins.WithLabelValues(subject, result).Inc()
}

func (m *AuthMetrics) Registration(result string) {
	m.registrations.WithLabelValues(result).Inc()
}

func (m *AuthMetrics) KeyConsumption(result string) {
	m.keyConsumption.WithLabelValues(result).Inc()
}

func (m *AuthMetrics) RefreshReuse(subject string) {
	m.refreshReuse.WithLabelValues(subject).Inc()
}

func (m *AuthMetrics) Bookkeeping(operation string) {
	m.bookkeeping.WithLabelValues(operation).Inc()
}
