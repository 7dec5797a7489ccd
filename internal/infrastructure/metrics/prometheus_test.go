package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rukioi/legal-saas-api/internal/infrastructure/metrics"
)

func TestAuthMetrics_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewAuthMetrics(reg)
	require.NoError(t, err)

	m.Login("user", "success")
	m.Login("user", "success")
	m.Login("admin", "invalid_credentials")
	m.KeyConsumption("exhausted")
	m.RefreshReuse("user")

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	const expected = `
# HELP auth_logins_total Intentos de login por tipo de sujeto y resultado
# TYPE auth_logins_total counter
auth_logins_total{result="invalid_credentials",subject="admin"} 1
auth_logins_total{result="success",subject="user"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "auth_logins_total"))
}

func TestNewAuthMetrics_RegistroDuplicadoFalla(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewAuthMetrics(reg)
	require.NoError(t, err)

	_, err = metrics.NewAuthMetrics(reg)
	assert.Error(t, err)
}
