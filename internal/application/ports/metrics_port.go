package ports

// AuthMetrics define el puerto de salida para contadores de eventos de autenticación.
// El adaptador Prometheus vive en infrastructure/metrics; NopMetrics sirve para tests.
type AuthMetrics interface {
	// Login registra un intento de login. subject: user|admin; result: success|invalid_credentials|deactivated|error.
	Login(subject, result string)
	// Registration registra un intento de registro con clave.
	Registration(result string)
	// KeyConsumption registra el resultado de consumir una clave (ok o la causa del rechazo).
	KeyConsumption(result string)
	// RefreshReuse registra la presentación de un refresh token ya rotado o revocado.
	RefreshReuse(subject string)
	// Bookkeeping registra un fallo en un efecto secundario best-effort.
	Bookkeeping(operation string)
}

// NopMetrics implementa AuthMetrics sin hacer nada.
type NopMetrics struct{}

func (NopMetrics) Login(string, string)  {}
func (NopMetrics) Registration(string)   {}
func (NopMetrics) KeyConsumption(string) {}
func (NopMetrics) RefreshReuse(string)   {}
func (NopMetrics) Bookkeeping(string)    {}
